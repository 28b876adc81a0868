package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type UserHandler struct {
	userService   *service.UserService
	maxAvatarSize int64
}

func NewUserHandler(userService *service.UserService, maxAvatarSize int64) *UserHandler {
	return &UserHandler{
		userService:   userService,
		maxAvatarSize: maxAvatarSize,
	}
}

// List 用户列表
// GET /api/v1/users
func (h *UserHandler) List(c *gin.Context) {
	var req dto.UserListRequest
	if !bindQuery(c, &req) {
		return
	}
	normalizePage(&req.Page, &req.PageSize)

	items, total, err := h.userService.List(middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Me 当前用户
// GET /api/v1/users/me
func (h *UserHandler) Me(c *gin.Context) {
	actor := middleware.GetActor(c)
	item, err := h.userService.Get(actor, actor.UserID)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Get 获取用户信息
// GET /api/v1/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	item, err := h.userService.Get(middleware.GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Update 更新用户信息
// PATCH /api/v1/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.userService.Update(middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "更新成功", item)
}

// Delete 删除用户及其评论
// DELETE /api/v1/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.userService.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// UploadAvatar 上传头像
// POST /api/v1/users/me/avatar
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	data, ok := readUpload(c, "file", h.maxAvatarSize)
	if !ok {
		return
	}

	item, err := h.userService.UploadAvatar(c.Request.Context(), middleware.GetActor(c), data)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	response.SuccessWithMessage(c, "上传成功", item)
}
