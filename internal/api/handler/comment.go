package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
	}
}

// List 获取评论列表
// GET /api/v1/comments?object_id=
func (h *CommentHandler) List(c *gin.Context) {
	var req dto.CommentListRequest
	if !bindQuery(c, &req) {
		return
	}
	normalizePage(&req.Page, &req.PageSize)

	items, total, err := h.commentService.List(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Get 获取单条评论
// GET /api/v1/comments/:id
func (h *CommentHandler) Get(c *gin.Context) {
	item, err := h.commentService.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Create 发表评论，匿名用户需提供 unregistered_author
// POST /api/v1/comments
func (h *CommentHandler) Create(c *gin.Context) {
	var req dto.CreateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.commentService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 部分更新评论
// PATCH /api/v1/comments/:id
func (h *CommentHandler) Update(c *gin.Context) {
	var req dto.UpdateCommentRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.commentService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete 删除评论及其回复
// DELETE /api/v1/comments/:id
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.commentService.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
