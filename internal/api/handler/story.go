package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type StoryHandler struct {
	storyService *service.StoryService
}

func NewStoryHandler(storyService *service.StoryService) *StoryHandler {
	return &StoryHandler{
		storyService: storyService,
	}
}

// List 文章列表
// GET /api/v1/stories?tag=
func (h *StoryHandler) List(c *gin.Context) {
	var req dto.StoryListRequest
	if !bindQuery(c, &req) {
		return
	}
	normalizePage(&req.Page, &req.PageSize)

	items, total, err := h.storyService.List(middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Get 文章详情
// GET /api/v1/stories/:slug
func (h *StoryHandler) Get(c *gin.Context) {
	item, err := h.storyService.Get(middleware.GetActor(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Create 创建文章
// POST /api/v1/stories
func (h *StoryHandler) Create(c *gin.Context) {
	var req dto.StoryRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.storyService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新文章
// PATCH /api/v1/stories/:slug
func (h *StoryHandler) Update(c *gin.Context) {
	var req dto.StoryRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.storyService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("slug"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete 删除文章
// DELETE /api/v1/stories/:slug
func (h *StoryHandler) Delete(c *gin.Context) {
	if err := h.storyService.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}
