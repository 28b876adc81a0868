package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type RecipeHandler struct {
	recipeService *service.RecipeService
}

func NewRecipeHandler(recipeService *service.RecipeService) *RecipeHandler {
	return &RecipeHandler{
		recipeService: recipeService,
	}
}

// List 菜谱列表
// GET /api/v1/recipes?category=&tag=
func (h *RecipeHandler) List(c *gin.Context) {
	var req dto.RecipeListRequest
	if !bindQuery(c, &req) {
		return
	}
	normalizePage(&req.Page, &req.PageSize)

	items, total, err := h.recipeService.List(middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// Get 菜谱详情
// GET /api/v1/recipes/:slug
func (h *RecipeHandler) Get(c *gin.Context) {
	item, err := h.recipeService.Get(middleware.GetActor(c), c.Param("slug"))
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Create 创建菜谱
// POST /api/v1/recipes
func (h *RecipeHandler) Create(c *gin.Context) {
	var req dto.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.recipeService.Create(c.Request.Context(), middleware.GetActor(c), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, item)
}

// Update 更新菜谱
// PATCH /api/v1/recipes/:slug
func (h *RecipeHandler) Update(c *gin.Context) {
	var req dto.RecipeRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.recipeService.Update(c.Request.Context(), middleware.GetActor(c), c.Param("slug"), &req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, item)
}

// Delete 删除菜谱
// DELETE /api/v1/recipes/:slug
func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipeService.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("slug")); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "删除成功", nil)
}

// Categories 分类树
// GET /api/v1/recipes/categories
func (h *RecipeHandler) Categories(c *gin.Context) {
	items, err := h.recipeService.Categories()
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}

// Tags 全部标签
// GET /api/v1/recipes/tags
func (h *RecipeHandler) Tags(c *gin.Context) {
	items, err := h.recipeService.Tags()
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, items)
}
