package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type SearchHandler struct {
	indexService *service.IndexService
}

func NewSearchHandler(indexService *service.IndexService) *SearchHandler {
	return &SearchHandler{
		indexService: indexService,
	}
}

// Search 搜索已发布的菜谱和文章
// GET /api/v1/search?q=&type=
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if !bindQuery(c, &req) {
		return
	}
	normalizePage(&req.Page, &req.PageSize)

	items, total, err := h.indexService.Search(&req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}
