package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

type BasicHandler struct {
	basicService *service.BasicService
}

func NewBasicHandler(basicService *service.BasicService) *BasicHandler {
	return &BasicHandler{
		basicService: basicService,
	}
}

// Contact 联系表单
// POST /api/v1/contact
func (h *BasicHandler) Contact(c *gin.Context) {
	var req dto.ContactRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.basicService.Contact(c.Request.Context(), &req); err != nil {
		writeError(c, err)
		return
	}

	response.SuccessWithMessage(c, "消息已发送", nil)
}

// Newsletter 订阅邮件列表
// POST /api/v1/newsletter
func (h *BasicHandler) Newsletter(c *gin.Context) {
	var req dto.NewsletterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.basicService.Newsletter(c.Request.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrNewsletterUnavailable) {
			response.ServerError(c, err.Error())
			return
		}
		writeError(c, err)
		return
	}

	response.Success(c, resp)
}
