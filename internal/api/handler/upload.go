package handler

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/api/middleware"
	"github.com/qs3c/pec_go_server/internal/pkg/response"
	"github.com/qs3c/pec_go_server/internal/service"
)

const uploadPrefix = "uploads"

type UploadHandler struct {
	uploadService *service.UploadService
	cfg           *config.UploadConfig
}

func NewUploadHandler(uploadService *service.UploadService, cfg *config.UploadConfig) *UploadHandler {
	return &UploadHandler{
		uploadService: uploadService,
		cfg:           cfg,
	}
}

// Image 上传图片，仅管理员
// POST /api/v1/uploads/image
func (h *UploadHandler) Image(c *gin.Context) {
	if !middleware.GetActor(c).IsStaff {
		response.PermissionError(c, "")
		return
	}

	data, ok := readUpload(c, "file", h.cfg.MaxSize)
	if !ok {
		return
	}

	resp, err := h.uploadService.SaveImage(c.Request.Context(), uploadPrefix, "", data)
	if err != nil {
		writeUploadError(c, err)
		return
	}

	response.Created(c, resp)
}

// readUpload 读取 multipart 文件内容，超过 maxSize 时写入错误响应
func readUpload(c *gin.Context, field string, maxSize int64) ([]byte, bool) {
	file, err := c.FormFile(field)
	if err != nil {
		response.ValidationError(c, map[string][]string{field: {service.CodeRequired}})
		return nil, false
	}
	if maxSize > 0 && file.Size > maxSize {
		response.ValidationError(c, map[string][]string{field: {"file_too_large"}})
		return nil, false
	}

	f, err := file.Open()
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return nil, false
	}
	defer f.Close()

	var r io.Reader = f
	if maxSize > 0 {
		r = io.LimitReader(f, maxSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return nil, false
	}
	return data, true
}

func writeUploadError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrFileTooLarge):
		response.ValidationError(c, map[string][]string{"file": {"file_too_large"}})
	case errors.Is(err, service.ErrInvalidImage):
		response.ValidationError(c, map[string][]string{"file": {service.CodeInvalidImage}})
	default:
		writeError(c, err)
	}
}
