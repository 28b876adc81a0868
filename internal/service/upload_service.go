package service

import (
	"context"
	"encoding/base64"
	"errors"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
)

var (
	ErrFileTooLarge   = errors.New("文件过大")
	ErrInvalidImage   = errors.New("仅支持 JPEG、PNG、GIF、WebP 图片")
	ErrInvalidDataURL = errors.New("图片数据格式错误")
)

var defaultImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

type UploadService struct {
	store storage.Storage
	cfg   *config.UploadConfig
}

func NewUploadService(store storage.Storage, cfg *config.UploadConfig) *UploadService {
	return &UploadService{store: store, cfg: cfg}
}

func (s *UploadService) allowed(mime string) bool {
	types := s.cfg.AllowedMIMETypes
	if len(types) == 0 {
		types = defaultImageTypes
	}
	for _, t := range types {
		if strings.EqualFold(t, mime) {
			return true
		}
	}
	return false
}

// SaveImage 校验图片内容并保存到 prefix 目录；name 为空时使用随机文件名
func (s *UploadService) SaveImage(ctx context.Context, prefix, name string, data []byte) (*dto.UploadImageResponse, error) {
	if s.cfg.MaxSize > 0 && int64(len(data)) > s.cfg.MaxSize {
		return nil, ErrFileTooLarge
	}

	mime, ext := storage.Detect(data)
	if !s.allowed(mime) {
		return nil, ErrInvalidImage
	}

	if name == "" {
		name = uuid.NewString()
	}
	key := path.Join(prefix, name+ext)
	if err := s.store.Put(ctx, key, data, mime); err != nil {
		return nil, err
	}

	return &dto.UploadImageResponse{
		Key:         key,
		URL:         s.store.URL(key),
		ContentType: mime,
		Size:        int64(len(data)),
	}, nil
}

// DecodeDataURL 解析 data:image/...;base64,xxx
func DecodeDataURL(value string) ([]byte, error) {
	header, payload, ok := strings.Cut(value, ",")
	if !ok || !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidDataURL
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidDataURL
	}
	return data, nil
}

// ResolvePicture data URL 解码后保存并返回新 key，其他值视为已存在的 key
func (s *UploadService) ResolvePicture(ctx context.Context, prefix, name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if !strings.HasPrefix(value, "data:") {
		return storage.CleanKey(value)
	}

	data, err := DecodeDataURL(value)
	if err != nil {
		return "", err
	}
	if name != "" {
		name = name + "-" + uuid.NewString()[:8]
	}
	resp, err := s.SaveImage(ctx, prefix, name, data)
	if err != nil {
		return "", err
	}
	return resp.Key, nil
}

// Delete 删除文件，失败只返回错误不影响调用方流程
func (s *UploadService) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.store.Delete(ctx, key)
}
