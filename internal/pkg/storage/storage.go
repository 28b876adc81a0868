package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/qs3c/pec_go_server/config"
)

var ErrInvalidKey = errors.New("invalid object key")

// Object 存储对象信息
type Object struct {
	Key     string
	Size    int64
	ModTime time.Time
}

// Storage 头像、图片等文件的存储后端
type Storage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	URL(key string) string
}

// New 根据配置创建存储后端
func New(ctx context.Context, cfg *config.StorageConfig, publicURL string) (Storage, error) {
	switch cfg.Driver {
	case "local", "":
		return NewLocalFromConfig(&cfg.Local, publicURL), nil
	case "oss":
		return NewOSS(&cfg.OSS)
	case "gcs":
		return NewGCS(ctx, &cfg.GCS)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}

// Detect 嗅探内容类型，返回 MIME 和扩展名（含点）
func Detect(data []byte) (string, string) {
	mt := mimetype.Detect(data)
	return mt.String(), mt.Extension()
}

// CleanKey 规范化 key，拒绝越界路径
func CleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
