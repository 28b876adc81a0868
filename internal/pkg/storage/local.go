package storage

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/qs3c/pec_go_server/config"
)

// Local 本地文件存储，通过 afero 抽象文件系统
type Local struct {
	fs      afero.Fs
	baseURL string
}

// NewLocal baseURL 为对外访问前缀，如 https://example.com/media/
func NewLocal(fs afero.Fs, baseURL string) *Local {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Local{fs: fs, baseURL: baseURL}
}

func NewLocalFromConfig(cfg *config.LocalConfig, publicURL string) *Local {
	fs := afero.NewBasePathFs(afero.NewOsFs(), cfg.Root)
	return NewLocal(fs, strings.TrimSuffix(publicURL, "/")+"/"+strings.TrimPrefix(cfg.MediaURL, "/"))
}

func (l *Local) Put(ctx context.Context, key string, data []byte, contentType string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(path.Dir(key), 0o755); err != nil {
		return err
	}
	return afero.WriteFile(l.fs, key, data, 0o644)
}

func (l *Local) Delete(ctx context.Context, key string) error {
	key, err := CleanKey(key)
	if err != nil {
		return err
	}
	if err := l.fs.Remove(key); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	key, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	return afero.Exists(l.fs, key)
}

func (l *Local) List(ctx context.Context, prefix string) ([]Object, error) {
	root, err := CleanKey(prefix)
	if err != nil {
		return nil, err
	}

	var objects []Object
	err = afero.Walk(l.fs, root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		objects = append(objects, Object{
			Key:     filepath.ToSlash(strings.TrimPrefix(p, "/")),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (l *Local) URL(key string) string {
	return l.baseURL + strings.TrimPrefix(key, "/")
}
