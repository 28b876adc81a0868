package avatar

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/qs3c/pec_go_server/config"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
)

// FetchedPrefix 远程拉取的头像存放目录
const FetchedPrefix = "avatars/fetched/"

// maxAvatarBytes 单个头像大小上限
const maxAvatarBytes = 2 << 20

// Subject 拥有头像的对象（注册用户或匿名作者）
type Subject interface {
	AuthorEmail() string
	AvatarKey() string
}

// Resolver 头像解析：已存储 -> gravatar -> 默认头像
type Resolver struct {
	store        storage.Storage
	client       *http.Client
	gravatarURL  string
	salt         string
	defaultCount int
	defaultURL   string // 含 %d 占位的绝对地址
}

// NewResolver staticURL 为静态资源的绝对前缀
func NewResolver(store storage.Storage, cfg *config.AvatarConfig, staticURL string) *Resolver {
	timeout := cfg.FetchTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	count := cfg.DefaultCount
	if count <= 0 {
		count = 8
	}
	gravatarURL := cfg.GravatarURL
	if !strings.HasSuffix(gravatarURL, "/") {
		gravatarURL += "/"
	}

	return &Resolver{
		store:        store,
		client:       &http.Client{Timeout: timeout},
		gravatarURL:  gravatarURL,
		salt:         cfg.Salt,
		defaultCount: count,
		defaultURL:   strings.TrimSuffix(staticURL, "/") + "/" + strings.TrimPrefix(cfg.DefaultPath, "/"),
	}
}

// GravatarHash gravatar 使用的邮箱 md5
func GravatarHash(email string) string {
	sum := md5.Sum([]byte(normalize(email)))
	return hex.EncodeToString(sum[:])
}

// FileName 由加盐邮箱哈希生成的文件名，不暴露邮箱
func FileName(email, salt, ext string) string {
	sum := sha256.Sum256([]byte(salt + normalize(email)))
	return hex.EncodeToString(sum[:]) + ext
}

// DefaultIndex 默认头像序号，取值 [0, n)
func DefaultIndex(email string, n int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(email)))
	return int(h.Sum32() % uint32(n))
}

// DefaultURL 邮箱对应的默认头像地址，文件编号从 1 开始
func (r *Resolver) DefaultURL(email string) string {
	return fmt.Sprintf(r.defaultURL, DefaultIndex(email, r.defaultCount)+1)
}

// URL 已存储头像或默认头像，不发起网络请求
func (r *Resolver) URL(s Subject) string {
	if key := s.AvatarKey(); key != "" {
		return r.store.URL(key)
	}
	return r.DefaultURL(s.AuthorEmail())
}

// Resolve 完整的回退链，总是返回可用地址
// key 为应当保存到作者记录上的存储 key，落到默认头像时为空
func (r *Resolver) Resolve(ctx context.Context, s Subject) (url, key string) {
	if key = s.AvatarKey(); key != "" {
		return r.store.URL(key), key
	}
	if key, ok := r.Fetch(ctx, s.AuthorEmail()); ok {
		return r.store.URL(key), key
	}
	return r.DefaultURL(s.AuthorEmail()), ""
}

// Fetch 从 gravatar 拉取头像并保存，返回存储 key；任何失败只记录日志
func (r *Resolver) Fetch(ctx context.Context, email string) (string, bool) {
	if normalize(email) == "" {
		return "", false
	}
	log := logger.For(ctx).WithFields(logrus.Fields{"component": "avatar", "email_hash": GravatarHash(email)})

	url := r.gravatarURL + GravatarHash(email) + ".jpg?d=404&s=200"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.WithError(err).Warn("build gravatar request failed")
		return "", false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("gravatar request failed")
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithField("status", resp.StatusCode).Debug("no gravatar for email")
		return "", false
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAvatarBytes))
	if err != nil {
		log.WithError(err).Warn("read gravatar body failed")
		return "", false
	}

	contentType, _ := storage.Detect(data)
	key := FetchedPrefix + FileName(email, r.salt, ".jpg")
	if err := r.store.Put(ctx, key, data, contentType); err != nil {
		log.WithError(err).Error("store gravatar failed")
		return "", false
	}

	return key, true
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
