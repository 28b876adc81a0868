package middleware

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/pec_go_server/internal/pkg/pagecache"
)

const cacheHeader = "X-Cache"

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage 缓存匿名和普通用户的 GET 响应；成功的写请求清空缓存；管理员绕过缓存
func CachePage(cache *pagecache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cache == nil {
			c.Next()
			return
		}

		if c.Request.Method != http.MethodGet {
			c.Next()
			if status := c.Writer.Status(); status < http.StatusBadRequest {
				cache.Purge()
			}
			return
		}

		if GetActor(c).IsStaff {
			c.Next()
			return
		}

		key := c.Request.URL.RequestURI()
		if page, ok := cache.Get(key); ok {
			c.Header(cacheHeader, "HIT")
			c.Data(page.Status, page.ContentType, page.Body)
			c.Abort()
			return
		}

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Header(cacheHeader, "MISS")
		c.Next()

		if recorder.Status() == http.StatusOK {
			cache.Set(key, &pagecache.Page{
				Status:      http.StatusOK,
				ContentType: recorder.Header().Get("Content-Type"),
				Body:        append([]byte(nil), recorder.body.Bytes()...),
			})
		}
	}
}
