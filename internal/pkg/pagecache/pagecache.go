package pagecache

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Page 缓存的响应
type Page struct {
	Status      int
	ContentType string
	Body        []byte
}

type entry struct {
	page      *Page
	expiresAt time.Time
}

// Cache 公开 GET 接口的本地响应缓存，写操作后整体清空
type Cache struct {
	lru *lru.Cache[string, entry]
	ttl time.Duration
	now func() time.Time
}

func New(size int, ttl time.Duration) (*Cache, error) {
	if size <= 0 {
		size = 512
	}
	l, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}
	return &Cache{lru: l, ttl: ttl, now: time.Now}, nil
}

// Get 不存在或已过期时返回 false
func (c *Cache) Get(key string) (*Page, bool) {
	e, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return nil, false
	}
	return e.page, true
}

func (c *Cache) Set(key string, page *Page) {
	c.lru.Add(key, entry{page: page, expiresAt: c.now().Add(c.ttl)})
}

// Purge 清空全部缓存
func (c *Cache) Purge() {
	c.lru.Purge()
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
