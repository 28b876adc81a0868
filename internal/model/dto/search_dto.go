package dto

// SearchRequest 搜索参数
type SearchRequest struct {
	Q        string `form:"q"`
	Type     string `form:"type"` // recipe / story，为空时搜索全部
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// SearchItem 搜索结果
type SearchItem struct {
	Type          string   `json:"type"`
	ObjectID      string   `json:"object_id"`
	Slug          string   `json:"slug"`
	Title         string   `json:"title"`
	FullTitle     string   `json:"full_title"`
	Introduction  string   `json:"introduction"`
	Picture       string   `json:"picture"`
	Tags          []string `json:"tags"`
	Categories    []string `json:"categories"`
	CommentsCount int      `json:"comments_count"`
	PublishedAt   string   `json:"published_at"`
}
