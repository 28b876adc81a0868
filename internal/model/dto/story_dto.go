package dto

// StoryRequest 创建/更新文章；更新时只修改非 nil 字段
type StoryRequest struct {
	Title           *string  `json:"title,omitempty" binding:"omitempty,max=100"`
	SubTitle        *string  `json:"sub_title,omitempty" binding:"omitempty,max=100"`
	Slug            *string  `json:"slug,omitempty" binding:"omitempty,max=120"`
	MainPicture     *string  `json:"main_picture,omitempty"`
	Introduction    *string  `json:"introduction,omitempty"`
	Content         *string  `json:"content,omitempty"`
	MetaDescription *string  `json:"meta_description,omitempty" binding:"omitempty,max=300"`
	Tags            []string `json:"tags,omitempty"`
	Authors         []string `json:"authors,omitempty"` // 用户 ID
	Published       *bool    `json:"published,omitempty"`
}

// StoryListRequest 文章列表参数
type StoryListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Tag      string `form:"tag"`
}

// StoryItem 文章
type StoryItem struct {
	ID              string       `json:"id"`
	Slug            string       `json:"slug"`
	Title           string       `json:"title"`
	SubTitle        string       `json:"sub_title"`
	FullTitle       string       `json:"full_title"`
	MainPicture     string       `json:"main_picture"`
	Introduction    string       `json:"introduction"`
	Content         string       `json:"content"`
	MetaDescription string       `json:"meta_description"`
	Tags            []*TagItem   `json:"tags"`
	Authors         []*UserBrief `json:"authors"`
	Published       bool         `json:"published"`
	CommentsCount   int          `json:"comments_count"`
	CreatedAt       string       `json:"created_at"`
	UpdatedAt       string       `json:"updated_at"`
}
