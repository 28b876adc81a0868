package dto

// UnregisteredAuthorRequest 匿名作者信息
type UnregisteredAuthorRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	DisplayName string `json:"display_name" binding:"required,max=30"`
	Website     string `json:"website,omitempty" binding:"omitempty,url,max=200"`
}

// CreateCommentRequest 创建评论请求
type CreateCommentRequest struct {
	Content            string                     `json:"content" binding:"max=5000"`
	ContentType        string                     `json:"content_type"`
	ObjectID           string                     `json:"object_id"`
	ParentID           *string                    `json:"parent,omitempty"`
	UnregisteredAuthor *UnregisteredAuthorRequest `json:"unregistered_author,omitempty"`
	IsValid            bool                       `json:"is_valid"`
	BeNotified         bool                       `json:"be_notified"`
}

// UpdateCommentRequest 部分更新评论，只修改传入的字段
type UpdateCommentRequest struct {
	Content    *string `json:"content,omitempty" binding:"omitempty,max=5000"`
	IsValid    *bool   `json:"is_valid,omitempty"`
	BeNotified *bool   `json:"be_notified,omitempty"`
}

// CommentListRequest 评论列表参数
type CommentListRequest struct {
	ObjectID    string `form:"object_id"`
	ObjectIDAlt string `form:"objectId"`
	ContentType string `form:"content_type"`
	Page        int    `form:"page,default=1"`
	PageSize    int    `form:"page_size,default=20"`
}

// TargetObjectID 兼容 object_id 和 objectId 两种写法
func (r *CommentListRequest) TargetObjectID() string {
	if r.ObjectID != "" {
		return r.ObjectID
	}
	return r.ObjectIDAlt
}

// CommentItem 评论项
type CommentItem struct {
	ID                 string                  `json:"id"`
	IsValid            bool                    `json:"is_valid"`
	Author             *AuthorView             `json:"author"`
	RegisteredAuthor   *UserBrief              `json:"registered_author"`
	UnregisteredAuthor *UnregisteredAuthorView `json:"unregistered_author"`
	BeNotified         bool                    `json:"be_notified"`
	Content            string                  `json:"content"`
	ContentHTML        string                  `json:"content_html"`
	ContentType        string                  `json:"content_type"`
	ObjectID           string                  `json:"object_id"`
	CommentedObject    *CommentedObject        `json:"commented_object,omitempty"`
	ParentID           *string                 `json:"parent"`
	Children           []*CommentItem          `json:"children,omitempty"`
	CreatedAt          string                  `json:"created_at"`
	UpdatedAt          string                  `json:"updated_at"`
}

// AuthorView 统一的作者视图
type AuthorView struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Website     string `json:"website,omitempty"`
	Registered  bool   `json:"registered"`
}

// UnregisteredAuthorView 匿名作者（头像为解析后的绝对地址）
type UnregisteredAuthorView struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
	Website     string `json:"website,omitempty"`
}

// CommentedObject 被评论对象摘要
type CommentedObject struct {
	FullTitle string `json:"full_title"`
	Slug      string `json:"slug"`
}
