package model

import (
	"time"

	"gorm.io/gorm"
)

// TargetKind 可评论对象类型
type TargetKind string

const (
	KindRecipe TargetKind = "recipe"
	KindStory  TargetKind = "story"
)

// TargetKinds 允许评论的对象类型
var TargetKinds = []TargetKind{KindRecipe, KindStory}

func (k TargetKind) Valid() bool {
	for _, kind := range TargetKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type Comment struct {
	ID                 string              `gorm:"type:char(36);primaryKey" json:"id"`
	IsValid            bool                `gorm:"not null;default:false;index" json:"is_valid"`
	RegisteredAuthorID *string             `gorm:"type:char(36);index" json:"registered_author_id,omitempty"`
	UnregisteredAuthor *UnregisteredAuthor `gorm:"type:text;serializer:json" json:"unregistered_author,omitempty"`
	BeNotified         bool                `gorm:"not null" json:"be_notified"`
	Content            string              `gorm:"type:text;not null" json:"content"`
	ContentType        TargetKind          `gorm:"size:20;not null;index:idx_comments_target" json:"content_type"`
	ObjectID           string              `gorm:"type:char(36);not null;index:idx_comments_target" json:"object_id"`
	ParentID           *string             `gorm:"type:char(36);index" json:"parent_id,omitempty"`
	CreatedAt          time.Time           `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`

	// 关联
	RegisteredAuthor *User      `gorm:"foreignKey:RegisteredAuthorID;constraint:OnDelete:CASCADE" json:"registered_author,omitempty"`
	Parent           *Comment   `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Children         []*Comment `gorm:"-" json:"children,omitempty"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// Author 优先返回注册用户，其次是匿名作者，都没有时返回 nil
func (c *Comment) Author() Author {
	if c.RegisteredAuthor != nil {
		return c.RegisteredAuthor
	}
	if c.UnregisteredAuthor != nil {
		return c.UnregisteredAuthor
	}
	return nil
}

// AuthorEmail 作者邮箱（已规范化），没有作者时为空
func (c *Comment) AuthorEmail() string {
	if a := c.Author(); a != nil {
		return NormalizeEmail(a.AuthorEmail())
	}
	return ""
}

// IsReply 是否为回复
func (c *Comment) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// IsAuthoredBy 是否为该注册用户发表
func (c *Comment) IsAuthoredBy(userID string) bool {
	return userID != "" && c.RegisteredAuthorID != nil && *c.RegisteredAuthorID == userID
}
