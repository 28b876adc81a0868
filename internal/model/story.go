package model

import (
	"time"

	"gorm.io/gorm"
)

// Story 博客文章
type Story struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"id"`
	Slug            string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Title           string    `gorm:"size:100;not null" json:"title"`
	SubTitle        string    `gorm:"size:100" json:"sub_title"`
	FullTitle       string    `gorm:"size:200" json:"full_title"`
	MainPicture     string    `gorm:"size:500" json:"-"`
	Introduction    string    `gorm:"type:text" json:"introduction"`
	Content         string    `gorm:"type:text" json:"content"` // 已清洗的 HTML
	MetaDescription string    `gorm:"size:300" json:"meta_description"`
	Published       bool      `gorm:"not null;index" json:"published"`
	CommentsCount   int       `gorm:"default:0" json:"comments_count"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// 关联
	Tags    []*Tag  `gorm:"many2many:story_tags" json:"tags,omitempty"`
	Authors []*User `gorm:"many2many:story_authors" json:"authors,omitempty"`
}

func (Story) TableName() string {
	return "stories"
}

func (s *Story) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}
