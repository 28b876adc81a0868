package model

import "time"

// SearchRecord 已发布菜谱/文章的搜索索引记录
type SearchRecord struct {
	ID            int64       `gorm:"primaryKey" json:"-"`
	Kind          TargetKind  `gorm:"size:20;not null;uniqueIndex:idx_search_target" json:"type"`
	ObjectID      string      `gorm:"type:char(36);not null;uniqueIndex:idx_search_target" json:"object_id"`
	Slug          string      `gorm:"size:120" json:"slug"`
	Title         string      `gorm:"size:100" json:"title"`
	FullTitle     string      `gorm:"size:200;index" json:"full_title"`
	Introduction  string      `gorm:"type:text" json:"introduction"`
	Picture       string      `gorm:"size:500" json:"-"`
	Tags          StringArray `gorm:"type:text" json:"tags"`
	Categories    StringArray `gorm:"type:text" json:"categories"`
	CommentsCount int         `json:"comments_count"`
	PublishedAt   time.Time   `gorm:"index" json:"published_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (SearchRecord) TableName() string {
	return "search_records"
}
