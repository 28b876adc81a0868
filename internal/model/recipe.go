package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Category 菜谱分类，支持两级层级
type Category struct {
	ID        string      `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string      `gorm:"size:100;not null" json:"name"`
	Slug      string      `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	ParentID  *string     `gorm:"type:char(36);index" json:"parent_id,omitempty"`
	Priority  int         `gorm:"default:0" json:"priority"`
	CreatedAt time.Time   `json:"created_at"`
	Children  []*Category `gorm:"-" json:"children,omitempty"`
}

func (Category) TableName() string {
	return "categories"
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

type Tag struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Slug      string    `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = newID()
	}
	return nil
}

// Ingredient 配料
type Ingredient struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity,omitempty"`
	Unit     string `json:"unit,omitempty"`
}

// Composition 一组配料（如"面团"、"馅料"）
type Composition struct {
	Name        string       `json:"name"`
	Ingredients []Ingredient `json:"ingredients"`
}

type Recipe struct {
	ID               string        `gorm:"type:char(36);primaryKey" json:"id"`
	Slug             string        `gorm:"size:120;uniqueIndex;not null" json:"slug"`
	Title            string        `gorm:"size:100;not null" json:"title"`
	SubTitle         string        `gorm:"size:100" json:"sub_title"`
	FullTitle        string        `gorm:"size:200" json:"full_title"`
	MainPicture      string        `gorm:"size:500" json:"-"`
	SecondaryPicture string        `gorm:"size:500" json:"-"`
	Goal             string        `gorm:"size:100" json:"goal"`
	PreparationTime  int           `json:"preparation_time"` // 分钟
	CookingTime      int           `json:"cooking_time"`
	FridgeTime       int           `json:"fridge_time"`
	LeaveningTime    int           `json:"leavening_time"`
	Difficulty       int           `gorm:"default:1" json:"difficulty"` // 1-3
	Introduction     string        `gorm:"type:text" json:"introduction"`
	Steps            StringArray   `gorm:"type:text" json:"steps"`
	Compositions     []Composition `gorm:"type:text;serializer:json" json:"compositions"`
	MetaDescription  string        `gorm:"size:300" json:"meta_description"`
	Published        bool          `gorm:"not null;index" json:"published"`
	CommentsCount    int           `gorm:"default:0" json:"comments_count"`
	CreatedAt        time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`

	// 关联
	Categories []*Category `gorm:"many2many:recipe_categories" json:"categories,omitempty"`
	Tags       []*Tag      `gorm:"many2many:recipe_tags" json:"tags,omitempty"`
}

func (Recipe) TableName() string {
	return "recipes"
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}

// BuildFullTitle 标题 + 副标题
func BuildFullTitle(title, subTitle string) string {
	return strings.TrimSpace(title + " " + subTitle)
}
