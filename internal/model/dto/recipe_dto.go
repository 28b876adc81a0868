package dto

import "github.com/qs3c/pec_go_server/internal/model"

// RecipeRequest 创建/更新菜谱；更新时只修改非 nil 字段
type RecipeRequest struct {
	Title            *string             `json:"title,omitempty" binding:"omitempty,max=100"`
	SubTitle         *string             `json:"sub_title,omitempty" binding:"omitempty,max=100"`
	Slug             *string             `json:"slug,omitempty" binding:"omitempty,max=120"`
	MainPicture      *string             `json:"main_picture,omitempty"` // base64 data URL 或已上传的 key
	SecondaryPicture *string             `json:"secondary_picture,omitempty"`
	Goal             *string             `json:"goal,omitempty" binding:"omitempty,max=100"`
	PreparationTime  *int                `json:"preparation_time,omitempty" binding:"omitempty,min=0"`
	CookingTime      *int                `json:"cooking_time,omitempty" binding:"omitempty,min=0"`
	FridgeTime       *int                `json:"fridge_time,omitempty" binding:"omitempty,min=0"`
	LeaveningTime    *int                `json:"leavening_time,omitempty" binding:"omitempty,min=0"`
	Difficulty       *int                `json:"difficulty,omitempty" binding:"omitempty,min=1,max=3"`
	Introduction     *string             `json:"introduction,omitempty"`
	Steps            []string            `json:"steps,omitempty"`
	Compositions     []model.Composition `json:"compositions,omitempty"`
	MetaDescription  *string             `json:"meta_description,omitempty" binding:"omitempty,max=300"`
	Categories       []string            `json:"categories,omitempty"` // 分类 slug
	Tags             []string            `json:"tags,omitempty"`       // 标签名，不存在时自动创建
	Published        *bool               `json:"published,omitempty"`
}

// RecipeListRequest 菜谱列表参数
type RecipeListRequest struct {
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
	Category string `form:"category"`
	Tag      string `form:"tag"`
}

// RecipeItem 菜谱
type RecipeItem struct {
	ID               string              `json:"id"`
	Slug             string              `json:"slug"`
	Title            string              `json:"title"`
	SubTitle         string              `json:"sub_title"`
	FullTitle        string              `json:"full_title"`
	MainPicture      string              `json:"main_picture"`
	SecondaryPicture string              `json:"secondary_picture"`
	Goal             string              `json:"goal"`
	PreparationTime  int                 `json:"preparation_time"`
	CookingTime      int                 `json:"cooking_time"`
	FridgeTime       int                 `json:"fridge_time"`
	LeaveningTime    int                 `json:"leavening_time"`
	Difficulty       int                 `json:"difficulty"`
	Introduction     string              `json:"introduction"`
	Steps            []string            `json:"steps"`
	Compositions     []model.Composition `json:"compositions"`
	MetaDescription  string              `json:"meta_description"`
	Categories       []*CategoryItem     `json:"categories"`
	Tags             []*TagItem          `json:"tags"`
	Published        bool                `json:"published"`
	CommentsCount    int                 `json:"comments_count"`
	CreatedAt        string              `json:"created_at"`
	UpdatedAt        string              `json:"updated_at"`
}

// CategoryItem 分类（树形）
type CategoryItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Priority int             `json:"priority"`
	Children []*CategoryItem `json:"children,omitempty"`
}

// TagItem 标签
type TagItem struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}
