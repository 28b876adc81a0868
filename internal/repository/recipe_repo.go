package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
)

type RecipeRepository struct {
	db *gorm.DB
}

func NewRecipeRepository(db *gorm.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// Create 创建菜谱（含分类、标签关联）
func (r *RecipeRepository) Create(recipe *model.Recipe) error {
	return r.db.Create(recipe).Error
}

func (r *RecipeRepository) GetByID(id string) (*model.Recipe, error) {
	var recipe model.Recipe
	err := r.db.Preload("Categories").Preload("Tags").Where("id = ?", id).First(&recipe).Error
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}

// GetBySlug publishedOnly 为 true 时只返回已发布的菜谱
func (r *RecipeRepository) GetBySlug(slug string, publishedOnly bool) (*model.Recipe, error) {
	var recipe model.Recipe
	query := r.db.Preload("Categories").Preload("Tags").Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

// Update 保存字段并替换分类、标签关联
func (r *RecipeRepository) Update(recipe *model.Recipe) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Categories", "Tags").Save(recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Categories").Replace(recipe.Categories); err != nil {
			return err
		}
		return tx.Model(recipe).Association("Tags").Replace(recipe.Tags)
	})
}

// Delete 删除菜谱、关联及其评论
func (r *RecipeRepository) Delete(recipe *model.Recipe) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Categories").Clear(); err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		if _, err := NewCommentRepository(tx).DeleteByTarget(model.KindRecipe, recipe.ID); err != nil {
			return err
		}
		return tx.Delete(&model.Recipe{}, "id = ?", recipe.ID).Error
	})
}

// List 菜谱列表，可按分类、标签 slug 过滤
func (r *RecipeRepository) List(publishedOnly bool, categorySlug, tagSlug string, page, pageSize int) ([]*model.Recipe, int64, error) {
	var recipes []*model.Recipe
	var total int64

	query := r.db.Model(&model.Recipe{})
	if publishedOnly {
		query = query.Where("recipes.published = ?", true)
	}
	if categorySlug != "" {
		query = query.Where("recipes.id IN (?)", r.db.Table("recipe_categories").
			Select("recipe_categories.recipe_id").
			Joins("JOIN categories ON categories.id = recipe_categories.category_id").
			Where("categories.slug = ?", categorySlug))
	}
	if tagSlug != "" {
		query = query.Where("recipes.id IN (?)", r.db.Table("recipe_tags").
			Select("recipe_tags.recipe_id").
			Joins("JOIN tags ON tags.id = recipe_tags.tag_id").
			Where("tags.slug = ?", tagSlug))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Categories").Preload("Tags").
		Order("recipes.created_at DESC").Offset(offset).Limit(pageSize).Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}

	return recipes, total, nil
}

// ExistsBySlug 检查 slug 是否被其他菜谱占用
func (r *RecipeRepository) ExistsBySlug(slug, excludeID string) (bool, error) {
	var count int64
	query := r.db.Model(&model.Recipe{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *RecipeRepository) UpdateCommentsCount(id string, count int64) error {
	return r.db.Model(&model.Recipe{}).Where("id = ?", id).
		UpdateColumn("comments_count", count).Error
}

// ListIDs 全部菜谱 ID，用于重建索引
func (r *RecipeRepository) ListIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&model.Recipe{}).Pluck("id", &ids).Error
	return ids, err
}
