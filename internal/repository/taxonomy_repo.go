package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
)

type TagRepository struct {
	db *gorm.DB
}

func NewTagRepository(db *gorm.DB) *TagRepository {
	return &TagRepository{db: db}
}

// GetOrCreate 按 slug 或名称查找标签，不存在则创建
func (r *TagRepository) GetOrCreate(name, slug string) (*model.Tag, error) {
	var tag model.Tag
	err := r.db.Where("slug = ? OR name = ?", slug, name).First(&tag).Error
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	tag = model.Tag{Name: name, Slug: slug}
	if err := r.db.Create(&tag).Error; err != nil {
		return nil, err
	}
	return &tag, nil
}

func (r *TagRepository) ListAll() ([]*model.Tag, error) {
	var tags []*model.Tag
	err := r.db.Order("name ASC").Find(&tags).Error
	return tags, err
}

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Create(category *model.Category) error {
	return r.db.Create(category).Error
}

func (r *CategoryRepository) GetBySlug(slug string) (*model.Category, error) {
	var category model.Category
	if err := r.db.Where("slug = ?", slug).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *CategoryRepository) GetBySlugs(slugs []string) ([]*model.Category, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var categories []*model.Category
	err := r.db.Where("slug IN ?", slugs).Find(&categories).Error
	return categories, err
}

// ListAll 按优先级排序的全部分类
func (r *CategoryRepository) ListAll() ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.Order("priority DESC").Order("name ASC").Find(&categories).Error
	return categories, err
}
