package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
)

type StoryRepository struct {
	db *gorm.DB
}

func NewStoryRepository(db *gorm.DB) *StoryRepository {
	return &StoryRepository{db: db}
}

func (r *StoryRepository) Create(story *model.Story) error {
	return r.db.Create(story).Error
}

func (r *StoryRepository) GetByID(id string) (*model.Story, error) {
	var story model.Story
	err := r.db.Preload("Tags").Preload("Authors").Where("id = ?", id).First(&story).Error
	if err != nil {
		return nil, err
	}
	return &story, nil
}

// GetBySlug publishedOnly 为 true 时只返回已发布的文章
func (r *StoryRepository) GetBySlug(slug string, publishedOnly bool) (*model.Story, error) {
	var story model.Story
	query := r.db.Preload("Tags").Preload("Authors").Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}
	if err := query.First(&story).Error; err != nil {
		return nil, err
	}
	return &story, nil
}

// Update 保存字段并替换标签、作者关联
func (r *StoryRepository) Update(story *model.Story) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Tags", "Authors").Save(story).Error; err != nil {
			return err
		}
		if err := tx.Model(story).Association("Tags").Replace(story.Tags); err != nil {
			return err
		}
		return tx.Model(story).Association("Authors").Replace(story.Authors)
	})
}

// Delete 删除文章、关联及其评论
func (r *StoryRepository) Delete(story *model.Story) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(story).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Model(story).Association("Authors").Clear(); err != nil {
			return err
		}
		if _, err := NewCommentRepository(tx).DeleteByTarget(model.KindStory, story.ID); err != nil {
			return err
		}
		return tx.Delete(&model.Story{}, "id = ?", story.ID).Error
	})
}

func (r *StoryRepository) List(publishedOnly bool, tagSlug string, page, pageSize int) ([]*model.Story, int64, error) {
	var stories []*model.Story
	var total int64

	query := r.db.Model(&model.Story{})
	if publishedOnly {
		query = query.Where("stories.published = ?", true)
	}
	if tagSlug != "" {
		query = query.Where("stories.id IN (?)", r.db.Table("story_tags").
			Select("story_tags.story_id").
			Joins("JOIN tags ON tags.id = story_tags.tag_id").
			Where("tags.slug = ?", tagSlug))
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("Tags").Preload("Authors").
		Order("stories.created_at DESC").Offset(offset).Limit(pageSize).Find(&stories).Error
	if err != nil {
		return nil, 0, err
	}

	return stories, total, nil
}

func (r *StoryRepository) ExistsBySlug(slug, excludeID string) (bool, error) {
	var count int64
	query := r.db.Model(&model.Story{}).Where("slug = ?", slug)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *StoryRepository) UpdateCommentsCount(id string, count int64) error {
	return r.db.Model(&model.Story{}).Where("id = ?", id).
		UpdateColumn("comments_count", count).Error
}

func (r *StoryRepository) ListIDs() ([]string, error) {
	var ids []string
	err := r.db.Model(&model.Story{}).Pluck("id", &ids).Error
	return ids, err
}
