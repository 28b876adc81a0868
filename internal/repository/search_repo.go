package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/pec_go_server/internal/model"
)

type SearchRepository struct {
	db *gorm.DB
}

func NewSearchRepository(db *gorm.DB) *SearchRepository {
	return &SearchRepository{db: db}
}

// Upsert 按 (kind, object_id) 写入或覆盖索引记录
func (r *SearchRepository) Upsert(record *model.SearchRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kind"}, {Name: "object_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"slug", "title", "full_title", "introduction", "picture",
			"tags", "categories", "comments_count", "published_at", "updated_at",
		}),
	}).Create(record).Error
}

func (r *SearchRepository) Delete(kind model.TargetKind, objectID string) error {
	return r.db.Where("kind = ? AND object_id = ?", kind, objectID).Delete(&model.SearchRecord{}).Error
}

func (r *SearchRepository) Get(kind model.TargetKind, objectID string) (*model.SearchRecord, error) {
	var record model.SearchRecord
	err := r.db.Where("kind = ? AND object_id = ?", kind, objectID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Search 在标题、简介、标签、分类中模糊匹配
func (r *SearchRepository) Search(q string, kind model.TargetKind, page, pageSize int) ([]*model.SearchRecord, int64, error) {
	var records []*model.SearchRecord
	var total int64

	query := r.db.Model(&model.SearchRecord{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if q != "" {
		like := "%" + q + "%"
		query = query.Where(
			"full_title LIKE ? OR introduction LIKE ? OR tags LIKE ? OR categories LIKE ?",
			like, like, like, like,
		)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("published_at DESC").Offset(offset).Limit(pageSize).Find(&records).Error
	return records, total, err
}
