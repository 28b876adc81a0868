package repository

import (
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// Transaction 在同一事务中执行 fn
func (r *CommentRepository) Transaction(fn func(repo *CommentRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&CommentRepository{db: tx})
	})
}

// Create 创建评论
func (r *CommentRepository) Create(comment *model.Comment) error {
	return r.db.Create(comment).Error
}

// GetByID 根据 ID 获取评论
func (r *CommentRepository) GetByID(id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetByIDWithAuthor 获取评论及注册作者
func (r *CommentRepository) GetByIDWithAuthor(id string) (*model.Comment, error) {
	var comment model.Comment
	err := r.db.Preload("RegisteredAuthor").Where("id = ?", id).First(&comment).Error
	if err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateFields 部分更新
func (r *CommentRepository) UpdateFields(id string, fields map[string]interface{}) error {
	return r.db.Model(&model.Comment{}).Where("id = ?", id).Updates(fields).Error
}

// DeleteTree 删除评论及其所有后代，返回删除条数
func (r *CommentRepository) DeleteTree(id string) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		ids, err := collectTree(tx, []string{id})
		if err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Comment{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// DeleteByAuthor 删除某注册用户的全部评论（含回复树）
func (r *CommentRepository) DeleteByAuthor(userID string) (int64, error) {
	var deleted int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var roots []string
		if err := tx.Model(&model.Comment{}).
			Where("registered_author_id = ?", userID).
			Pluck("id", &roots).Error; err != nil {
			return err
		}
		if len(roots) == 0 {
			return nil
		}
		ids, err := collectTree(tx, roots)
		if err != nil {
			return err
		}
		result := tx.Where("id IN ?", ids).Delete(&model.Comment{})
		deleted = result.RowsAffected
		return result.Error
	})
	return deleted, err
}

// CommentTarget 被评论对象的类型和 ID
type CommentTarget struct {
	ContentType model.TargetKind
	ObjectID    string
}

// ListTargetsByAuthor 某注册用户评论过的对象
func (r *CommentRepository) ListTargetsByAuthor(userID string) ([]CommentTarget, error) {
	var targets []CommentTarget
	err := r.db.Model(&model.Comment{}).
		Distinct("content_type", "object_id").
		Where("registered_author_id = ?", userID).
		Scan(&targets).Error
	return targets, err
}

// collectTree 逐层收集 roots 及其后代 ID
func collectTree(tx *gorm.DB, roots []string) ([]string, error) {
	all := append([]string{}, roots...)
	level := roots
	for len(level) > 0 {
		var next []string
		if err := tx.Model(&model.Comment{}).
			Where("parent_id IN ?", level).
			Pluck("id", &next).Error; err != nil {
			return nil, err
		}
		all = append(all, next...)
		level = next
	}
	return all, nil
}

// ListTopLevelByTarget 获取对象的一级评论列表（新的在前）
func (r *CommentRepository) ListTopLevelByTarget(kind model.TargetKind, objectID string, validOnly bool, page, pageSize int) ([]*model.Comment, int64, error) {
	var comments []*model.Comment
	var total int64

	query := r.db.Model(&model.Comment{}).
		Where("object_id = ? AND parent_id IS NULL", objectID)
	if kind != "" {
		query = query.Where("content_type = ?", kind)
	}
	if validOnly {
		query = query.Where("is_valid = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("RegisteredAuthor").
		Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// List 获取全部评论（不分层级，新的在前）
func (r *CommentRepository) List(kind model.TargetKind, validOnly bool, page, pageSize int) ([]*model.Comment, int64, error) {
	var comments []*model.Comment
	var total int64

	query := r.db.Model(&model.Comment{})
	if kind != "" {
		query = query.Where("content_type = ?", kind)
	}
	if validOnly {
		query = query.Where("is_valid = ?", true)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Preload("RegisteredAuthor").
		Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&comments).Error
	if err != nil {
		return nil, 0, err
	}

	return comments, total, nil
}

// ListDescendants 批量获取 parentIDs 下的所有后代评论（新的在前）
func (r *CommentRepository) ListDescendants(parentIDs []string, validOnly bool) ([]*model.Comment, error) {
	var result []*model.Comment
	level := parentIDs
	for len(level) > 0 {
		var children []*model.Comment
		query := r.db.Preload("RegisteredAuthor").Where("parent_id IN ?", level)
		if validOnly {
			query = query.Where("is_valid = ?", true)
		}
		if err := query.Order("created_at DESC").Find(&children).Error; err != nil {
			return nil, err
		}

		level = level[:0:0]
		for _, child := range children {
			level = append(level, child.ID)
		}
		result = append(result, children...)
	}
	return result, nil
}

// ListChildren 获取直接回复（含作者）
func (r *CommentRepository) ListChildren(parentID string) ([]*model.Comment, error) {
	var children []*model.Comment
	err := r.db.Preload("RegisteredAuthor").
		Where("parent_id = ?", parentID).
		Order("created_at DESC").
		Find(&children).Error
	return children, err
}

// CountValidByTarget 获取对象已审核评论数
func (r *CommentRepository) CountValidByTarget(kind model.TargetKind, objectID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Comment{}).
		Where("content_type = ? AND object_id = ? AND is_valid = ?", kind, objectID, true).
		Count(&count).Error
	return count, err
}

// DeleteByTarget 删除对象的全部评论，返回删除条数
func (r *CommentRepository) DeleteByTarget(kind model.TargetKind, objectID string) (int64, error) {
	result := r.db.Where("content_type = ? AND object_id = ?", kind, objectID).Delete(&model.Comment{})
	return result.RowsAffected, result.Error
}

// ListUnregisteredAvatars 所有匿名作者引用的头像 key
func (r *CommentRepository) ListUnregisteredAvatars() ([]string, error) {
	var comments []*model.Comment
	err := r.db.Select("id", "unregistered_author").
		Where("unregistered_author IS NOT NULL").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(comments))
	for _, c := range comments {
		if c.UnregisteredAuthor != nil && c.UnregisteredAuthor.Avatar != "" {
			keys = append(keys, c.UnregisteredAuthor.Avatar)
		}
	}
	return keys, nil
}
