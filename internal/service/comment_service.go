package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/markup"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/repository"
)

var ErrCommentNotFound = errors.New("评论不存在")

const excerptLength = 140

// Target 被评论的对象
type Target struct {
	Kind      model.TargetKind
	ID        string
	Slug      string
	FullTitle string
}

// URL 前台页面地址
func (t *Target) URL(base string) string {
	section := "recettes"
	if t.Kind == model.KindStory {
		section = "blog"
	}
	return strings.TrimSuffix(base, "/") + "/" + section + "/" + t.Slug
}

func (t *Target) object() *dto.CommentedObject {
	return &dto.CommentedObject{FullTitle: t.FullTitle, Slug: t.Slug}
}

// targetFinder 按 ID 查找某类对象，不存在时返回 gorm.ErrRecordNotFound
type targetFinder func(id string) (*Target, error)

// ModerationPublisher 审核事件发布
type ModerationPublisher interface {
	PublishModeration(ctx context.Context, msg *pubsub.ModerationMessage) error
}

type CommentService struct {
	commentRepo *repository.CommentRepository
	userRepo    *repository.UserRepository
	targets     map[model.TargetKind]targetFinder
	avatars     *avatar.Resolver
	index       *IndexService
	notifier    *NotificationService
	publisher   ModerationPublisher
	presenter   *Presenter
}

func NewCommentService(
	commentRepo *repository.CommentRepository,
	recipeRepo *repository.RecipeRepository,
	storyRepo *repository.StoryRepository,
	userRepo *repository.UserRepository,
	avatars *avatar.Resolver,
	index *IndexService,
	notifier *NotificationService,
	publisher ModerationPublisher,
	presenter *Presenter,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		userRepo:    userRepo,
		targets: map[model.TargetKind]targetFinder{
			model.KindRecipe: func(id string) (*Target, error) {
				r, err := recipeRepo.GetByID(id)
				if err != nil {
					return nil, err
				}
				return &Target{Kind: model.KindRecipe, ID: r.ID, Slug: r.Slug, FullTitle: r.FullTitle}, nil
			},
			model.KindStory: func(id string) (*Target, error) {
				s, err := storyRepo.GetByID(id)
				if err != nil {
					return nil, err
				}
				return &Target{Kind: model.KindStory, ID: s.ID, Slug: s.Slug, FullTitle: s.FullTitle}, nil
			},
		},
		avatars:   avatars,
		index:     index,
		notifier:  notifier,
		publisher: publisher,
		presenter: presenter,
	}
}

// findTarget 对象不存在时返回 (nil, nil)
func (s *CommentService) findTarget(kind model.TargetKind, id string) (*Target, error) {
	find, ok := s.targets[kind]
	if !ok {
		return nil, nil
	}
	target, err := find(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return target, err
}

// draft 校验通过、尚未保存的评论
type draft struct {
	comment *model.Comment
	author  *model.User
	target  *Target
}

// validate 只做校验和查询，不产生副作用
func (s *CommentService) validate(actor Actor, req *dto.CreateCommentRequest) (*draft, error) {
	verr := NewValidationError()
	d := &draft{comment: &model.Comment{
		Content:    req.Content,
		BeNotified: req.BeNotified,
		// 非管理员提交的 is_valid=true 静默改为 false
		IsValid:    req.IsValid && actor.IsStaff,
	}}

	switch {
	case req.Content == "":
		verr.Add("content", CodeRequired)
	case strings.TrimSpace(req.Content) == "":
		verr.Add("content", CodeBlank)
	}

	kind := model.TargetKind(req.ContentType)
	switch {
	case req.ContentType == "":
		verr.Add("content_type", CodeRequired)
	case !kind.Valid():
		verr.Add("content_type", CodeInvalidChoice)
	}

	if req.ObjectID == "" {
		verr.Add("object_id", CodeRequired)
	} else if kind.Valid() {
		target, err := s.findTarget(kind, req.ObjectID)
		if err != nil {
			return nil, err
		}
		if target == nil {
			verr.Add("object_id", CodeObjectInvalid)
		}
		d.target = target
	}

	if actor.IsAuthenticated() {
		user, err := s.userRepo.GetByID(actor.UserID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if user == nil || !user.IsActive {
			verr.Add(NonFieldErrors, CodeAuthorRequired)
		} else {
			d.author = user
			d.comment.RegisteredAuthorID = &user.ID
		}
	} else if req.UnregisteredAuthor == nil {
		verr.Add(NonFieldErrors, CodeAuthorRequired)
	} else {
		ua := req.UnregisteredAuthor
		d.comment.UnregisteredAuthor = &model.UnregisteredAuthor{
			Email:       strings.TrimSpace(ua.Email),
			DisplayName: strings.TrimSpace(ua.DisplayName),
			Website:     strings.TrimSpace(ua.Website),
		}
	}

	if req.ParentID != nil && *req.ParentID != "" {
		parent, err := s.commentRepo.GetByID(*req.ParentID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if parent == nil || parent.ContentType != kind || parent.ObjectID != req.ObjectID {
			verr.Add("parent", CodeParentInvalid)
		} else {
			d.comment.ParentID = &parent.ID
		}
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	d.comment.ContentType = kind
	d.comment.ObjectID = d.target.ID
	return d, nil
}

// stage 保存前的外部副作用：为匿名作者拉取头像。
// 若随后的保存失败，已存储的头像由定时清理任务回收。
func (s *CommentService) stage(ctx context.Context, d *draft) {
	ua := d.comment.UnregisteredAuthor
	if ua == nil {
		return
	}
	if key, ok := s.avatars.Fetch(ctx, ua.Email); ok {
		ua.Avatar = key
	}
}

// Create 创建评论
func (s *CommentService) Create(ctx context.Context, actor Actor, req *dto.CreateCommentRequest) (*dto.CommentItem, error) {
	d, err := s.validate(actor, req)
	if err != nil {
		return nil, err
	}

	s.stage(ctx, d)

	err = s.commentRepo.Transaction(func(repo *repository.CommentRepository) error {
		return repo.Create(d.comment)
	})
	if err != nil {
		return nil, err
	}
	d.comment.RegisteredAuthor = d.author

	log := logger.For(ctx).WithFields(logrus.Fields{
		"comment_id":   d.comment.ID,
		"content_type": d.comment.ContentType,
		"object_id":    d.comment.ObjectID,
		"is_valid":     d.comment.IsValid,
	})
	log.Info("comment created")

	s.afterSave(ctx, d.comment, d.target, false, true)

	item := s.presenter.Comment(d.comment)
	item.CommentedObject = d.target.object()
	return item, nil
}

// Update 部分更新：管理员可修改全部字段，作者只能修改内容和通知设置
func (s *CommentService) Update(ctx context.Context, actor Actor, id string, req *dto.UpdateCommentRequest) (*dto.CommentItem, error) {
	comment, err := s.commentRepo.GetByIDWithAuthor(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}

	if !actor.IsStaff && !comment.IsAuthoredBy(actor.UserID) {
		return nil, ErrPermissionDenied
	}

	fields := make(map[string]interface{})
	if req.Content != nil {
		if strings.TrimSpace(*req.Content) == "" {
			return nil, FieldError("content", CodeBlank)
		}
		fields["content"] = *req.Content
	}
	if req.BeNotified != nil {
		fields["be_notified"] = *req.BeNotified
	}
	// 审核状态只有管理员能改，非管理员提交的 is_valid 直接忽略
	if req.IsValid != nil && actor.IsStaff {
		fields["is_valid"] = *req.IsValid
	}

	wasValid := comment.IsValid
	if len(fields) > 0 {
		err = s.commentRepo.Transaction(func(repo *repository.CommentRepository) error {
			return repo.UpdateFields(comment.ID, fields)
		})
		if err != nil {
			return nil, err
		}
		if comment, err = s.commentRepo.GetByIDWithAuthor(id); err != nil {
			return nil, err
		}
	}

	target, err := s.findTarget(comment.ContentType, comment.ObjectID)
	if err != nil {
		return nil, err
	}

	if len(fields) > 0 {
		s.afterSave(ctx, comment, target, wasValid, false)
	}

	item := s.presenter.Comment(comment)
	if target != nil {
		item.CommentedObject = target.object()
	}
	return item, nil
}

// afterSave 提交后的副作用：刷新评论数、发布审核事件、通知订阅者
func (s *CommentService) afterSave(ctx context.Context, c *model.Comment, target *Target, wasValid, created bool) {
	log := logger.For(ctx).WithField("comment_id", c.ID)

	if err := s.index.SaveRecord(ctx, c.ContentType, c.ObjectID, ReasonComment); err != nil {
		log.WithError(err).Error("refresh comment count failed")
	}

	switch {
	case !c.IsValid && (created || wasValid):
		s.publish(ctx, pubsub.EventCommentPending, c)
	case c.IsValid && !created && !wasValid:
		s.publish(ctx, pubsub.EventCommentValidated, c)
	}

	// 回复在保存时为已审核状态（新建或由待审核变为已审核）才通知
	if c.IsValid && c.IsReply() && (created || !wasValid) && target != nil {
		s.notifier.NotifyReply(ctx, c, target)
	}
}

func (s *CommentService) publish(ctx context.Context, event string, c *model.Comment) {
	if s.publisher == nil {
		return
	}
	msg := &pubsub.ModerationMessage{
		Type:        event,
		CommentID:   c.ID,
		ContentType: string(c.ContentType),
		ObjectID:    c.ObjectID,
		ParentID:    c.ParentID,
		Excerpt:     markup.Excerpt(c.Content, excerptLength),
		CreatedAt:   c.CreatedAt,
	}
	if a := c.Author(); a != nil {
		msg.AuthorName = a.AuthorName()
	}
	if err := s.publisher.PublishModeration(ctx, msg); err != nil {
		logger.For(ctx).WithError(err).WithField("comment_id", c.ID).Warn("publish moderation event failed")
	}
}

// Delete 删除评论及其所有回复，仅管理员
func (s *CommentService) Delete(ctx context.Context, actor Actor, id string) error {
	if !actor.IsStaff {
		return ErrPermissionDenied
	}

	comment, err := s.commentRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}

	deleted, err := s.commentRepo.DeleteTree(comment.ID)
	if err != nil {
		return err
	}

	logger.For(ctx).WithFields(logrus.Fields{
		"comment_id": comment.ID,
		"deleted":    deleted,
	}).Info("comment deleted")

	if err := s.index.SaveRecord(ctx, comment.ContentType, comment.ObjectID, ReasonComment); err != nil {
		logger.For(ctx).WithError(err).Error("refresh comment count failed")
	}
	return nil
}

// Get 获取单条评论及其回复；非管理员只能看到已审核的评论
func (s *CommentService) Get(ctx context.Context, actor Actor, id string) (*dto.CommentItem, error) {
	comment, err := s.commentRepo.GetByIDWithAuthor(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCommentNotFound
		}
		return nil, err
	}
	validOnly := !actor.IsStaff
	if validOnly && !comment.IsValid {
		return nil, ErrCommentNotFound
	}

	items, err := s.buildTree([]*model.Comment{comment}, validOnly)
	if err != nil {
		return nil, err
	}

	target, err := s.findTarget(comment.ContentType, comment.ObjectID)
	if err != nil {
		return nil, err
	}
	if target != nil {
		items[0].CommentedObject = target.object()
	}
	return items[0], nil
}

// List 指定 object_id 时返回一级评论及嵌套回复，否则返回全部评论的平铺列表
func (s *CommentService) List(ctx context.Context, actor Actor, req *dto.CommentListRequest) ([]*dto.CommentItem, int64, error) {
	kind := model.TargetKind(req.ContentType)
	if kind != "" && !kind.Valid() {
		return nil, 0, FieldError("content_type", CodeInvalidChoice)
	}
	validOnly := !actor.IsStaff

	objectID := req.TargetObjectID()
	if objectID != "" {
		comments, total, err := s.commentRepo.ListTopLevelByTarget(kind, objectID, validOnly, req.Page, req.PageSize)
		if err != nil {
			return nil, 0, err
		}
		items, err := s.buildTree(comments, validOnly)
		if err != nil {
			return nil, 0, err
		}
		s.attachObjects(comments, items)
		return items, total, nil
	}

	comments, total, err := s.commentRepo.List(kind, validOnly, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*dto.CommentItem, 0, len(comments))
	for _, c := range comments {
		items = append(items, s.presenter.Comment(c))
	}
	s.attachObjects(comments, items)
	return items, total, nil
}

// buildTree 加载 roots 的所有后代并组装为嵌套结构，同层新的在前
func (s *CommentService) buildTree(roots []*model.Comment, validOnly bool) ([]*dto.CommentItem, error) {
	items := make([]*dto.CommentItem, 0, len(roots))
	if len(roots) == 0 {
		return items, nil
	}

	byID := make(map[string]*dto.CommentItem, len(roots))
	ids := make([]string, 0, len(roots))
	for _, c := range roots {
		item := s.presenter.Comment(c)
		item.Children = []*dto.CommentItem{}
		byID[c.ID] = item
		ids = append(ids, c.ID)
		items = append(items, item)
	}

	descendants, err := s.commentRepo.ListDescendants(ids, validOnly)
	if err != nil {
		return nil, err
	}
	for _, c := range descendants {
		item := s.presenter.Comment(c)
		item.Children = []*dto.CommentItem{}
		byID[c.ID] = item
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Children = append(parent.Children, item)
		}
	}
	return items, nil
}

// attachObjects 填充被评论对象摘要，同一对象只查询一次
func (s *CommentService) attachObjects(comments []*model.Comment, items []*dto.CommentItem) {
	cache := make(map[string]*Target)
	for i, c := range comments {
		key := string(c.ContentType) + ":" + c.ObjectID
		target, ok := cache[key]
		if !ok {
			target, _ = s.findTarget(c.ContentType, c.ObjectID)
			cache[key] = target
		}
		if target != nil {
			items[i].CommentedObject = target.object()
		}
	}
}

