package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/queue"
	"github.com/qs3c/pec_go_server/internal/repository"
)

// 索引刷新原因
const (
	ReasonComment = "comment"
	ReasonSave    = "save"
	ReasonDelete  = "delete"
	ReasonReindex = "reindex"
)

var ErrUnknownKind = errors.New("unknown content type")

// IndexService 维护评论数和搜索索引
type IndexService struct {
	recipeRepo  *repository.RecipeRepository
	storyRepo   *repository.StoryRepository
	commentRepo *repository.CommentRepository
	searchRepo  *repository.SearchRepository
	queue       *queue.Queue // 为 nil 时同步刷新
	presenter   *Presenter
}

func NewIndexService(
	recipeRepo *repository.RecipeRepository,
	storyRepo *repository.StoryRepository,
	commentRepo *repository.CommentRepository,
	searchRepo *repository.SearchRepository,
	q *queue.Queue,
	presenter *Presenter,
) *IndexService {
	return &IndexService{
		recipeRepo:  recipeRepo,
		storyRepo:   storyRepo,
		commentRepo: commentRepo,
		searchRepo:  searchRepo,
		queue:       q,
		presenter:   presenter,
	}
}

// SaveRecord 同步重算评论数，再刷新（或排队刷新）搜索记录
func (s *IndexService) SaveRecord(ctx context.Context, kind model.TargetKind, objectID, reason string) error {
	if err := s.RecountComments(kind, objectID); err != nil {
		return err
	}

	if s.queue != nil {
		err := s.queue.Push(ctx, &queue.IndexMessage{Kind: string(kind), ObjectID: objectID, Reason: reason})
		if err == nil {
			return nil
		}
		// 队列不可用时退回同步刷新
		logger.For(ctx).WithError(err).WithFields(logrus.Fields{
			"kind":      kind,
			"object_id": objectID,
		}).Warn("enqueue index refresh failed, refreshing inline")
	}
	return s.Refresh(ctx, kind, objectID)
}

// RecountComments 评论数只统计已审核的评论
func (s *IndexService) RecountComments(kind model.TargetKind, objectID string) error {
	count, err := s.commentRepo.CountValidByTarget(kind, objectID)
	if err != nil {
		return err
	}

	switch kind {
	case model.KindRecipe:
		return s.recipeRepo.UpdateCommentsCount(objectID, count)
	case model.KindStory:
		return s.storyRepo.UpdateCommentsCount(objectID, count)
	default:
		return ErrUnknownKind
	}
}

// Refresh 已发布的对象写入索引，不存在或未发布的从索引删除
func (s *IndexService) Refresh(ctx context.Context, kind model.TargetKind, objectID string) error {
	record, err := s.buildRecord(kind, objectID)
	if err != nil {
		return err
	}
	if record == nil {
		return s.searchRepo.Delete(kind, objectID)
	}
	return s.searchRepo.Upsert(record)
}

// Remove 对象删除后清理索引
func (s *IndexService) Remove(ctx context.Context, kind model.TargetKind, objectID string) error {
	return s.searchRepo.Delete(kind, objectID)
}

// Process worker 消费队列消息
func (s *IndexService) Process(ctx context.Context, msg *queue.IndexMessage) error {
	kind := model.TargetKind(msg.Kind)
	if !kind.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownKind, msg.Kind)
	}
	return s.Refresh(ctx, kind, msg.ObjectID)
}

// Rebuild 重算全部对象的评论数和索引，返回处理数量
func (s *IndexService) Rebuild(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range model.TargetKinds {
		var ids []string
		var err error
		switch kind {
		case model.KindRecipe:
			ids, err = s.recipeRepo.ListIDs()
		case model.KindStory:
			ids, err = s.storyRepo.ListIDs()
		}
		if err != nil {
			return total, err
		}

		for _, id := range ids {
			if err := s.RecountComments(kind, id); err != nil {
				return total, err
			}
			if err := s.Refresh(ctx, kind, id); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

// Search 搜索已发布的菜谱和文章
func (s *IndexService) Search(req *dto.SearchRequest) ([]*dto.SearchItem, int64, error) {
	kind := model.TargetKind(req.Type)
	if kind != "" && !kind.Valid() {
		return nil, 0, FieldError("type", CodeInvalidChoice)
	}

	records, total, err := s.searchRepo.Search(req.Q, kind, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.SearchItem, 0, len(records))
	for _, r := range records {
		items = append(items, s.presenter.SearchItem(r))
	}
	return items, total, nil
}

func (s *IndexService) buildRecord(kind model.TargetKind, objectID string) (*model.SearchRecord, error) {
	switch kind {
	case model.KindRecipe:
		recipe, err := s.recipeRepo.GetByID(objectID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !recipe.Published {
			return nil, nil
		}
		categories := make(model.StringArray, 0, len(recipe.Categories))
		for _, c := range recipe.Categories {
			categories = append(categories, c.Name)
		}
		return &model.SearchRecord{
			Kind:          kind,
			ObjectID:      recipe.ID,
			Slug:          recipe.Slug,
			Title:         recipe.Title,
			FullTitle:     recipe.FullTitle,
			Introduction:  recipe.Introduction,
			Picture:       recipe.MainPicture,
			Tags:          tagNames(recipe.Tags),
			Categories:    categories,
			CommentsCount: recipe.CommentsCount,
			PublishedAt:   recipe.CreatedAt,
		}, nil

	case model.KindStory:
		story, err := s.storyRepo.GetByID(objectID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if !story.Published {
			return nil, nil
		}
		return &model.SearchRecord{
			Kind:          kind,
			ObjectID:      story.ID,
			Slug:          story.Slug,
			Title:         story.Title,
			FullTitle:     story.FullTitle,
			Introduction:  story.Introduction,
			Picture:       story.MainPicture,
			Tags:          tagNames(story.Tags),
			Categories:    model.StringArray{},
			CommentsCount: story.CommentsCount,
			PublishedAt:   story.CreatedAt,
		}, nil
	}
	return nil, ErrUnknownKind
}

func tagNames(tags []*model.Tag) model.StringArray {
	names := make(model.StringArray, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.Name)
	}
	return names
}
