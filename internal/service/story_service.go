package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/markup"
	"github.com/qs3c/pec_go_server/internal/repository"
)

const storyPicturePrefix = "stories"

var ErrStoryNotFound = errors.New("文章不存在")

type StoryService struct {
	storyRepo *repository.StoryRepository
	tagRepo   *repository.TagRepository
	userRepo  *repository.UserRepository
	uploads   *UploadService
	index     *IndexService
	presenter *Presenter
}

func NewStoryService(
	storyRepo *repository.StoryRepository,
	tagRepo *repository.TagRepository,
	userRepo *repository.UserRepository,
	uploads *UploadService,
	index *IndexService,
	presenter *Presenter,
) *StoryService {
	return &StoryService{
		storyRepo: storyRepo,
		tagRepo:   tagRepo,
		userRepo:  userRepo,
		uploads:   uploads,
		index:     index,
		presenter: presenter,
	}
}

func (s *StoryService) List(actor Actor, req *dto.StoryListRequest) ([]*dto.StoryItem, int64, error) {
	stories, total, err := s.storyRepo.List(!actor.IsStaff, req.Tag, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.StoryItem, 0, len(stories))
	for _, story := range stories {
		items = append(items, s.presenter.Story(story))
	}
	return items, total, nil
}

func (s *StoryService) Get(actor Actor, slugValue string) (*dto.StoryItem, error) {
	story, err := s.storyRepo.GetBySlug(slugValue, !actor.IsStaff)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}
	return s.presenter.Story(story), nil
}

// Create 创建文章，未指定作者时使用当前管理员
func (s *StoryService) Create(ctx context.Context, actor Actor, req *dto.StoryRequest) (*dto.StoryItem, error) {
	if !actor.IsStaff {
		return nil, ErrPermissionDenied
	}

	verr := NewValidationError()
	title := strings.TrimSpace(deref(req.Title))
	if title == "" {
		verr.Add("title", CodeRequired)
	}
	if strings.TrimSpace(deref(req.Content)) == "" {
		verr.Add("content", CodeRequired)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if req.Authors == nil && actor.IsAuthenticated() {
		req.Authors = []string{actor.UserID}
	}

	story := &model.Story{Title: title}
	if err := s.apply(ctx, story, req); err != nil {
		return nil, err
	}
	if err := s.storyRepo.Create(story); err != nil {
		return nil, err
	}

	s.reindex(ctx, story.ID)
	logger.For(ctx).WithField("story_id", story.ID).Info("story created")
	return s.presenter.Story(story), nil
}

func (s *StoryService) Update(ctx context.Context, actor Actor, slugValue string, req *dto.StoryRequest) (*dto.StoryItem, error) {
	if !actor.IsStaff {
		return nil, ErrPermissionDenied
	}

	story, err := s.storyRepo.GetBySlug(slugValue, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoryNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, FieldError("title", CodeBlank)
		}
		story.Title = title
	}

	if err := s.apply(ctx, story, req); err != nil {
		return nil, err
	}
	if err := s.storyRepo.Update(story); err != nil {
		return nil, err
	}

	s.reindex(ctx, story.ID)
	return s.presenter.Story(story), nil
}

func (s *StoryService) apply(ctx context.Context, story *model.Story, req *dto.StoryRequest) error {
	if req.SubTitle != nil {
		story.SubTitle = strings.TrimSpace(*req.SubTitle)
	}
	story.FullTitle = model.BuildFullTitle(story.Title, story.SubTitle)

	if story.Slug == "" || req.Slug != nil {
		value, err := resolveSlug(req.Slug, story.Title, story.ID, s.storyRepo.ExistsBySlug)
		if err != nil {
			return err
		}
		story.Slug = value
	}

	if req.Introduction != nil {
		story.Introduction = *req.Introduction
	}
	if req.Content != nil {
		content := markup.SanitizeHTML(*req.Content)
		if strings.TrimSpace(content) == "" {
			return FieldError("content", CodeBlank)
		}
		story.Content = content
	}
	if req.MetaDescription != nil {
		story.MetaDescription = *req.MetaDescription
	}
	if req.Published != nil {
		story.Published = *req.Published
	}

	if req.Tags != nil {
		tags, err := resolveTags(s.tagRepo, req.Tags)
		if err != nil {
			return err
		}
		story.Tags = tags
	}
	if req.Authors != nil {
		ids := uniqueStrings(req.Authors)
		authors, err := s.userRepo.GetByIDs(ids)
		if err != nil {
			return err
		}
		if len(authors) != len(ids) {
			return FieldError("authors", CodeInvalidChoice)
		}
		story.Authors = authors
	}

	if req.MainPicture != nil {
		key, err := s.uploads.ResolvePicture(ctx, storyPicturePrefix, story.Slug, *req.MainPicture)
		if err != nil {
			return pictureError("main_picture", err)
		}
		story.MainPicture = key
	}
	return nil
}

func (s *StoryService) Delete(ctx context.Context, actor Actor, slugValue string) error {
	if !actor.IsStaff {
		return ErrPermissionDenied
	}

	story, err := s.storyRepo.GetBySlug(slugValue, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStoryNotFound
		}
		return err
	}

	if err := s.storyRepo.Delete(story); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, model.KindStory, story.ID); err != nil {
		logger.For(ctx).WithError(err).WithField("story_id", story.ID).Warn("remove search record failed")
	}
	logger.For(ctx).WithField("story_id", story.ID).Info("story deleted")
	return nil
}

func (s *StoryService) reindex(ctx context.Context, id string) {
	if err := s.index.SaveRecord(ctx, model.KindStory, id, ReasonSave); err != nil {
		logger.For(ctx).WithError(err).WithField("story_id", id).Warn("index story failed")
	}
}
