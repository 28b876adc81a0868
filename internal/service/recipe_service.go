package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/logger"
	"github.com/qs3c/pec_go_server/internal/pkg/slug"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
	"github.com/qs3c/pec_go_server/internal/repository"
)

const recipePicturePrefix = "recipes"

var ErrRecipeNotFound = errors.New("菜谱不存在")

type RecipeService struct {
	recipeRepo   *repository.RecipeRepository
	categoryRepo *repository.CategoryRepository
	tagRepo      *repository.TagRepository
	uploads      *UploadService
	index        *IndexService
	presenter    *Presenter
}

func NewRecipeService(
	recipeRepo *repository.RecipeRepository,
	categoryRepo *repository.CategoryRepository,
	tagRepo *repository.TagRepository,
	uploads *UploadService,
	index *IndexService,
	presenter *Presenter,
) *RecipeService {
	return &RecipeService{
		recipeRepo:   recipeRepo,
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
		uploads:      uploads,
		index:        index,
		presenter:    presenter,
	}
}

// List 非管理员只能看到已发布的菜谱
func (s *RecipeService) List(actor Actor, req *dto.RecipeListRequest) ([]*dto.RecipeItem, int64, error) {
	recipes, total, err := s.recipeRepo.List(!actor.IsStaff, req.Category, req.Tag, req.Page, req.PageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]*dto.RecipeItem, 0, len(recipes))
	for _, r := range recipes {
		items = append(items, s.presenter.Recipe(r))
	}
	return items, total, nil
}

func (s *RecipeService) Get(actor Actor, slugValue string) (*dto.RecipeItem, error) {
	recipe, err := s.recipeRepo.GetBySlug(slugValue, !actor.IsStaff)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return s.presenter.Recipe(recipe), nil
}

// Create 创建菜谱，仅管理员
func (s *RecipeService) Create(ctx context.Context, actor Actor, req *dto.RecipeRequest) (*dto.RecipeItem, error) {
	if !actor.IsStaff {
		return nil, ErrPermissionDenied
	}

	verr := NewValidationError()
	title := strings.TrimSpace(deref(req.Title))
	if title == "" {
		verr.Add("title", CodeRequired)
	}
	if len(req.Steps) == 0 {
		verr.Add("steps", CodeRequired)
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	recipe := &model.Recipe{Title: title, Difficulty: 1}
	if err := s.apply(ctx, recipe, req); err != nil {
		return nil, err
	}
	if err := s.recipeRepo.Create(recipe); err != nil {
		return nil, err
	}

	s.reindex(ctx, recipe.ID)
	logger.For(ctx).WithField("recipe_id", recipe.ID).Info("recipe created")
	return s.presenter.Recipe(recipe), nil
}

// Update 只修改请求中出现的字段，仅管理员
func (s *RecipeService) Update(ctx context.Context, actor Actor, slugValue string, req *dto.RecipeRequest) (*dto.RecipeItem, error) {
	if !actor.IsStaff {
		return nil, ErrPermissionDenied
	}

	recipe, err := s.recipeRepo.GetBySlug(slugValue, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, FieldError("title", CodeBlank)
		}
		recipe.Title = title
	}
	if req.Steps != nil && len(req.Steps) == 0 {
		return nil, FieldError("steps", CodeRequired)
	}

	if err := s.apply(ctx, recipe, req); err != nil {
		return nil, err
	}
	if err := s.recipeRepo.Update(recipe); err != nil {
		return nil, err
	}

	s.reindex(ctx, recipe.ID)
	return s.presenter.Recipe(recipe), nil
}

// apply 把请求字段写入 recipe，并处理 slug、图片、分类和标签
func (s *RecipeService) apply(ctx context.Context, recipe *model.Recipe, req *dto.RecipeRequest) error {
	if req.SubTitle != nil {
		recipe.SubTitle = strings.TrimSpace(*req.SubTitle)
	}
	recipe.FullTitle = model.BuildFullTitle(recipe.Title, recipe.SubTitle)

	if recipe.Slug == "" || req.Slug != nil {
		value, err := resolveSlug(req.Slug, recipe.Title, recipe.ID, s.recipeRepo.ExistsBySlug)
		if err != nil {
			return err
		}
		recipe.Slug = value
	}

	if req.Goal != nil {
		recipe.Goal = strings.TrimSpace(*req.Goal)
	}
	if req.PreparationTime != nil {
		recipe.PreparationTime = *req.PreparationTime
	}
	if req.CookingTime != nil {
		recipe.CookingTime = *req.CookingTime
	}
	if req.FridgeTime != nil {
		recipe.FridgeTime = *req.FridgeTime
	}
	if req.LeaveningTime != nil {
		recipe.LeaveningTime = *req.LeaveningTime
	}
	if req.Difficulty != nil {
		recipe.Difficulty = *req.Difficulty
	}
	if req.Introduction != nil {
		recipe.Introduction = *req.Introduction
	}
	if req.Steps != nil {
		recipe.Steps = model.StringArray(req.Steps)
	}
	if req.Compositions != nil {
		recipe.Compositions = req.Compositions
	}
	if req.MetaDescription != nil {
		recipe.MetaDescription = *req.MetaDescription
	}
	if req.Published != nil {
		recipe.Published = *req.Published
	}

	if req.Categories != nil {
		categories, err := s.categoryRepo.GetBySlugs(req.Categories)
		if err != nil {
			return err
		}
		if len(categories) != len(uniqueStrings(req.Categories)) {
			return FieldError("categories", CodeInvalidChoice)
		}
		recipe.Categories = categories
	}
	if req.Tags != nil {
		tags, err := resolveTags(s.tagRepo, req.Tags)
		if err != nil {
			return err
		}
		recipe.Tags = tags
	}

	if req.MainPicture != nil {
		key, err := s.picture(ctx, "main_picture", recipe.Slug, *req.MainPicture)
		if err != nil {
			return err
		}
		recipe.MainPicture = key
	}
	if req.SecondaryPicture != nil {
		key, err := s.picture(ctx, "secondary_picture", recipe.Slug+"-secondary", *req.SecondaryPicture)
		if err != nil {
			return err
		}
		recipe.SecondaryPicture = key
	}
	return nil
}

func (s *RecipeService) picture(ctx context.Context, field, name, value string) (string, error) {
	key, err := s.uploads.ResolvePicture(ctx, recipePicturePrefix, name, value)
	if err != nil {
		return "", pictureError(field, err)
	}
	return key, nil
}

// Delete 删除菜谱及其评论并清理索引，仅管理员
func (s *RecipeService) Delete(ctx context.Context, actor Actor, slugValue string) error {
	if !actor.IsStaff {
		return ErrPermissionDenied
	}

	recipe, err := s.recipeRepo.GetBySlug(slugValue, false)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}

	if err := s.recipeRepo.Delete(recipe); err != nil {
		return err
	}
	if err := s.index.Remove(ctx, model.KindRecipe, recipe.ID); err != nil {
		logger.For(ctx).WithError(err).WithField("recipe_id", recipe.ID).Warn("remove search record failed")
	}
	logger.For(ctx).WithField("recipe_id", recipe.ID).Info("recipe deleted")
	return nil
}

// Categories 顶级分类及其子分类
func (s *RecipeService) Categories() ([]*dto.CategoryItem, error) {
	categories, err := s.categoryRepo.ListAll()
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Category, len(categories))
	for _, c := range categories {
		c.Children = nil
		byID[c.ID] = c
	}

	var roots []*model.Category
	for _, c := range categories {
		if c.ParentID != nil {
			if parent, ok := byID[*c.ParentID]; ok {
				parent.Children = append(parent.Children, c)
				continue
			}
		}
		roots = append(roots, c)
	}

	items := make([]*dto.CategoryItem, 0, len(roots))
	for _, c := range roots {
		items = append(items, s.presenter.Category(c))
	}
	return items, nil
}

func (s *RecipeService) Tags() ([]*dto.TagItem, error) {
	tags, err := s.tagRepo.ListAll()
	if err != nil {
		return nil, err
	}
	return tagItems(tags), nil
}

func (s *RecipeService) reindex(ctx context.Context, id string) {
	if err := s.index.SaveRecord(ctx, model.KindRecipe, id, ReasonSave); err != nil {
		logger.For(ctx).WithError(err).WithField("recipe_id", id).Warn("index recipe failed")
	}
}

// resolveSlug 显式提交的 slug 冲突时报 unique；由标题生成的 slug 冲突时追加序号
func resolveSlug(requested *string, title, excludeID string, exists func(slug, excludeID string) (bool, error)) (string, error) {
	explicit := requested != nil && strings.TrimSpace(*requested) != ""
	base := slug.Make(title)
	if explicit {
		base = slug.Make(*requested)
	}
	if base == "" {
		return "", FieldError("slug", CodeInvalid)
	}

	candidate := base
	for i := 2; ; i++ {
		taken, err := exists(candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		if explicit {
			return "", FieldError("slug", CodeUnique)
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// resolveTags 按名称查找或创建标签，忽略空名称和重复项
func resolveTags(repo *repository.TagRepository, names []string) ([]*model.Tag, error) {
	tags := make([]*model.Tag, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		tagSlug := slug.Make(name)
		if tagSlug == "" || seen[tagSlug] {
			continue
		}
		seen[tagSlug] = true

		tag, err := repo.GetOrCreate(name, tagSlug)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func pictureError(field string, err error) error {
	switch {
	case errors.Is(err, ErrInvalidImage), errors.Is(err, ErrInvalidDataURL), errors.Is(err, ErrFileTooLarge),
		errors.Is(err, storage.ErrInvalidKey):
		return FieldError(field, CodeInvalidImage)
	default:
		return err
	}
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
