package service

import (
	"time"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/markup"
	"github.com/qs3c/pec_go_server/internal/pkg/storage"
)

// Presenter 把模型转换为接口返回结构，负责解析头像和图片地址
type Presenter struct {
	avatars *avatar.Resolver
	store   storage.Storage
}

func NewPresenter(avatars *avatar.Resolver, store storage.Storage) *Presenter {
	return &Presenter{avatars: avatars, store: store}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

// FileURL 空 key 返回空字符串
func (p *Presenter) FileURL(key string) string {
	if key == "" {
		return ""
	}
	return p.store.URL(key)
}

func (p *Presenter) UserBrief(u *model.User) *dto.UserBrief {
	if u == nil {
		return nil
	}
	return &dto.UserBrief{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    p.avatars.URL(u),
		Website:   u.Website,
	}
}

func (p *Presenter) UserInfo(u *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Avatar:    p.avatars.URL(u),
		Website:   u.Website,
		IsStaff:   u.IsStaff,
		IsActive:  u.IsActive,
		CreatedAt: formatTime(u.CreatedAt),
	}
}

// Author 统一的作者视图，注册和匿名作者使用同一套字段
func (p *Presenter) Author(a model.Author) *dto.AuthorView {
	if a == nil {
		return nil
	}
	return &dto.AuthorView{
		Email:       a.AuthorEmail(),
		DisplayName: a.AuthorName(),
		Avatar:      p.avatars.URL(a),
		Website:     a.AuthorWebsite(),
		Registered:  a.IsRegistered(),
	}
}

func (p *Presenter) Comment(c *model.Comment) *dto.CommentItem {
	item := &dto.CommentItem{
		ID:          c.ID,
		IsValid:     c.IsValid,
		Author:      p.Author(c.Author()),
		BeNotified:  c.BeNotified,
		Content:     c.Content,
		ContentHTML: markup.RenderComment(c.Content),
		ContentType: string(c.ContentType),
		ObjectID:    c.ObjectID,
		ParentID:    c.ParentID,
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}

	if c.RegisteredAuthor != nil {
		item.RegisteredAuthor = p.UserBrief(c.RegisteredAuthor)
	}
	if ua := c.UnregisteredAuthor; ua != nil {
		item.UnregisteredAuthor = &dto.UnregisteredAuthorView{
			Email:       ua.Email,
			DisplayName: ua.DisplayName,
			Avatar:      p.avatars.URL(ua),
			Website:     ua.Website,
		}
	}

	return item
}

func (p *Presenter) Category(c *model.Category) *dto.CategoryItem {
	item := &dto.CategoryItem{
		ID:       c.ID,
		Name:     c.Name,
		Slug:     c.Slug,
		Priority: c.Priority,
	}
	for _, child := range c.Children {
		item.Children = append(item.Children, p.Category(child))
	}
	return item
}

func tagItems(tags []*model.Tag) []*dto.TagItem {
	items := make([]*dto.TagItem, 0, len(tags))
	for _, t := range tags {
		items = append(items, &dto.TagItem{Name: t.Name, Slug: t.Slug})
	}
	return items
}

func (p *Presenter) Recipe(r *model.Recipe) *dto.RecipeItem {
	categories := make([]*dto.CategoryItem, 0, len(r.Categories))
	for _, c := range r.Categories {
		categories = append(categories, p.Category(c))
	}
	steps := []string(r.Steps)
	if steps == nil {
		steps = []string{}
	}
	compositions := r.Compositions
	if compositions == nil {
		compositions = []model.Composition{}
	}

	return &dto.RecipeItem{
		ID:               r.ID,
		Slug:             r.Slug,
		Title:            r.Title,
		SubTitle:         r.SubTitle,
		FullTitle:        r.FullTitle,
		MainPicture:      p.FileURL(r.MainPicture),
		SecondaryPicture: p.FileURL(r.SecondaryPicture),
		Goal:             r.Goal,
		PreparationTime:  r.PreparationTime,
		CookingTime:      r.CookingTime,
		FridgeTime:       r.FridgeTime,
		LeaveningTime:    r.LeaveningTime,
		Difficulty:       r.Difficulty,
		Introduction:     r.Introduction,
		Steps:            steps,
		Compositions:     compositions,
		MetaDescription:  r.MetaDescription,
		Categories:       categories,
		Tags:             tagItems(r.Tags),
		Published:        r.Published,
		CommentsCount:    r.CommentsCount,
		CreatedAt:        formatTime(r.CreatedAt),
		UpdatedAt:        formatTime(r.UpdatedAt),
	}
}

func (p *Presenter) Story(s *model.Story) *dto.StoryItem {
	authors := make([]*dto.UserBrief, 0, len(s.Authors))
	for _, u := range s.Authors {
		authors = append(authors, p.UserBrief(u))
	}

	return &dto.StoryItem{
		ID:              s.ID,
		Slug:            s.Slug,
		Title:           s.Title,
		SubTitle:        s.SubTitle,
		FullTitle:       s.FullTitle,
		MainPicture:     p.FileURL(s.MainPicture),
		Introduction:    s.Introduction,
		Content:         s.Content,
		MetaDescription: s.MetaDescription,
		Tags:            tagItems(s.Tags),
		Authors:         authors,
		Published:       s.Published,
		CommentsCount:   s.CommentsCount,
		CreatedAt:       formatTime(s.CreatedAt),
		UpdatedAt:       formatTime(s.UpdatedAt),
	}
}

func (p *Presenter) SearchItem(r *model.SearchRecord) *dto.SearchItem {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	categories := []string(r.Categories)
	if categories == nil {
		categories = []string{}
	}
	return &dto.SearchItem{
		Type:          string(r.Kind),
		ObjectID:      r.ObjectID,
		Slug:          r.Slug,
		Title:         r.Title,
		FullTitle:     r.FullTitle,
		Introduction:  r.Introduction,
		Picture:       p.FileURL(r.Picture),
		Tags:          tags,
		Categories:    categories,
		CommentsCount: r.CommentsCount,
		PublishedAt:   formatTime(r.PublishedAt),
	}
}
