package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/qs3c/pec_go_server/internal/model"
)

var seq int64

func next() int64 {
	return atomic.AddInt64(&seq, 1)
}

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	n := next()
	passwordHash := "$2a$10$abcdefghijklmnopqrstuvwxyz123456" // bcrypt hash placeholder
	user := &model.User{
		Email:        fmt.Sprintf("user_%d@example.com", n),
		FirstName:    fmt.Sprintf("User%d", n),
		PasswordHash: &passwordHash,
		IsActive:     true,
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithFirstName 设置名字
func WithFirstName(name string) func(*model.User) {
	return func(u *model.User) {
		u.FirstName = name
	}
}

// WithStaff 设置为管理员
func WithStaff() func(*model.User) {
	return func(u *model.User) {
		u.IsStaff = true
	}
}

// WithPasswordHash 设置密码哈希
func WithPasswordHash(hash string) func(*model.User) {
	return func(u *model.User) {
		u.PasswordHash = &hash
	}
}

// WithAvatar 设置头像 key
func WithAvatar(key string) func(*model.User) {
	return func(u *model.User) {
		u.Avatar = key
	}
}

// TestRecipe 创建已发布的测试菜谱
func TestRecipe(t *testing.T, db *gorm.DB, opts ...func(*model.Recipe)) *model.Recipe {
	t.Helper()

	n := next()
	recipe := &model.Recipe{
		Slug:       fmt.Sprintf("recette-%d", n),
		Title:      fmt.Sprintf("Recette %d", n),
		SubTitle:   "au four",
		Difficulty: 1,
		Steps:      model.StringArray{"Préchauffer le four"},
		Published:  true,
	}
	for _, opt := range opts {
		opt(recipe)
	}
	recipe.FullTitle = model.BuildFullTitle(recipe.Title, recipe.SubTitle)

	if err := db.Create(recipe).Error; err != nil {
		t.Fatalf("Failed to create test recipe: %v", err)
	}

	return recipe
}

// WithRecipeTitle 设置菜谱标题
func WithRecipeTitle(title, subTitle string) func(*model.Recipe) {
	return func(r *model.Recipe) {
		r.Title = title
		r.SubTitle = subTitle
	}
}

// WithRecipeDraft 设置为未发布
func WithRecipeDraft() func(*model.Recipe) {
	return func(r *model.Recipe) {
		r.Published = false
	}
}

// WithRecipeCategories 设置分类
func WithRecipeCategories(categories ...*model.Category) func(*model.Recipe) {
	return func(r *model.Recipe) {
		r.Categories = categories
	}
}

// WithRecipeTags 设置标签
func WithRecipeTags(tags ...*model.Tag) func(*model.Recipe) {
	return func(r *model.Recipe) {
		r.Tags = tags
	}
}

// TestStory 创建已发布的测试文章
func TestStory(t *testing.T, db *gorm.DB, opts ...func(*model.Story)) *model.Story {
	t.Helper()

	n := next()
	story := &model.Story{
		Slug:      fmt.Sprintf("histoire-%d", n),
		Title:     fmt.Sprintf("Histoire %d", n),
		Content:   "<p>Il était une fois</p>",
		Published: true,
	}
	for _, opt := range opts {
		opt(story)
	}
	story.FullTitle = model.BuildFullTitle(story.Title, story.SubTitle)

	if err := db.Create(story).Error; err != nil {
		t.Fatalf("Failed to create test story: %v", err)
	}

	return story
}

// WithStoryDraft 设置为未发布
func WithStoryDraft() func(*model.Story) {
	return func(s *model.Story) {
		s.Published = false
	}
}

// WithStoryAuthors 设置作者
func WithStoryAuthors(users ...*model.User) func(*model.Story) {
	return func(s *model.Story) {
		s.Authors = users
	}
}

// TestCategory 创建测试分类
func TestCategory(t *testing.T, db *gorm.DB, name string, parent *model.Category) *model.Category {
	t.Helper()

	category := &model.Category{
		Name: name,
		Slug: fmt.Sprintf("categorie-%d", next()),
	}
	if parent != nil {
		category.ParentID = &parent.ID
	}

	if err := db.Create(category).Error; err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}

	return category
}

// TestTag 创建测试标签
func TestTag(t *testing.T, db *gorm.DB, name string) *model.Tag {
	t.Helper()

	tag := &model.Tag{
		Name: name,
		Slug: fmt.Sprintf("tag-%d", next()),
	}

	if err := db.Create(tag).Error; err != nil {
		t.Fatalf("Failed to create test tag: %v", err)
	}

	return tag
}

// TestComment 创建测试评论，默认为已审核的匿名评论
func TestComment(t *testing.T, db *gorm.DB, kind model.TargetKind, objectID string, opts ...func(*model.Comment)) *model.Comment {
	t.Helper()

	n := next()
	comment := &model.Comment{
		IsValid:     true,
		Content:     fmt.Sprintf("Commentaire %d", n),
		ContentType: kind,
		ObjectID:    objectID,
		UnregisteredAuthor: &model.UnregisteredAuthor{
			Email:       fmt.Sprintf("guest_%d@example.com", n),
			DisplayName: fmt.Sprintf("Guest%d", n),
		},
	}

	for _, opt := range opts {
		opt(comment)
	}

	if err := db.Create(comment).Error; err != nil {
		t.Fatalf("Failed to create test comment: %v", err)
	}

	return comment
}

// TestReply 创建 parent 的回复
func TestReply(t *testing.T, db *gorm.DB, parent *model.Comment, opts ...func(*model.Comment)) *model.Comment {
	t.Helper()

	opts = append([]func(*model.Comment){WithParent(parent)}, opts...)
	return TestComment(t, db, parent.ContentType, parent.ObjectID, opts...)
}

// WithParent 设置父评论
func WithParent(parent *model.Comment) func(*model.Comment) {
	return func(c *model.Comment) {
		c.ParentID = &parent.ID
	}
}

// WithRegisteredAuthor 设置注册作者
func WithRegisteredAuthor(user *model.User) func(*model.Comment) {
	return func(c *model.Comment) {
		c.RegisteredAuthorID = &user.ID
		c.UnregisteredAuthor = nil
	}
}

// WithGuest 设置匿名作者
func WithGuest(email, name string) func(*model.Comment) {
	return func(c *model.Comment) {
		c.RegisteredAuthorID = nil
		c.UnregisteredAuthor = &model.UnregisteredAuthor{Email: email, DisplayName: name}
	}
}

// WithPending 设置为待审核
func WithPending() func(*model.Comment) {
	return func(c *model.Comment) {
		c.IsValid = false
	}
}

// WithNotify 设置是否订阅回复通知
func WithNotify(notify bool) func(*model.Comment) {
	return func(c *model.Comment) {
		c.BeNotified = notify
	}
}

// WithContent 设置评论内容
func WithContent(content string) func(*model.Comment) {
	return func(c *model.Comment) {
		c.Content = content
	}
}
