package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

func TestStoryService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.TestUser(t, env.db, testutil.WithStaff(), testutil.WithFirstName("Chef"))

	item, err := env.stories.Create(ctx, staff(admin.ID), &dto.StoryRequest{
		Title:     strPtr("Un dimanche à Lyon"),
		Content:   strPtr(`<p>Bouchons <a href="https://lyon.fr" onclick="x()">lyonnais</a></p><script>alert(1)</script>`),
		Tags:      []string{"Voyage"},
		Published: boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "un-dimanche-a-lyon", item.Slug)
	assert.Contains(t, item.Content, "lyonnais")
	assert.NotContains(t, item.Content, "<script>")
	assert.NotContains(t, item.Content, "onclick")

	// 未指定作者时为当前管理员
	require.Len(t, item.Authors, 1)
	assert.Equal(t, admin.ID, item.Authors[0].ID)
	require.Len(t, item.Tags, 1)

	_, err = env.searchRepo.Get(model.KindStory, item.ID)
	assert.NoError(t, err)
}

func TestStoryService_Create_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)

	_, err := env.stories.Create(ctx, member("x"), &dto.StoryRequest{Title: strPtr("a"), Content: strPtr("b")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	var verr *ValidationError
	_, err = env.stories.Create(ctx, admin, &dto.StoryRequest{})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeRequired}, verr.Fields["title"])
	assert.Equal(t, []string{CodeRequired}, verr.Fields["content"])

	// 清洗后为空
	_, err = env.stories.Create(ctx, admin, &dto.StoryRequest{Title: strPtr("a"), Content: strPtr("<script>x</script>")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeBlank}, verr.Fields["content"])

	_, err = env.stories.Create(ctx, admin, &dto.StoryRequest{
		Title: strPtr("a"), Content: strPtr("b"), Authors: []string{"missing"},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeInvalidChoice}, verr.Fields["authors"])
}

func TestStoryService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	tag := testutil.TestTag(t, env.db, "Voyage")
	published := testutil.TestStory(t, env.db, func(s *model.Story) { s.Tags = []*model.Tag{tag} })
	testutil.TestStory(t, env.db)
	draft := testutil.TestStory(t, env.db, testutil.WithStoryDraft())

	_, total, err := env.stories.List(Anonymous, &dto.StoryListRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	items, total, err := env.stories.List(Anonymous, &dto.StoryListRequest{Page: 1, PageSize: 20, Tag: tag.Slug})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, published.ID, items[0].ID)

	_, total, err = env.stories.List(staff("admin"), &dto.StoryListRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	_, err = env.stories.Get(Anonymous, draft.Slug)
	assert.ErrorIs(t, err, ErrStoryNotFound)
	_, err = env.stories.Get(staff("admin"), draft.Slug)
	assert.NoError(t, err)
}

func TestStoryService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	writer := testutil.TestUser(t, env.db)
	story := testutil.TestStory(t, env.db)

	item, err := env.stories.Update(ctx, admin, story.Slug, &dto.StoryRequest{
		SubTitle: strPtr("et ses marchés"),
		Authors:  []string{writer.ID, writer.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, story.Slug, item.Slug)
	assert.Equal(t, story.Title+" et ses marchés", item.FullTitle)
	assert.Equal(t, story.Content, item.Content)
	require.Len(t, item.Authors, 1)
	assert.Equal(t, writer.ID, item.Authors[0].ID)

	var verr *ValidationError
	_, err = env.stories.Update(ctx, admin, story.Slug, &dto.StoryRequest{Content: strPtr("  ")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeBlank}, verr.Fields["content"])

	_, err = env.stories.Update(ctx, admin, "missing", &dto.StoryRequest{})
	assert.ErrorIs(t, err, ErrStoryNotFound)
	_, err = env.stories.Update(ctx, member(writer.ID), story.Slug, &dto.StoryRequest{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestStoryService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	story := testutil.TestStory(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindStory, story.ID)
	testutil.TestReply(t, env.db, comment)

	assert.ErrorIs(t, env.stories.Delete(ctx, member("x"), story.Slug), ErrPermissionDenied)
	require.NoError(t, env.stories.Delete(ctx, admin, story.Slug))

	var count int64
	require.NoError(t, env.db.Model(&model.Comment{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.ErrorIs(t, env.stories.Delete(ctx, admin, story.Slug), ErrStoryNotFound)
}
