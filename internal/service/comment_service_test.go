package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/pkg/avatar"
	"github.com/qs3c/pec_go_server/internal/pkg/pubsub"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

func guestRequest(objectID string) *dto.CreateCommentRequest {
	return &dto.CreateCommentRequest{
		Content:     "Super recette !",
		ContentType: string(model.KindRecipe),
		ObjectID:    objectID,
		UnregisteredAuthor: &dto.UnregisteredAuthorRequest{
			Email:       "guest@example.com",
			DisplayName: "Guest",
		},
	}
}

func requireValidation(t *testing.T, err error) *ValidationError {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr
}

func TestCommentService_Create_Guest(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)

	item, err := env.comments.Create(context.Background(), Anonymous, guestRequest(recipe.ID))
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.False(t, item.IsValid)
	assert.Nil(t, item.RegisteredAuthor)
	require.NotNil(t, item.UnregisteredAuthor)
	assert.Equal(t, "Guest", item.UnregisteredAuthor.DisplayName)
	assert.False(t, item.Author.Registered)
	require.NotNil(t, item.CommentedObject)
	assert.Equal(t, recipe.Slug, item.CommentedObject.Slug)
	assert.Equal(t, recipe.FullTitle, item.CommentedObject.FullTitle)
	assert.Contains(t, item.ContentHTML, "Super recette")

	// gravatar 404：使用默认头像
	want := env.avatars.DefaultURL("guest@example.com")
	assert.Equal(t, want, item.Author.Avatar)
	assert.Equal(t, int32(1), env.hits())

	// 待审核评论不计数，但会推送给管理员
	got, err := env.recipeRepo.GetByID(recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentsCount)
	assert.Equal(t, []string{pubsub.EventCommentPending}, env.publisher.types())
}

func TestCommentService_Create_GuestWithGravatar(t *testing.T) {
	env := newTestEnv(t)
	env.serveGravatar(true)
	recipe := testutil.TestRecipe(t, env.db)

	item, err := env.comments.Create(context.Background(), Anonymous, guestRequest(recipe.ID))
	require.NoError(t, err)

	stored, err := env.commentRepo.GetByID(item.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.UnregisteredAuthor)
	key := stored.UnregisteredAuthor.Avatar
	assert.True(t, strings.HasPrefix(key, avatar.FetchedPrefix))
	assert.NotContains(t, key, "guest@example.com")
	assert.Equal(t, "https://pec.test/media/"+key, item.Author.Avatar)

	exists, err := env.store.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
}

// is_valid=true 由非管理员提交时被静默改为 false，不返回错误
func TestCommentService_Create_IsValidClampedForNonStaff(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	user := testutil.TestUser(t, env.db)

	req := guestRequest(recipe.ID)
	req.IsValid = true
	item, err := env.comments.Create(context.Background(), Anonymous, req)
	require.NoError(t, err)
	assert.False(t, item.IsValid)

	req = guestRequest(recipe.ID)
	req.UnregisteredAuthor = nil
	req.IsValid = true
	item, err = env.comments.Create(context.Background(), member(user.ID), req)
	require.NoError(t, err)
	assert.False(t, item.IsValid)
}

func TestCommentService_Create_StaffValid(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())

	req := guestRequest(recipe.ID)
	req.UnregisteredAuthor = nil
	req.IsValid = true
	item, err := env.comments.Create(context.Background(), staff(admin.ID), req)
	require.NoError(t, err)

	assert.True(t, item.IsValid)
	require.NotNil(t, item.RegisteredAuthor)
	assert.Equal(t, admin.ID, item.RegisteredAuthor.ID)
	assert.True(t, item.Author.Registered)
	assert.Empty(t, env.publisher.types())

	got, err := env.recipeRepo.GetByID(recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	record, err := env.searchRepo.Get(model.KindRecipe, recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, record.CommentsCount)
}

func TestCommentService_Create_RegisteredIgnoresGuestPayload(t *testing.T) {
	env := newTestEnv(t)
	story := testutil.TestStory(t, env.db)
	user := testutil.TestUser(t, env.db, testutil.WithFirstName("Julie"))

	req := guestRequest(story.ID)
	req.ContentType = string(model.KindStory)
	item, err := env.comments.Create(context.Background(), member(user.ID), req)
	require.NoError(t, err)

	assert.Nil(t, item.UnregisteredAuthor)
	require.NotNil(t, item.RegisteredAuthor)
	assert.Equal(t, "Julie", item.Author.DisplayName)
	assert.Equal(t, int32(0), env.hits())
}

func TestCommentService_Create_Validation(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	story := testutil.TestStory(t, env.db)
	inactive := testutil.TestUser(t, env.db)
	require.NoError(t, env.userRepo.UpdateFields(inactive.ID, map[string]interface{}{"is_active": false}))

	otherParent := testutil.TestComment(t, env.db, model.KindStory, story.ID)

	tests := []struct {
		name   string
		actor  Actor
		mutate func(*dto.CreateCommentRequest)
		field  string
		code   string
	}{
		{"missing content", Anonymous, func(r *dto.CreateCommentRequest) { r.Content = "" }, "content", CodeRequired},
		{"blank content", Anonymous, func(r *dto.CreateCommentRequest) { r.Content = "   " }, "content", CodeBlank},
		{"unknown content type", Anonymous, func(r *dto.CreateCommentRequest) { r.ContentType = "video" }, "content_type", CodeInvalidChoice},
		{"missing object", Anonymous, func(r *dto.CreateCommentRequest) { r.ObjectID = "" }, "object_id", CodeRequired},
		{"object not found", Anonymous, func(r *dto.CreateCommentRequest) { r.ObjectID = "00000000-0000-0000-0000-000000000000" }, "object_id", CodeObjectInvalid},
		{"wrong kind for object", Anonymous, func(r *dto.CreateCommentRequest) { r.ContentType = string(model.KindStory) }, "object_id", CodeObjectInvalid},
		{"no author", Anonymous, func(r *dto.CreateCommentRequest) { r.UnregisteredAuthor = nil }, NonFieldErrors, CodeAuthorRequired},
		{"inactive user", member(inactive.ID), func(r *dto.CreateCommentRequest) {}, NonFieldErrors, CodeAuthorRequired},
		{"parent on other object", Anonymous, func(r *dto.CreateCommentRequest) { r.ParentID = &otherParent.ID }, "parent", CodeParentInvalid},
		{"parent not found", Anonymous, func(r *dto.CreateCommentRequest) { r.ParentID = strPtr("missing") }, "parent", CodeParentInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := guestRequest(recipe.ID)
			tt.mutate(req)

			_, err := env.comments.Create(context.Background(), tt.actor, req)
			verr := requireValidation(t, err)
			assert.Contains(t, verr.Fields[tt.field], tt.code)
		})
	}

	// 校验失败时不拉取头像、不写库
	assert.Equal(t, int32(0), env.hits())
	var count int64
	env.db.Model(&model.Comment{}).Where("object_id = ?", recipe.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCommentService_Create_ReplyNotifiesSubscribers(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff(), testutil.WithEmail("chef@pec.test"))

	parent := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID,
		testutil.WithGuest("alice@example.com", "Alice"), testutil.WithNotify(true))
	testutil.TestReply(t, env.db, parent, testutil.WithGuest("bob@example.com", "Bob"), testutil.WithNotify(true))
	testutil.TestReply(t, env.db, parent, testutil.WithGuest("ALICE@example.com", "Alice bis"), testutil.WithNotify(true))
	testutil.TestReply(t, env.db, parent, testutil.WithGuest("carol@example.com", "Carol"), testutil.WithNotify(false))
	testutil.TestReply(t, env.db, parent, testutil.WithGuest("chef@pec.test", "Chef"), testutil.WithNotify(true))

	req := &dto.CreateCommentRequest{
		Content:     "Merci à tous",
		ContentType: string(model.KindRecipe),
		ObjectID:    recipe.ID,
		ParentID:    &parent.ID,
		IsValid:     true,
	}
	item, err := env.comments.Create(context.Background(), staff(admin.ID), req)
	require.NoError(t, err)
	assert.True(t, item.IsValid)

	msgs := env.mailer.Messages()
	require.Len(t, msgs, 1)
	msg := msgs[0]
	assert.Empty(t, msg.To)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com"}, msg.Bcc)
	assert.Equal(t, "Nouveau commentaire sur Pâtisserie et Cuisine", msg.Subject)
	assert.Contains(t, msg.HTML, "https://pec.test/recettes/"+recipe.Slug)
	assert.Contains(t, msg.Text, "Merci à tous")
}

func TestCommentService_Create_PendingReplyDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	parent := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithNotify(true))

	req := guestRequest(recipe.ID)
	req.ParentID = &parent.ID
	_, err := env.comments.Create(context.Background(), Anonymous, req)
	require.NoError(t, err)

	assert.Empty(t, env.mailer.Messages())
}

func TestCommentService_Create_TopLevelDoesNotNotify(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithNotify(true))

	req := guestRequest(recipe.ID)
	req.IsValid = true
	_, err := env.comments.Create(context.Background(), staff(admin.ID), req)
	require.NoError(t, err)

	assert.Empty(t, env.mailer.Messages())
}

func TestCommentService_Create_MailFailureIsSwallowed(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.Err = assert.AnError
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	parent := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithNotify(true))

	req := guestRequest(recipe.ID)
	req.ParentID = &parent.ID
	req.IsValid = true
	item, err := env.comments.Create(context.Background(), staff(admin.ID), req)
	require.NoError(t, err)
	assert.True(t, item.IsValid)
}

func TestCommentService_Update_ValidateNotifies(t *testing.T) {
	env := newTestEnv(t)
	story := testutil.TestStory(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	parent := testutil.TestComment(t, env.db, model.KindStory, story.ID,
		testutil.WithGuest("alice@example.com", "Alice"), testutil.WithNotify(true))
	reply := testutil.TestReply(t, env.db, parent, testutil.WithPending())

	item, err := env.comments.Update(context.Background(), staff(admin.ID), reply.ID,
		&dto.UpdateCommentRequest{IsValid: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, item.IsValid)

	msgs := env.mailer.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"alice@example.com"}, msgs[0].Bcc)
	assert.Contains(t, msgs[0].HTML, "https://pec.test/blog/"+story.Slug)
	assert.Equal(t, []string{pubsub.EventCommentValidated}, env.publisher.types())

	got, err := env.storyRepo.GetByID(story.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentsCount)

	// 已审核的评论再次保存不会重复通知
	_, err = env.comments.Update(context.Background(), staff(admin.ID), reply.ID,
		&dto.UpdateCommentRequest{Content: strPtr("edited")})
	require.NoError(t, err)
	assert.Len(t, env.mailer.Messages(), 1)
}

func TestCommentService_Update_Unvalidate(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	require.NoError(t, env.index.RecountComments(model.KindRecipe, recipe.ID))

	item, err := env.comments.Update(context.Background(), staff(admin.ID), comment.ID,
		&dto.UpdateCommentRequest{IsValid: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, item.IsValid)
	assert.Equal(t, []string{pubsub.EventCommentPending}, env.publisher.types())

	got, err := env.recipeRepo.GetByID(recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentsCount)
}

func TestCommentService_Update_AuthorCannotValidate(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	user := testutil.TestUser(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID,
		testutil.WithRegisteredAuthor(user), testutil.WithPending())

	item, err := env.comments.Update(context.Background(), member(user.ID), comment.ID,
		&dto.UpdateCommentRequest{Content: strPtr("corrigé"), IsValid: boolPtr(true)})
	require.NoError(t, err)
	assert.Equal(t, "corrigé", item.Content)
	assert.False(t, item.IsValid)
}

func TestCommentService_Update_AuthorKeepsValidState(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	user := testutil.TestUser(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithRegisteredAuthor(user))

	tests := []struct {
		name string
		req  *dto.UpdateCommentRequest
	}{
		{"unpublish", &dto.UpdateCommentRequest{IsValid: boolPtr(false)}},
		{"edit with is_valid", &dto.UpdateCommentRequest{Content: strPtr("faute corrigée"), IsValid: boolPtr(true)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := env.comments.Update(context.Background(), member(user.ID), comment.ID, tt.req)
			require.NoError(t, err)
			assert.True(t, item.IsValid)

			stored, err := env.commentRepo.GetByID(comment.ID)
			require.NoError(t, err)
			assert.True(t, stored.IsValid)
		})
	}
	assert.Empty(t, env.publisher.types())
}

func TestCommentService_Update_OnlySuppliedFields(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID,
		testutil.WithContent("original"), testutil.WithNotify(true))

	item, err := env.comments.Update(context.Background(), staff(admin.ID), comment.ID,
		&dto.UpdateCommentRequest{BeNotified: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, "original", item.Content)
	assert.True(t, item.IsValid)
	assert.False(t, item.BeNotified)
}

func TestCommentService_Update_Errors(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	owner := testutil.TestUser(t, env.db)
	other := testutil.TestUser(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithRegisteredAuthor(owner))

	_, err := env.comments.Update(context.Background(), member(other.ID), comment.ID,
		&dto.UpdateCommentRequest{Content: strPtr("hijack")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.comments.Update(context.Background(), Anonymous, comment.ID,
		&dto.UpdateCommentRequest{Content: strPtr("hijack")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.comments.Update(context.Background(), member(owner.ID), comment.ID,
		&dto.UpdateCommentRequest{Content: strPtr(" ")})
	verr := requireValidation(t, err)
	assert.Equal(t, []string{CodeBlank}, verr.Fields["content"])

	_, err = env.comments.Update(context.Background(), staff(owner.ID), "missing", &dto.UpdateCommentRequest{})
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestCommentService_Delete_Cascades(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())

	parent := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	child := testutil.TestReply(t, env.db, parent)
	grandChild := testutil.TestReply(t, env.db, child)
	other := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	require.NoError(t, env.index.RecountComments(model.KindRecipe, recipe.ID))

	err := env.comments.Delete(context.Background(), member(admin.ID), parent.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, env.comments.Delete(context.Background(), staff(admin.ID), parent.ID))

	for _, id := range []string{parent.ID, child.ID, grandChild.ID} {
		_, err := env.commentRepo.GetByID(id)
		assert.Error(t, err)
	}
	_, err = env.commentRepo.GetByID(other.ID)
	assert.NoError(t, err)

	got, err := env.recipeRepo.GetByID(recipe.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CommentsCount)

	err = env.comments.Delete(context.Background(), staff(admin.ID), parent.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)
}

func TestCommentService_List_Tree(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	otherRecipe := testutil.TestRecipe(t, env.db)

	root := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	reply := testutil.TestReply(t, env.db, root)
	testutil.TestReply(t, env.db, reply)
	testutil.TestReply(t, env.db, root, testutil.WithPending())
	testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithPending())
	testutil.TestComment(t, env.db, model.KindRecipe, otherRecipe.ID)

	req := &dto.CommentListRequest{ObjectID: recipe.ID, Page: 1, PageSize: 20}
	items, total, err := env.comments.List(context.Background(), Anonymous, req)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, root.ID, items[0].ID)
	require.Len(t, items[0].Children, 1)
	assert.Equal(t, reply.ID, items[0].Children[0].ID)
	assert.Len(t, items[0].Children[0].Children, 1)
	require.NotNil(t, items[0].CommentedObject)
	assert.Equal(t, recipe.Slug, items[0].CommentedObject.Slug)

	// 管理员能看到待审核评论
	items, total, err = env.comments.List(context.Background(), staff("admin"), req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	for _, item := range items {
		if item.ID == root.ID {
			assert.Len(t, item.Children, 2)
		}
	}

	// objectId 写法
	items, _, err = env.comments.List(context.Background(), Anonymous,
		&dto.CommentListRequest{ObjectIDAlt: recipe.ID, Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCommentService_List_Flat(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	story := testutil.TestStory(t, env.db)

	root := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	testutil.TestReply(t, env.db, root)
	testutil.TestComment(t, env.db, model.KindStory, story.ID)
	testutil.TestComment(t, env.db, model.KindStory, story.ID, testutil.WithPending())

	items, total, err := env.comments.List(context.Background(), Anonymous, &dto.CommentListRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	for _, item := range items {
		assert.Empty(t, item.Children)
		require.NotNil(t, item.CommentedObject)
	}

	items, total, err = env.comments.List(context.Background(), Anonymous,
		&dto.CommentListRequest{ContentType: string(model.KindStory), Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, story.Slug, items[0].CommentedObject.Slug)

	_, _, err = env.comments.List(context.Background(), Anonymous,
		&dto.CommentListRequest{ContentType: "video", Page: 1, PageSize: 20})
	verr := requireValidation(t, err)
	assert.Contains(t, verr.Fields["content_type"], CodeInvalidChoice)
}

func TestCommentService_Get(t *testing.T) {
	env := newTestEnv(t)
	recipe := testutil.TestRecipe(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	testutil.TestReply(t, env.db, comment)
	pending := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID, testutil.WithPending())

	item, err := env.comments.Get(context.Background(), Anonymous, comment.ID)
	require.NoError(t, err)
	assert.Len(t, item.Children, 1)

	_, err = env.comments.Get(context.Background(), Anonymous, pending.ID)
	assert.ErrorIs(t, err, ErrCommentNotFound)

	item, err = env.comments.Get(context.Background(), staff("admin"), pending.ID)
	require.NoError(t, err)
	assert.False(t, item.IsValid)
}
