package service

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/pec_go_server/internal/model"
	"github.com/qs3c/pec_go_server/internal/model/dto"
	"github.com/qs3c/pec_go_server/internal/testutil"
)

func recipeRequest(title string) *dto.RecipeRequest {
	return &dto.RecipeRequest{
		Title:     strPtr(title),
		SubTitle:  strPtr("aux pommes"),
		Steps:     []string{"Éplucher les pommes", "Cuire 40 minutes"},
		Published: boolPtr(true),
	}
}

func TestRecipeService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := testutil.TestUser(t, env.db, testutil.WithStaff())
	desserts := testutil.TestCategory(t, env.db, "Desserts", nil)
	existing := testutil.TestTag(t, env.db, "Fruits")

	req := recipeRequest("Tarte Tatin")
	req.Categories = []string{desserts.Slug}
	req.Tags = []string{"Fruits", "Automne", "automne", " "}
	req.MainPicture = strPtr("data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes))
	req.Compositions = []model.Composition{{Name: "Pâte", Ingredients: []model.Ingredient{{Name: "Farine", Quantity: "250", Unit: "g"}}}}

	item, err := env.recipes.Create(ctx, staff(admin.ID), req)
	require.NoError(t, err)
	assert.Equal(t, "tarte-tatin", item.Slug)
	assert.Equal(t, "Tarte Tatin aux pommes", item.FullTitle)
	assert.True(t, strings.HasPrefix(item.MainPicture, "https://pec.test/media/recipes/tarte-tatin-"))
	require.Len(t, item.Categories, 1)
	assert.Equal(t, "Desserts", item.Categories[0].Name)
	require.Len(t, item.Compositions, 1)
	assert.Equal(t, "Farine", item.Compositions[0].Ingredients[0].Name)

	// "Fruits" 复用已有标签，"Automne" 去重后新建
	require.Len(t, item.Tags, 2)
	assert.Equal(t, existing.Name, item.Tags[0].Name)
	assert.Equal(t, "automne", item.Tags[1].Slug)

	record, err := env.searchRepo.Get(model.KindRecipe, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tarte Tatin aux pommes", record.FullTitle)
}

func TestRecipeService_Create_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	user := testutil.TestUser(t, env.db)

	_, err := env.recipes.Create(ctx, member(user.ID), recipeRequest("Tarte"))
	assert.ErrorIs(t, err, ErrPermissionDenied)

	tests := []struct {
		name   string
		mutate func(*dto.RecipeRequest)
		field  string
		code   string
	}{
		{"missing title", func(r *dto.RecipeRequest) { r.Title = strPtr("  ") }, "title", CodeRequired},
		{"missing steps", func(r *dto.RecipeRequest) { r.Steps = nil }, "steps", CodeRequired},
		{"unknown category", func(r *dto.RecipeRequest) { r.Categories = []string{"nope"} }, "categories", CodeInvalidChoice},
		{"bad picture", func(r *dto.RecipeRequest) { r.MainPicture = strPtr("data:image/png;base64,!!") }, "main_picture", CodeInvalidImage},
		{"unusable slug", func(r *dto.RecipeRequest) { r.Slug = strPtr("!!!"); r.Title = strPtr("???") }, "slug", CodeInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := recipeRequest("Tarte")
			tt.mutate(req)
			_, err := env.recipes.Create(ctx, admin, req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields[tt.field], tt.code)
		})
	}
}

func TestRecipeService_Create_Slugs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)

	first, err := env.recipes.Create(ctx, admin, recipeRequest("Crème brûlée"))
	require.NoError(t, err)
	assert.Equal(t, "creme-brulee", first.Slug)

	// 由标题生成的 slug 冲突时追加序号
	second, err := env.recipes.Create(ctx, admin, recipeRequest("Crème Brûlée"))
	require.NoError(t, err)
	assert.Equal(t, "creme-brulee-2", second.Slug)

	// 显式 slug 冲突时报错
	req := recipeRequest("Autre")
	req.Slug = strPtr("creme-brulee")
	_, err = env.recipes.Create(ctx, admin, req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeUnique}, verr.Fields["slug"])
}

func TestRecipeService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	published := testutil.TestRecipe(t, env.db)
	draft := testutil.TestRecipe(t, env.db, testutil.WithRecipeDraft())

	items, total, err := env.recipes.List(Anonymous, &dto.RecipeListRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, published.Slug, items[0].Slug)

	_, total, err = env.recipes.List(staff("admin"), &dto.RecipeListRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	_, err = env.recipes.Get(Anonymous, draft.Slug)
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	item, err := env.recipes.Get(staff("admin"), draft.Slug)
	require.NoError(t, err)
	assert.False(t, item.Published)
}

func TestRecipeService_List_Filters(t *testing.T) {
	env := newTestEnv(t)
	desserts := testutil.TestCategory(t, env.db, "Desserts", nil)
	chocolat := testutil.TestTag(t, env.db, "Chocolat")
	match := testutil.TestRecipe(t, env.db,
		testutil.WithRecipeCategories(desserts), testutil.WithRecipeTags(chocolat))
	testutil.TestRecipe(t, env.db, testutil.WithRecipeCategories(desserts))
	testutil.TestRecipe(t, env.db)

	items, total, err := env.recipes.List(Anonymous, &dto.RecipeListRequest{Page: 1, PageSize: 20, Category: desserts.Slug})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = env.recipes.List(Anonymous, &dto.RecipeListRequest{
		Page: 1, PageSize: 20, Category: desserts.Slug, Tag: chocolat.Slug,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, match.ID, items[0].ID)
}

func TestRecipeService_Update(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	tag := testutil.TestTag(t, env.db, "Hiver")
	recipe := testutil.TestRecipe(t, env.db,
		testutil.WithRecipeTitle("Soupe", "à l'oignon"), testutil.WithRecipeTags(tag))

	item, err := env.recipes.Update(ctx, admin, recipe.Slug, &dto.RecipeRequest{
		SubTitle:   strPtr("de potiron"),
		Difficulty: intPtr(2),
		Tags:       []string{"Automne"},
	})
	require.NoError(t, err)
	assert.Equal(t, recipe.Slug, item.Slug)
	assert.Equal(t, "Soupe de potiron", item.FullTitle)
	assert.Equal(t, 2, item.Difficulty)
	assert.Equal(t, []string{"Préchauffer le four"}, item.Steps)
	require.Len(t, item.Tags, 1)
	assert.Equal(t, "Automne", item.Tags[0].Name)

	got, err := env.recipeRepo.GetByID(recipe.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "automne", got.Tags[0].Slug)

	// 修改 slug
	item, err = env.recipes.Update(ctx, admin, recipe.Slug, &dto.RecipeRequest{Slug: strPtr("Soupe Potiron")})
	require.NoError(t, err)
	assert.Equal(t, "soupe-potiron", item.Slug)

	// 下架后从索引移除
	_, err = env.recipes.Update(ctx, admin, "soupe-potiron", &dto.RecipeRequest{Published: boolPtr(false)})
	require.NoError(t, err)
	_, err = env.searchRepo.Get(model.KindRecipe, recipe.ID)
	assert.Error(t, err)
}

func TestRecipeService_Update_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	recipe := testutil.TestRecipe(t, env.db)
	other := testutil.TestRecipe(t, env.db)

	_, err := env.recipes.Update(ctx, member("someone"), recipe.Slug, &dto.RecipeRequest{})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = env.recipes.Update(ctx, admin, "missing", &dto.RecipeRequest{})
	assert.ErrorIs(t, err, ErrRecipeNotFound)

	var verr *ValidationError
	_, err = env.recipes.Update(ctx, admin, recipe.Slug, &dto.RecipeRequest{Title: strPtr(" ")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeBlank}, verr.Fields["title"])

	_, err = env.recipes.Update(ctx, admin, recipe.Slug, &dto.RecipeRequest{Steps: []string{}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeRequired}, verr.Fields["steps"])

	_, err = env.recipes.Update(ctx, admin, recipe.Slug, &dto.RecipeRequest{Slug: strPtr(other.Slug)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{CodeUnique}, verr.Fields["slug"])
}

func TestRecipeService_Delete(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := staff(testutil.TestUser(t, env.db, testutil.WithStaff()).ID)
	recipe := testutil.TestRecipe(t, env.db)
	comment := testutil.TestComment(t, env.db, model.KindRecipe, recipe.ID)
	require.NoError(t, env.index.Refresh(ctx, model.KindRecipe, recipe.ID))

	assert.ErrorIs(t, env.recipes.Delete(ctx, member("x"), recipe.Slug), ErrPermissionDenied)
	require.NoError(t, env.recipes.Delete(ctx, admin, recipe.Slug))

	_, err := env.recipeRepo.GetByID(recipe.ID)
	assert.Error(t, err)
	_, err = env.commentRepo.GetByID(comment.ID)
	assert.Error(t, err)
	_, err = env.searchRepo.Get(model.KindRecipe, recipe.ID)
	assert.Error(t, err)

	assert.ErrorIs(t, env.recipes.Delete(ctx, admin, recipe.Slug), ErrRecipeNotFound)
}

func TestRecipeService_Categories(t *testing.T) {
	env := newTestEnv(t)
	desserts := testutil.TestCategory(t, env.db, "Desserts", nil)
	testutil.TestCategory(t, env.db, "Tartes", desserts)
	testutil.TestCategory(t, env.db, "Gâteaux", desserts)
	testutil.TestCategory(t, env.db, "Plats", nil)

	items, err := env.recipes.Categories()
	require.NoError(t, err)
	require.Len(t, items, 2)

	var root *dto.CategoryItem
	for _, item := range items {
		if item.ID == desserts.ID {
			root = item
		}
	}
	require.NotNil(t, root)
	assert.Len(t, root.Children, 2)
}

func TestRecipeService_Tags(t *testing.T) {
	env := newTestEnv(t)
	testutil.TestTag(t, env.db, "Chocolat")
	testutil.TestTag(t, env.db, "Vanille")

	items, err := env.recipes.Tags()
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
