package service

import (
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

func (e *testEnv) recipe(t *testing.T, owner auth.Identity, title string, public bool) *models.Recipe {
	t.Helper()
	r, err := e.svc.CreateRecipe(e.ctx, owner, models.CreateRecipeRequest{
		IsPublic:     public,
		Translations: []models.RecipeTranslationInput{{Language: "en", Title: title, Content: "Mix and serve."}},
	})
	require.NoError(t, err)
	return r
}

func TestCreateRecipe(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")

	r, err := env.svc.CreateRecipe(env.ctx, owner, models.CreateRecipeRequest{
		Translations: []models.RecipeTranslationInput{
			{Language: "ko", Title: " 김치찌개 ", Content: "끓인다", Description: strPtr("  ")},
			{Language: "en", Title: "Kimchi stew", Content: "Simmer."},
		},
		Tags: []string{"soup", " korean", "soup", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, models.RecipeCustom, r.Type)
	assert.False(t, r.IsPublic)
	assert.Zero(t, r.FavoriteCount)
	require.Len(t, r.Translations, 2)
	assert.Equal(t, "김치찌개", r.Translations[0].Title)
	assert.Nil(t, r.Translations[0].Description)
	assert.Equal(t, []string{"korean", "soup"}, r.Tags)

	own, err := env.svc.ListRecipes(env.ctx, owner)
	require.NoError(t, err)
	assert.Len(t, own, 1)

	others, err := env.svc.ListRecipes(env.ctx, user("other"))
	require.NoError(t, err)
	assert.Empty(t, others)
}

func TestCreateRecipeValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")

	tests := []struct {
		name string
		req  models.CreateRecipeRequest
	}{
		{"no translations", models.CreateRecipeRequest{}},
		{"unknown type", models.CreateRecipeRequest{Type: "imported", Translations: []models.RecipeTranslationInput{{Language: "en", Title: "x", Content: "y"}}}},
		{"unknown language", models.CreateRecipeRequest{Translations: []models.RecipeTranslationInput{{Language: "fr", Title: "x", Content: "y"}}}},
		{"blank title", models.CreateRecipeRequest{Translations: []models.RecipeTranslationInput{{Language: "en", Title: " ", Content: "y"}}}},
		{"repeated language", models.CreateRecipeRequest{Translations: []models.RecipeTranslationInput{
			{Language: "en", Title: "x", Content: "y"},
			{Language: "en", Title: "z", Content: "y"},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateRecipe(env.ctx, owner, tt.req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
}

func TestRecipeVisibility(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, other := user("owner"), user("other")
	private := env.recipe(t, owner, "Secret", false)
	public := env.recipe(t, owner, "Open", true)

	_, err := env.svc.GetRecipe(env.ctx, other, private.ID)
	assert.ErrorIs(t, err, apperr.ErrRecipeNotFound)

	got, err := env.svc.GetRecipe(env.ctx, other, public.ID)
	require.NoError(t, err)
	assert.Equal(t, "Open", got.Translations[0].Title)

	// Visible but not theirs.
	_, err = env.svc.UpdateRecipe(env.ctx, other, public.ID, models.UpdateRecipeRequest{Tags: &[]string{"x"}})
	assert.ErrorIs(t, err, apperr.ErrDenied)
	assert.ErrorIs(t, env.svc.DeleteRecipe(env.ctx, other, public.ID), apperr.ErrDenied)
	assert.ErrorIs(t, env.svc.DeleteRecipe(env.ctx, other, private.ID), apperr.ErrRecipeNotFound)

	_, err = env.svc.GetRecipe(env.ctx, owner, 9999)
	assert.ErrorIs(t, err, apperr.ErrRecipeNotFound)
}

func TestUpdateRecipeMergesTranslations(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.recipe(t, owner, "Pancakes", false)

	updated, err := env.svc.UpdateRecipe(env.ctx, owner, r.ID, models.UpdateRecipeRequest{
		Translations: []models.RecipeTranslationInput{
			{Language: "en", Title: "Fluffy pancakes", Content: "Whisk and fry."},
			{Language: "ja", Title: "パンケーキ", Content: "焼く"},
		},
		Tags: &[]string{"breakfast"},
	})
	require.NoError(t, err)
	require.Len(t, updated.Translations, 2)
	assert.Equal(t, models.LanguageEnglish, updated.Translations[0].Language)
	assert.Equal(t, "Fluffy pancakes", updated.Translations[0].Title)
	assert.Equal(t, models.LanguageJapanese, updated.Translations[1].Language)
	assert.Equal(t, []string{"breakfast"}, updated.Tags)
	assert.False(t, updated.IsPublic)

	// Absent fields keep their values.
	updated, err = env.svc.UpdateRecipe(env.ctx, owner, r.ID, models.UpdateRecipeRequest{})
	require.NoError(t, err)
	assert.Len(t, updated.Translations, 2)
	assert.Equal(t, []string{"breakfast"}, updated.Tags)
}

func TestShareRecipe(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, other := user("owner"), user("other")
	r := env.recipe(t, owner, "Salad", false)

	shared, err := env.svc.ListSharedRecipes(env.ctx, other, 1)
	require.NoError(t, err)
	assert.Empty(t, shared.Recipes)

	got, err := env.svc.ShareRecipe(env.ctx, owner, r.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)

	shared, err = env.svc.ListSharedRecipes(env.ctx, other, 1)
	require.NoError(t, err)
	require.Len(t, shared.Recipes, 1)
	assert.Equal(t, r.ID, shared.Recipes[0].ID)

	_, err = env.svc.ShareRecipe(env.ctx, other, r.ID, false)
	assert.ErrorIs(t, err, apperr.ErrDenied)
}

func TestFavoriteAdjustsCount(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, fan := user("owner"), user("fan")
	r := env.recipe(t, owner, "Curry", true)

	got, err := env.svc.SetFavorite(env.ctx, fan, r.ID, true)
	require.NoError(t, err)
	assert.True(t, got.IsFavorited)
	assert.Equal(t, 1, got.FavoriteCount)

	_, err = env.svc.SetFavorite(env.ctx, fan, r.ID, true)
	assert.ErrorIs(t, err, apperr.ErrAlreadyFavorited)

	got, err = env.svc.GetRecipe(env.ctx, fan, r.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorited)
	assert.Equal(t, 1, got.FavoriteCount)

	favorites, err := env.svc.ListFavoriteRecipes(env.ctx, fan)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.True(t, favorites[0].IsFavorited)

	got, err = env.svc.SetFavorite(env.ctx, fan, r.ID, false)
	require.NoError(t, err)
	assert.False(t, got.IsFavorited)
	assert.Equal(t, 0, got.FavoriteCount)

	// Removing again changes nothing.
	got, err = env.svc.SetFavorite(env.ctx, fan, r.ID, false)
	require.NoError(t, err)
	assert.Equal(t, 0, got.FavoriteCount)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RecipeFavoritesTotal.WithLabelValues("add")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.RecipeFavoritesTotal.WithLabelValues("remove")))
}

func TestPrivateRecipeCannotBeFavoritedByOthers(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.recipe(t, owner, "Secret", false)

	_, err := env.svc.SetFavorite(env.ctx, user("fan"), r.ID, true)
	assert.ErrorIs(t, err, apperr.ErrRecipeNotFound)

	got, err := env.svc.SetFavorite(env.ctx, owner, r.ID, true)
	require.NoError(t, err)
	assert.Equal(t, 1, got.FavoriteCount)
}

func TestConcurrentFavoritesCountEachOnce(t *testing.T) {
	env := newTestEnv(t, Options{})
	r := env.recipe(t, user("owner"), "Bibimbap", true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		fan := user("fan" + string(rune('a'+i)))
		wg.Add(2)
		for j := 0; j < 2; j++ {
			go func() {
				defer wg.Done()
				_, _ = env.svc.SetFavorite(env.ctx, fan, r.ID, true)
			}()
		}
	}
	wg.Wait()

	got, err := env.svc.GetRecipe(env.ctx, user("owner"), r.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.FavoriteCount)
}

func TestBatchFavorites(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, fan := user("owner"), user("fan")
	a := env.recipe(t, owner, "A", true)
	b := env.recipe(t, owner, "B", true)
	hidden := env.recipe(t, owner, "Hidden", false)

	_, err := env.svc.SetFavorite(env.ctx, fan, a.ID, true)
	require.NoError(t, err)

	result, err := env.svc.BatchFavorites(env.ctx, fan, models.BatchFavoritesRequest{
		RecipeIDs: []int{a.ID, b.ID, b.ID},
		Action:    models.FavoriteAdd,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchFavoritesResult{Added: 1, Skipped: 1}, result)

	// One hidden recipe rolls back the whole batch.
	_, err = env.svc.BatchFavorites(env.ctx, fan, models.BatchFavoritesRequest{
		RecipeIDs: []int{a.ID, hidden.ID},
		Action:    models.FavoriteRemove,
	})
	assert.ErrorIs(t, err, apperr.ErrRecipeNotFound)

	got, err := env.svc.GetRecipe(env.ctx, fan, a.ID)
	require.NoError(t, err)
	assert.True(t, got.IsFavorited)

	result, err = env.svc.BatchFavorites(env.ctx, fan, models.BatchFavoritesRequest{
		RecipeIDs: []int{a.ID, b.ID},
		Action:    models.FavoriteRemove,
	})
	require.NoError(t, err)
	assert.Equal(t, models.BatchFavoritesResult{Removed: 2}, result)

	for _, id := range []int{a.ID, b.ID} {
		got, err := env.svc.GetRecipe(env.ctx, fan, id)
		require.NoError(t, err)
		assert.Zero(t, got.FavoriteCount)
		assert.False(t, got.IsFavorited)
	}

	_, err = env.svc.BatchFavorites(env.ctx, fan, models.BatchFavoritesRequest{RecipeIDs: []int{a.ID}, Action: "toggle"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSharedRecipesArePaged(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, fan := user("owner"), user("fan")
	var last *models.Recipe
	for i := 0; i < models.SharedRecipePageSize+2; i++ {
		last = env.recipe(t, owner, "R", true)
	}
	env.recipe(t, owner, "Private", false)

	_, err := env.svc.SetFavorite(env.ctx, fan, last.ID, true)
	require.NoError(t, err)

	page, err := env.svc.ListSharedRecipes(env.ctx, fan, 1)
	require.NoError(t, err)
	assert.Len(t, page.Recipes, models.SharedRecipePageSize)
	assert.Equal(t, models.Pagination{
		Total:       models.SharedRecipePageSize + 2,
		PageSize:    models.SharedRecipePageSize,
		CurrentPage: 1,
		TotalPages:  2,
	}, page.Pagination)
	assert.Equal(t, last.ID, page.Recipes[0].ID)
	assert.True(t, page.Recipes[0].IsFavorited)
	assert.False(t, page.Recipes[1].IsFavorited)

	page, err = env.svc.ListSharedRecipes(env.ctx, fan, 2)
	require.NoError(t, err)
	assert.Len(t, page.Recipes, 2)

	page, err = env.svc.ListSharedRecipes(env.ctx, fan, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.CurrentPage)
}

func TestDeleteRecipeDropsFavorites(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, fan := user("owner"), user("fan")
	r := env.recipe(t, owner, "Toast", true)
	_, err := env.svc.SetFavorite(env.ctx, fan, r.ID, true)
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteRecipe(env.ctx, owner, r.ID))

	favorites, err := env.svc.ListFavoriteRecipes(env.ctx, fan)
	require.NoError(t, err)
	assert.Empty(t, favorites)

	_, err = env.svc.GetRecipe(env.ctx, owner, r.ID)
	assert.ErrorIs(t, err, apperr.ErrRecipeNotFound)
}
