package service

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

func TestAttachNewCustomCategory(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.fridge(t, owner, "R")

	link, err := env.svc.AttachCategory(env.ctx, owner, r.ID, models.AttachCategoryRequest{
		Translations: []models.TranslationInput{
			{Language: "en", Name: " Snacks "},
			{Language: "ko", Name: "  "},
		},
	})
	require.NoError(t, err)

	require.NotNil(t, link.Category)
	assert.Equal(t, models.CategoryCustom, link.Category.Type)
	assert.Equal(t, models.DefaultCategoryIcon, link.Category.Icon)
	require.NotNil(t, link.Category.UserID)
	assert.Equal(t, "owner", *link.Category.UserID)
	assert.Equal(t, []models.CategoryTranslation{{Language: models.LanguageEnglish, Name: "Snacks"}}, link.Category.Translations)
	assert.Equal(t, r.ID, link.RefrigeratorID)

	event := env.events.last()
	assert.Equal(t, models.EventCategoryUpdate, event.Type)
	assert.Equal(t, models.ActionCreated, event.Action)
}

func TestAttachValidation(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.fridge(t, owner, "R")

	tests := []struct {
		name string
		req  models.AttachCategoryRequest
	}{
		{"no names", models.AttachCategoryRequest{Translations: []models.TranslationInput{{Language: "en", Name: " "}}}},
		{"new system category", models.AttachCategoryRequest{Type: "system", Translations: []models.TranslationInput{{Language: "en", Name: "X"}}}},
		{"repeated language", models.AttachCategoryRequest{Translations: []models.TranslationInput{{Language: "en", Name: "A"}, {Language: "en", Name: "B"}}}},
		{"unknown language", models.AttachCategoryRequest{Translations: []models.TranslationInput{{Language: "fr", Name: "A"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.AttachCategory(env.ctx, owner, r.ID, tt.req)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}

	missing := 4242
	_, err := env.svc.AttachCategory(env.ctx, owner, r.ID, models.AttachCategoryRequest{CategoryID: &missing})
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
}

func TestAttachExistingIsIdempotent(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.fridge(t, owner, "R")

	first := env.linkCategory(t, owner, r.ID, vegetablesCategoryID)
	second := env.linkCategory(t, owner, r.ID, vegetablesCategoryID)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, models.CategorySystem, second.Category.Type)

	links, err := env.svc.ListCategories(env.ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestForeignCustomCategoryCannotBeLinked(t *testing.T) {
	env := newTestEnv(t, Options{})
	alice, bob := user("alice"), user("bob")
	ra := env.fridge(t, alice, "A")
	rb := env.fridge(t, bob, "B")
	link := env.customCategory(t, alice, ra.ID, "Secret")

	id := link.CategoryID
	_, err := env.svc.AttachCategory(env.ctx, bob, rb.ID, models.AttachCategoryRequest{CategoryID: &id})
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
}

func TestAttachBatchIsAtomic(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r := env.fridge(t, owner, "R")

	meat, missing := 2, 4242
	_, err := env.svc.AttachCategories(env.ctx, owner, r.ID, []models.AttachCategoryRequest{
		{CategoryID: &meat},
		{Translations: []models.TranslationInput{{Language: "ja", Name: "お菓子"}}},
		{CategoryID: &missing},
	})
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)

	links, err := env.svc.ListCategories(env.ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	created, err := env.svc.AttachCategories(env.ctx, owner, r.ID, []models.AttachCategoryRequest{
		{CategoryID: &meat},
		{Translations: []models.TranslationInput{{Language: "ja", Name: "お菓子"}}},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, meat, created[0].CategoryID)
	assert.Equal(t, models.CategoryCustom, created[1].Category.Type)

	_, err = env.svc.AttachCategories(env.ctx, owner, r.ID, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestCategoryWritesByRole(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, admin, viewer := user("owner"), user("admin"), user("viewer")
	r := env.fridge(t, owner, "R")
	env.member(t, owner, r.ID, admin, models.RoleAdmin)
	env.member(t, owner, r.ID, viewer, models.RoleViewer)
	link := env.customCategory(t, owner, r.ID, "Mine")

	_, err := env.svc.ListCategories(env.ctx, viewer, r.ID)
	require.NoError(t, err)

	_, err = env.svc.AttachCategory(env.ctx, viewer, r.ID, models.AttachCategoryRequest{
		Translations: []models.TranslationInput{{Language: "en", Name: "Nope"}},
	})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	_, err = env.svc.UpdateCategory(env.ctx, viewer, r.ID, link.CategoryID, models.UpdateCategoryRequest{Icon: strPtr("🍕")})
	assert.ErrorIs(t, err, apperr.ErrDenied)

	err = env.svc.DetachCategory(env.ctx, viewer, r.ID, link.CategoryID)
	assert.ErrorIs(t, err, apperr.ErrDenied)

	updated, err := env.svc.UpdateCategory(env.ctx, admin, r.ID, link.CategoryID, models.UpdateCategoryRequest{Icon: strPtr("🍕")})
	require.NoError(t, err)
	assert.Equal(t, "🍕", updated.Icon)

	require.NoError(t, env.svc.DetachCategory(env.ctx, admin, r.ID, link.CategoryID))
}

func TestUpdateCategoryTranslations(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner := user("owner")
	r1 := env.fridge(t, owner, "One")
	r2 := env.fridge(t, owner, "Two")
	env.linkCategory(t, owner, r1.ID, vegetablesCategoryID)
	env.linkCategory(t, owner, r2.ID, vegetablesCategoryID)

	_, err := env.svc.UpdateCategory(env.ctx, owner, r1.ID, vegetablesCategoryID, models.UpdateCategoryRequest{
		Translations: []models.TranslationInput{{Language: "en", Name: ""}, {Language: "ko", Name: " "}},
	})
	assert.ErrorIs(t, err, apperr.ErrTranslationRequired)

	updated, err := env.svc.UpdateCategory(env.ctx, owner, r1.ID, vegetablesCategoryID, models.UpdateCategoryRequest{
		Translations: []models.TranslationInput{{Language: "en", Name: "Greens"}, {Language: "ja", Name: ""}},
	})
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryTranslation{{Language: models.LanguageEnglish, Name: "Greens"}}, updated.Translations)

	// The category row is shared, so the other refrigerator sees the change.
	links, err := env.svc.ListCategories(env.ctx, owner, r2.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "Greens", links[0].Category.Translations[0].Name)

	// Icon only keeps the translations.
	updated, err = env.svc.UpdateCategory(env.ctx, owner, r1.ID, vegetablesCategoryID, models.UpdateCategoryRequest{Icon: strPtr("🥕")})
	require.NoError(t, err)
	assert.Equal(t, "🥕", updated.Icon)
	assert.Len(t, updated.Translations, 1)

	// Categories not linked to this refrigerator are not reachable through it.
	_, err = env.svc.UpdateCategory(env.ctx, owner, r1.ID, 3, models.UpdateCategoryRequest{Icon: strPtr("🐠")})
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
}

func TestDetachSystemCategoryKeepsIt(t *testing.T) {
	env := newTestEnv(t, Options{AllowSystemDetach: true})
	owner := user("owner")
	r1 := env.fridge(t, owner, "R1")
	r2 := env.fridge(t, owner, "R2")
	env.linkCategory(t, owner, r1.ID, 5)
	env.linkCategory(t, owner, r2.ID, 5)

	require.NoError(t, env.svc.DetachCategory(env.ctx, owner, r1.ID, 5))

	c, err := env.store.GetCategory(env.ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, c)

	links, err := env.svc.ListCategories(env.ctx, owner, r2.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 5, links[0].CategoryID)

	// Even the last link going away leaves the system category in place.
	require.NoError(t, env.svc.DetachCategory(env.ctx, owner, r2.ID, 5))
	c, err = env.store.GetCategory(env.ctx, 5)
	require.NoError(t, err)
	assert.NotNil(t, c)

	err = env.svc.DetachCategory(env.ctx, owner, r2.ID, 5)
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)
}

func TestDetachSystemCategoryWhenDisallowed(t *testing.T) {
	env := newTestEnv(t, Options{AllowSystemDetach: false})
	owner := user("owner")
	r := env.fridge(t, owner, "R")
	env.linkCategory(t, owner, r.ID, vegetablesCategoryID)

	err := env.svc.DetachCategory(env.ctx, owner, r.ID, vegetablesCategoryID)
	assert.ErrorIs(t, err, apperr.ErrSystemCategoryImmutable)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	links, err := env.svc.ListCategories(env.ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestDetachCustomCategoryReferenceCounting(t *testing.T) {
	env := newTestEnv(t, Options{AllowSystemDetach: true})
	owner := user("owner")
	r1 := env.fridge(t, owner, "R1")
	r2 := env.fridge(t, owner, "R2")

	shared := env.customCategory(t, owner, r1.ID, "Shared")
	env.linkCategory(t, owner, r2.ID, shared.CategoryID)
	_, err := env.svc.CreateIngredient(env.ctx, owner, r1.ID, shared.CategoryID, models.CreateIngredientRequest{Name: "Egg", Quantity: "6", Unit: "piece"})
	require.NoError(t, err)

	require.NoError(t, env.svc.DetachCategory(env.ctx, owner, r1.ID, shared.CategoryID))
	c, err := env.store.GetCategory(env.ctx, shared.CategoryID)
	require.NoError(t, err)
	assert.NotNil(t, c, "category still linked from R2 must survive")

	_, err = env.svc.ListIngredients(env.ctx, owner, r1.ID, shared.CategoryID)
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)

	require.NoError(t, env.svc.DetachCategory(env.ctx, owner, r2.ID, shared.CategoryID))
	c, err = env.store.GetCategory(env.ctx, shared.CategoryID)
	require.NoError(t, err)
	assert.Nil(t, c)

	id := shared.CategoryID
	_, err = env.svc.AttachCategory(env.ctx, owner, r1.ID, models.AttachCategoryRequest{CategoryID: &id})
	assert.ErrorIs(t, err, apperr.ErrCategoryNotFound)

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.CategoryCleanupsTotal))
}

func TestMemberWithoutTokenEmailWritesThroughTransaction(t *testing.T) {
	env := newTestEnv(t, Options{})
	owner, admin := user("owner"), user("admin")
	r := env.fridge(t, owner, "R")
	env.member(t, owner, r.ID, admin, models.RoleAdmin)

	// The token carries no verified email, so it is read from the stored user
	// inside the write transaction.
	unverified := auth.Identity{UserID: admin.UserID}

	done := make(chan error, 1)
	go func() {
		id := vegetablesCategoryID
		_, err := env.svc.AttachCategory(env.ctx, unverified, r.ID, models.AttachCategoryRequest{CategoryID: &id})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("AttachCategory did not return")
	}

	links, err := env.svc.ListCategories(env.ctx, owner, r.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}
