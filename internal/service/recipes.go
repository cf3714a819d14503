package service

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// Recipes are visible to their owner and, once public, to every caller.
// Hidden recipes report RecipeNotFound; visible recipes of someone else
// report Denied on writes.

// CreateRecipe stores a new recipe owned by the caller.
func (s *Service) CreateRecipe(ctx context.Context, ident auth.Identity, req models.CreateRecipeRequest) (*models.Recipe, error) {
	recipeType := models.RecipeType(req.Type)
	switch recipeType {
	case "":
		recipeType = models.RecipeCustom
	case models.RecipeCustom, models.RecipeAI:
	default:
		return nil, apperr.Validation("type must be custom or ai")
	}
	translations, err := cleanRecipeTranslations(req.Translations)
	if err != nil {
		return nil, err
	}
	if len(translations) == 0 {
		return nil, apperr.Validation("at least one translation is required")
	}

	var created *models.Recipe
	err = s.withTx(ctx, "failed to create recipe", func(q repository.Queries) error {
		if _, err := q.EnsureUser(ctx, ident.UserID, ident.Email); err != nil {
			return err
		}
		r, err := q.CreateRecipe(ctx, &models.Recipe{
			OwnerID:      ident.UserID,
			Type:         recipeType,
			IsPublic:     req.IsPublic,
			Translations: translations,
			Tags:         cleanTags(req.Tags),
		})
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"recipe_id": created.ID,
		"user_id":   ident.UserID,
		"is_public": created.IsPublic,
	}).Info("Recipe created")
	return created, nil
}

// ListRecipes returns the caller's own recipes, newest first.
func (s *Service) ListRecipes(ctx context.Context, ident auth.Identity) ([]*models.Recipe, error) {
	recipes, err := s.store.ListRecipesByOwner(ctx, ident.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list recipes", err)
	}
	if err := markFavorites(ctx, s.store, ident, recipes); err != nil {
		return nil, err
	}
	return recipes, nil
}

func (s *Service) GetRecipe(ctx context.Context, ident auth.Identity, id int) (*models.Recipe, error) {
	r, err := s.store.GetRecipe(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to get recipe", err)
	}
	if !recipeVisible(r, ident) {
		return nil, apperr.ErrRecipeNotFound
	}
	if err := markFavorites(ctx, s.store, ident, []*models.Recipe{r}); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdateRecipe upserts translations by language and, when present, replaces
// the tag set and the share flag. Owner only.
func (s *Service) UpdateRecipe(ctx context.Context, ident auth.Identity, id int, req models.UpdateRecipeRequest) (*models.Recipe, error) {
	translations, err := cleanRecipeTranslations(req.Translations)
	if err != nil {
		return nil, err
	}

	var updated *models.Recipe
	err = s.withTx(ctx, "failed to update recipe", func(q repository.Queries) error {
		r, err := ownedRecipe(ctx, q, ident, id)
		if err != nil {
			return err
		}
		if req.IsPublic != nil {
			r.IsPublic = *req.IsPublic
		}
		r.Translations = mergeRecipeTranslations(r.Translations, translations)
		if req.Tags != nil {
			r.Tags = cleanTags(*req.Tags)
		}

		updated, err = q.UpdateRecipe(ctx, r)
		if err != nil {
			return err
		}
		if updated == nil {
			return apperr.ErrRecipeNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"recipe_id": id,
		"user_id":   ident.UserID,
	}).Info("Recipe updated")
	return updated, nil
}

// ShareRecipe sets the public flag. Owner only.
func (s *Service) ShareRecipe(ctx context.Context, ident auth.Identity, id int, public bool) (*models.Recipe, error) {
	return s.UpdateRecipe(ctx, ident, id, models.UpdateRecipeRequest{IsPublic: &public})
}

// DeleteRecipe removes a recipe together with its favorites. Owner only.
func (s *Service) DeleteRecipe(ctx context.Context, ident auth.Identity, id int) error {
	err := s.withTx(ctx, "failed to delete recipe", func(q repository.Queries) error {
		if _, err := ownedRecipe(ctx, q, ident, id); err != nil {
			return err
		}
		return q.DeleteRecipe(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.WithFields(logrus.Fields{
		"recipe_id": id,
		"user_id":   ident.UserID,
	}).Info("Recipe deleted")
	return nil
}

// SetFavorite adds or removes the caller's favorite and adjusts the
// recipe's favorite count in the same transaction. Adding twice fails with
// AlreadyFavorited; removing a missing favorite changes nothing.
func (s *Service) SetFavorite(ctx context.Context, ident auth.Identity, id int, favorite bool) (*models.Recipe, error) {
	var (
		result  *models.Recipe
		changed bool
	)
	err := s.withTx(ctx, "failed to update favorite", func(q repository.Queries) error {
		r, err := q.GetRecipeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !recipeVisible(r, ident) {
			return apperr.ErrRecipeNotFound
		}

		delta, err := applyFavorite(ctx, q, ident, id, favorite)
		if err != nil {
			return err
		}
		if favorite && delta == 0 {
			return apperr.ErrAlreadyFavorited
		}

		changed = delta != 0
		r.FavoriteCount += delta
		if r.FavoriteCount < 0 {
			r.FavoriteCount = 0
		}
		r.IsFavorited = favorite
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.metrics.RecipeFavoritesTotal.WithLabelValues(favoriteAction(favorite)).Inc()
	}
	return result, nil
}

// ListFavoriteRecipes returns the recipes the caller favorited and can
// still see, newest first.
func (s *Service) ListFavoriteRecipes(ctx context.Context, ident auth.Identity) ([]*models.Recipe, error) {
	all, err := s.store.ListFavoriteRecipes(ctx, ident.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list favorite recipes", err)
	}
	out := make([]*models.Recipe, 0, len(all))
	for _, r := range all {
		if recipeVisible(r, ident) {
			r.IsFavorited = true
			out = append(out, r)
		}
	}
	return out, nil
}

// BatchFavorites adds or removes several favorites in one transaction.
// Every recipe must exist and be visible, otherwise nothing changes.
func (s *Service) BatchFavorites(ctx context.Context, ident auth.Identity, req models.BatchFavoritesRequest) (models.BatchFavoritesResult, error) {
	var favorite bool
	switch req.Action {
	case models.FavoriteAdd:
		favorite = true
	case models.FavoriteRemove:
	default:
		return models.BatchFavoritesResult{}, apperr.Validation("action must be add or remove")
	}
	ids := uniqueIDs(req.RecipeIDs)
	if len(ids) == 0 {
		return models.BatchFavoritesResult{}, apperr.Validation("recipe_ids is required")
	}

	var result models.BatchFavoritesResult
	err := s.withTx(ctx, "failed to update favorites", func(q repository.Queries) error {
		// Ids are sorted, so concurrent batches lock recipes in one order.
		for _, id := range ids {
			r, err := q.GetRecipeForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !recipeVisible(r, ident) {
				return apperr.ErrRecipeNotFound
			}
		}

		for _, id := range ids {
			delta, err := applyFavorite(ctx, q, ident, id, favorite)
			if err != nil {
				return err
			}
			switch {
			case favorite && delta != 0:
				result.Added++
			case favorite:
				result.Skipped++
			case delta != 0:
				result.Removed++
			}
		}
		return nil
	})
	if err != nil {
		return models.BatchFavoritesResult{}, err
	}

	changed := result.Added + result.Removed
	s.metrics.RecipeFavoritesTotal.WithLabelValues(favoriteAction(favorite)).Add(float64(changed))
	s.logger.WithFields(logrus.Fields{
		"user_id": ident.UserID,
		"action":  req.Action,
		"changed": changed,
	}).Info("Recipe favorites updated")
	return result, nil
}

// ListSharedRecipes returns one page of public recipes, newest first.
// Pages start at 1.
func (s *Service) ListSharedRecipes(ctx context.Context, ident auth.Identity, page int) (*models.SharedRecipes, error) {
	if page < 1 {
		page = 1
	}
	size := models.SharedRecipePageSize

	recipes, err := s.store.ListPublicRecipes(ctx, size, (page-1)*size)
	if err != nil {
		return nil, apperr.Internal("failed to list shared recipes", err)
	}
	total, err := s.store.CountPublicRecipes(ctx)
	if err != nil {
		return nil, apperr.Internal("failed to count shared recipes", err)
	}
	if err := markFavorites(ctx, s.store, ident, recipes); err != nil {
		return nil, err
	}

	return &models.SharedRecipes{
		Recipes: recipes,
		Pagination: models.Pagination{
			Total:       total,
			PageSize:    size,
			CurrentPage: page,
			TotalPages:  (total + size - 1) / size,
		},
	}, nil
}

// applyFavorite writes one favorite change and returns the count delta.
func applyFavorite(ctx context.Context, q repository.Queries, ident auth.Identity, recipeID int, favorite bool) (int, error) {
	if !favorite {
		removed, err := q.RemoveFavorite(ctx, recipeID, ident.UserID)
		if err != nil || !removed {
			return 0, err
		}
		return -1, q.AdjustFavoriteCount(ctx, recipeID, -1)
	}

	if _, err := q.EnsureUser(ctx, ident.UserID, ident.Email); err != nil {
		return 0, err
	}
	added, err := q.AddFavorite(ctx, recipeID, ident.UserID)
	if err != nil || !added {
		return 0, err
	}
	return 1, q.AdjustFavoriteCount(ctx, recipeID, 1)
}

func ownedRecipe(ctx context.Context, q repository.Queries, ident auth.Identity, id int) (*models.Recipe, error) {
	r, err := q.GetRecipeForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if !recipeVisible(r, ident) {
		return nil, apperr.ErrRecipeNotFound
	}
	if r.OwnerID != ident.UserID {
		return nil, apperr.ErrDenied
	}
	return r, nil
}

func recipeVisible(r *models.Recipe, ident auth.Identity) bool {
	return r != nil && (r.IsPublic || r.OwnerID == ident.UserID)
}

func markFavorites(ctx context.Context, q repository.Queries, ident auth.Identity, recipes []*models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]int, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
	}
	favorited, err := q.FavoritedRecipeIDs(ctx, ident.UserID, ids)
	if err != nil {
		return apperr.Internal("failed to load favorites", err)
	}
	for _, r := range recipes {
		r.IsFavorited = favorited[r.ID]
	}
	return nil
}

func cleanRecipeTranslations(in []models.RecipeTranslationInput) ([]models.RecipeTranslation, error) {
	out := make([]models.RecipeTranslation, 0, len(in))
	seen := make(map[models.Language]bool, len(in))
	for _, t := range in {
		lang := models.Language(t.Language)
		switch lang {
		case models.LanguageKorean, models.LanguageEnglish, models.LanguageJapanese:
		default:
			return nil, apperr.Validation("language must be one of ko, en, ja")
		}
		if seen[lang] {
			return nil, apperr.Validation("each language may appear once")
		}
		seen[lang] = true

		title := strings.TrimSpace(t.Title)
		content := strings.TrimSpace(t.Content)
		if title == "" || content == "" {
			return nil, apperr.Validation("title and content are required")
		}
		out = append(out, models.RecipeTranslation{
			Language:    lang,
			Title:       title,
			Description: trimmedOrNil(t.Description),
			Content:     content,
		})
	}
	return out, nil
}

// mergeRecipeTranslations replaces existing languages in place and appends
// new ones.
func mergeRecipeTranslations(existing, updates []models.RecipeTranslation) []models.RecipeTranslation {
	out := append([]models.RecipeTranslation{}, existing...)
	for _, u := range updates {
		replaced := false
		for i := range out {
			if out[i].Language == u.Language {
				out[i] = u
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, u)
		}
	}
	return out
}

// cleanTags trims, drops blanks and duplicates, and sorts.
func cleanTags(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := []string{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func uniqueIDs(in []int) []int {
	seen := make(map[int]bool, len(in))
	out := make([]int, 0, len(in))
	for _, id := range in {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Ints(out)
	return out
}

func favoriteAction(favorite bool) string {
	if favorite {
		return models.FavoriteAdd
	}
	return models.FavoriteRemove
}
