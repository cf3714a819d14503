package memory

import (
	"context"
	"sort"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

type favoriteKey struct {
	recipeID int
	userID   string
}

func (q *queries) CreateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error) {
	defer q.lock()()

	ts := now()
	row := copyRecipe(models.Recipe{
		ID:           q.st.id(),
		OwnerID:      r.OwnerID,
		Type:         r.Type,
		IsPublic:     r.IsPublic,
		Translations: r.Translations,
		Tags:         uniqueTags(r.Tags),
		CreatedAt:    ts,
		UpdatedAt:    ts,
	})
	q.st.recipes[row.ID] = row
	out := copyRecipe(row)
	return &out, nil
}

func (q *queries) GetRecipe(ctx context.Context, id int) (*models.Recipe, error) {
	defer q.lock()()

	r, ok := q.st.recipes[id]
	if !ok {
		return nil, nil
	}
	out := copyRecipe(r)
	return &out, nil
}

// GetRecipeForUpdate needs no row lock: transactions are serialized.
func (q *queries) GetRecipeForUpdate(ctx context.Context, id int) (*models.Recipe, error) {
	return q.GetRecipe(ctx, id)
}

func (q *queries) ListRecipesByOwner(ctx context.Context, ownerID string) ([]*models.Recipe, error) {
	defer q.lock()()

	return q.st.sortedRecipes(func(r models.Recipe) bool { return r.OwnerID == ownerID }), nil
}

func (q *queries) ListPublicRecipes(ctx context.Context, limit, offset int) ([]*models.Recipe, error) {
	defer q.lock()()

	all := q.st.sortedRecipes(func(r models.Recipe) bool { return r.IsPublic })
	if offset >= len(all) {
		return []*models.Recipe{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (q *queries) CountPublicRecipes(ctx context.Context) (int, error) {
	defer q.lock()()

	n := 0
	for _, r := range q.st.recipes {
		if r.IsPublic {
			n++
		}
	}
	return n, nil
}

func (q *queries) ListFavoriteRecipes(ctx context.Context, userID string) ([]*models.Recipe, error) {
	defer q.lock()()

	return q.st.sortedRecipes(func(r models.Recipe) bool {
		_, ok := q.st.favorites[favoriteKey{r.ID, userID}]
		return ok
	}), nil
}

func (q *queries) UpdateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error) {
	defer q.lock()()

	row, ok := q.st.recipes[r.ID]
	if !ok {
		return nil, nil
	}
	row.IsPublic = r.IsPublic
	row.Translations = r.Translations
	row.Tags = uniqueTags(r.Tags)
	row.UpdatedAt = now()
	row = copyRecipe(row)
	q.st.recipes[row.ID] = row

	out := copyRecipe(row)
	return &out, nil
}

func (q *queries) DeleteRecipe(ctx context.Context, id int) error {
	defer q.lock()()

	delete(q.st.recipes, id)
	for key := range q.st.favorites {
		if key.recipeID == id {
			delete(q.st.favorites, key)
		}
	}
	return nil
}

func (q *queries) AddFavorite(ctx context.Context, recipeID int, userID string) (bool, error) {
	defer q.lock()()

	key := favoriteKey{recipeID, userID}
	if _, ok := q.st.favorites[key]; ok {
		return false, nil
	}
	if _, ok := q.st.recipes[recipeID]; !ok {
		return false, nil
	}
	q.st.favorites[key] = now()
	return true, nil
}

func (q *queries) RemoveFavorite(ctx context.Context, recipeID int, userID string) (bool, error) {
	defer q.lock()()

	key := favoriteKey{recipeID, userID}
	if _, ok := q.st.favorites[key]; !ok {
		return false, nil
	}
	delete(q.st.favorites, key)
	return true, nil
}

func (q *queries) AdjustFavoriteCount(ctx context.Context, recipeID, delta int) error {
	defer q.lock()()

	r, ok := q.st.recipes[recipeID]
	if !ok {
		return nil
	}
	r.FavoriteCount += delta
	if r.FavoriteCount < 0 {
		r.FavoriteCount = 0
	}
	q.st.recipes[recipeID] = r
	return nil
}

func (q *queries) FavoritedRecipeIDs(ctx context.Context, userID string, recipeIDs []int) (map[int]bool, error) {
	defer q.lock()()

	out := map[int]bool{}
	for _, id := range recipeIDs {
		if _, ok := q.st.favorites[favoriteKey{id, userID}]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// sortedRecipes returns copies of the matching recipes, newest first.
func (s *state) sortedRecipes(match func(models.Recipe) bool) []*models.Recipe {
	out := []*models.Recipe{}
	for _, r := range s.recipes {
		if match(r) {
			c := copyRecipe(r)
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func copyRecipe(r models.Recipe) models.Recipe {
	r.Translations = append([]models.RecipeTranslation{}, r.Translations...)
	r.Tags = append([]string{}, r.Tags...)
	return r
}

// uniqueTags drops repeated names and sorts the rest.
func uniqueTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := []string{}
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}
