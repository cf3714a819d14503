package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

const recipeColumns = `r.id, r.owner_id, r.type, r.is_public, r.favorite_count, r.created_at, r.updated_at`

func scanRecipe(row scanner) (*models.Recipe, error) {
	r := &models.Recipe{}
	err := row.Scan(
		&r.ID,
		&r.OwnerID,
		&r.Type,
		&r.IsPublic,
		&r.FavoriteCount,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (q *queries) CreateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error) {
	query := `
		INSERT INTO recipes AS r (owner_id, type, is_public)
		VALUES ($1, $2, $3)
		RETURNING ` + recipeColumns

	created, err := scanRecipe(q.db.QueryRowContext(ctx, query, r.OwnerID, string(r.Type), r.IsPublic))
	if err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	if err := q.writeRecipeChildren(ctx, created.ID, r.Translations, r.Tags); err != nil {
		return nil, err
	}
	created.Translations = append([]models.RecipeTranslation{}, r.Translations...)
	created.Tags = append([]string{}, r.Tags...)

	return created, nil
}

func (q *queries) GetRecipe(ctx context.Context, id int) (*models.Recipe, error) {
	return q.getRecipe(ctx, `SELECT `+recipeColumns+` FROM recipes r WHERE r.id = $1`, id)
}

func (q *queries) GetRecipeForUpdate(ctx context.Context, id int) (*models.Recipe, error) {
	return q.getRecipe(ctx, `SELECT `+recipeColumns+` FROM recipes r WHERE r.id = $1 FOR UPDATE`, id)
}

func (q *queries) getRecipe(ctx context.Context, query string, id int) (*models.Recipe, error) {
	r, err := scanRecipe(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	if err := q.loadRecipeChildren(ctx, []*models.Recipe{r}); err != nil {
		return nil, err
	}
	return r, nil
}

func (q *queries) ListRecipesByOwner(ctx context.Context, ownerID string) ([]*models.Recipe, error) {
	return q.listRecipes(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes r
		WHERE r.owner_id = $1
		ORDER BY r.created_at DESC, r.id DESC`, ownerID)
}

func (q *queries) ListPublicRecipes(ctx context.Context, limit, offset int) ([]*models.Recipe, error) {
	return q.listRecipes(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes r
		WHERE r.is_public
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
}

func (q *queries) CountPublicRecipes(ctx context.Context) (int, error) {
	return q.count(ctx, "public recipes", `SELECT COUNT(*) FROM recipes WHERE is_public`)
}

func (q *queries) ListFavoriteRecipes(ctx context.Context, userID string) ([]*models.Recipe, error) {
	return q.listRecipes(ctx, `
		SELECT `+recipeColumns+`
		FROM recipes r
		JOIN recipe_favorites f ON f.recipe_id = r.id
		WHERE f.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC`, userID)
}

func (q *queries) listRecipes(ctx context.Context, query string, args ...interface{}) ([]*models.Recipe, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	out := []*models.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recipes: %w", err)
	}

	if err := q.loadRecipeChildren(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (q *queries) UpdateRecipe(ctx context.Context, r *models.Recipe) (*models.Recipe, error) {
	query := `
		UPDATE recipes AS r
		SET is_public = $2, updated_at = NOW()
		WHERE r.id = $1
		RETURNING ` + recipeColumns

	updated, err := scanRecipe(q.db.QueryRowContext(ctx, query, r.ID, r.IsPublic))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	for _, table := range []string{"recipe_translations", "recipe_tags"} {
		if _, err := q.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE recipe_id = $1`, r.ID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := q.writeRecipeChildren(ctx, r.ID, r.Translations, r.Tags); err != nil {
		return nil, err
	}
	updated.Translations = append([]models.RecipeTranslation{}, r.Translations...)
	updated.Tags = append([]string{}, r.Tags...)

	return updated, nil
}

// DeleteRecipe relies on ON DELETE CASCADE for translations, tags and favorites.
func (q *queries) DeleteRecipe(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	return nil
}

func (q *queries) AddFavorite(ctx context.Context, recipeID int, userID string) (bool, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO recipe_favorites (recipe_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (recipe_id, user_id) DO NOTHING`, recipeID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to add favorite: %w", err)
	}
	return affected(res)
}

func (q *queries) RemoveFavorite(ctx context.Context, recipeID int, userID string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM recipe_favorites WHERE recipe_id = $1 AND user_id = $2`, recipeID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove favorite: %w", err)
	}
	return affected(res)
}

func (q *queries) AdjustFavoriteCount(ctx context.Context, recipeID, delta int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE recipes
		SET favorite_count = GREATEST(favorite_count + $2, 0)
		WHERE id = $1`, recipeID, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust favorite count: %w", err)
	}
	return nil
}

func (q *queries) FavoritedRecipeIDs(ctx context.Context, userID string, recipeIDs []int) (map[int]bool, error) {
	out := map[int]bool{}
	if len(recipeIDs) == 0 {
		return out, nil
	}

	rows, err := q.db.QueryContext(ctx,
		`SELECT recipe_id FROM recipe_favorites WHERE user_id = $1 AND recipe_id = ANY($2)`, userID, recipeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate favorites: %w", err)
	}
	return out, nil
}

func (q *queries) writeRecipeChildren(ctx context.Context, recipeID int, translations []models.RecipeTranslation, tags []string) error {
	for _, t := range translations {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO recipe_translations (recipe_id, language, title, description, content)
			VALUES ($1, $2, $3, $4, $5)`,
			recipeID, string(t.Language), t.Title, t.Description, t.Content)
		if err != nil {
			return fmt.Errorf("failed to insert recipe translation: %w", err)
		}
	}
	for _, tag := range tags {
		_, err := q.db.ExecContext(ctx, `
			INSERT INTO recipe_tags (recipe_id, name)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, recipeID, tag)
		if err != nil {
			return fmt.Errorf("failed to insert recipe tag: %w", err)
		}
	}
	return nil
}

// loadRecipeChildren fills Translations and Tags with two queries for the
// whole slice.
func (q *queries) loadRecipeChildren(ctx context.Context, recipes []*models.Recipe) error {
	if len(recipes) == 0 {
		return nil
	}
	ids := make([]int, len(recipes))
	byID := make(map[int]*models.Recipe, len(recipes))
	for i, r := range recipes {
		ids[i] = r.ID
		byID[r.ID] = r
		r.Translations = []models.RecipeTranslation{}
		r.Tags = []string{}
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT recipe_id, language, title, description, content
		FROM recipe_translations
		WHERE recipe_id = ANY($1)
		ORDER BY id`, ids)
	if err != nil {
		return fmt.Errorf("failed to list recipe translations: %w", err)
	}
	for rows.Next() {
		var (
			recipeID int
			t        models.RecipeTranslation
		)
		if err := rows.Scan(&recipeID, &t.Language, &t.Title, &t.Description, &t.Content); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan recipe translation: %w", err)
		}
		byID[recipeID].Translations = append(byID[recipeID].Translations, t)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate recipe translations: %w", err)
	}

	rows, err = q.db.QueryContext(ctx, `
		SELECT recipe_id, name
		FROM recipe_tags
		WHERE recipe_id = ANY($1)
		ORDER BY name`, ids)
	if err != nil {
		return fmt.Errorf("failed to list recipe tags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			recipeID int
			name     string
		)
		if err := rows.Scan(&recipeID, &name); err != nil {
			return fmt.Errorf("failed to scan recipe tag: %w", err)
		}
		byID[recipeID].Tags = append(byID[recipeID].Tags, name)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate recipe tags: %w", err)
	}
	return nil
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n > 0, nil
}
