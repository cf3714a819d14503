package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

const ingredientColumns = `i.id, i.name, i.quantity::text, i.unit, i.expiry_date, i.refrigerator_category_id, i.category_id, i.created_at, i.updated_at`

func scanIngredient(row scanner) (*models.Ingredient, error) {
	ing := &models.Ingredient{}
	err := row.Scan(
		&ing.ID,
		&ing.Name,
		&ing.Quantity,
		&ing.Unit,
		&ing.ExpiryDate,
		&ing.RefrigeratorCategoryID,
		&ing.CategoryID,
		&ing.CreatedAt,
		&ing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return ing, nil
}

func (q *queries) CreateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error) {
	query := `
		INSERT INTO ingredients AS i (name, quantity, unit, expiry_date, refrigerator_category_id, category_id)
		VALUES ($1, $2::numeric, $3, $4, $5, $6)
		RETURNING ` + ingredientColumns

	created, err := scanIngredient(q.db.QueryRowContext(ctx, query,
		i.Name,
		i.Quantity,
		string(i.Unit),
		i.ExpiryDate,
		i.RefrigeratorCategoryID,
		i.CategoryID,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create ingredient: %w", err)
	}

	return created, nil
}

func (q *queries) GetIngredient(ctx context.Context, id, refrigeratorCategoryID int) (*models.Ingredient, error) {
	query := `
		SELECT ` + ingredientColumns + `
		FROM ingredients i
		WHERE i.id = $1 AND i.refrigerator_category_id = $2`

	ing, err := scanIngredient(q.db.QueryRowContext(ctx, query, id, refrigeratorCategoryID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}

	return ing, nil
}

func (q *queries) ListIngredients(ctx context.Context, refrigeratorCategoryID int) ([]*models.Ingredient, error) {
	return q.queryIngredients(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients i
		WHERE i.refrigerator_category_id = $1
		ORDER BY i.id`, refrigeratorCategoryID)
}

func (q *queries) UpdateIngredient(ctx context.Context, i *models.Ingredient) (*models.Ingredient, error) {
	query := `
		UPDATE ingredients AS i
		SET name = $2, quantity = $3::numeric, unit = $4, expiry_date = $5,
		    refrigerator_category_id = $6, category_id = $7, updated_at = NOW()
		WHERE i.id = $1
		RETURNING ` + ingredientColumns

	updated, err := scanIngredient(q.db.QueryRowContext(ctx, query,
		i.ID,
		i.Name,
		i.Quantity,
		string(i.Unit),
		i.ExpiryDate,
		i.RefrigeratorCategoryID,
		i.CategoryID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update ingredient: %w", err)
	}

	return updated, nil
}

func (q *queries) DeleteIngredient(ctx context.Context, id, refrigeratorCategoryID int) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM ingredients WHERE id = $1 AND refrigerator_category_id = $2`, id, refrigeratorCategoryID)
	if err != nil {
		return false, fmt.Errorf("failed to delete ingredient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete ingredient: %w", err)
	}
	return n > 0, nil
}

func (q *queries) queryIngredients(ctx context.Context, query string, args ...interface{}) ([]*models.Ingredient, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var out []*models.Ingredient
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		out = append(out, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ingredients: %w", err)
	}

	return out, nil
}
