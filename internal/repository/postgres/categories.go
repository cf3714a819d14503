package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

func (q *queries) CreateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		INSERT INTO categories (type, icon, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`

	created := &models.Category{
		Type:   c.Type,
		Icon:   c.Icon,
		UserID: c.UserID,
	}
	err := q.db.QueryRowContext(ctx, query, string(c.Type), c.Icon, c.UserID).Scan(
		&created.ID,
		&created.CreatedAt,
		&created.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	if err := q.insertTranslations(ctx, created.ID, c.Translations); err != nil {
		return nil, err
	}
	created.Translations = append([]models.CategoryTranslation{}, c.Translations...)

	return created, nil
}

func (q *queries) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	query := `
		SELECT id, type, icon, user_id, created_at, updated_at
		FROM categories
		WHERE id = $1`

	c := &models.Category{}
	err := q.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID,
		&c.Type,
		&c.Icon,
		&c.UserID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	translations, err := q.listTranslations(ctx,
		`SELECT category_id, language, name FROM category_translations WHERE category_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	c.Translations = append([]models.CategoryTranslation{}, translations[id]...)

	return c, nil
}

func (q *queries) LockCategory(ctx context.Context, id int) error {
	var locked int
	err := q.db.QueryRowContext(ctx, `SELECT id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to lock category: %w", err)
	}
	return nil
}

func (q *queries) UpdateCategory(ctx context.Context, c *models.Category) (*models.Category, error) {
	query := `
		UPDATE categories
		SET icon = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, type, icon, user_id, created_at, updated_at`

	updated := &models.Category{}
	err := q.db.QueryRowContext(ctx, query, c.ID, c.Icon).Scan(
		&updated.ID,
		&updated.Type,
		&updated.Icon,
		&updated.UserID,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	if _, err := q.db.ExecContext(ctx, `DELETE FROM category_translations WHERE category_id = $1`, c.ID); err != nil {
		return nil, fmt.Errorf("failed to clear category translations: %w", err)
	}
	if err := q.insertTranslations(ctx, c.ID, c.Translations); err != nil {
		return nil, err
	}
	updated.Translations = append([]models.CategoryTranslation{}, c.Translations...)

	return updated, nil
}

// DeleteCategory relies on ON DELETE CASCADE for translations, links and ingredients.
func (q *queries) DeleteCategory(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

func (q *queries) CreateRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error) {
	query := `
		INSERT INTO refrigerator_categories (refrigerator_id, category_id)
		VALUES ($1, $2)
		RETURNING id, refrigerator_id, category_id, created_at`

	link, err := scanLink(q.db.QueryRowContext(ctx, query, refrigeratorID, categoryID))
	if err != nil {
		return nil, fmt.Errorf("failed to link category: %w", mapError(err))
	}

	return link, nil
}

func (q *queries) GetRefrigeratorCategory(ctx context.Context, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error) {
	query := `
		SELECT id, refrigerator_id, category_id, created_at
		FROM refrigerator_categories
		WHERE refrigerator_id = $1 AND category_id = $2`

	return q.getLink(ctx, query, refrigeratorID, categoryID)
}

func (q *queries) GetRefrigeratorCategoryByID(ctx context.Context, id int) (*models.RefrigeratorCategory, error) {
	query := `
		SELECT id, refrigerator_id, category_id, created_at
		FROM refrigerator_categories
		WHERE id = $1`

	return q.getLink(ctx, query, id)
}

func (q *queries) ListRefrigeratorCategories(ctx context.Context, refrigeratorID int) ([]*models.RefrigeratorCategory, error) {
	query := `
		SELECT rc.id, rc.refrigerator_id, rc.category_id, rc.created_at,
		       c.id, c.type, c.icon, c.user_id, c.created_at, c.updated_at
		FROM refrigerator_categories rc
		JOIN categories c ON c.id = rc.category_id
		WHERE rc.refrigerator_id = $1
		ORDER BY rc.id`

	rows, err := q.db.QueryContext(ctx, query, refrigeratorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refrigerator categories: %w", err)
	}
	defer rows.Close()

	var (
		links  []*models.RefrigeratorCategory
		byLink = map[int]*models.RefrigeratorCategory{}
	)
	for rows.Next() {
		link := &models.RefrigeratorCategory{Category: &models.Category{}}
		if err := rows.Scan(
			&link.ID,
			&link.RefrigeratorID,
			&link.CategoryID,
			&link.CreatedAt,
			&link.Category.ID,
			&link.Category.Type,
			&link.Category.Icon,
			&link.Category.UserID,
			&link.Category.CreatedAt,
			&link.Category.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan refrigerator category: %w", err)
		}
		links = append(links, link)
		byLink[link.ID] = link
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refrigerator categories: %w", err)
	}
	if len(links) == 0 {
		return links, nil
	}

	translations, err := q.listTranslations(ctx, `
		SELECT ct.category_id, ct.language, ct.name
		FROM category_translations ct
		JOIN refrigerator_categories rc ON rc.category_id = ct.category_id
		WHERE rc.refrigerator_id = $1
		ORDER BY ct.id`, refrigeratorID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		link.Category.Translations = append([]models.CategoryTranslation{}, translations[link.CategoryID]...)
	}

	ingredients, err := q.queryIngredients(ctx, `
		SELECT `+ingredientColumns+`
		FROM ingredients i
		JOIN refrigerator_categories rc ON rc.id = i.refrigerator_category_id
		WHERE rc.refrigerator_id = $1
		ORDER BY i.id`, refrigeratorID)
	if err != nil {
		return nil, err
	}
	for _, ing := range ingredients {
		if link, ok := byLink[ing.RefrigeratorCategoryID]; ok {
			link.Ingredients = append(link.Ingredients, *ing)
		}
	}

	return links, nil
}

// DeleteRefrigeratorCategory relies on ON DELETE CASCADE for the link's ingredients.
func (q *queries) DeleteRefrigeratorCategory(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM refrigerator_categories WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete refrigerator category: %w", err)
	}
	return nil
}

func (q *queries) CountCategoryLinks(ctx context.Context, categoryID int) (int, error) {
	return q.count(ctx, "category links",
		`SELECT COUNT(*) FROM refrigerator_categories WHERE category_id = $1`, categoryID)
}

func scanLink(row scanner) (*models.RefrigeratorCategory, error) {
	link := &models.RefrigeratorCategory{}
	if err := row.Scan(&link.ID, &link.RefrigeratorID, &link.CategoryID, &link.CreatedAt); err != nil {
		return nil, err
	}
	return link, nil
}

func (q *queries) getLink(ctx context.Context, query string, args ...interface{}) (*models.RefrigeratorCategory, error) {
	link, err := scanLink(q.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refrigerator category: %w", err)
	}
	return link, nil
}

func (q *queries) insertTranslations(ctx context.Context, categoryID int, translations []models.CategoryTranslation) error {
	query := `
		INSERT INTO category_translations (category_id, language, name)
		VALUES ($1, $2, $3)`

	for _, t := range translations {
		if _, err := q.db.ExecContext(ctx, query, categoryID, string(t.Language), t.Name); err != nil {
			return fmt.Errorf("failed to insert category translation: %w", err)
		}
	}
	return nil
}

// listTranslations groups translation rows by category id.
func (q *queries) listTranslations(ctx context.Context, query string, args ...interface{}) (map[int][]models.CategoryTranslation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list category translations: %w", err)
	}
	defer rows.Close()

	out := map[int][]models.CategoryTranslation{}
	for rows.Next() {
		var (
			categoryID int
			t          models.CategoryTranslation
		)
		if err := rows.Scan(&categoryID, &t.Language, &t.Name); err != nil {
			return nil, fmt.Errorf("failed to scan category translation: %w", err)
		}
		out[categoryID] = append(out[categoryID], t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category translations: %w", err)
	}

	return out, nil
}
