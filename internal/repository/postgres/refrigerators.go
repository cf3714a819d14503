package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

const refrigeratorColumns = `r.id, r.name, r.description, r.owner_id, r.is_shared, r.type, r.created_at, r.updated_at`

const refrigeratorCounts = `
	(SELECT COUNT(*) FROM shared_refrigerators s2 WHERE s2.refrigerator_id = r.id AND s2.status = 'accepted') AS member_count,
	(SELECT COUNT(*) FROM ingredients i JOIN refrigerator_categories rc ON rc.id = i.refrigerator_category_id
		WHERE rc.refrigerator_id = r.id) AS ingredient_count`

func scanRefrigerator(row scanner, extra ...interface{}) (*models.Refrigerator, error) {
	r := &models.Refrigerator{}
	dest := []interface{}{
		&r.ID,
		&r.Name,
		&r.Description,
		&r.OwnerID,
		&r.IsShared,
		&r.Type,
		&r.CreatedAt,
		&r.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return r, nil
}

// LockOwner takes a transaction-scoped advisory lock keyed by the owner id.
func (q *queries) LockOwner(ctx context.Context, ownerID string) error {
	if _, err := q.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, ownerID); err != nil {
		return fmt.Errorf("failed to lock owner: %w", err)
	}
	return nil
}

func (q *queries) CreateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error) {
	query := `
		INSERT INTO refrigerators AS r (name, description, owner_id, is_shared, type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + refrigeratorColumns

	created, err := scanRefrigerator(q.db.QueryRowContext(ctx, query,
		r.Name,
		r.Description,
		r.OwnerID,
		r.IsShared,
		string(r.Type),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create refrigerator: %w", mapError(err))
	}

	return created, nil
}

func (q *queries) GetRefrigerator(ctx context.Context, id int) (*models.Refrigerator, error) {
	query := `SELECT ` + refrigeratorColumns + ` FROM refrigerators r WHERE r.id = $1`

	r, err := scanRefrigerator(q.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refrigerator: %w", err)
	}

	return r, nil
}

func (q *queries) CountRefrigeratorsByType(ctx context.Context, ownerID string, t models.RefrigeratorType) (int, error) {
	return q.count(ctx, "refrigerators",
		`SELECT COUNT(*) FROM refrigerators WHERE owner_id = $1 AND type = $2`, ownerID, string(t))
}

func (q *queries) ListOwnedRefrigerators(ctx context.Context, ownerID string) ([]*models.Refrigerator, error) {
	query := `
		SELECT ` + refrigeratorColumns + `, ` + refrigeratorCounts + `
		FROM refrigerators r
		WHERE r.owner_id = $1
		ORDER BY r.id`

	rows, err := q.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list refrigerators: %w", err)
	}
	defer rows.Close()

	var out []*models.Refrigerator
	for rows.Next() {
		var members, ingredients int
		r, err := scanRefrigerator(rows, &members, &ingredients)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refrigerator: %w", err)
		}
		r.MemberCount = members
		r.IngredientCount = ingredients
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refrigerators: %w", err)
	}

	return out, nil
}

func (q *queries) ListSharedRefrigerators(ctx context.Context, email string) ([]*models.Refrigerator, error) {
	query := `
		SELECT ` + refrigeratorColumns + `, ` + refrigeratorCounts + `, s.role, COALESCE(u.email, '')
		FROM shared_refrigerators s
		JOIN refrigerators r ON r.id = s.refrigerator_id
		LEFT JOIN users u ON u.id = r.owner_id
		WHERE s.invited_email = $1 AND s.status = 'accepted'
		ORDER BY r.id`

	rows, err := q.db.QueryContext(ctx, query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list shared refrigerators: %w", err)
	}
	defer rows.Close()

	var out []*models.Refrigerator
	for rows.Next() {
		var (
			members, ingredients int
			role                 models.Role
			ownerEmail           string
		)
		r, err := scanRefrigerator(rows, &members, &ingredients, &role, &ownerEmail)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shared refrigerator: %w", err)
		}
		r.MemberCount = members
		r.IngredientCount = ingredients
		r.Role = role
		r.OwnerEmail = ownerEmail
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate shared refrigerators: %w", err)
	}

	return out, nil
}

func (q *queries) UpdateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error) {
	query := `
		UPDATE refrigerators AS r
		SET name = $2, description = $3, updated_at = NOW()
		WHERE r.id = $1
		RETURNING ` + refrigeratorColumns

	updated, err := scanRefrigerator(q.db.QueryRowContext(ctx, query, r.ID, r.Name, r.Description))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update refrigerator: %w", err)
	}

	return updated, nil
}

// DeleteRefrigerator relies on ON DELETE CASCADE for links, ingredients and invitations.
func (q *queries) DeleteRefrigerator(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM refrigerators WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete refrigerator: %w", err)
	}
	return nil
}

func (q *queries) SetRefrigeratorShared(ctx context.Context, id int, shared bool) error {
	query := `UPDATE refrigerators SET is_shared = $2, updated_at = NOW() WHERE id = $1`
	if _, err := q.db.ExecContext(ctx, query, id, shared); err != nil {
		return fmt.Errorf("failed to update shared flag: %w", err)
	}
	return nil
}
