package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
)

const invitationColumns = `s.id, s.refrigerator_id, s.owner_id, s.invited_email, s.status, s.role, s.created_at, s.updated_at`

func scanInvitation(row scanner, extra ...interface{}) (*models.Invitation, error) {
	inv := &models.Invitation{}
	dest := []interface{}{
		&inv.ID,
		&inv.RefrigeratorID,
		&inv.OwnerID,
		&inv.InvitedEmail,
		&inv.Status,
		&inv.Role,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return inv, nil
}

func (q *queries) getInvitation(ctx context.Context, what, query string, args ...interface{}) (*models.Invitation, error) {
	inv, err := scanInvitation(q.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return inv, nil
}

func (q *queries) CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	query := `
		INSERT INTO shared_refrigerators AS s (refrigerator_id, owner_id, invited_email, status, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + invitationColumns

	created, err := scanInvitation(q.db.QueryRowContext(ctx, query,
		inv.RefrigeratorID,
		inv.OwnerID,
		inv.InvitedEmail,
		string(inv.Status),
		string(inv.Role),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", mapError(err))
	}

	return created, nil
}

func (q *queries) GetInvitation(ctx context.Context, id int) (*models.Invitation, error) {
	return q.getInvitation(ctx, "invitation",
		`SELECT `+invitationColumns+` FROM shared_refrigerators s WHERE s.id = $1`, id)
}

func (q *queries) GetInvitationForUpdate(ctx context.Context, id int) (*models.Invitation, error) {
	return q.getInvitation(ctx, "invitation",
		`SELECT `+invitationColumns+` FROM shared_refrigerators s WHERE s.id = $1 FOR UPDATE`, id)
}

func (q *queries) FindLiveInvitation(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error) {
	return q.getInvitation(ctx, "live invitation", `
		SELECT `+invitationColumns+`
		FROM shared_refrigerators s
		WHERE s.refrigerator_id = $1 AND s.invited_email = $2 AND s.status IN ('pending', 'accepted')
		LIMIT 1`, refrigeratorID, email)
}

func (q *queries) FindAcceptedMembership(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error) {
	return q.getInvitation(ctx, "membership", `
		SELECT `+invitationColumns+`
		FROM shared_refrigerators s
		WHERE s.refrigerator_id = $1 AND s.invited_email = $2 AND s.status = 'accepted'
		LIMIT 1`, refrigeratorID, email)
}

func (q *queries) UpdateInvitationStatus(ctx context.Context, id int, status models.InvitationStatus) (*models.Invitation, error) {
	return q.getInvitation(ctx, "invitation", `
		UPDATE shared_refrigerators AS s
		SET status = $2, updated_at = NOW()
		WHERE s.id = $1
		RETURNING `+invitationColumns, id, string(status))
}

func (q *queries) UpdateInvitationRole(ctx context.Context, id int, role models.Role) (*models.Invitation, error) {
	return q.getInvitation(ctx, "invitation", `
		UPDATE shared_refrigerators AS s
		SET role = $2, updated_at = NOW()
		WHERE s.id = $1
		RETURNING `+invitationColumns, id, string(role))
}

func (q *queries) DeleteInvitation(ctx context.Context, id int) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM shared_refrigerators WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete invitation: %w", err)
	}
	return nil
}

func (q *queries) ListReceivedInvitations(ctx context.Context, email string) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `, r.name, COALESCE(u.email, '')
		FROM shared_refrigerators s
		JOIN refrigerators r ON r.id = s.refrigerator_id
		LEFT JOIN users u ON u.id = s.owner_id
		WHERE s.invited_email = $1
		ORDER BY s.id DESC`

	return q.listInvitations(ctx, query, true, email)
}

func (q *queries) ListSentInvitations(ctx context.Context, ownerID string) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `, r.name
		FROM shared_refrigerators s
		JOIN refrigerators r ON r.id = s.refrigerator_id
		WHERE s.owner_id = $1
		ORDER BY s.id DESC`

	return q.listInvitations(ctx, query, false, ownerID)
}

func (q *queries) ListMembers(ctx context.Context, refrigeratorID int) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM shared_refrigerators s
		WHERE s.refrigerator_id = $1 AND s.status IN ('pending', 'accepted')
		ORDER BY s.id`

	rows, err := q.db.QueryContext(ctx, query, refrigeratorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return out, nil
}

func (q *queries) CountAcceptedMembers(ctx context.Context, refrigeratorID int) (int, error) {
	return q.count(ctx, "members",
		`SELECT COUNT(*) FROM shared_refrigerators WHERE refrigerator_id = $1 AND status = 'accepted'`, refrigeratorID)
}

// listInvitations scans invitation rows followed by the refrigerator name and,
// when withOwnerEmail is set, the owner's email.
func (q *queries) listInvitations(ctx context.Context, query string, withOwnerEmail bool, arg interface{}) ([]*models.Invitation, error) {
	rows, err := q.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	defer rows.Close()

	var out []*models.Invitation
	for rows.Next() {
		var name, ownerEmail string
		extra := []interface{}{&name}
		if withOwnerEmail {
			extra = append(extra, &ownerEmail)
		}
		inv, err := scanInvitation(rows, extra...)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		inv.RefrigeratorName = name
		inv.OwnerEmail = ownerEmail
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}

	return out, nil
}
