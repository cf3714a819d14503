package memory

import (
	"context"
	"sort"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

func isLive(status models.InvitationStatus) bool {
	return status == models.StatusPending || status == models.StatusAccepted
}

func (q *queries) CreateInvitation(ctx context.Context, inv *models.Invitation) (*models.Invitation, error) {
	defer q.lock()()

	if isLive(inv.Status) {
		for _, existing := range q.st.invitations {
			if existing.RefrigeratorID == inv.RefrigeratorID &&
				existing.InvitedEmail == inv.InvitedEmail &&
				isLive(existing.Status) {
				return nil, repository.ErrUniqueViolation
			}
		}
	}

	ts := now()
	row := models.Invitation{
		ID:             q.st.id(),
		RefrigeratorID: inv.RefrigeratorID,
		OwnerID:        inv.OwnerID,
		InvitedEmail:   inv.InvitedEmail,
		Status:         inv.Status,
		Role:           inv.Role,
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	q.st.invitations[row.ID] = row
	return &row, nil
}

func (q *queries) GetInvitation(ctx context.Context, id int) (*models.Invitation, error) {
	defer q.lock()()

	inv, ok := q.st.invitations[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

// GetInvitationForUpdate needs no row lock: transactions are serialized.
func (q *queries) GetInvitationForUpdate(ctx context.Context, id int) (*models.Invitation, error) {
	return q.GetInvitation(ctx, id)
}

func (q *queries) FindLiveInvitation(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error) {
	defer q.lock()()

	return q.st.findInvitation(refrigeratorID, email, isLive), nil
}

func (q *queries) FindAcceptedMembership(ctx context.Context, refrigeratorID int, email string) (*models.Invitation, error) {
	defer q.lock()()

	return q.st.findInvitation(refrigeratorID, email, func(s models.InvitationStatus) bool {
		return s == models.StatusAccepted
	}), nil
}

func (q *queries) UpdateInvitationStatus(ctx context.Context, id int, status models.InvitationStatus) (*models.Invitation, error) {
	defer q.lock()()

	inv, ok := q.st.invitations[id]
	if !ok {
		return nil, nil
	}
	inv.Status = status
	inv.UpdatedAt = now()
	q.st.invitations[id] = inv
	return &inv, nil
}

func (q *queries) UpdateInvitationRole(ctx context.Context, id int, role models.Role) (*models.Invitation, error) {
	defer q.lock()()

	inv, ok := q.st.invitations[id]
	if !ok {
		return nil, nil
	}
	inv.Role = role
	inv.UpdatedAt = now()
	q.st.invitations[id] = inv
	return &inv, nil
}

func (q *queries) DeleteInvitation(ctx context.Context, id int) error {
	defer q.lock()()

	delete(q.st.invitations, id)
	return nil
}

func (q *queries) ListReceivedInvitations(ctx context.Context, email string) ([]*models.Invitation, error) {
	defer q.lock()()

	var out []*models.Invitation
	for _, inv := range q.st.invitations {
		if inv.InvitedEmail != email {
			continue
		}
		inv := inv
		inv.RefrigeratorName = q.st.refrigerators[inv.RefrigeratorID].Name
		inv.OwnerEmail = q.st.users[inv.OwnerID].Email
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (q *queries) ListSentInvitations(ctx context.Context, ownerID string) ([]*models.Invitation, error) {
	defer q.lock()()

	var out []*models.Invitation
	for _, inv := range q.st.invitations {
		if inv.OwnerID != ownerID {
			continue
		}
		inv := inv
		inv.RefrigeratorName = q.st.refrigerators[inv.RefrigeratorID].Name
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (q *queries) ListMembers(ctx context.Context, refrigeratorID int) ([]*models.Invitation, error) {
	defer q.lock()()

	var out []*models.Invitation
	for _, inv := range q.st.invitations {
		if inv.RefrigeratorID != refrigeratorID || !isLive(inv.Status) {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (q *queries) CountAcceptedMembers(ctx context.Context, refrigeratorID int) (int, error) {
	defer q.lock()()

	count := 0
	for _, inv := range q.st.invitations {
		if inv.RefrigeratorID == refrigeratorID && inv.Status == models.StatusAccepted {
			count++
		}
	}
	return count, nil
}

func (s *state) findInvitation(refrigeratorID int, email string, match func(models.InvitationStatus) bool) *models.Invitation {
	for _, inv := range s.invitations {
		if inv.RefrigeratorID == refrigeratorID && inv.InvitedEmail == email && match(inv.Status) {
			inv := inv
			return &inv
		}
	}
	return nil
}
