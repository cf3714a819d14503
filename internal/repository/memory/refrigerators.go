package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// LockOwner is a no-op: every transaction already holds the store lock.
func (q *queries) LockOwner(ctx context.Context, ownerID string) error {
	return nil
}

func (q *queries) CreateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error) {
	defer q.lock()()

	if _, ok := q.st.users[r.OwnerID]; !ok {
		return nil, fmt.Errorf("failed to create refrigerator: owner %q does not exist", r.OwnerID)
	}
	if r.Type == models.RefrigeratorVirtual {
		for _, existing := range q.st.refrigerators {
			if existing.OwnerID == r.OwnerID && existing.Type == models.RefrigeratorVirtual {
				return nil, repository.ErrUniqueViolation
			}
		}
	}

	ts := now()
	row := models.Refrigerator{
		ID:          q.st.id(),
		Name:        r.Name,
		Description: r.Description,
		OwnerID:     r.OwnerID,
		IsShared:    r.IsShared,
		Type:        r.Type,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	q.st.refrigerators[row.ID] = row
	return &row, nil
}

func (q *queries) GetRefrigerator(ctx context.Context, id int) (*models.Refrigerator, error) {
	defer q.lock()()

	r, ok := q.st.refrigerators[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (q *queries) CountRefrigeratorsByType(ctx context.Context, ownerID string, t models.RefrigeratorType) (int, error) {
	defer q.lock()()

	count := 0
	for _, r := range q.st.refrigerators {
		if r.OwnerID == ownerID && r.Type == t {
			count++
		}
	}
	return count, nil
}

func (q *queries) ListOwnedRefrigerators(ctx context.Context, ownerID string) ([]*models.Refrigerator, error) {
	defer q.lock()()

	var out []*models.Refrigerator
	for _, r := range q.st.refrigerators {
		if r.OwnerID != ownerID {
			continue
		}
		r := r
		q.st.fillCounts(&r)
		out = append(out, &r)
	}
	sortRefrigerators(out)
	return out, nil
}

func (q *queries) ListSharedRefrigerators(ctx context.Context, email string) ([]*models.Refrigerator, error) {
	defer q.lock()()

	var out []*models.Refrigerator
	for _, inv := range q.st.invitations {
		if inv.InvitedEmail != email || inv.Status != models.StatusAccepted {
			continue
		}
		r, ok := q.st.refrigerators[inv.RefrigeratorID]
		if !ok {
			continue
		}
		r.Role = inv.Role
		r.OwnerEmail = q.st.users[r.OwnerID].Email
		q.st.fillCounts(&r)
		out = append(out, &r)
	}
	sortRefrigerators(out)
	return out, nil
}

func (q *queries) UpdateRefrigerator(ctx context.Context, r *models.Refrigerator) (*models.Refrigerator, error) {
	defer q.lock()()

	row, ok := q.st.refrigerators[r.ID]
	if !ok {
		return nil, nil
	}
	row.Name = r.Name
	row.Description = r.Description
	row.UpdatedAt = now()
	q.st.refrigerators[row.ID] = row
	return &row, nil
}

// DeleteRefrigerator cascades to links, their ingredients and invitations.
func (q *queries) DeleteRefrigerator(ctx context.Context, id int) error {
	defer q.lock()()

	delete(q.st.refrigerators, id)
	for linkID, link := range q.st.links {
		if link.RefrigeratorID == id {
			q.st.deleteLink(linkID)
		}
	}
	for invID, inv := range q.st.invitations {
		if inv.RefrigeratorID == id {
			delete(q.st.invitations, invID)
		}
	}
	return nil
}

func (q *queries) SetRefrigeratorShared(ctx context.Context, id int, shared bool) error {
	defer q.lock()()

	r, ok := q.st.refrigerators[id]
	if !ok {
		return nil
	}
	r.IsShared = shared
	r.UpdatedAt = now()
	q.st.refrigerators[id] = r
	return nil
}

func (s *state) fillCounts(r *models.Refrigerator) {
	r.MemberCount = 0
	for _, inv := range s.invitations {
		if inv.RefrigeratorID == r.ID && inv.Status == models.StatusAccepted {
			r.MemberCount++
		}
	}
	r.IngredientCount = 0
	for _, ing := range s.ingredients {
		if link, ok := s.links[ing.RefrigeratorCategoryID]; ok && link.RefrigeratorID == r.ID {
			r.IngredientCount++
		}
	}
}

func sortRefrigerators(rs []*models.Refrigerator) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}
