package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// CreateRefrigerator creates a refrigerator owned by the caller, creating the
// caller's user row on first use. An owner may hold one virtual refrigerator;
// the check and the insert share a transaction under the owner lock, and the
// store's unique index backs it up.
func (s *Service) CreateRefrigerator(ctx context.Context, ident auth.Identity, req models.CreateRefrigeratorRequest) (*models.Refrigerator, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	refType := models.RefrigeratorType(req.Type)
	switch refType {
	case "":
		refType = models.RefrigeratorNormal
	case models.RefrigeratorNormal, models.RefrigeratorVirtual:
	default:
		return nil, apperr.Validation("type must be normal or virtual")
	}

	var created *models.Refrigerator
	err := s.withTx(ctx, "failed to create refrigerator", func(q repository.Queries) error {
		if err := q.LockOwner(ctx, ident.UserID); err != nil {
			return err
		}
		if _, err := q.EnsureUser(ctx, ident.UserID, ident.Email); err != nil {
			return err
		}

		if refType == models.RefrigeratorVirtual {
			count, err := q.CountRefrigeratorsByType(ctx, ident.UserID, models.RefrigeratorVirtual)
			if err != nil {
				return err
			}
			if count > 0 {
				return apperr.ErrVirtualRefrigeratorExists
			}
		}

		r, err := q.CreateRefrigerator(ctx, &models.Refrigerator{
			Name:        name,
			Description: trimmedOrNil(req.Description),
			OwnerID:     ident.UserID,
			Type:        refType,
		})
		if errors.Is(err, repository.ErrUniqueViolation) {
			return apperr.ErrVirtualRefrigeratorExists
		}
		if err != nil {
			return err
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	created.Role = models.RoleOwner
	created.IsOwner = true
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": created.ID,
		"user_id":         ident.UserID,
		"type":            created.Type,
	}).Info("Refrigerator created")
	return created, nil
}

// ListRefrigerators returns the refrigerators the caller owns.
func (s *Service) ListRefrigerators(ctx context.Context, ident auth.Identity) ([]*models.Refrigerator, error) {
	refrigerators, err := s.store.ListOwnedRefrigerators(ctx, ident.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list refrigerators", err)
	}
	for _, r := range refrigerators {
		r.Role = models.RoleOwner
		r.IsOwner = true
	}
	return nonNil(refrigerators), nil
}

// ListSharedRefrigerators returns refrigerators the caller joined through an
// accepted invitation, with their member lists.
func (s *Service) ListSharedRefrigerators(ctx context.Context, ident auth.Identity) ([]*models.Refrigerator, error) {
	email, err := s.emails.ResolveEmail(ctx, s.store, ident)
	if err != nil {
		return nil, err
	}

	refrigerators, err := s.store.ListSharedRefrigerators(ctx, email)
	if err != nil {
		return nil, apperr.Internal("failed to list shared refrigerators", err)
	}
	for _, r := range refrigerators {
		members, err := s.members(ctx, s.store, r)
		if err != nil {
			return nil, err
		}
		r.Members = members
		r.IsOwner = false
	}
	return nonNil(refrigerators), nil
}

// GetRefrigerator returns one refrigerator with the caller's role, the
// member list and counts.
func (s *Service) GetRefrigerator(ctx context.Context, ident auth.Identity, id int) (*models.Refrigerator, error) {
	d, err := s.Authorize(ctx, ident, id, access.OpRead)
	if err != nil {
		return nil, err
	}
	r := d.Refrigerator

	members, err := s.members(ctx, s.store, r)
	if err != nil {
		return nil, err
	}
	links, err := s.store.ListRefrigeratorCategories(ctx, id)
	if err != nil {
		return nil, apperr.Internal("failed to load refrigerator categories", err)
	}

	r.Role = d.Grant.Role()
	r.IsOwner = d.Grant == access.GrantOwner
	r.Members = members
	r.MemberCount = 0
	for _, m := range members {
		if m.Role != models.RoleOwner && m.Status == models.StatusAccepted {
			r.MemberCount++
		}
	}
	r.IngredientCount = 0
	for _, link := range links {
		r.IngredientCount += len(link.Ingredients)
	}
	return r, nil
}

// UpdateRefrigerator renames or re-describes a refrigerator. Owner only.
func (s *Service) UpdateRefrigerator(ctx context.Context, ident auth.Identity, id int, req models.UpdateRefrigeratorRequest) (*models.Refrigerator, error) {
	var updated *models.Refrigerator
	err := s.withTx(ctx, "failed to update refrigerator", func(q repository.Queries) error {
		d, err := s.access.Evaluate(ctx, q, ident, id, access.OpManage)
		if err != nil {
			return err
		}

		r := d.Refrigerator
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperr.Validation("name cannot be empty")
			}
			r.Name = name
		}
		if req.Description != nil {
			r.Description = trimmedOrNil(req.Description)
		}

		updated, err = q.UpdateRefrigerator(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}

	updated.Role = models.RoleOwner
	updated.IsOwner = true
	s.publish(models.EventRefrigeratorUpdate, models.ActionUpdated, id, ident, updated)
	return updated, nil
}

// DeleteRefrigerator removes a refrigerator with its links, ingredients and
// invitations. Virtual refrigerators cannot be deleted. Custom categories
// left without any link are removed in the same transaction.
func (s *Service) DeleteRefrigerator(ctx context.Context, ident auth.Identity, id int) error {
	cleaned := 0
	err := s.withTx(ctx, "failed to delete refrigerator", func(q repository.Queries) error {
		d, err := s.access.Evaluate(ctx, q, ident, id, access.OpManage)
		if err != nil {
			return err
		}
		if d.Refrigerator.Type == models.RefrigeratorVirtual {
			return apperr.ErrVirtualRefrigeratorUndeletable
		}

		links, err := q.ListRefrigeratorCategories(ctx, id)
		if err != nil {
			return err
		}
		if err := lockCategories(ctx, q, links); err != nil {
			return err
		}
		if err := q.DeleteRefrigerator(ctx, id); err != nil {
			return err
		}
		for _, link := range links {
			removed, err := releaseCategory(ctx, q, link.CategoryID)
			if err != nil {
				return err
			}
			if removed {
				cleaned++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.CategoryCleanupsTotal.Add(float64(cleaned))
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id":    id,
		"user_id":            ident.UserID,
		"categories_cleaned": cleaned,
	}).Info("Refrigerator deleted")
	s.publish(models.EventRefrigeratorUpdate, models.ActionDeleted, id, ident, nil)
	return nil
}

// members returns the access set of r: the owner first, then pending and
// accepted invitees in invitation order.
func (s *Service) members(ctx context.Context, q repository.Queries, r *models.Refrigerator) ([]models.Member, error) {
	owner, err := q.GetUser(ctx, r.OwnerID)
	if err != nil {
		return nil, apperr.Internal("failed to load owner", err)
	}
	ownerRow := models.Member{Role: models.RoleOwner, Status: models.StatusAccepted, CreatedAt: r.CreatedAt}
	if owner != nil {
		ownerRow.Email = owner.Email
		r.OwnerEmail = owner.Email
	}

	rows, err := q.ListMembers(ctx, r.ID)
	if err != nil {
		return nil, apperr.Internal("failed to list members", err)
	}
	members := make([]models.Member, 0, len(rows)+1)
	members = append(members, ownerRow)
	for _, inv := range rows {
		members = append(members, models.Member{
			ID:        inv.ID,
			Email:     inv.InvitedEmail,
			Role:      inv.Role,
			Status:    inv.Status,
			CreatedAt: inv.CreatedAt,
		})
	}
	return members, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nonNil[T any](items []*T) []*T {
	if items == nil {
		return []*T{}
	}
	return items
}
