package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// Invite creates a pending invitation for email with a fixed role. The role
// defaults to viewer and is kept unchanged when the invitee accepts.
func (s *Service) Invite(ctx context.Context, ident auth.Identity, refrigeratorID int, req models.ShareRefrigeratorRequest) (*models.Invitation, error) {
	email := auth.NormalizeEmail(req.Email)
	if email == "" {
		return nil, apperr.Validation("email is required")
	}
	role := models.Role(req.Role)
	switch role {
	case "":
		role = models.RoleViewer
	case models.RoleAdmin, models.RoleViewer:
	default:
		return nil, apperr.Validation("role must be admin or viewer")
	}

	var created *models.Invitation
	err := s.withTx(ctx, "failed to create invitation", func(q repository.Queries) error {
		d, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpManage)
		if err != nil {
			return err
		}
		if self, err := s.isOwnEmail(ctx, q, ident, email); err != nil {
			return err
		} else if self {
			return apperr.ErrSelfInvitation
		}

		existing, err := q.FindLiveInvitation(ctx, refrigeratorID, email)
		if err != nil {
			return err
		}
		if existing != nil {
			if existing.Status == models.StatusAccepted {
				return apperr.ErrAlreadyMember
			}
			return apperr.ErrDuplicateInvitation
		}

		inv, err := q.CreateInvitation(ctx, &models.Invitation{
			RefrigeratorID: refrigeratorID,
			OwnerID:        d.Refrigerator.OwnerID,
			InvitedEmail:   email,
			Status:         models.StatusPending,
			Role:           role,
		})
		if errors.Is(err, repository.ErrUniqueViolation) {
			return apperr.ErrDuplicateInvitation
		}
		if err != nil {
			return err
		}
		inv.RefrigeratorName = d.Refrigerator.Name
		created = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvitationTransitionsTotal.WithLabelValues(string(models.StatusPending)).Inc()
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": refrigeratorID,
		"invitation_id":   created.ID,
		"user_id":         ident.UserID,
		"role":            created.Role,
	}).Info("Invitation created")
	return created, nil
}

// RespondToInvitation accepts or rejects a pending invitation addressed to
// the caller. The status check and the update happen under a row lock, so of
// two concurrent responses only the first succeeds.
func (s *Service) RespondToInvitation(ctx context.Context, ident auth.Identity, invitationID int, action string) (*models.Invitation, error) {
	var next models.InvitationStatus
	switch action {
	case models.ActionAccept:
		next = models.StatusAccepted
	case models.ActionReject:
		next = models.StatusRejected
	default:
		return nil, apperr.Validation("action must be accept or reject")
	}

	email, err := s.emails.ResolveEmail(ctx, s.store, ident)
	if err != nil {
		return nil, err
	}

	var updated *models.Invitation
	err = s.withTx(ctx, "failed to respond to invitation", func(q repository.Queries) error {
		inv, err := q.GetInvitationForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.ErrInvitationNotFound
		}
		if inv.InvitedEmail != email {
			return apperr.ErrDenied
		}
		if inv.Status != models.StatusPending {
			return apperr.ErrAlreadyProcessed
		}

		updated, err = q.UpdateInvitationStatus(ctx, inv.ID, next)
		if err != nil {
			return err
		}
		if next == models.StatusAccepted {
			if _, err := q.EnsureUser(ctx, ident.UserID, email); err != nil {
				return err
			}
			return q.SetRefrigeratorShared(ctx, inv.RefrigeratorID, true)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.InvitationTransitionsTotal.WithLabelValues(string(next)).Inc()
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": updated.RefrigeratorID,
		"invitation_id":   updated.ID,
		"user_id":         ident.UserID,
		"status":          updated.Status,
	}).Info("Invitation answered")
	if next == models.StatusAccepted {
		s.publish(models.EventRefrigeratorUpdate, models.ActionUpdated, updated.RefrigeratorID, ident, updated)
	}
	return updated, nil
}

// CancelInvitation deletes an invitation the caller sent. Accepted
// invitations are memberships and go through RemoveMember instead.
func (s *Service) CancelInvitation(ctx context.Context, ident auth.Identity, invitationID int) error {
	err := s.withTx(ctx, "failed to cancel invitation", func(q repository.Queries) error {
		inv, err := q.GetInvitationForUpdate(ctx, invitationID)
		if err != nil {
			return err
		}
		if inv == nil {
			return apperr.ErrInvitationNotFound
		}
		if inv.OwnerID != ident.UserID {
			return apperr.ErrOwnerOnly
		}
		if inv.Status == models.StatusAccepted {
			return apperr.ErrAlreadyAccepted
		}
		return q.DeleteInvitation(ctx, inv.ID)
	})
	if err != nil {
		return err
	}

	s.metrics.InvitationTransitionsTotal.WithLabelValues("cancelled").Inc()
	s.logger.WithFields(logrus.Fields{
		"invitation_id": invitationID,
		"user_id":       ident.UserID,
	}).Info("Invitation cancelled")
	return nil
}

// ListReceivedInvitations returns every invitation addressed to the
// caller's verified email, newest first.
func (s *Service) ListReceivedInvitations(ctx context.Context, ident auth.Identity) ([]*models.Invitation, error) {
	email, err := s.emails.ResolveEmail(ctx, s.store, ident)
	if err != nil {
		return nil, err
	}
	invitations, err := s.store.ListReceivedInvitations(ctx, email)
	if err != nil {
		return nil, apperr.Internal("failed to list received invitations", err)
	}
	return nonNil(invitations), nil
}

// ListSentInvitations returns every invitation on refrigerators the caller
// owns, newest first.
func (s *Service) ListSentInvitations(ctx context.Context, ident auth.Identity) ([]*models.Invitation, error) {
	invitations, err := s.store.ListSentInvitations(ctx, ident.UserID)
	if err != nil {
		return nil, apperr.Internal("failed to list sent invitations", err)
	}
	return nonNil(invitations), nil
}

// ListMembers returns the owner followed by pending and accepted invitees.
func (s *Service) ListMembers(ctx context.Context, ident auth.Identity, refrigeratorID int) ([]models.Member, error) {
	d, err := s.Authorize(ctx, ident, refrigeratorID, access.OpRead)
	if err != nil {
		return nil, err
	}
	return s.members(ctx, s.store, d.Refrigerator)
}

// UpdateMemberRole changes the role of a pending or accepted invitee.
// Owner only.
func (s *Service) UpdateMemberRole(ctx context.Context, ident auth.Identity, refrigeratorID, memberID int, role models.Role) (*models.Invitation, error) {
	if role != models.RoleAdmin && role != models.RoleViewer {
		return nil, apperr.Validation("role must be admin or viewer")
	}

	var updated *models.Invitation
	err := s.withTx(ctx, "failed to update member role", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpManage); err != nil {
			return err
		}
		inv, err := liveMember(ctx, q, refrigeratorID, memberID)
		if err != nil {
			return err
		}
		updated, err = q.UpdateInvitationRole(ctx, inv.ID, role)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": refrigeratorID,
		"invitation_id":   memberID,
		"user_id":         ident.UserID,
		"role":            role,
	}).Info("Member role updated")
	s.publish(models.EventRefrigeratorUpdate, models.ActionUpdated, refrigeratorID, ident, updated)
	return updated, nil
}

// RemoveMember deletes a pending or accepted invitee and refreshes the
// refrigerator's shared flag. Owner only.
func (s *Service) RemoveMember(ctx context.Context, ident auth.Identity, refrigeratorID, memberID int) error {
	err := s.withTx(ctx, "failed to remove member", func(q repository.Queries) error {
		if _, err := s.access.Evaluate(ctx, q, ident, refrigeratorID, access.OpManage); err != nil {
			return err
		}
		inv, err := liveMember(ctx, q, refrigeratorID, memberID)
		if err != nil {
			return err
		}
		if err := q.DeleteInvitation(ctx, inv.ID); err != nil {
			return err
		}
		remaining, err := q.CountAcceptedMembers(ctx, refrigeratorID)
		if err != nil {
			return err
		}
		return q.SetRefrigeratorShared(ctx, refrigeratorID, remaining > 0)
	})
	if err != nil {
		return err
	}

	s.metrics.InvitationTransitionsTotal.WithLabelValues("removed").Inc()
	s.logger.WithFields(logrus.Fields{
		"refrigerator_id": refrigeratorID,
		"invitation_id":   memberID,
		"user_id":         ident.UserID,
	}).Info("Member removed")
	s.publish(models.EventRefrigeratorUpdate, models.ActionUpdated, refrigeratorID, ident, nil)
	return nil
}

// liveMember locks the pending or accepted invitation memberID of the
// refrigerator. Rows of other refrigerators and rejected rows are reported
// as MemberNotFound.
func liveMember(ctx context.Context, q repository.Queries, refrigeratorID, memberID int) (*models.Invitation, error) {
	inv, err := q.GetInvitationForUpdate(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if inv == nil || inv.RefrigeratorID != refrigeratorID || inv.Status == models.StatusRejected {
		return nil, apperr.ErrMemberNotFound
	}
	return inv, nil
}

// isOwnEmail reports whether email belongs to the caller, using the token
// email or, failing that, the stored user.
func (s *Service) isOwnEmail(ctx context.Context, q repository.Queries, ident auth.Identity, email string) (bool, error) {
	if ident.Email != "" {
		return ident.Email == email, nil
	}
	u, err := q.GetUser(ctx, ident.UserID)
	if err != nil {
		return false, err
	}
	return u != nil && auth.NormalizeEmail(u.Email) == email, nil
}
