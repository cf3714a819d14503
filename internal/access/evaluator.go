// Package access decides what a caller may do with a refrigerator.
//
// Every protected operation runs Evaluate on each request. Nothing is cached
// between requests, so a role change or member removal takes effect on the
// very next call.
package access

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// Grant is the access level a caller holds on one refrigerator.
type Grant int

const (
	GrantNone Grant = iota
	GrantViewer
	GrantAdmin
	GrantOwner
	// GrantService is a trusted backend acting for a user. It is only
	// handed out for ingredient creation.
	GrantService
)

func (g Grant) String() string {
	switch g {
	case GrantViewer:
		return "viewer"
	case GrantAdmin:
		return "admin"
	case GrantOwner:
		return "owner"
	case GrantService:
		return "service"
	default:
		return "none"
	}
}

// Role is the member role reported to clients.
func (g Grant) Role() models.Role {
	switch g {
	case GrantOwner:
		return models.RoleOwner
	case GrantAdmin:
		return models.RoleAdmin
	case GrantViewer:
		return models.RoleViewer
	default:
		return ""
	}
}

// Op is the class of operation being requested.
type Op int

const (
	// OpRead covers every GET on the refrigerator and its children.
	OpRead Op = iota
	// OpWrite covers category and ingredient mutations.
	OpWrite
	// OpManage covers refrigerator metadata and membership.
	OpManage
	OpCreateIngredient
)

func (o Op) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpManage:
		return "manage"
	case OpCreateIngredient:
		return "create_ingredient"
	default:
		return "unknown"
	}
}

// EmailResolver yields the caller's verified email address. Stored user
// rows are read through users so a lookup joins the caller's transaction.
type EmailResolver interface {
	ResolveEmail(ctx context.Context, users repository.UserRepository, ident auth.Identity) (string, error)
}

// Decision is a granted evaluation.
type Decision struct {
	Grant        Grant
	Refrigerator *models.Refrigerator
}

type Evaluator struct {
	emails  EmailResolver
	metrics *metrics.Metrics
	logger  *logrus.Logger
}

func NewEvaluator(emails EmailResolver, m *metrics.Metrics, logger *logrus.Logger) *Evaluator {
	return &Evaluator{emails: emails, metrics: m, logger: logger}
}

// Evaluate returns the caller's grant on the refrigerator if it covers op.
//
// A missing refrigerator is NotFound. The owner always wins, before any
// membership lookup. Other callers need a verified email with an accepted
// membership; viewers may only read and admins may not manage.
func (e *Evaluator) Evaluate(ctx context.Context, q repository.Queries, ident auth.Identity, refrigeratorID int, op Op) (Decision, error) {
	d, err := e.evaluate(ctx, q, ident, refrigeratorID, op)
	e.record(ident, refrigeratorID, op, d, err)
	return d, err
}

func (e *Evaluator) evaluate(ctx context.Context, q repository.Queries, ident auth.Identity, refrigeratorID int, op Op) (Decision, error) {
	r, err := q.GetRefrigerator(ctx, refrigeratorID)
	if err != nil {
		return Decision{}, apperr.Internal("load refrigerator", err)
	}
	if r == nil {
		return Decision{}, apperr.ErrRefrigeratorNotFound
	}

	if r.OwnerID == ident.UserID {
		return Decision{Grant: GrantOwner, Refrigerator: r}, nil
	}
	if ident.Internal && op == OpCreateIngredient {
		return Decision{Grant: GrantService, Refrigerator: r}, nil
	}
	if op == OpManage {
		return Decision{}, apperr.ErrOwnerOnly
	}

	email, err := e.emails.ResolveEmail(ctx, q, ident)
	if err != nil {
		return Decision{}, err
	}

	membership, err := q.FindAcceptedMembership(ctx, refrigeratorID, email)
	if err != nil {
		return Decision{}, apperr.Internal("load membership", err)
	}
	if membership == nil {
		return Decision{}, apperr.ErrDenied
	}

	switch membership.Role {
	case models.RoleAdmin:
		return Decision{Grant: GrantAdmin, Refrigerator: r}, nil
	case models.RoleViewer:
		if op != OpRead {
			return Decision{}, apperr.ErrDenied
		}
		return Decision{Grant: GrantViewer, Refrigerator: r}, nil
	default:
		return Decision{}, apperr.ErrDenied
	}
}

func (e *Evaluator) record(ident auth.Identity, refrigeratorID int, op Op, d Decision, err error) {
	outcome := d.Grant.String()
	if err != nil {
		outcome = apperr.KindOf(err).String()
	}
	if e.metrics != nil {
		e.metrics.AccessDecisionsTotal.WithLabelValues(op.String(), outcome).Inc()
	}
	if err != nil && apperr.KindOf(err) != apperr.KindInternal {
		e.logger.WithFields(logrus.Fields{
			"user_id":         ident.UserID,
			"refrigerator_id": refrigeratorID,
			"operation":       op.String(),
			"outcome":         outcome,
		}).Debug("Access refused")
	}
}
