// Package service holds the refrigerator sharing rules: refrigerators,
// invitations and members, categories and ingredients, plus recipes and
// their favorites. Every refrigerator operation authorizes the caller
// through the access evaluator on each call, and every mutation that touches
// more than one row runs in a single store transaction.
package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/apperr"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository"
)

// Publisher receives change events after the change has committed.
type Publisher interface {
	Publish(event models.Event)
}

type discardPublisher struct{}

func (discardPublisher) Publish(models.Event) {}

type Options struct {
	// AllowSystemDetach lets a refrigerator drop its link to a system
	// category. System category rows are never deleted either way.
	AllowSystemDetach bool
}

// Service is the business logic layer shared by all HTTP handlers.
type Service struct {
	store   repository.Store
	access  *access.Evaluator
	emails  access.EmailResolver
	events  Publisher
	metrics *metrics.Metrics
	logger  *logrus.Logger
	opts    Options
}

// New creates a Service. A nil publisher drops events.
func New(
	store repository.Store,
	evaluator *access.Evaluator,
	emails access.EmailResolver,
	events Publisher,
	m *metrics.Metrics,
	logger *logrus.Logger,
	opts Options,
) *Service {
	if events == nil {
		events = discardPublisher{}
	}
	return &Service{
		store:   store,
		access:  evaluator,
		emails:  emails,
		events:  events,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

// Authorize runs the access evaluation outside of any transaction.
func (s *Service) Authorize(ctx context.Context, ident auth.Identity, refrigeratorID int, op access.Op) (access.Decision, error) {
	return s.access.Evaluate(ctx, s.store, ident, refrigeratorID, op)
}

// withTx runs fn in a transaction and turns foreign failures into Internal
// errors tagged with op.
func (s *Service) withTx(ctx context.Context, op string, fn func(q repository.Queries) error) error {
	if err := s.store.WithTx(ctx, fn); err != nil {
		return internal(op, err)
	}
	return nil
}

func (s *Service) publish(eventType, action string, refrigeratorID int, ident auth.Identity, data interface{}) {
	s.events.Publish(models.Event{
		Type:           eventType,
		Action:         action,
		RefrigeratorID: refrigeratorID,
		ActorID:        ident.UserID,
		Data:           data,
	})
}

// internal passes application errors through and wraps everything else.
func internal(op string, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperr.Internal(op, err)
}

// linkFor returns the link of categoryID inside refrigeratorID or
// CategoryNotFound.
func linkFor(ctx context.Context, q repository.Queries, refrigeratorID, categoryID int) (*models.RefrigeratorCategory, error) {
	link, err := q.GetRefrigeratorCategory(ctx, refrigeratorID, categoryID)
	if err != nil {
		return nil, apperr.Internal("failed to load category link", err)
	}
	if link == nil {
		return nil, apperr.ErrCategoryNotFound
	}
	return link, nil
}
