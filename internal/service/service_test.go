package service

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/config"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/models"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository/memory"
)

const vegetablesCategoryID = 1

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (p *recordingPublisher) Publish(event models.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) last() models.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type testEnv struct {
	svc     *Service
	store   *memory.Store
	events  *recordingPublisher
	metrics *metrics.Metrics
	ctx     context.Context
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := memory.New()
	m := metrics.New()
	resolver := auth.NewResolver(
		auth.NewTokenVerifier(config.AuthConfig{JWTSecret: "secret"}),
		auth.NewInternalKey(""),
		logger,
	)
	events := &recordingPublisher{}
	svc := New(store, access.NewEvaluator(resolver, m, logger), resolver, events, m, logger, opts)

	return &testEnv{svc: svc, store: store, events: events, metrics: m, ctx: context.Background()}
}

func user(id string) auth.Identity {
	return auth.Identity{UserID: id, Email: id + "@x.com"}
}

func (e *testEnv) fridge(t *testing.T, owner auth.Identity, name string) *models.Refrigerator {
	t.Helper()
	r, err := e.svc.CreateRefrigerator(e.ctx, owner, models.CreateRefrigeratorRequest{Name: name})
	require.NoError(t, err)
	return r
}

// member invites ident into the refrigerator with role and accepts.
func (e *testEnv) member(t *testing.T, owner auth.Identity, refrigeratorID int, ident auth.Identity, role models.Role) *models.Invitation {
	t.Helper()
	inv, err := e.svc.Invite(e.ctx, owner, refrigeratorID, models.ShareRefrigeratorRequest{Email: ident.Email, Role: string(role)})
	require.NoError(t, err)
	inv, err = e.svc.RespondToInvitation(e.ctx, ident, inv.ID, models.ActionAccept)
	require.NoError(t, err)
	return inv
}

func (e *testEnv) customCategory(t *testing.T, ident auth.Identity, refrigeratorID int, name string) *models.RefrigeratorCategory {
	t.Helper()
	link, err := e.svc.AttachCategory(e.ctx, ident, refrigeratorID, models.AttachCategoryRequest{
		Translations: []models.TranslationInput{{Language: "en", Name: name}},
	})
	require.NoError(t, err)
	return link
}

func (e *testEnv) linkCategory(t *testing.T, ident auth.Identity, refrigeratorID, categoryID int) *models.RefrigeratorCategory {
	t.Helper()
	id := categoryID
	link, err := e.svc.AttachCategory(e.ctx, ident, refrigeratorID, models.AttachCategoryRequest{CategoryID: &id})
	require.NoError(t, err)
	return link
}

func strPtr(s string) *string { return &s }
