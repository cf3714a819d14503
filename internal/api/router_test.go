package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitCarrot/OrchAI-sub000/internal/access"
	"github.com/gitCarrot/OrchAI-sub000/internal/auth"
	"github.com/gitCarrot/OrchAI-sub000/internal/config"
	"github.com/gitCarrot/OrchAI-sub000/internal/metrics"
	"github.com/gitCarrot/OrchAI-sub000/internal/repository/memory"
	"github.com/gitCarrot/OrchAI-sub000/internal/service"
	"github.com/gitCarrot/OrchAI-sub000/internal/websocket"
)

const (
	vegetablesCategoryID = 1
	internalKey          = "internal-secret"
)

type apiEnv struct {
	router   *gin.Engine
	verifier *auth.TokenVerifier
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		Auth:       config.AuthConfig{JWTSecret: "secret", InternalAPIKey: internalKey},
		CORS:       config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		Categories: config.CategoryConfig{AllowSystemDetach: true},
	}

	store := memory.New()
	m := metrics.New()
	verifier := auth.NewTokenVerifier(cfg.Auth)
	resolver := auth.NewResolver(verifier, auth.NewInternalKey(cfg.Auth.InternalAPIKey), logger)

	var svc *service.Service
	hub := websocket.NewHub(func(ctx context.Context, ident auth.Identity, refrigeratorID int) error {
		_, err := svc.Authorize(ctx, ident, refrigeratorID, access.OpRead)
		return err
	}, m, logger)
	svc = service.New(store, access.NewEvaluator(resolver, m, logger), resolver, hub, m, logger,
		service.Options{AllowSystemDetach: cfg.Categories.AllowSystemDetach})

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	router := SetupRouter(Dependencies{
		Config:   cfg,
		Store:    store,
		Service:  svc,
		Resolver: resolver,
		Hub:      hub,
		Metrics:  m,
		Logger:   logger,
	})
	return &apiEnv{router: router, verifier: verifier}
}

func (e *apiEnv) token(t *testing.T, userID, email string) string {
	t.Helper()
	token, err := e.verifier.Issue(userID, email, true, time.Hour)
	require.NoError(t, err)
	return token
}

// do sends body as JSON with the caller's bearer token and decodes the reply.
func (e *apiEnv) do(t *testing.T, token, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var out map[string]interface{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func idOf(t *testing.T, obj map[string]interface{}) int {
	t.Helper()
	id, ok := obj["id"].(float64)
	require.True(t, ok, "missing id in %v", obj)
	return int(id)
}

func path(format string, args ...interface{}) string {
	return "/api" + fmt.Sprintf(format, args...)
}

func TestInvitationScenario(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")
	invitee := env.token(t, "alice", "a@x.com")

	code, fridge := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "R"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "normal", fridge["type"])
	rid := idOf(t, fridge)

	code, invitation := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/share", rid), gin.H{"email": "a@x.com", "role": "viewer"})
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "pending", invitation["status"])
	invitationID := idOf(t, invitation)

	code, received := env.do(t, invitee, http.MethodGet, "/api/refrigerators/invitations", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, received["invitations"], 1)

	// Pending invitees have no access yet.
	code, _ = env.do(t, invitee, http.MethodGet, path("/refrigerators/%d", rid), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/share", rid), gin.H{"email": "A@x.com", "role": "viewer"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This user has already been invited.", body["error"])

	code, accepted := env.do(t, invitee, http.MethodPatch, path("/refrigerators/invitations/%d", invitationID), gin.H{"action": "accept"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "accepted", accepted["status"])

	code, body = env.do(t, invitee, http.MethodPatch, path("/refrigerators/invitations/%d", invitationID), gin.H{"action": "reject"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This invitation has already been processed.", body["error"])

	code, got := env.do(t, invitee, http.MethodGet, path("/refrigerators/%d", rid), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "viewer", got["role"])
	assert.Equal(t, true, got["is_shared"])

	code, body = env.do(t, invitee, http.MethodPatch, path("/refrigerators/%d", rid), gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Only the refrigerator owner can do this.", body["error"])

	code, shared := env.do(t, invitee, http.MethodGet, "/api/refrigerators/shared", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, shared["refrigerators"], 1)

	code, members := env.do(t, invitee, http.MethodGet, path("/refrigerators/%d/members", rid), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, members["members"], 2)
}

func TestCategorySharingScenario(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")

	_, r1 := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "R1"})
	_, r2 := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "R2"})
	r1ID, r2ID := idOf(t, r1), idOf(t, r2)

	for _, rid := range []int{r1ID, r2ID} {
		code, _ := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/categories", rid), gin.H{"category_id": vegetablesCategoryID})
		require.Equal(t, http.StatusCreated, code)
	}

	code, _ := env.do(t, owner, http.MethodDelete, path("/refrigerators/%d/categories/%d", r1ID, vegetablesCategoryID), nil)
	require.Equal(t, http.StatusOK, code)

	code, listed := env.do(t, owner, http.MethodGet, path("/refrigerators/%d/categories", r2ID), nil)
	require.Equal(t, http.StatusOK, code)
	links := listed["categories"].([]interface{})
	require.Len(t, links, 1)
	assert.Equal(t, float64(vegetablesCategoryID), links[0].(map[string]interface{})["category_id"])

	code, link := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/categories", r1ID), gin.H{
		"type":         "custom",
		"icon":         "🥫",
		"translations": []gin.H{{"language": "en", "name": "Sauces"}},
	})
	require.Equal(t, http.StatusCreated, code)
	customID := int(link["category_id"].(float64))

	code, _ = env.do(t, owner, http.MethodDelete, path("/refrigerators/%d/categories/%d", r1ID, customID), nil)
	require.Equal(t, http.StatusOK, code)

	code, body := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/categories", r2ID), gin.H{"category_id": customID})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Category not found.", body["error"])

	code, _ = env.do(t, owner, http.MethodGet, path("/refrigerators/%d/categories/%d/ingredients", r1ID, customID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestIngredientRoutes(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")

	_, fridge := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "R"})
	rid := idOf(t, fridge)
	code, _ := env.do(t, owner, http.MethodPost, path("/refrigerators/%d/categories/batch", rid), gin.H{
		"categories": []gin.H{{"category_id": vegetablesCategoryID}},
	})
	require.Equal(t, http.StatusCreated, code)

	base := path("/refrigerators/%d/categories/%d/ingredients", rid, vegetablesCategoryID)
	code, body := env.do(t, owner, http.MethodPost, base, gin.H{"name": "Carrot", "quantity": "2", "unit": "cup"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body["error"], "Unit")

	code, ing := env.do(t, owner, http.MethodPost, base, gin.H{"name": "Carrot", "quantity": "2", "unit": "kg", "expiry_date": "2026-11-01"})
	require.Equal(t, http.StatusCreated, code)
	ingredientID := idOf(t, ing)

	code, updated := env.do(t, owner, http.MethodPatch, fmt.Sprintf("%s/%d", base, ingredientID), gin.H{"quantity": "1.5"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.5", updated["quantity"])

	code, listed := env.do(t, owner, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, listed["ingredients"], 1)

	code, _ = env.do(t, owner, http.MethodDelete, fmt.Sprintf("%s/%d", base, ingredientID), nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, owner, http.MethodDelete, fmt.Sprintf("%s/%d", base, ingredientID), nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInternalCallerCreatesIngredient(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")

	_, fridge := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "R"})
	rid := idOf(t, fridge)
	env.do(t, owner, http.MethodPost, path("/refrigerators/%d/categories", rid), gin.H{"category_id": vegetablesCategoryID})

	raw, err := json.Marshal(gin.H{"name": "Onion", "quantity": "3", "unit": "piece"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path("/refrigerators/%d/categories/%d/ingredients", rid, vegetablesCategoryID), bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(auth.HeaderAPIKey, internalKey)
	req.Header.Set(auth.HeaderUserID, "batch-job")

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestErrorResponses(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")

	tests := []struct {
		name    string
		token   string
		method  string
		path    string
		body    interface{}
		status  int
		message string
	}{
		{"missing token", "", http.MethodGet, "/api/refrigerators", nil, http.StatusUnauthorized, "Unauthorized"},
		{"bad token", "garbage", http.MethodGet, "/api/refrigerators", nil, http.StatusUnauthorized, "Unauthorized"},
		{"bad id", owner, http.MethodGet, "/api/refrigerators/abc", nil, http.StatusBadRequest, "Invalid ID."},
		{"unknown refrigerator", owner, http.MethodGet, "/api/refrigerators/999", nil, http.StatusNotFound, "Refrigerator not found."},
		{"malformed body", owner, http.MethodPost, "/api/refrigerators", "not an object", http.StatusBadRequest, "Invalid request body"},
		{"unknown invitation", owner, http.MethodDelete, "/api/refrigerators/invitations/42", nil, http.StatusNotFound, "Invitation not found."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := env.do(t, tt.token, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.message, body["error"])
		})
	}
}

func TestLocalizedErrors(t *testing.T) {
	env := newAPIEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/refrigerators", nil)
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en;q=0.5")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"인증이 필요합니다."}`, w.Body.String())
}

func TestVirtualRefrigeratorRules(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")

	code, virtual := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "V", "type": "virtual"})
	require.Equal(t, http.StatusCreated, code)

	code, body := env.do(t, owner, http.MethodPost, "/api/refrigerators", gin.H{"name": "V2", "type": "virtual"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Only one virtual refrigerator can be created.", body["error"])

	code, body = env.do(t, owner, http.MethodDelete, path("/refrigerators/%d", idOf(t, virtual)), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Virtual refrigerators cannot be deleted.", body["error"])
}

func TestHealthAndCORS(t *testing.T) {
	env := newAPIEnv(t)

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodOptions, "/api/refrigerators", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotContains(t, w.Header().Get("Access-Control-Allow-Headers"), auth.HeaderAPIKey)

	req = httptest.NewRequest(http.MethodOptions, "/api/refrigerators", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecipeRoutes(t *testing.T) {
	env := newAPIEnv(t)
	owner := env.token(t, "owner", "o@x.com")
	fan := env.token(t, "fan", "f@x.com")

	code, created := env.do(t, owner, http.MethodPost, path("/recipes"), map[string]interface{}{
		"translations": []map[string]string{{"language": "en", "title": "Omelette", "content": "Beat eggs."}},
		"tags":         []string{"eggs"},
	})
	require.Equal(t, http.StatusCreated, code)
	id := idOf(t, created)
	assert.Equal(t, false, created["is_public"])

	code, body := env.do(t, fan, http.MethodGet, path("/recipes/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Recipe not found.", body["error"])

	code, _ = env.do(t, fan, http.MethodPut, path("/recipes/%d/share", id), map[string]bool{"is_public": true})
	assert.Equal(t, http.StatusNotFound, code)

	code, body = env.do(t, owner, http.MethodPut, path("/recipes/%d/share", id), map[string]bool{"is_public": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["is_public"])

	code, body = env.do(t, fan, http.MethodPatch, path("/recipes/%d", id), map[string]interface{}{"tags": []string{"mine"}})
	assert.Equal(t, http.StatusForbidden, code, body)

	code, body = env.do(t, fan, http.MethodPost, path("/recipes/%d/favorites", id), nil)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["is_favorited"])
	assert.Equal(t, float64(1), body["favorite_count"])

	code, body = env.do(t, fan, http.MethodPost, path("/recipes/%d/favorites", id), nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "This recipe is already in your favorites.", body["error"])

	code, body = env.do(t, fan, http.MethodGet, path("/recipes/shared?page=1"), nil)
	require.Equal(t, http.StatusOK, code)
	recipes := body["recipes"].([]interface{})
	require.Len(t, recipes, 1)
	assert.Equal(t, true, recipes[0].(map[string]interface{})["is_favorited"])
	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, float64(12), pagination["page_size"])
	assert.Equal(t, float64(1), pagination["total_pages"])

	code, _ = env.do(t, fan, http.MethodGet, path("/recipes/shared?page=zero"), nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = env.do(t, fan, http.MethodGet, path("/recipes/favorites"), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, body["recipes"], 1)

	code, body = env.do(t, fan, http.MethodPost, path("/recipes/favorites/batch"),
		map[string]interface{}{"recipe_ids": []int{id}, "action": "remove"})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, float64(1), body["removed_count"])

	code, body = env.do(t, fan, http.MethodDelete, path("/recipes/%d/favorites", id), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["favorite_count"])

	code, _ = env.do(t, fan, http.MethodDelete, path("/recipes/%d", id), nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = env.do(t, owner, http.MethodDelete, path("/recipes/%d", id), nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = env.do(t, owner, http.MethodGet, path("/recipes/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, code)
}
