package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shortwave/internal/auth"
	"shortwave/internal/domain"
	"shortwave/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==================== MOCKS ====================

// MockLinkService is a mock implementation of LinkService
type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) CreateLink(ctx context.Context, ownerID, longURL, alias string) (*domain.Link, error) {
	args := m.Called(ctx, ownerID, longURL, alias)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkService) ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

func (m *MockLinkService) GetLink(ctx context.Context, ownerID, linkID string) (*domain.Link, error) {
	args := m.Called(ctx, ownerID, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkService) DeleteLink(ctx context.Context, ownerID, linkID string) error {
	args := m.Called(ctx, ownerID, linkID)
	return args.Error(0)
}

// MockResolver is a mock implementation of Resolver
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, shortID string) (string, error) {
	args := m.Called(ctx, shortID)
	return args.String(0), args.Error(1)
}

// MockHealthChecker is a mock implementation of HealthChecker
type MockHealthChecker struct {
	mock.Mock
}

func (m *MockHealthChecker) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ==================== HELPER FUNCTIONS ====================

const testSecret = "handler-test-secret"

type testServer struct {
	router   http.Handler
	links    *MockLinkService
	resolver *MockResolver
	health   *MockHealthChecker
}

func setupTestServer(t *testing.T, limiter RateLimiter) *testServer {
	t.Helper()

	log := logger.Discard()
	links := new(MockLinkService)
	resolver := new(MockResolver)
	health := new(MockHealthChecker)

	handler := NewHandler(links, resolver, health, log, "https://sho.rt")
	router := NewRouter(handler, RouterConfig{
		Logger:         log,
		Auth:           auth.NewVerifier(testSecret, "", log).Middleware,
		RateLimiter:    limiter,
		EnableMetrics:  true,
		RequestTimeout: 5 * time.Second,
	})

	return &testServer{router: router, links: links, resolver: resolver, health: health}
}

func (s *testServer) do(t *testing.T, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if owner != "" {
		token, err := auth.Issue(testSecret, "", owner, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func sampleLink() *domain.Link {
	link := domain.NewLink("5f0c7d1e-3b6a-4c55-9d8e-2a1b3c4d5e6f", "ab12cd3", "https://example.com/page", "owner-a",
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	link.RecordClick(time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC))
	return link
}

// ==================== CREATE LINK TESTS ====================

func TestCreateLink_Success(t *testing.T) {
	srv := setupTestServer(t, nil)
	link := domain.NewLink("id-1", "ab12cd3", "https://example.com/page", "owner-a", time.Now())

	srv.links.On("CreateLink", mock.Anything, "owner-a", "https://example.com/page", "").Return(link, nil)

	w := srv.do(t, http.MethodPost, "/links", "owner-a", `{"url": "https://example.com/page"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "id-1", data["id"])
	assert.Equal(t, "ab12cd3", data["short_id"])
	assert.Equal(t, "https://sho.rt/ab12cd3", data["short_url"])
	assert.Equal(t, "https://example.com/page", data["long_url"])
	assert.Equal(t, float64(0), data["clicks"])
	assert.Equal(t, []interface{}{}, data["click_history"])
	srv.links.AssertExpectations(t)
}

func TestCreateLink_WithAlias(t *testing.T) {
	srv := setupTestServer(t, nil)
	link := domain.NewLink("id-1", "promo", "https://example.com", "owner-a", time.Now())

	srv.links.On("CreateLink", mock.Anything, "owner-a", "https://example.com", "promo").Return(link, nil)

	w := srv.do(t, http.MethodPost, "/links", "owner-a", `{"url": "https://example.com", "alias": "promo"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "promo", decode(t, w)["data"].(map[string]interface{})["short_id"])
}

func TestCreateLink_RequiresAuth(t *testing.T) {
	srv := setupTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/links", "", `{"url": "https://example.com"}`)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	srv.links.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateLink_InvalidJSON(t *testing.T) {
	srv := setupTestServer(t, nil)

	w := srv.do(t, http.MethodPost, "/links", "owner-a", `{invalid json}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_body", decode(t, w)["code"])
}

func TestCreateLink_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"invalid url", fmt.Errorf("%w: scheme", domain.ErrInvalidURL), http.StatusBadRequest, "invalid_url"},
		{"invalid alias", fmt.Errorf("%w: too short", domain.ErrInvalidAlias), http.StatusBadRequest, "invalid_alias"},
		{"alias taken", fmt.Errorf("%w: promo", domain.ErrAliasTaken), http.StatusConflict, "alias_taken"},
		{"exhausted", fmt.Errorf("%w after 5 attempts", domain.ErrGenerationExhausted), http.StatusServiceUnavailable, "generation_exhausted"},
		{"store down", errors.New("dial tcp: connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestServer(t, nil)
			srv.links.On("CreateLink", mock.Anything, "owner-a", "https://example.com", "promo").Return(nil, tt.err)

			w := srv.do(t, http.MethodPost, "/links", "owner-a", `{"url": "https://example.com", "alias": "promo"}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.wantCode, body["code"])
			assert.NotContains(t, body["error"], "connection refused", "internal causes must not leak")
		})
	}
}

func TestCreateLink_ExhaustedSetsRetryAfter(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.links.On("CreateLink", mock.Anything, "owner-a", "https://example.com", "").Return(nil, domain.ErrGenerationExhausted)

	w := srv.do(t, http.MethodPost, "/links", "owner-a", `{"url": "https://example.com"}`)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

// ==================== LIST / GET / DELETE TESTS ====================

func TestListMine(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.links.On("ListLinks", mock.Anything, "owner-a", 10, 20).Return([]*domain.Link{sampleLink()}, nil)

	w := srv.do(t, http.MethodGet, "/links/mine?limit=10&offset=20", "owner-a", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(10), data["limit"])
	assert.Equal(t, float64(20), data["offset"])

	links := data["links"].([]interface{})
	require.Len(t, links, 1)
	first := links[0].(map[string]interface{})
	assert.Equal(t, "ab12cd3", first["short_id"])
	assert.Equal(t, float64(1), first["clicks"])
	assert.Equal(t, []interface{}{
		map[string]interface{}{"date": "2025-03-10", "count": float64(1)},
	}, first["click_history"])
}

func TestListMine_DefaultsAndEmpty(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.links.On("ListLinks", mock.Anything, "owner-b", 0, 0).Return([]*domain.Link{}, nil)

	w := srv.do(t, http.MethodGet, "/links/mine", "owner-b", "")

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{}, data["links"])
	assert.Equal(t, float64(50), data["limit"])
}

func TestListMine_BadPagination(t *testing.T) {
	srv := setupTestServer(t, nil)

	for _, path := range []string{"/links/mine?limit=ten", "/links/mine?offset=-1"} {
		w := srv.do(t, http.MethodGet, path, "owner-a", "")
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	srv.links.AssertNotCalled(t, "ListLinks", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetLink(t *testing.T) {
	srv := setupTestServer(t, nil)
	link := sampleLink()
	srv.links.On("GetLink", mock.Anything, "owner-a", link.ID).Return(link, nil)
	srv.links.On("GetLink", mock.Anything, "owner-b", link.ID).Return(nil, domain.ErrForbidden)
	srv.links.On("GetLink", mock.Anything, "owner-a", "missing").Return(nil, domain.ErrNotFound)

	w := srv.do(t, http.MethodGet, "/links/"+link.ID, "owner-a", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, link.ID, decode(t, w)["data"].(map[string]interface{})["id"])

	w = srv.do(t, http.MethodGet, "/links/"+link.ID, "owner-b", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = srv.do(t, http.MethodGet, "/links/missing", "owner-a", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteLink(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"owner", nil, http.StatusNoContent},
		{"not owner", domain.ErrForbidden, http.StatusForbidden},
		{"missing", domain.ErrNotFound, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestServer(t, nil)
			srv.links.On("DeleteLink", mock.Anything, "owner-a", "id-1").Return(tt.err)

			w := srv.do(t, http.MethodDelete, "/links/id-1", "owner-a", "")

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Empty(t, w.Body.String())
			}
			srv.links.AssertExpectations(t)
		})
	}
}

// ==================== REDIRECT TESTS ====================

func TestRedirect_Success(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.resolver.On("Resolve", mock.Anything, "ab12cd3").Return("https://example.com/page", nil).Once()

	w := srv.do(t, http.MethodGet, "/ab12cd3", "", "")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/page", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Cache-Control"), "no-store")
	srv.resolver.AssertExpectations(t)
}

func TestRedirect_NotFound(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.resolver.On("Resolve", mock.Anything, "doesnotexist").Return("", domain.ErrNotFound)

	w := srv.do(t, http.MethodGet, "/doesnotexist", "", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "not_found", body["code"])
	assert.Contains(t, body["error"], "not found")
}

func TestRedirect_StoreFailure(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.resolver.On("Resolve", mock.Anything, "ab12cd3").Return("", errors.New("i/o timeout"))

	w := srv.do(t, http.MethodGet, "/ab12cd3", "", "")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decode(t, w)["error"])
}

// ==================== HEALTH / METRICS TESTS ====================

func TestHealth(t *testing.T) {
	srv := setupTestServer(t, nil)

	w := srv.do(t, http.MethodGet, "/health/live", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	srv.health.On("Ping", mock.Anything).Return(nil).Once()
	w = srv.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	srv.health.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	w = srv.do(t, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	srv.resolver.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := setupTestServer(t, nil)
	srv.resolver.On("Resolve", mock.Anything, "ab12cd3").Return("https://example.com", nil)
	srv.do(t, http.MethodGet, "/ab12cd3", "", "")

	w := srv.do(t, http.MethodGet, "/metrics", "", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",route="/{shortId}",status="302"}`)
}
