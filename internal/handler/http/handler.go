package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"shortwave/internal/auth"
	"shortwave/internal/domain"
	"shortwave/internal/service"
	"shortwave/pkg/logger"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// LinkService is the owner-facing link API.
type LinkService interface {
	CreateLink(ctx context.Context, ownerID, longURL, alias string) (*domain.Link, error)
	ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error)
	GetLink(ctx context.Context, ownerID, linkID string) (*domain.Link, error)
	DeleteLink(ctx context.Context, ownerID, linkID string) error
}

// Resolver maps a short id to its destination, counting the click.
type Resolver interface {
	Resolve(ctx context.Context, shortID string) (string, error)
}

// HealthChecker reports whether the link store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	links    LinkService
	resolver Resolver
	health   HealthChecker
	logger   *slog.Logger
	baseURL  string // Prefix for short_url, e.g. "https://sho.rt"
}

// NewHandler creates a new HTTP handler
func NewHandler(links LinkService, resolver Resolver, health HealthChecker, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		links:    links,
		resolver: resolver,
		health:   health,
		logger:   logger,
		baseURL:  baseURL,
	}
}

type CreateLinkRequest struct {
	URL   string `json:"url"`
	Alias string `json:"alias,omitempty"`
}

type LinkResponse struct {
	ID           string               `json:"id"`
	ShortID      string               `json:"short_id"`
	ShortURL     string               `json:"short_url"`
	LongURL      string               `json:"long_url"`
	Clicks       int64                `json:"clicks"`
	ClickHistory []domain.ClickBucket `json:"click_history"`
	CreatedAt    time.Time            `json:"created_at"`
}

type LinkListResponse struct {
	Links  []LinkResponse `json:"links"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

func (h *Handler) toResponse(link *domain.Link) LinkResponse {
	history := link.ClickHistory
	if history == nil {
		history = []domain.ClickBucket{}
	}
	return LinkResponse{
		ID:           link.ID,
		ShortID:      link.ShortID,
		ShortURL:     h.baseURL + "/" + link.ShortID,
		LongURL:      link.LongURL,
		Clicks:       link.Clicks,
		ClickHistory: history,
		CreatedAt:    link.CreatedAt,
	}
}

// CreateLink handles POST /links
func (h *Handler) CreateLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	var req CreateLinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body")
		return
	}

	link, err := h.links.CreateLink(r.Context(), ownerID, req.URL, req.Alias)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusCreated, h.toResponse(link), "link created")
}

// ListMine handles GET /links/mine
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "limit must be an integer")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, "invalid_pagination", "offset must be a non-negative integer")
		return
	}

	links, err := h.links.ListLinks(r.Context(), ownerID, limit, offset)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	resp := LinkListResponse{
		Links:  make([]LinkResponse, 0, len(links)),
		Limit:  service.ClampLimit(limit),
		Offset: offset,
	}
	for _, link := range links {
		resp.Links = append(resp.Links, h.toResponse(link))
	}

	respondSuccess(w, http.StatusOK, resp, "")
}

// GetLink handles GET /links/{id}
func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	link, err := h.links.GetLink(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, http.StatusOK, h.toResponse(link), "")
}

// DeleteLink handles DELETE /links/{id}
func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.OwnerID(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}

	if err := h.links.DeleteLink(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Redirect handles GET /{shortId}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")

	dest, err := h.resolver.Resolve(r.Context(), shortID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	// Every hit must reach us to be counted.
	w.Header().Set("Cache-Control", "private, no-store")
	http.Redirect(w, r, dest, http.StatusFound)
}

// Live handles GET /health/live
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /health/ready
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.health.Ping(ctx); err != nil {
		logger.FromContext(h.logger, r.Context()).Warn("Readiness check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  "link store unreachable",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// respondServiceError maps domain errors to HTTP responses. Anything
// unrecognised is logged and hidden behind a generic 500.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(h.logger, r.Context())

	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "link not found")
	case errors.Is(err, domain.ErrAliasTaken):
		respondError(w, http.StatusConflict, "alias_taken", "alias already taken")
	case errors.Is(err, domain.ErrInvalidURL):
		respondError(w, http.StatusBadRequest, "invalid_url", err.Error())
	case errors.Is(err, domain.ErrInvalidAlias):
		respondError(w, http.StatusBadRequest, "invalid_alias", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, "forbidden", "link belongs to another owner")
	case errors.Is(err, domain.ErrGenerationExhausted):
		log.Error("Short id space exhausted", "error", err, "path", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		respondError(w, http.StatusServiceUnavailable, "generation_exhausted", "could not allocate a short id, retry shortly")
	default:
		log.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
