package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the optional pieces of the router.
type RouterConfig struct {
	Logger         *slog.Logger
	Auth           func(http.Handler) http.Handler // Required for /links
	RateLimiter    RateLimiter                     // nil disables rate limiting
	EnableMetrics  bool
	RequestTimeout time.Duration
}

// NewRouter wires every route. Static paths win over GET /{shortId} in chi,
// which is why aliases may not use the reserved route words.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(
		RequestIDMiddleware,
		LoggingMiddleware(cfg.Logger),
		MetricsMiddleware,
		RecoveryMiddleware(cfg.Logger),
		CORSMiddleware,
	)
	if cfg.RequestTimeout > 0 {
		r.Use(TimeoutMiddleware(cfg.RequestTimeout))
	}

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	if cfg.EnableMetrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/links", func(r chi.Router) {
		r.Use(cfg.Auth)

		create := http.Handler(http.HandlerFunc(h.CreateLink))
		if cfg.RateLimiter != nil {
			create = RateLimitMiddleware(cfg.RateLimiter, cfg.Logger)(create)
		}
		r.Method(http.MethodPost, "/", create)

		r.Get("/mine", h.ListMine)
		r.Get("/{id}", h.GetLink)
		r.Delete("/{id}", h.DeleteLink)
	})

	r.Get("/{shortId}", h.Redirect)

	return r
}
