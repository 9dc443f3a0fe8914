package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"
	"shortwave/pkg/logger"
)

// Resolver turns a short id into its destination and counts the click.
type Resolver struct {
	repo   repository.LinkRepository
	clicks *ClickRecorder
	logger *slog.Logger
	now    func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverClock replaces time.Now for click bucketing.
func WithResolverClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// NewResolver creates a resolver.
func NewResolver(repo repository.LinkRepository, clicks *ClickRecorder, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:   repo,
		clicks: clicks,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the long URL behind shortID after recording one click.
//
// A missing link is domain.ErrNotFound and nothing is written. A click that
// cannot be stored because of a store failure is logged and counted, and the
// destination is still returned.
func (r *Resolver) Resolve(ctx context.Context, shortID string) (string, error) {
	link, err := r.repo.GetByShortID(ctx, shortID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.RecordRedirect("not_found")
			return "", err
		}
		metrics.RecordRedirect("error")
		return "", fmt.Errorf("failed to look up %s: %w", shortID, err)
	}

	if _, err := r.clicks.RecordClick(ctx, link, r.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted between lookup and click.
			metrics.RecordRedirect("not_found")
			return "", err
		}

		logger.FromContext(r.logger, ctx).Error("Failed to record click",
			"short_id", shortID,
			"link_id", link.ID,
			"error", err,
		)
	}

	metrics.RecordRedirect("found")
	return link.LongURL, nil
}
