package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"
	"shortwave/pkg/logger"
)

// ClickRecorder counts resolutions. The read-modify-write on a link's
// counters happens inside the store as one atomic operation.
type ClickRecorder struct {
	repo   repository.LinkRepository
	logger *slog.Logger
}

// NewClickRecorder creates a click recorder.
func NewClickRecorder(repo repository.LinkRepository, logger *slog.Logger) *ClickRecorder {
	return &ClickRecorder{
		repo:   repo,
		logger: logger,
	}
}

// RecordClick counts one click on link at now, bucketed by UTC day, and
// returns the link as stored afterwards.
func (c *ClickRecorder) RecordClick(ctx context.Context, link *domain.Link, now time.Time) (*domain.Link, error) {
	today := domain.DayOf(now)

	updated, err := c.repo.RecordClick(ctx, link.ID, today)
	if err != nil {
		if repository.Unexpected(err) {
			metrics.RecordClickFailure()
		}
		return nil, fmt.Errorf("failed to record click for %s: %w", link.ShortID, err)
	}

	metrics.RecordClickRecorded()
	logger.FromContext(c.logger, ctx).Debug("Click recorded",
		"short_id", link.ShortID,
		"clicks", updated.Clicks,
		"day", domain.FormatDay(today),
	)

	return updated, nil
}
