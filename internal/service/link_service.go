package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"
	"shortwave/pkg/logger"
	"shortwave/pkg/validator"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// ShortIDGenerator produces candidate short ids and normalises aliases.
// *shortid.Generator implements it.
type ShortIDGenerator interface {
	Generate() (string, error)
	ValidateAlias(candidate string) (string, error)
	MaxAttempts() int
}

// LinkService is everything an authenticated owner can do with links.
type LinkService struct {
	repo      repository.LinkRepository
	generator ShortIDGenerator
	logger    *slog.Logger
	now       func() time.Time
}

// LinkServiceOption configures a LinkService.
type LinkServiceOption func(*LinkService)

// WithClock replaces time.Now for creation timestamps.
func WithClock(now func() time.Time) LinkServiceOption {
	return func(s *LinkService) {
		s.now = now
	}
}

// NewLinkService creates a link service.
func NewLinkService(repo repository.LinkRepository, generator ShortIDGenerator, logger *slog.Logger, opts ...LinkServiceOption) *LinkService {
	s := &LinkService{
		repo:      repo,
		generator: generator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink shortens longURL for ownerID. A non-empty alias is used as the
// short id verbatim (after trimming); otherwise one is generated.
//
// Uniqueness is decided by the store's insert, never by a prior lookup, so
// two concurrent requests for the same alias cannot both succeed.
func (s *LinkService) CreateLink(ctx context.Context, ownerID, longURL, alias string) (*domain.Link, error) {
	longURL = strings.TrimSpace(longURL)
	if err := validator.ValidateURL(longURL); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidURL, err)
	}

	log := logger.FromContext(s.logger, ctx)

	if alias != "" {
		shortID, err := s.generator.ValidateAlias(alias)
		if err != nil {
			return nil, err
		}

		link := s.newLink(shortID, longURL, ownerID)
		if err := s.repo.Create(ctx, link); err != nil {
			if errors.Is(err, domain.ErrDuplicateShortID) {
				return nil, fmt.Errorf("%w: %s", domain.ErrAliasTaken, shortID)
			}
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		metrics.RecordLinkCreated("alias")
		log.Info("Link created", "link_id", link.ID, "short_id", link.ShortID, "owner_id", ownerID, "alias", true)
		return link, nil
	}

	for attempt := 1; attempt <= s.generator.MaxAttempts(); attempt++ {
		shortID, err := s.generator.Generate()
		if err != nil {
			return nil, fmt.Errorf("failed to generate short id: %w", err)
		}

		link := s.newLink(shortID, longURL, ownerID)
		err = s.repo.Create(ctx, link)
		if err == nil {
			metrics.RecordLinkCreated("generated")
			log.Info("Link created", "link_id", link.ID, "short_id", link.ShortID, "owner_id", ownerID, "attempt", attempt)
			return link, nil
		}
		if !errors.Is(err, domain.ErrDuplicateShortID) {
			return nil, fmt.Errorf("failed to create link: %w", err)
		}

		metrics.RecordShortIDCollision()
		log.Warn("Short id collision", "short_id", shortID, "attempt", attempt)
	}

	metrics.RecordShortIDExhausted()
	return nil, fmt.Errorf("%w after %d attempts", domain.ErrGenerationExhausted, s.generator.MaxAttempts())
}

// ListLinks returns ownerID's links, newest first. A non-positive limit means
// DefaultListLimit; anything above MaxListLimit is capped.
func (s *LinkService) ListLinks(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error) {
	limit = ClampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	links, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// GetLink returns one of ownerID's links with its click history.
func (s *LinkService) GetLink(ctx context.Context, ownerID, linkID string) (*domain.Link, error) {
	link, err := s.repo.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}

	if !link.IsOwnedBy(ownerID) {
		return nil, fmt.Errorf("%w: link %s", domain.ErrForbidden, linkID)
	}
	return link, nil
}

// DeleteLink removes one of ownerID's links. The ownership check is done by
// the store in the same operation as the delete.
func (s *LinkService) DeleteLink(ctx context.Context, ownerID, linkID string) error {
	err := s.repo.Delete(ctx, linkID, ownerID)
	switch {
	case err == nil:
		metrics.RecordLinkDeleted()
		logger.FromContext(s.logger, ctx).Info("Link deleted", "link_id", linkID, "owner_id", ownerID)
		return nil
	case errors.Is(err, domain.ErrNotOwner):
		return fmt.Errorf("%w: link %s", domain.ErrForbidden, linkID)
	case errors.Is(err, domain.ErrNotFound):
		return err
	default:
		return fmt.Errorf("failed to delete link: %w", err)
	}
}

func (s *LinkService) newLink(shortID, longURL, ownerID string) *domain.Link {
	return domain.NewLink(uuid.NewString(), shortID, longURL, ownerID, s.now())
}

// ClampLimit applies the list paging defaults.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}
