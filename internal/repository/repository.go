package repository

import (
	"context"
	"errors"
	"time"

	"shortwave/internal/domain"
)

// LinkRepository is the system of record for links and their analytics.
//
// Every implementation must give the same guarantees, checked by the
// repotest conformance suite:
//   - Create is an atomic check-and-insert on ShortID; a collision returns
//     domain.ErrDuplicateShortID and leaves the existing link untouched.
//   - RecordClick applies domain.Link.RecordClick as one atomic unit, so
//     concurrent clicks on the same link are never lost.
//   - Delete checks ownership in the same place it deletes.
type LinkRepository interface {
	// Create inserts a new link.
	Create(ctx context.Context, link *domain.Link) error

	// GetByShortID returns the link behind a public token or domain.ErrNotFound.
	GetByShortID(ctx context.Context, shortID string) (*domain.Link, error)

	// GetByID returns a link by its internal id or domain.ErrNotFound.
	GetByID(ctx context.Context, id string) (*domain.Link, error)

	// ListByOwner returns an owner's links, newest first.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error)

	// Delete removes a link if ownerID owns it.
	// Returns domain.ErrNotFound or domain.ErrNotOwner otherwise.
	Delete(ctx context.Context, linkID, ownerID string) error

	// RecordClick counts one resolution on day (already truncated to a UTC
	// day) and returns the updated link, or domain.ErrNotFound.
	RecordClick(ctx context.Context, linkID string, day time.Time) (*domain.Link, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Unexpected reports whether err is a store failure rather than one of the
// domain outcomes a LinkRepository is allowed to return.
func Unexpected(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrDuplicateShortID) &&
		!errors.Is(err, domain.ErrNotOwner)
}
