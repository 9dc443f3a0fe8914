// Package memory is an in-process LinkRepository for tests and local runs.
// Nothing survives a restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/repository"
)

type linkRepository struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Link
	byShortID map[string]string // shortID -> id
}

// NewLinkRepository creates an empty in-memory store.
func NewLinkRepository() repository.LinkRepository {
	return &linkRepository{
		byID:      make(map[string]*domain.Link),
		byShortID: make(map[string]string),
	}
}

func (r *linkRepository) Create(ctx context.Context, link *domain.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byShortID[link.ShortID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateShortID, link.ShortID)
	}
	if _, exists := r.byID[link.ID]; exists {
		return fmt.Errorf("link id already exists: %s", link.ID)
	}

	r.byID[link.ID] = link.Clone()
	r.byShortID[link.ShortID] = link.ID
	return nil
}

func (r *linkRepository) GetByShortID(ctx context.Context, shortID string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byShortID[shortID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, shortID)
	}
	return r.byID[id].Clone(), nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	return link.Clone(), nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []*domain.Link
	for _, link := range r.byID {
		if link.OwnerID == ownerID {
			owned = append(owned, link)
		}
	}

	// Newest first; id breaks ties so paging is stable.
	sort.Slice(owned, func(i, j int) bool {
		if !owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].CreatedAt.After(owned[j].CreatedAt)
		}
		return owned[i].ID > owned[j].ID
	})

	if offset >= len(owned) {
		return []*domain.Link{}, nil
	}
	end := len(owned)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	page := make([]*domain.Link, 0, end-offset)
	for _, link := range owned[offset:end] {
		page = append(page, link.Clone())
	}
	return page, nil
}

func (r *linkRepository) Delete(ctx context.Context, linkID, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byID[linkID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}
	if !link.IsOwnedBy(ownerID) {
		return fmt.Errorf("%w: %s", domain.ErrNotOwner, linkID)
	}

	delete(r.byShortID, link.ShortID)
	delete(r.byID, linkID)
	return nil
}

// RecordClick runs the read-modify-write under the write lock, which makes
// it a single atomic unit against every other operation on the store.
func (r *linkRepository) RecordClick(ctx context.Context, linkID string, day time.Time) (*domain.Link, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	link, ok := r.byID[linkID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}

	link.RecordClick(day)
	return link.Clone(), nil
}

func (r *linkRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}
