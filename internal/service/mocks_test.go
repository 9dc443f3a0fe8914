package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/shortid"

	"github.com/stretchr/testify/mock"
)

// MockLinkRepository is a mock implementation of repository.LinkRepository
type MockLinkRepository struct {
	mock.Mock
}

func (m *MockLinkRepository) Create(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockLinkRepository) GetByShortID(ctx context.Context, shortID string) (*domain.Link, error) {
	args := m.Called(ctx, shortID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) GetByID(ctx context.Context, id string) (*domain.Link, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Link, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) Delete(ctx context.Context, linkID, ownerID string) error {
	args := m.Called(ctx, linkID, ownerID)
	return args.Error(0)
}

func (m *MockLinkRepository) RecordClick(ctx context.Context, linkID string, day time.Time) (*domain.Link, error) {
	args := m.Called(ctx, linkID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

func (m *MockLinkRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// stubGenerator hands out generated ids from a fixed list and applies the
// real alias policy.
type stubGenerator struct {
	*shortid.Generator

	mu          sync.Mutex
	ids         []string
	maxAttempts int
	calls       int
}

func newStubGenerator(maxAttempts int, ids ...string) *stubGenerator {
	return &stubGenerator{
		Generator:   shortid.New(shortid.DefaultLength, maxAttempts),
		ids:         ids,
		maxAttempts: maxAttempts,
	}
}

func (g *stubGenerator) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls >= len(g.ids) {
		return "", fmt.Errorf("stub generator ran out of ids")
	}
	id := g.ids[g.calls]
	g.calls++
	return id, nil
}

func (g *stubGenerator) MaxAttempts() int {
	return g.maxAttempts
}
