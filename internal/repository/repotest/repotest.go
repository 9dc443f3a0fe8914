// Package repotest is a conformance suite shared by every LinkRepository
// backend. Each backend's tests call Run with a constructor for a fresh,
// empty store.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty repository. Cleanup is registered on t.
type Factory func(t *testing.T) repository.LinkRepository

// Run executes the full suite against the backend built by newRepo.
func Run(t *testing.T, newRepo Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, repository.LinkRepository)
	}{
		{"CreateAndGet", testCreateAndGet},
		{"DuplicateShortID", testDuplicateShortID},
		{"ConcurrentCreateSameShortID", testConcurrentCreateSameShortID},
		{"GetMissing", testGetMissing},
		{"ListByOwner", testListByOwner},
		{"Delete", testDelete},
		{"RecordClick", testRecordClick},
		{"RecordClickSkewedDay", testRecordClickSkewedDay},
		{"ConcurrentRecordClick", testConcurrentRecordClick},
		{"Ping", testPing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newRepo(t))
		})
	}
}

// NewLink builds a link with a fresh id. CreatedAt is truncated to
// microseconds, the finest precision every backend keeps.
func NewLink(shortID, ownerID string, createdAt time.Time) *domain.Link {
	return domain.NewLink(uuid.NewString(), shortID, "https://example.com/"+shortID, ownerID, createdAt.Truncate(time.Microsecond))
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCreateAndGet(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("ab12cd3", "owner-a", time.Now())

	require.NoError(t, repo.Create(ctx, link))

	got, err := repo.GetByShortID(ctx, "ab12cd3")
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, "ab12cd3", got.ShortID)
	assert.Equal(t, link.LongURL, got.LongURL)
	assert.Equal(t, "owner-a", got.OwnerID)
	assert.Equal(t, int64(0), got.Clicks)
	assert.Empty(t, got.ClickHistory)
	assert.WithinDuration(t, link.CreatedAt, got.CreatedAt, time.Millisecond)

	byID, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, "ab12cd3", byID.ShortID)
}

func testDuplicateShortID(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	first := NewLink("promo", "owner-a", time.Now())
	second := NewLink("promo", "owner-b", time.Now())

	require.NoError(t, repo.Create(ctx, first))
	err := repo.Create(ctx, second)
	assert.ErrorIs(t, err, domain.ErrDuplicateShortID)

	got, err := repo.GetByShortID(ctx, "promo")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID, "existing link must be untouched")
}

func testConcurrentCreateSameShortID(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	const workers = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := repo.Create(ctx, NewLink("race01", fmt.Sprintf("owner-%d", i), time.Now()))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case assert.ErrorIs(t, err, domain.ErrDuplicateShortID):
				dupes++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, workers-1, dupes)
}

func testGetMissing(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()

	_, err := repo.GetByShortID(ctx, "doesnotexist")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testListByOwner(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	var created []*domain.Link
	for i := 0; i < 5; i++ {
		link := NewLink(fmt.Sprintf("mine%02d", i), "owner-a", base.Add(time.Duration(i)*time.Minute))
		require.NoError(t, repo.Create(ctx, link))
		created = append(created, link)
	}
	require.NoError(t, repo.Create(ctx, NewLink("theirs1", "owner-b", base)))

	all, err := repo.ListByOwner(ctx, "owner-a", 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, link := range all {
		assert.Equal(t, created[4-i].ID, link.ID, "position %d", i)
		assert.Equal(t, "owner-a", link.OwnerID)
	}

	page, err := repo.ListByOwner(ctx, "owner-a", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, created[2].ID, page[0].ID)
	assert.Equal(t, created[1].ID, page[1].ID)

	past, err := repo.ListByOwner(ctx, "owner-a", 10, 10)
	require.NoError(t, err)
	assert.Empty(t, past)

	none, err := repo.ListByOwner(ctx, "owner-c", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testDelete(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("gone123", "owner-a", time.Now())
	require.NoError(t, repo.Create(ctx, link))

	err := repo.Delete(ctx, link.ID, "owner-b")
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	_, err = repo.GetByShortID(ctx, "gone123")
	require.NoError(t, err, "link must survive a rejected delete")

	err = repo.Delete(ctx, uuid.NewString(), "owner-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Delete(ctx, link.ID, "owner-a"))

	_, err = repo.GetByShortID(ctx, "gone123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = repo.RecordClick(ctx, link.ID, day(2025, 3, 10))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.Delete(ctx, link.ID, "owner-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The short id is free again once the mapping is gone.
	require.NoError(t, repo.Create(ctx, NewLink("gone123", "owner-b", time.Now())))
}

func testRecordClick(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("clicky1", "owner-a", time.Now())
	require.NoError(t, repo.Create(ctx, link))

	updated, err := repo.RecordClick(ctx, link.ID, day(2025, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated.Clicks)
	require.Len(t, updated.ClickHistory, 1)
	assert.Equal(t, day(2025, 3, 10), updated.ClickHistory[0].Date)

	updated, err = repo.RecordClick(ctx, link.ID, day(2025, 3, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Clicks)
	require.Len(t, updated.ClickHistory, 1, "same day must not add a bucket")
	assert.Equal(t, int64(2), updated.ClickHistory[0].Count)

	updated, err = repo.RecordClick(ctx, link.ID, day(2025, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Clicks)
	require.Len(t, updated.ClickHistory, 2)
	assert.Equal(t, day(2025, 3, 11), updated.ClickHistory[1].Date)
	assert.Equal(t, int64(1), updated.ClickHistory[1].Count)

	stored, err := repo.GetByShortID(ctx, "clicky1")
	require.NoError(t, err)
	assert.Equal(t, updated.Clicks, stored.Clicks)
	assert.Equal(t, updated.ClickHistory, stored.ClickHistory)
	assert.Equal(t, stored.Clicks, stored.HistoryTotal())

	_, err = repo.RecordClick(ctx, uuid.NewString(), day(2025, 3, 11))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testRecordClickSkewedDay(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("skewed1", "owner-a", time.Now())
	require.NoError(t, repo.Create(ctx, link))

	_, err := repo.RecordClick(ctx, link.ID, day(2025, 3, 12))
	require.NoError(t, err)
	updated, err := repo.RecordClick(ctx, link.ID, day(2025, 3, 11))
	require.NoError(t, err)

	require.Len(t, updated.ClickHistory, 2)
	assert.Equal(t, day(2025, 3, 12), updated.ClickHistory[0].Date)
	assert.Equal(t, int64(1), updated.ClickHistory[0].Count)
	assert.Equal(t, day(2025, 3, 11), updated.ClickHistory[1].Date)
	assert.Equal(t, int64(2), updated.Clicks)
}

func testConcurrentRecordClick(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("hot0001", "owner-a", time.Now())
	require.NoError(t, repo.Create(ctx, link))

	const clicks = 50
	today := day(2025, 3, 10)

	var wg sync.WaitGroup
	errs := make(chan error, clicks)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.RecordClick(ctx, link.ID, today); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("RecordClick failed: %v", err)
	}

	stored, err := repo.GetByID(ctx, link.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(clicks), stored.Clicks, "no click may be lost")
	require.Len(t, stored.ClickHistory, 1)
	assert.Equal(t, int64(clicks), stored.ClickHistory[0].Count)
}

func testPing(t *testing.T, repo repository.LinkRepository) {
	assert.NoError(t, repo.Ping(context.Background()))
}
