package domain

import (
	"errors"
	"time"
)

// Link is a short identifier mapped to a destination URL, owned by one user,
// together with its click analytics.
// Only Clicks and ClickHistory change after creation.
type Link struct {
	ID           string        `json:"id"`            // UUID assigned at creation
	ShortID      string        `json:"short_id"`      // Public token used in the redirect path
	LongURL      string        `json:"long_url"`      // Destination
	OwnerID      string        `json:"owner_id"`      // Subject of the creator's auth token
	Clicks       int64         `json:"clicks"`        // Total resolutions
	ClickHistory []ClickBucket `json:"click_history"` // One bucket per UTC day, oldest first
	CreatedAt    time.Time     `json:"created_at"`
}

// Domain errors. Callers match them with errors.Is, so every layer wraps
// instead of replacing them.
var (
	ErrNotFound            = errors.New("link not found")
	ErrDuplicateShortID    = errors.New("short id already exists")
	ErrAliasTaken          = errors.New("alias already taken")
	ErrInvalidAlias        = errors.New("invalid alias")
	ErrInvalidURL          = errors.New("invalid URL")
	ErrNotOwner            = errors.New("link belongs to another owner")
	ErrForbidden           = errors.New("forbidden")
	ErrGenerationExhausted = errors.New("could not generate a free short id")
)

// NewLink creates a link with no clicks recorded yet.
func NewLink(id, shortID, longURL, ownerID string, createdAt time.Time) *Link {
	return &Link{
		ID:           id,
		ShortID:      shortID,
		LongURL:      longURL,
		OwnerID:      ownerID,
		Clicks:       0,
		ClickHistory: []ClickBucket{},
		CreatedAt:    createdAt.UTC(),
	}
}

// RecordClick applies one resolution on the given day.
//
// The last bucket is bumped when it is for the same day; otherwise a new
// bucket is appended. A last bucket dated after day (clock skew) still gets a
// new bucket appended at the tail: earlier buckets are never touched and
// nothing is inserted mid-sequence.
//
// Stores that cannot run this method under a lock implement the same rules
// natively (SQL CASE expression, Lua script).
func (l *Link) RecordClick(day time.Time) {
	day = DayOf(day)
	l.Clicks++

	if n := len(l.ClickHistory); n > 0 && l.ClickHistory[n-1].Date.Equal(day) {
		l.ClickHistory[n-1].Count++
		return
	}
	l.ClickHistory = append(l.ClickHistory, ClickBucket{Date: day, Count: 1})
}

// HistoryTotal sums the bucket counts. It equals Clicks for every link that
// has only been mutated through RecordClick.
func (l *Link) HistoryTotal() int64 {
	var total int64
	for _, b := range l.ClickHistory {
		total += b.Count
	}
	return total
}

// IsOwnedBy reports whether ownerID created the link.
func (l *Link) IsOwnedBy(ownerID string) bool {
	return ownerID != "" && l.OwnerID == ownerID
}

// Clone returns a deep copy so callers can't mutate a store's internal state.
func (l *Link) Clone() *Link {
	c := *l
	c.ClickHistory = make([]ClickBucket, len(l.ClickHistory))
	copy(c.ClickHistory, l.ClickHistory)
	return &c
}
