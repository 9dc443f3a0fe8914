package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DayLayout is how a bucket date is written in every store and on the wire.
const DayLayout = "2006-01-02"

// ClickBucket aggregates one calendar day's clicks for a link.
// Days are UTC so bucket boundaries don't depend on the server's zone.
type ClickBucket struct {
	Date  time.Time // Midnight UTC
	Count int64     // Always >= 1
}

// DayOf truncates t to 00:00:00 UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDay renders a day the way stores compare it.
func FormatDay(t time.Time) string {
	return DayOf(t).Format(DayLayout)
}

// ParseDay is the inverse of FormatDay.
func ParseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid bucket date %q: %w", s, err)
	}
	return t, nil
}

type clickBucketJSON struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// MarshalJSON writes {"date":"YYYY-MM-DD","count":N}.
func (b ClickBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(clickBucketJSON{Date: FormatDay(b.Date), Count: b.Count})
}

// UnmarshalJSON reads the form written by MarshalJSON.
func (b *ClickBucket) UnmarshalJSON(data []byte) error {
	var raw clickBucketJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	day, err := ParseDay(raw.Date)
	if err != nil {
		return err
	}
	b.Date = day
	b.Count = raw.Count
	return nil
}
