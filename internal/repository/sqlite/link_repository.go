package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	backend = "sqlite"

	// Fixed width so that text order is time order.
	timeLayout = "2006-01-02T15:04:05.000000Z07:00"

	linkColumns = `id, short_id, long_url, owner_id, clicks, click_history, created_at`
)

// recordClickQuery is domain.Link.RecordClick written with the JSON1
// functions. With a single connection SQLite runs it as one statement with
// no interleaving.
const recordClickQuery = `
	UPDATE links
	SET clicks = clicks + 1,
	    click_history = CASE
	        WHEN json_array_length(click_history) > 0
	             AND json_extract(click_history, '$[#-1].date') = ?
	        THEN json_set(
	                 click_history,
	                 '$[#-1].count',
	                 json_extract(click_history, '$[#-1].count') + 1
	             )
	        ELSE json_insert(
	                 click_history,
	                 '$[#]',
	                 json_object('date', ?, 'count', 1)
	             )
	    END
	WHERE id = ?
	RETURNING ` + linkColumns

type linkRepository struct {
	db *sql.DB
}

// NewLinkRepository creates a SQLite link store on a database returned by Open.
func NewLinkRepository(db *sql.DB) repository.LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *domain.Link) (err error) {
	defer observe("create", time.Now(), &err)

	history := link.ClickHistory
	if history == nil {
		history = []domain.ClickBucket{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to marshal click history: %w", err)
	}

	query := `
		INSERT INTO links (id, short_id, long_url, owner_id, clicks, click_history, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		link.ID,
		link.ShortID,
		link.LongURL,
		link.OwnerID,
		link.Clicks,
		string(historyJSON),
		link.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if isShortIDConflict(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateShortID, link.ShortID)
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	return nil
}

func (r *linkRepository) GetByShortID(ctx context.Context, shortID string) (link *domain.Link, err error) {
	defer observe("get_by_short_id", time.Now(), &err)

	query := `SELECT ` + linkColumns + ` FROM links WHERE short_id = ?`

	link, err = scanLink(r.db.QueryRowContext(ctx, query, shortID))
	if err != nil {
		return nil, wrapNotFound(err, shortID)
	}
	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (link *domain.Link, err error) {
	defer observe("get_by_id", time.Now(), &err)

	query := `SELECT ` + linkColumns + ` FROM links WHERE id = ?`

	link, err = scanLink(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, wrapNotFound(err, id)
	}
	return link, nil
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) (links []*domain.Link, err error) {
	defer observe("list_by_owner", time.Now(), &err)

	query := `
		SELECT ` + linkColumns + `
		FROM links
		WHERE owner_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	defer rows.Close()

	links = []*domain.Link{}
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating links: %w", err)
	}

	return links, nil
}

func (r *linkRepository) Delete(ctx context.Context, linkID, ownerID string) (err error) {
	defer observe("delete", time.Now(), &err)

	result, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = ? AND owner_id = ?`, linkID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 1 {
		return nil
	}

	var owner string
	err = r.db.QueryRowContext(ctx, `SELECT owner_id FROM links WHERE id = ?`, linkID).Scan(&owner)
	if err != nil {
		return wrapNotFound(err, linkID)
	}
	return fmt.Errorf("%w: %s", domain.ErrNotOwner, linkID)
}

func (r *linkRepository) RecordClick(ctx context.Context, linkID string, day time.Time) (link *domain.Link, err error) {
	defer observe("record_click", time.Now(), &err)

	date := domain.FormatDay(day)

	link, err = scanLink(r.db.QueryRowContext(ctx, recordClickQuery, date, date, linkID))
	if err != nil {
		return nil, wrapNotFound(err, linkID)
	}
	return link, nil
}

func (r *linkRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLink(row scanner) (*domain.Link, error) {
	var (
		link        domain.Link
		historyJSON string
		createdAt   string
	)

	err := row.Scan(
		&link.ID,
		&link.ShortID,
		&link.LongURL,
		&link.OwnerID,
		&link.Clicks,
		&historyJSON,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(historyJSON), &link.ClickHistory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal click history: %w", err)
	}
	if link.ClickHistory == nil {
		link.ClickHistory = []domain.ClickBucket{}
	}

	link.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	link.CreatedAt = link.CreatedAt.UTC()

	return &link, nil
}

func isShortIDConflict(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqliteErr.Error(), "links.short_id")
	}
	return false
}

func wrapNotFound(err error, key string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return fmt.Errorf("failed to get link: %w", err)
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveStore(backend, operation, start, repository.Unexpected(*err))
}
