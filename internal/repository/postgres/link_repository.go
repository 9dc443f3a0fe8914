package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	backend = "postgres"

	// SQLSTATE unique_violation
	uniqueViolation = "23505"

	shortIDConstraint = "links_short_id_key"

	linkColumns = `id, short_id, long_url, owner_id, clicks, click_history, created_at`
)

// recordClickQuery applies domain.Link.RecordClick inside a single UPDATE.
// The row lock taken by UPDATE serialises concurrent clicks on one link, and
// Postgres re-evaluates the SET expressions against the latest row version
// after waiting, so no increment is lost.
const recordClickQuery = `
	UPDATE links
	SET clicks = clicks + 1,
	    click_history = CASE
	        WHEN jsonb_array_length(click_history) > 0
	             AND click_history->-1->>'date' = $2
	        THEN jsonb_set(
	                 click_history,
	                 '{-1,count}',
	                 to_jsonb((click_history->-1->>'count')::bigint + 1)
	             )
	        ELSE click_history || jsonb_build_array(
	                 jsonb_build_object('date', $2::text, 'count', 1)
	             )
	    END
	WHERE id = $1
	RETURNING ` + linkColumns

// linkRepository is the PostgreSQL implementation of repository.LinkRepository.
type linkRepository struct {
	db *pgxpool.Pool
}

// NewLinkRepository creates a PostgreSQL link store. The schema comes from
// internal/migrations.
func NewLinkRepository(db *pgxpool.Pool) repository.LinkRepository {
	return &linkRepository{db: db}
}

func (r *linkRepository) Create(ctx context.Context, link *domain.Link) (err error) {
	defer observe("create", time.Now(), &err)

	// The unique constraint on short_id makes this an atomic check-and-insert.
	query := `
		INSERT INTO links (id, short_id, long_url, owner_id, clicks, click_history, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	history := link.ClickHistory
	if history == nil {
		history = []domain.ClickBucket{}
	}

	_, err = r.db.Exec(ctx, query,
		link.ID,
		link.ShortID,
		link.LongURL,
		link.OwnerID,
		link.Clicks,
		history,
		link.CreatedAt,
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

	query := `SELECT ` + linkColumns + ` FROM links WHERE short_id = $1`

	link, err = scanLink(r.db.QueryRow(ctx, query, shortID))
	if err != nil {
		return nil, wrapNotFound(err, shortID)
	}
	return link, nil
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (link *domain.Link, err error) {
	defer observe("get_by_id", time.Now(), &err)

	if !isUUID(id) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}

	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`

	link, err = scanLink(r.db.QueryRow(ctx, query, id))
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
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
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

	if !isUUID(linkID) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}

	// Ownership is part of the predicate, so a foreign link is never removed.
	result, err := r.db.Exec(ctx, `DELETE FROM links WHERE id = $1 AND owner_id = $2`, linkID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if result.RowsAffected() == 1 {
		return nil
	}

	// Nothing deleted: tell "missing" apart from "someone else's".
	var owner string
	err = r.db.QueryRow(ctx, `SELECT owner_id FROM links WHERE id = $1`, linkID).Scan(&owner)
	if err != nil {
		return wrapNotFound(err, linkID)
	}
	return fmt.Errorf("%w: %s", domain.ErrNotOwner, linkID)
}

func (r *linkRepository) RecordClick(ctx context.Context, linkID string, day time.Time) (link *domain.Link, err error) {
	defer observe("record_click", time.Now(), &err)

	if !isUUID(linkID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}

	link, err = scanLink(r.db.QueryRow(ctx, recordClickQuery, linkID, domain.FormatDay(day)))
	if err != nil {
		return nil, wrapNotFound(err, linkID)
	}
	return link, nil
}

func (r *linkRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// scanLink reads one row selected with linkColumns. pgx decodes the JSONB
// history straight into the bucket slice.
func scanLink(row pgx.Row) (*domain.Link, error) {
	link := &domain.Link{}
	err := row.Scan(
		&link.ID,
		&link.ShortID,
		&link.LongURL,
		&link.OwnerID,
		&link.Clicks,
		&link.ClickHistory,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	link.CreatedAt = link.CreatedAt.UTC()
	if link.ClickHistory == nil {
		link.ClickHistory = []domain.ClickBucket{}
	}
	return link, nil
}

// isShortIDConflict reports a clash on short_id only. A clash on the primary
// key is a different failure.
func isShortIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == shortIDConstraint
}

func wrapNotFound(err error, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return fmt.Errorf("failed to get link: %w", err)
}

// isUUID guards id columns: a malformed id can't match any row, and sending
// it would fail encoding instead of returning "not found".
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveStore(backend, operation, start, repository.Unexpected(*err))
}
