// Package redis stores links in Redis. Every multi-key mutation is a Lua
// script, which Redis runs atomically.
//
// Layout:
//
//	link:{id}               JSON-encoded domain.Link
//	shortid:{shortId}       id of the link behind a short id
//	owner:{ownerId}:links   sorted set of ids scored by creation time (µs)
//
// The delete script derives the shortid and owner keys from the stored
// link, so this layout assumes a single Redis node rather than Cluster.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shortwave/internal/domain"
	"shortwave/internal/metrics"
	"shortwave/internal/repository"

	"github.com/redis/go-redis/v9"
)

const backend = "redis"

var createScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 1 then
		return 0
	end
	if redis.call('EXISTS', KEYS[2]) == 1 then
		return -1
	end
	redis.call('SET', KEYS[1], ARGV[1])
	redis.call('SET', KEYS[2], ARGV[2])
	redis.call('ZADD', KEYS[3], ARGV[3], ARGV[1])
	return 1
`)

// recordClickScript mirrors domain.Link.RecordClick: bump the tail bucket
// when it is for the same day, otherwise append a new one.
var recordClickScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return false
	end

	local link = cjson.decode(raw)
	link.clicks = link.clicks + 1

	local history = link.click_history
	if type(history) ~= 'table' then
		history = {}
	end

	local n = #history
	if n > 0 and history[n].date == ARGV[1] then
		history[n].count = history[n].count + 1
	else
		history[n + 1] = { date = ARGV[1], count = 1 }
	end
	link.click_history = history

	local encoded = cjson.encode(link)
	redis.call('SET', KEYS[1], encoded)
	return encoded
`)

var deleteScript = redis.NewScript(`
	local raw = redis.call('GET', KEYS[1])
	if not raw then
		return 0
	end

	local link = cjson.decode(raw)
	if link.owner_id ~= ARGV[1] then
		return -1
	end

	redis.call('DEL', KEYS[1], 'shortid:' .. link.short_id)
	redis.call('ZREM', 'owner:' .. link.owner_id .. ':links', link.id)
	return 1
`)

type linkRepository struct {
	client *redis.Client
}

// NewLinkRepository creates a Redis-backed link store.
func NewLinkRepository(client *redis.Client) repository.LinkRepository {
	return &linkRepository{client: client}
}

func linkKey(id string) string {
	return "link:" + id
}

func shortIDKey(shortID string) string {
	return "shortid:" + shortID
}

func ownerKey(ownerID string) string {
	return "owner:" + ownerID + ":links"
}

func (r *linkRepository) Create(ctx context.Context, link *domain.Link) (err error) {
	defer observe("create", time.Now(), &err)

	stored := link.Clone()
	if stored.ClickHistory == nil {
		stored.ClickHistory = []domain.ClickBucket{}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to marshal link: %w", err)
	}

	result, err := createScript.Run(ctx, r.client,
		[]string{shortIDKey(link.ShortID), linkKey(link.ID), ownerKey(link.OwnerID)},
		link.ID, data, link.CreatedAt.UnixMicro(),
	).Int()
	if err != nil {
		return fmt.Errorf("failed to create link: %w", err)
	}

	switch result {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("%w: %s", domain.ErrDuplicateShortID, link.ShortID)
	default:
		return fmt.Errorf("link id already exists: %s", link.ID)
	}
}

func (r *linkRepository) GetByShortID(ctx context.Context, shortID string) (link *domain.Link, err error) {
	defer observe("get_by_short_id", time.Now(), &err)

	id, err := r.client.Get(ctx, shortIDKey(shortID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, shortID)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	return r.get(ctx, id)
}

func (r *linkRepository) GetByID(ctx context.Context, id string) (link *domain.Link, err error) {
	defer observe("get_by_id", time.Now(), &err)
	return r.get(ctx, id)
}

func (r *linkRepository) get(ctx context.Context, id string) (*domain.Link, error) {
	data, err := r.client.Get(ctx, linkKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}
	return decodeLink(data)
}

func (r *linkRepository) ListByOwner(ctx context.Context, ownerID string, limit, offset int) (links []*domain.Link, err error) {
	defer observe("list_by_owner", time.Now(), &err)

	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}

	// Same score (same microsecond) falls back to reverse member order,
	// i.e. id descending, like the SQL stores.
	ids, err := r.client.ZRevRange(ctx, ownerKey(ownerID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrevrange error: %w", err)
	}

	links = []*domain.Link{}
	if len(ids) == 0 {
		return links, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = linkKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between ZREVRANGE and MGET.
			continue
		}
		link, err := decodeLink([]byte(s))
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, nil
}

func (r *linkRepository) Delete(ctx context.Context, linkID, ownerID string) (err error) {
	defer observe("delete", time.Now(), &err)

	result, err := deleteScript.Run(ctx, r.client, []string{linkKey(linkID)}, ownerID).Int()
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}

	switch result {
	case 1:
		return nil
	case -1:
		return fmt.Errorf("%w: %s", domain.ErrNotOwner, linkID)
	default:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}
}

func (r *linkRepository) RecordClick(ctx context.Context, linkID string, day time.Time) (link *domain.Link, err error) {
	defer observe("record_click", time.Now(), &err)

	encoded, err := recordClickScript.Run(ctx, r.client, []string{linkKey(linkID)}, domain.FormatDay(day)).Text()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, linkID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	return decodeLink([]byte(encoded))
}

func (r *linkRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decodeLink(data []byte) (*domain.Link, error) {
	var link domain.Link
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, fmt.Errorf("failed to unmarshal link: %w", err)
	}
	link.CreatedAt = link.CreatedAt.UTC()
	if link.ClickHistory == nil {
		link.ClickHistory = []domain.ClickBucket{}
	}
	return &link, nil
}

func observe(operation string, start time.Time, err *error) {
	metrics.ObserveStore(backend, operation, start, repository.Unexpected(*err))
}
