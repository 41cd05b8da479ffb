package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduplicator suppresses reprocessing of redelivered events. Seen reports
// whether the event ID was already processed; Mark records it. The adapter
// marks only after the notification is stored, so a failed create leaves
// the ID unmarked and the bus redelivery is processed, not suppressed.
type Deduplicator interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

// DedupTTL is how long processed event IDs are remembered. Redeliveries
// arrive within seconds; a day covers replays after consumer restarts.
const DedupTTL = 24 * time.Hour

// MemoryDeduplicator remembers event IDs in process memory.
type MemoryDeduplicator struct {
	ttl  time.Duration
	mu   sync.Mutex
	seen map[string]time.Time
}

// NewMemoryDeduplicator creates a deduplicator with the given TTL;
// zero means DedupTTL.
func NewMemoryDeduplicator(ttl time.Duration) *MemoryDeduplicator {
	if ttl <= 0 {
		ttl = DedupTTL
	}
	return &MemoryDeduplicator{
		ttl:  ttl,
		seen: make(map[string]time.Time),
	}
}

func (d *MemoryDeduplicator) Seen(ctx context.Context, eventID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.expire(time.Now())
	_, ok := d.seen[eventID]
	return ok, nil
}

func (d *MemoryDeduplicator) Mark(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen[eventID] = time.Now()
	return nil
}

// expire drops stale entries; lazy expiry keeps the map bounded without a
// sweeper goroutine. Callers hold d.mu.
func (d *MemoryDeduplicator) expire(now time.Time) {
	for id, at := range d.seen {
		if now.Sub(at) > d.ttl {
			delete(d.seen, id)
		}
	}
}

// RedisDeduplicator shares processed event IDs across instances.
type RedisDeduplicator struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisDeduplicator creates a Redis-backed deduplicator; zero ttl means
// DedupTTL.
func NewRedisDeduplicator(client *redis.Client, ttl time.Duration) *RedisDeduplicator {
	if ttl <= 0 {
		ttl = DedupTTL
	}
	return &RedisDeduplicator{
		client: client,
		ttl:    ttl,
		prefix: "ingest:dedup:",
	}
}

func (d *RedisDeduplicator) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+eventID).Result()
	if err != nil {
		return false, errors.Join(ErrDeduplication, err)
	}
	return n > 0, nil
}

func (d *RedisDeduplicator) Mark(ctx context.Context, eventID string) error {
	if err := d.client.Set(ctx, d.prefix+eventID, 1, d.ttl).Err(); err != nil {
		return errors.Join(ErrDeduplication, err)
	}
	return nil
}
