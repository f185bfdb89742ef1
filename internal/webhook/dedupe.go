package webhook

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper suppresses redelivered events. Seen reports whether the ID has
// already been processed; Mark records it as processed. The two are separate
// so the router can mark only after a reaction succeeds: a failed reaction
// leaves the ID unmarked and the provider's redelivery retries it. The
// check-then-mark window can let a racing redelivery through, which is fine
// because every reaction is idempotent at the registry level.
type Deduper interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Mark(ctx context.Context, eventID string) error
}

const dedupeKeyPrefix = "callscribe:webhook:event:"

// RedisDeduper records event IDs in Redis with a TTL, so duplicate
// suppression survives process restarts and works across replicas.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *RedisDeduper) Mark(ctx context.Context, eventID string) error {
	return d.client.Set(ctx, dedupeKeyPrefix+eventID, 1, d.ttl).Err()
}

// MemoryDeduper is the in-process fallback when Redis is not configured.
// Entries expire lazily on lookup.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryDeduper{seen: make(map[string]time.Time), ttl: ttl}
}

func (d *MemoryDeduper) Seen(_ context.Context, eventID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.seen[eventID]
	return ok && time.Now().Before(exp), nil
}

func (d *MemoryDeduper) Mark(_ context.Context, eventID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for id, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, id)
		}
	}
	d.seen[eventID] = now.Add(d.ttl)
	return nil
}
