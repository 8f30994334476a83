// Package cache holds the processed-webhook log used to short-circuit
// redelivered gateway callbacks.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "webhook:processed:"

// EventLog remembers gateway event ids that were fully handled. It is an
// optimization only; completion stays idempotent without it.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID string) error
}

type RedisEventLog struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisEventLog(client *redis.Client, ttl time.Duration) *RedisEventLog {
	return &RedisEventLog{client: client, ttl: ttl}
}

func (l *RedisEventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	n, err := l.client.Exists(ctx, processedKeyPrefix+eventID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisEventLog) MarkProcessed(ctx context.Context, eventID string) error {
	return l.client.SetNX(ctx, processedKeyPrefix+eventID, time.Now().Unix(), l.ttl).Err()
}

type NopEventLog struct{}

func (NopEventLog) Seen(context.Context, string) (bool, error) { return false, nil }

func (NopEventLog) MarkProcessed(context.Context, string) error { return nil }

// MemoryEventLog keeps ids in process memory without expiry.
type MemoryEventLog struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{seen: make(map[string]struct{})}
}

func (l *MemoryEventLog) Seen(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.seen[eventID]
	return ok, nil
}

func (l *MemoryEventLog) MarkProcessed(_ context.Context, eventID string) error {
	l.mu.Lock()
	l.seen[eventID] = struct{}{}
	l.mu.Unlock()
	return nil
}
