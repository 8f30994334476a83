package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisEventLog(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	log := NewRedisEventLog(client, time.Minute)
	id := "evt_" + uuid.NewString()
	defer client.Del(ctx, processedKeyPrefix+id)

	seen, err := log.Seen(ctx, id)
	if err != nil {
		t.Fatalf("seen: %v", err)
	}
	if seen {
		t.Fatal("fresh id reported as seen")
	}
	if err := log.MarkProcessed(ctx, id); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if seen, _ := log.Seen(ctx, id); !seen {
		t.Fatal("expected id to be seen after mark")
	}
	ttl, err := client.TTL(ctx, processedKeyPrefix+id).Result()
	if err != nil {
		t.Fatalf("ttl: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestMemoryEventLog(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryEventLog()

	if seen, _ := log.Seen(ctx, "evt_1"); seen {
		t.Fatal("fresh id reported as seen")
	}
	_ = log.MarkProcessed(ctx, "evt_1")
	if seen, _ := log.Seen(ctx, "evt_1"); !seen {
		t.Fatal("expected seen")
	}
	if seen, _ := (NopEventLog{}).Seen(ctx, "evt_1"); seen {
		t.Fatal("nop log must never report seen")
	}
}
