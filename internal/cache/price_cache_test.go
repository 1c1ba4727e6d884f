package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/mealshare/internal/domain"
)

func testClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set, skipping redis cache test")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestPriceCache_RoundTrip(t *testing.T) {
	client := testClient(t)
	cache := NewPriceCache(client, time.Minute, nil)
	ctx := context.Background()

	event := domain.MealShareEvent{
		ID:           "cache-event-1",
		CurrentMinor: 1950,
		OrdersCount:  2,
		Currency:     "USD",
		UpdatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	t.Cleanup(func() { cache.Invalidate(ctx, event.ID) })

	if _, ok := cache.Get(ctx, event.ID); ok {
		t.Fatal("expected miss before set")
	}

	cache.Set(ctx, event)
	snapshot, ok := cache.Get(ctx, event.ID)
	if !ok {
		t.Fatal("expected hit after set")
	}
	if snapshot.CurrentMinor != 1950 || snapshot.OrdersCount != 2 || snapshot.Currency != "USD" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}

	cache.Invalidate(ctx, event.ID)
	if _, ok := cache.Get(ctx, event.ID); ok {
		t.Fatal("expected miss after invalidate")
	}
}
