package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

func TestRangeKey(t *testing.T) {
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	got := rangeKey("u1", "primary", start, start.Add(time.Hour))
	want := "gridcal:range:u1:primary:1773100800:1773104400"
	if got != want {
		t.Fatalf("key=%q, want %q", got, want)
	}
	if userKey("u1") != "gridcal:user:u1" {
		t.Fatalf("userKey=%q", userKey("u1"))
	}
}

// An unreachable server must degrade to misses, never to errors or panics.
func TestUnavailableServerIsAMiss(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	c := New(client, 0, nil)
	defer c.Close()

	if c.ttl != DefaultTTL {
		t.Fatalf("ttl=%v, want default", c.ttl)
	}
	ctx := context.Background()
	start := time.Now()
	c.Put(ctx, "u1", "primary", start, start.Add(time.Hour), nil)
	if _, ok := c.Get(ctx, "u1", "primary", start, start.Add(time.Hour)); ok {
		t.Fatal("hit on an unreachable server")
	}
	c.Invalidate(ctx, "u1")
}

func TestConnectRejectsBadURL(t *testing.T) {
	if _, err := Connect(context.Background(), "not a url", 0, nil); err == nil {
		t.Fatal("expected error")
	}
}
