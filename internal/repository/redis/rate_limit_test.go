package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func TestRateLimitRepository_AdmitsUpToLimit(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl", TTL: time.Minute})

	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := repo.Hit(ctx, "panic:user-1", 3, time.Minute, start.Add(time.Duration(i)*time.Second))
		if err != nil {
			t.Fatalf("hit %d: %v", i, err)
		}
		if !res.Allowed || res.Count != i+1 {
			t.Fatalf("hit %d: unexpected window %+v", i, res)
		}
		if !res.Oldest.Equal(start) {
			t.Fatalf("hit %d: expected oldest %v, got %v", i, start, res.Oldest)
		}
	}

	res, err := repo.Hit(ctx, "panic:user-1", 3, time.Minute, start.Add(10*time.Second))
	if err != nil {
		t.Fatalf("hit over limit: %v", err)
	}
	if res.Allowed || res.Count != 3 {
		t.Fatalf("expected rejection with a full window, got %+v", res)
	}

	if ttl := server.TTL("rl:panic:user-1"); ttl <= 0 || ttl > time.Minute {
		t.Fatalf("expected ttl within (0, 1m], got %v", ttl)
	}
}

func TestRateLimitRepository_WindowSlides(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{KeyPrefix: "rl"})

	ctx := context.Background()
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{start, start.Add(30 * time.Second)} {
		if _, err := repo.Hit(ctx, "mutations:user-1", 2, time.Minute, at); err != nil {
			t.Fatalf("seed hit: %v", err)
		}
	}

	res, err := repo.Hit(ctx, "mutations:user-1", 2, time.Minute, start.Add(61*time.Second))
	if err != nil {
		t.Fatalf("hit after first expired: %v", err)
	}
	if !res.Allowed || res.Count != 2 {
		t.Fatalf("expected the first hit to slide out, got %+v", res)
	}
	if want := start.Add(30 * time.Second); !res.Oldest.Equal(want) {
		t.Fatalf("expected oldest %v, got %v", want, res.Oldest)
	}
}

func TestRateLimitRepository_KeysAreIndependent(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if res, err := repo.Hit(ctx, "user-1", 1, time.Minute, now); err != nil || !res.Allowed {
		t.Fatalf("first key: %+v %v", res, err)
	}
	if res, err := repo.Hit(ctx, "user-2", 1, time.Minute, now); err != nil || !res.Allowed {
		t.Fatalf("second key should not share the window: %+v %v", res, err)
	}
}

func TestRateLimitRepository_RejectsNonPositiveWindow(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewRateLimitRepository(client, SlidingWindowConfig{})

	if _, err := repo.Hit(context.Background(), "x", 1, 0, time.Now()); err == nil {
		t.Fatalf("expected error for zero window")
	}
}
