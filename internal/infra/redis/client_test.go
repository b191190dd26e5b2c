package redis

import (
	"context"
	"strings"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"
)

func newMiniClient(t *testing.T, prefix string) (*Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(server.Close)

	client, err := newClient(context.Background(), redis.NewClient(&redis.Options{Addr: server.Addr()}), prefix, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, server
}

func TestKeyNamespacing(t *testing.T) {
	client, _ := newMiniClient(t, "cad")
	if got := client.Key("rate-limit", "user-1"); got != "cad:rate-limit:user-1" {
		t.Fatalf("unexpected key %q", got)
	}

	bare, _ := newMiniClient(t, "")
	if got := bare.Key("cad", "config"); got != "cad:config" {
		t.Fatalf("unexpected key without prefix %q", got)
	}
}

func TestHealthCheckFailsWhenServerStops(t *testing.T) {
	client, server := newMiniClient(t, "cad")

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy redis, got %v", err)
	}

	server.Close()
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail after shutdown")
	}
}

func TestNewClientRejectsUnreachableServer(t *testing.T) {
	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	addr := server.Addr()
	server.Close()

	_, err = newClient(context.Background(), redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1}), "cad", nil)
	if err == nil || !strings.Contains(err.Error(), "redis ping failed") {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestRegisterPoolMetrics(t *testing.T) {
	client, _ := newMiniClient(t, "cad")
	reg := prometheus.NewRegistry()

	if err := client.RegisterPoolMetrics(reg); err != nil {
		t.Fatalf("register: %v", err)
	}
	if n := testutil.CollectAndCount(reg, "cad_redis_pool_total_conns", "cad_redis_pool_idle_conns", "cad_redis_pool_timeouts"); n != 3 {
		t.Fatalf("expected 3 pool gauges, got %d", n)
	}
	if err := client.RegisterPoolMetrics(reg); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}
