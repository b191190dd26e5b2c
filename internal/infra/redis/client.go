package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/config"
)

// Client owns the connection pool shared by the CAD cache and the rate limiter.
type Client struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
}

// NewClient dials Redis and fails when the first ping does not answer within five seconds.
func NewClient(ctx context.Context, cfg config.RedisSettings, logger *zap.Logger) (*Client, error) {
	opts := &redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,

		PoolTimeout:     4 * time.Second,
		ConnMaxIdleTime: 5 * time.Minute,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	return newClient(ctx, redis.NewClient(opts), cfg.KeyPrefix, logger)
}

func newClient(ctx context.Context, rdb *redis.Client, prefix string, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	logger.Info("Redis connection established",
		zap.String("addr", rdb.Options().Addr),
		zap.Int("db", rdb.Options().DB),
		zap.String("key_prefix", prefix),
	)

	return &Client{client: rdb, logger: logger, prefix: prefix}, nil
}

// Client returns the underlying redis.Client.
func (c *Client) Client() *redis.Client {
	return c.client
}

// HealthCheck pings Redis for the readiness probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Key namespaces a key with the configured prefix.
func (c *Client) Key(parts ...string) string {
	key := c.prefix
	for _, part := range parts {
		if key == "" {
			key = part
			continue
		}
		key += ":" + part
	}
	return key
}

// RegisterPoolMetrics exposes the connection pool counters as gauges.
func (c *Client) RegisterPoolMetrics(reg prometheus.Registerer) error {
	stat := func(read func(*redis.PoolStats) uint32) func() float64 {
		return func() float64 { return float64(read(c.client.PoolStats())) }
	}

	gauges := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cad", Subsystem: "redis", Name: "pool_total_conns",
			Help: "Connections currently held by the pool.",
		}, stat(func(s *redis.PoolStats) uint32 { return s.TotalConns })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cad", Subsystem: "redis", Name: "pool_idle_conns",
			Help: "Idle connections in the pool.",
		}, stat(func(s *redis.PoolStats) uint32 { return s.IdleConns })),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cad", Subsystem: "redis", Name: "pool_timeouts",
			Help: "Times a caller waited too long for a pooled connection.",
		}, stat(func(s *redis.PoolStats) uint32 { return s.Timeouts })),
	}

	for _, g := range gauges {
		if err := reg.Register(g); err != nil {
			return fmt.Errorf("register redis pool metrics: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	c.logger.Info("Closing Redis connection")
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}
