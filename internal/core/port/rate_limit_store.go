package port

import (
	"context"
	"time"
)

// RateWindow describes a sliding window right after a hit was considered.
type RateWindow struct {
	Allowed bool
	// Count includes the admitted hit.
	Count  int
	Oldest time.Time
}

// RateLimitStore admits or rejects hits against a sliding window atomically.
type RateLimitStore interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, at time.Time) (RateWindow, error)
}
