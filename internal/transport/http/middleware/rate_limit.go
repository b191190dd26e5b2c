package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/port"
)

const rateLimitProblemType = "https://docs.snailycad.org/errors/rate-limit-exceeded"

// IdentifierFunc picks the bucket a request counts against. Returning false skips the rule.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a sliding-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces RateLimitRules against a shared port.RateLimitStore.
// A store failure lets the request through.
type RateLimiter struct {
	store    port.RateLimitStore
	logger   *zap.Logger
	now      func() time.Time
	rejected *prometheus.CounterVec
}

// ProblemDetails is the RFC 9457 body sent with a 429.
type ProblemDetails struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Detail     string `json:"detail"`
	Instance   string `json:"instance"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger, now: time.Now}
}

// WithClock allows injection of a custom clock (primarily for testing).
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	if now != nil {
		rl.now = now
	}
	return rl
}

// WithMetrics counts rejected requests per rule as cad_rate_limit_rejections_total.
func (rl *RateLimiter) WithMetrics(reg prometheus.Registerer) (*RateLimiter, error) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cad",
		Subsystem: "rate_limit",
		Name:      "rejections_total",
		Help:      "Requests rejected by a rate limit rule.",
	}, []string{"rule"})
	if err := reg.Register(counter); err != nil {
		return nil, fmt.Errorf("register rate limit metrics: %w", err)
	}
	rl.rejected = counter
	return rl, nil
}

// ClientIPIdentifier builds an IdentifierFunc using the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		return ip, ip != ""
	}
}

// ActorIdentifier scopes limits to the authenticated actor. It must run after
// Authenticator.RequireAuth.
func ActorIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		actor, ok := GetActor(c)
		if !ok || actor.UserID == "" {
			return "", false
		}
		return actor.UserID, true
	}
}

// MutationsOnly wraps an identifier so that safe methods are never limited.
func MutationsOnly(next IdentifierFunc) IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return "", false
		}
		return next(c)
	}
}

type verdict struct {
	limit     int
	remaining int
	reset     time.Time
	allowed   bool
}

// tighter reports whether v should own the X-RateLimit headers instead of other.
func (v verdict) tighter(other verdict) bool {
	if v.allowed != other.allowed {
		return !v.allowed
	}
	if v.remaining != other.remaining {
		return v.remaining < other.remaining
	}
	return v.reset.Before(other.reset)
}

// RateLimit returns a middleware applying every usable rule in order. The
// first rejecting rule answers 429; otherwise headers describe the tightest rule.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	active := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		active = append(active, rule)
	}

	return func(c *gin.Context) {
		if len(active) == 0 || rl.store == nil {
			c.Next()
			return
		}

		now := rl.now()
		var headline *verdict

		for _, rule := range active {
			identifier, ok := rule.Identifier(c)
			if !ok || identifier == "" {
				continue
			}

			window, err := rl.store.Hit(c.Request.Context(), rule.Name+":"+identifier, rule.Limit, rule.Window, now)
			if err != nil {
				rl.logger.Warn("rate limit check failed",
					zap.String("rule", rule.Name),
					zap.String("identifier", identifier),
					zap.Error(err))
				continue
			}

			v := verdict{
				limit:     rule.Limit,
				remaining: max(rule.Limit-window.Count, 0),
				reset:     window.Oldest.Add(rule.Window),
				allowed:   window.Allowed,
			}

			if !v.allowed {
				if rl.rejected != nil {
					rl.rejected.WithLabelValues(rule.Name).Inc()
				}
				rl.reject(c, v, now)
				return
			}
			if headline == nil || v.tighter(*headline) {
				headline = &v
			}
		}

		if headline != nil {
			setRateLimitHeaders(c, *headline)
		}
		c.Next()
	}
}

func setRateLimitHeaders(c *gin.Context, v verdict) {
	h := c.Writer.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(v.limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))
}

func (rl *RateLimiter) reject(c *gin.Context, v verdict, now time.Time) {
	wait := v.reset.Sub(now)
	seconds := max(int((wait+time.Second-1)/time.Second), 0)

	setRateLimitHeaders(c, v)
	c.Header("Retry-After", strconv.Itoa(seconds))

	instance := c.FullPath()
	if instance == "" {
		instance = c.Request.URL.Path
	}

	c.AbortWithStatusJSON(http.StatusTooManyRequests, ProblemDetails{
		Type:       rateLimitProblemType,
		Title:      "Rate Limit Exceeded",
		Status:     http.StatusTooManyRequests,
		Detail:     fmt.Sprintf("Too many requests. Try again in %d seconds.", seconds),
		Instance:   instance,
		RetryAfter: seconds,
		TraceID:    GetTraceID(c),
	})
}
