package logger

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base atomic.Pointer[zap.Logger]

// New builds the process logger: JSON in production, coloured console
// otherwise. level overrides the environment default when set. The result
// also backs WithContext.
func New(env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env != "production" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if level = strings.TrimSpace(level); level != "" {
		parsed, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		cfg.Level = parsed
	}

	lg, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	lg = lg.With(zap.String("env", env))

	base.Store(lg)
	return lg, nil
}

// SetBase replaces the logger used by WithContext.
func SetBase(lg *zap.Logger) {
	base.Store(lg)
}

// WithContext returns the base logger annotated with the request id, user id
// and OpenTelemetry trace carried by ctx.
func WithContext(ctx context.Context) *zap.Logger {
	lg := base.Load()
	if lg == nil {
		return zap.NewNop()
	}
	if ctx == nil {
		return lg
	}

	fields := make([]zap.Field, 0, 4)
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if user, ok := ctx.Value(UserIDKey{}).(string); ok && user != "" {
		fields = append(fields, zap.String("user_id", user))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("otel_trace_id", sc.TraceID().String()),
			zap.String("otel_span_id", sc.SpanID().String()),
		)
	}
	return lg.With(fields...)
}

// RequestIDFromContext returns the request id stored by the HTTP middleware.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	val, _ := ctx.Value(RequestIDKey{}).(string)
	return val
}

// RequestIDKey is used to store a request identifier on the context.
type RequestIDKey struct{}

// UserIDKey is used to store the authenticated user id on the context.
type UserIDKey struct{}

// MaskToken keeps the first and last two characters of a credential.
func MaskToken(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) <= 4:
		return "***"
	}
	return s[:2] + "***" + s[len(s)-2:]
}
