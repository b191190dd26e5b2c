package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/config"
)

// NewPostgresPool opens the pool used by the postgres repositories. Every
// connection resolves unqualified names against the cad schema first.
func NewPostgresPool(ctx context.Context, cfg *config.AppConfig, log *zap.Logger) (*pgxpool.Pool, error) {
	pc, err := pgxpool.ParseConfig(cfg.PostgresDSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	applyPoolSettings(pc, cfg.Postgres)

	pc.ConnConfig.RuntimeParams["search_path"] = "cad,public"
	pc.ConnConfig.RuntimeParams["application_name"] = cfg.App.Name
	if cfg.Postgres.SlowQuery > 0 {
		pc.ConnConfig.Tracer = &slowQueryTracer{log: log, threshold: cfg.Postgres.SlowQuery, now: time.Now}
	}

	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	log.Info("postgres pool ready",
		zap.String("host", cfg.Postgres.Host),
		zap.String("database", cfg.Postgres.Database),
		zap.Int32("max_conns", pc.MaxConns))
	return pool, nil
}

// applyPoolSettings overrides pgx defaults with every positive setting.
func applyPoolSettings(pc *pgxpool.Config, s config.PostgresSettings) {
	if s.MaxConns > 0 {
		pc.MaxConns = s.MaxConns
	}
	if s.MinConns > 0 {
		pc.MinConns = s.MinConns
	}
	if s.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = s.MaxConnLifetime
	}
	if s.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = s.MaxConnIdleTime
	}
	if s.HealthCheckPeriod > 0 {
		pc.HealthCheckPeriod = s.HealthCheckPeriod
	}
}

type queryStartKey struct{}

type queryStart struct {
	sql string
	at  time.Time
}

// slowQueryTracer warns about statements slower than threshold.
type slowQueryTracer struct {
	log       *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

func (t *slowQueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryStartKey{}, queryStart{sql: data.SQL, at: t.now()})
}

func (t *slowQueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	start, ok := ctx.Value(queryStartKey{}).(queryStart)
	if !ok {
		return
	}
	elapsed := t.now().Sub(start.at)
	if elapsed < t.threshold {
		return
	}
	fields := []zap.Field{
		zap.Duration("elapsed", elapsed),
		zap.String("sql", start.sql),
		zap.String("tag", data.CommandTag.String()),
	}
	if data.Err != nil {
		fields = append(fields, zap.Error(data.Err))
	}
	t.log.Warn("slow postgres query", fields...)
}
