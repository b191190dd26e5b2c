package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/repository"
)

const uniqueViolation = "23505"

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Database is satisfied by *pgxpool.Pool.
type Database interface {
	pgExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements port.Store backed by PostgreSQL.
type Store struct {
	db      Database
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	inTx    bool
}

// NewStore constructs a store over a pool.
func NewStore(db Database) *Store {
	return &Store{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a store whose repositories execute statements within the supplied transaction.
func (s *Store) WithTx(tx pgx.Tx) *Store {
	if tx == nil {
		return s
	}
	return &Store{db: s.db, exec: tx, builder: s.builder, inTx: true}
}

// WithinTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	return pgx.BeginFunc(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

func (s *Store) Cad() port.CadRepository { return NewCadRepository(s.exec) }

func (s *Store) Citizens() port.CitizenRepository { return NewCitizenRepository(s.exec) }

func (s *Store) Vehicles() port.VehicleRepository { return NewVehicleRepository(s.exec) }

func (s *Store) Impounds() port.ImpoundRepository { return NewImpoundRepository(s.exec) }

func (s *Store) Officers() port.OfficerRepository { return NewOfficerRepository(s.exec) }

func (s *Store) Deputies() port.DeputyRepository { return NewDeputyRepository(s.exec) }

func (s *Store) CombinedUnits() port.CombinedUnitRepository {
	return NewCombinedUnitRepository(s.exec)
}

func (s *Store) StatusValues() port.StatusValueRepository { return NewStatusValueRepository(s.exec) }

func (s *Store) Calls() port.CallRepository { return NewCallRepository(s.exec) }

func (s *Store) Bleets() port.BleetRepository { return NewBleetRepository(s.exec) }

func (s *Store) Dispatchers() port.DispatcherRepository { return NewDispatcherRepository(s.exec) }

func (s *Store) Relations() port.RelationStore { return NewRelationRepository(s.exec) }

func (s *Store) Stats() port.StatsRepository { return NewStatsRepository(s.exec) }

// execAffected runs a statement that must touch at least one row.
func execAffected(ctx context.Context, exec pgExecutor, stmt string, args []any, action string) error {
	tag, err := exec.Exec(ctx, stmt, args...)
	if err != nil {
		return writeErr(err, action)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// writeErr maps unique violations to repository.ErrDuplicate.
func writeErr(err error, action string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", action, repository.ErrDuplicate)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// scanErr maps missing rows to repository.ErrNotFound.
func scanErr(err error, action string) error {
	if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%s: %w", action, err)
}

func count(ctx context.Context, exec pgExecutor, query squirrel.SelectBuilder, action string) (int, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build %s sql: %w", action, err)
	}
	var n int
	if err := exec.QueryRow(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", action, err)
	}
	return n, nil
}

func optionalString(value *string) any {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return trimmed
}

func optionalInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func optionalTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return (*value).UTC()
}

func nullableStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := strings.TrimSpace(value.String)
	if v == "" {
		return nil
	}
	return &v
}

func nullableIntPtr(value sql.NullInt32) *int {
	if !value.Valid {
		return nil
	}
	v := int(value.Int32)
	return &v
}

func nullableTimePtr(value sql.NullTime) *time.Time {
	if !value.Valid {
		return nil
	}
	t := value.Time.UTC()
	return &t
}

var _ port.Store = (*Store)(nil)
