package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

var dispatcherColumns = []string{"d.id", "d.user_id", "coalesce(u.username, '')", "d.created_at"}

// DispatcherRepository implements port.DispatcherRepository using PostgreSQL.
type DispatcherRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewDispatcherRepository(exec pgExecutor) *DispatcherRepository {
	return &DispatcherRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DispatcherRepository) selectDispatchers() squirrel.SelectBuilder {
	return r.builder.Select(dispatcherColumns...).
		From("cad.active_dispatchers AS d").
		LeftJoin("cad.users AS u ON u.id = d.user_id")
}

func (r *DispatcherRepository) GetByUser(ctx context.Context, userID string) (*domain.ActiveDispatcher, error) {
	stmt, args, err := r.selectDispatchers().
		Where(squirrel.Eq{"d.user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select dispatcher sql: %w", err)
	}

	dispatcher, err := scanDispatcher(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan dispatcher")
	}
	return dispatcher, nil
}

func (r *DispatcherRepository) Create(ctx context.Context, dispatcher domain.ActiveDispatcher) error {
	stmt, args, err := r.builder.Insert("cad.active_dispatchers").
		Columns("id", "user_id", "created_at").
		Values(dispatcher.ID, dispatcher.UserID, dispatcher.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert dispatcher sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeErr(err, "insert dispatcher")
	}
	return nil
}

func (r *DispatcherRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.active_dispatchers").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete dispatcher sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete dispatcher")
}

func (r *DispatcherRepository) List(ctx context.Context) ([]domain.ActiveDispatcher, error) {
	stmt, args, err := r.selectDispatchers().OrderBy("d.user_id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list dispatchers sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatchers: %w", err)
	}
	defer rows.Close()

	dispatchers := make([]domain.ActiveDispatcher, 0)
	for rows.Next() {
		dispatcher, err := scanDispatcher(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dispatcher: %w", err)
		}
		dispatchers = append(dispatchers, *dispatcher)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatchers: %w", err)
	}
	return dispatchers, nil
}

func scanDispatcher(row pgx.Row) (*domain.ActiveDispatcher, error) {
	var dispatcher domain.ActiveDispatcher
	if err := row.Scan(&dispatcher.ID, &dispatcher.UserID, &dispatcher.Username, &dispatcher.CreatedAt); err != nil {
		return nil, err
	}
	return &dispatcher, nil
}

var _ port.DispatcherRepository = (*DispatcherRepository)(nil)
