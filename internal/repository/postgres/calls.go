package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

var callColumns = []string{
	"id",
	"user_id",
	"location",
	"postal",
	"name",
	"description",
	"situation_code_id",
	"ended",
	"created_at",
	"updated_at",
}

// CallRepository implements port.CallRepository using PostgreSQL. Assigned
// units, departments and divisions live in relation tables and are loaded
// through RelationRepository.
type CallRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewCallRepository(exec pgExecutor) *CallRepository {
	return &CallRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CallRepository) Create(ctx context.Context, call domain.Call911) error {
	stmt, args, err := r.builder.Insert("cad.calls911").
		Columns(callColumns...).
		Values(
			call.ID,
			optionalString(call.UserID),
			call.Location,
			optionalString(call.Postal),
			call.Name,
			optionalString(call.Description),
			optionalString(call.SituationCode),
			call.Ended,
			call.CreatedAt,
			call.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert call sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeErr(err, "insert call")
	}
	return nil
}

func (r *CallRepository) GetByID(ctx context.Context, id string) (*domain.Call911, error) {
	stmt, args, err := r.builder.Select(callColumns...).
		From("cad.calls911").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select call sql: %w", err)
	}

	call, err := scanCall(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan call")
	}
	return call, nil
}

func (r *CallRepository) Update(ctx context.Context, call domain.Call911) error {
	stmt, args, err := r.builder.Update("cad.calls911").
		Set("location", call.Location).
		Set("postal", optionalString(call.Postal)).
		Set("name", call.Name).
		Set("description", optionalString(call.Description)).
		Set("situation_code_id", optionalString(call.SituationCode)).
		Set("ended", call.Ended).
		Set("updated_at", call.UpdatedAt).
		Where(squirrel.Eq{"id": call.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update call sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update call")
}

func (r *CallRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.calls911").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete call sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete call")
}

// List returns calls newest first.
func (r *CallRepository) List(ctx context.Context, filter port.CallFilter) ([]domain.Call911, error) {
	query := r.builder.Select(callColumns...).
		From("cad.calls911").
		OrderBy("created_at DESC")
	if filter.ActiveOnly {
		query = query.Where(squirrel.Eq{"ended": false})
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list calls sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	calls := make([]domain.Call911, 0)
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		calls = append(calls, *call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}
	return calls, nil
}

func scanCall(row pgx.Row) (*domain.Call911, error) {
	var (
		call        domain.Call911
		userID      sql.NullString
		postal      sql.NullString
		description sql.NullString
		situation   sql.NullString
	)
	if err := row.Scan(
		&call.ID,
		&userID,
		&call.Location,
		&postal,
		&call.Name,
		&description,
		&situation,
		&call.Ended,
		&call.CreatedAt,
		&call.UpdatedAt,
	); err != nil {
		return nil, err
	}

	call.UserID = nullableStringPtr(userID)
	call.Postal = nullableStringPtr(postal)
	call.Description = nullableStringPtr(description)
	call.SituationCode = nullableStringPtr(situation)
	return &call, nil
}

var _ port.CallRepository = (*CallRepository)(nil)
