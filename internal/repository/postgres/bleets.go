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

var bleetColumns = []string{"id", "user_id", "title", "body", "image_id", "created_at", "updated_at"}

// BleetRepository implements port.BleetRepository using PostgreSQL.
type BleetRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewBleetRepository(exec pgExecutor) *BleetRepository {
	return &BleetRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *BleetRepository) Create(ctx context.Context, bleet domain.Bleet) error {
	stmt, args, err := r.builder.Insert("cad.bleets").
		Columns(bleetColumns...).
		Values(bleet.ID, bleet.UserID, bleet.Title, bleet.Body, optionalString(bleet.ImageID), bleet.CreatedAt, bleet.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert bleet sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeErr(err, "insert bleet")
	}
	return nil
}

func (r *BleetRepository) GetByID(ctx context.Context, id string) (*domain.Bleet, error) {
	stmt, args, err := r.builder.Select(bleetColumns...).
		From("cad.bleets").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select bleet sql: %w", err)
	}

	bleet, err := scanBleet(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan bleet")
	}
	return bleet, nil
}

func (r *BleetRepository) Update(ctx context.Context, bleet domain.Bleet) error {
	stmt, args, err := r.builder.Update("cad.bleets").
		Set("title", bleet.Title).
		Set("body", bleet.Body).
		Set("image_id", optionalString(bleet.ImageID)).
		Set("updated_at", bleet.UpdatedAt).
		Where(squirrel.Eq{"id": bleet.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update bleet sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update bleet")
}

func (r *BleetRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.bleets").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete bleet sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete bleet")
}

func (r *BleetRepository) List(ctx context.Context) ([]domain.Bleet, error) {
	stmt, args, err := r.builder.Select(bleetColumns...).
		From("cad.bleets").
		OrderBy("created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list bleets sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query bleets: %w", err)
	}
	defer rows.Close()

	bleets := make([]domain.Bleet, 0)
	for rows.Next() {
		bleet, err := scanBleet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bleet: %w", err)
		}
		bleets = append(bleets, *bleet)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bleets: %w", err)
	}
	return bleets, nil
}

func scanBleet(row pgx.Row) (*domain.Bleet, error) {
	var (
		bleet domain.Bleet
		image sql.NullString
	)
	if err := row.Scan(&bleet.ID, &bleet.UserID, &bleet.Title, &bleet.Body, &image, &bleet.CreatedAt, &bleet.UpdatedAt); err != nil {
		return nil, err
	}
	bleet.ImageID = nullableStringPtr(image)
	return &bleet, nil
}

var _ port.BleetRepository = (*BleetRepository)(nil)
