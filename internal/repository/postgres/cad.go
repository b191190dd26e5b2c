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

// CadRepository implements port.CadRepository using PostgreSQL.
type CadRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewCadRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewCadRepository(exec pgExecutor) *CadRepository {
	return &CadRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *CadRepository) WithTx(tx pgx.Tx) *CadRepository {
	if tx == nil {
		return r
	}
	return &CadRepository{exec: tx, builder: r.builder}
}

// Get loads the community record together with its settings and feature toggles.
func (r *CadRepository) Get(ctx context.Context) (*domain.Cad, error) {
	stmt, args, err := r.builder.
		Select(
			"c.id",
			"c.name",
			"c.area_of_play",
			"c.updated_at",
			"m.id",
			"m.max_officers_per_user",
			"m.max_departments_each_per_user",
			"m.max_divisions_per_officer",
			"m.max_citizens_per_user",
			"m.signal100_enabled",
		).
		From("cad.cads AS c").
		Join("cad.misc_cad_settings AS m ON m.id = c.misc_cad_settings_id").
		OrderBy("c.created_at").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select cad sql: %w", err)
	}

	var (
		cad        domain.Cad
		areaOfPlay sql.NullString
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&cad.ID,
		&cad.Name,
		&areaOfPlay,
		&cad.UpdatedAt,
		&cad.MiscCadSettings.ID,
		&cad.MiscCadSettings.MaxOfficersPerUser,
		&cad.MiscCadSettings.MaxDepartmentsEachPerUser,
		&cad.MiscCadSettings.MaxDivisionsPerOfficer,
		&cad.MiscCadSettings.MaxCitizensPerUser,
		&cad.MiscCadSettings.Signal100Enabled,
	); err != nil {
		return nil, scanErr(err, "scan cad")
	}
	cad.AreaOfPlay = nullableStringPtr(areaOfPlay)

	features, err := r.features(ctx, cad.ID)
	if err != nil {
		return nil, err
	}
	cad.Features = features

	return &cad, nil
}

func (r *CadRepository) features(ctx context.Context, cadID string) ([]domain.CadFeature, error) {
	stmt, args, err := r.builder.
		Select("feature", "is_enabled").
		From("cad.cad_features").
		Where(squirrel.Eq{"cad_id": cadID}).
		OrderBy("feature").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select cad features sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query cad features: %w", err)
	}
	defer rows.Close()

	features := make([]domain.CadFeature, 0)
	for rows.Next() {
		var (
			feature domain.CadFeature
			name    string
		)
		if err := rows.Scan(&name, &feature.IsEnabled); err != nil {
			return nil, fmt.Errorf("scan cad feature: %w", err)
		}
		feature.Feature = domain.Feature(name)
		features = append(features, feature)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cad features: %w", err)
	}
	return features, nil
}

func (r *CadRepository) UpdateAreaOfPlay(ctx context.Context, cadID string, aop *string) error {
	stmt, args, err := r.builder.Update("cad.cads").
		Set("area_of_play", optionalString(aop)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": cadID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update area of play sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update area of play")
}

func (r *CadRepository) UpdateSignal100(ctx context.Context, settingsID string, enabled bool) error {
	stmt, args, err := r.builder.Update("cad.misc_cad_settings").
		Set("signal100_enabled", enabled).
		Where(squirrel.Eq{"id": settingsID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update signal 100 sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update signal 100")
}

var _ port.CadRepository = (*CadRepository)(nil)
