package postgres

import (
	"context"
	"database/sql"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

var citizenColumns = []string{
	"id",
	"user_id",
	"name",
	"surname",
	"date_of_birth",
	"dead",
	"drivers_license_id",
	"pilot_license_id",
	"weapon_license_id",
	"water_license_id",
	"created_at",
	"updated_at",
}

// CitizenRepository implements port.CitizenRepository using PostgreSQL.
type CitizenRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewCitizenRepository(exec pgExecutor) *CitizenRepository {
	return &CitizenRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CitizenRepository) GetByID(ctx context.Context, id string) (*domain.Citizen, error) {
	return r.get(ctx, squirrel.Eq{"id": id})
}

// GetOwned returns the citizen only when it belongs to userID.
func (r *CitizenRepository) GetOwned(ctx context.Context, id, userID string) (*domain.Citizen, error) {
	return r.get(ctx, squirrel.Eq{"id": id, "user_id": userID})
}

func (r *CitizenRepository) get(ctx context.Context, where squirrel.Eq) (*domain.Citizen, error) {
	stmt, args, err := r.builder.Select(citizenColumns...).
		From("cad.citizens").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select citizen sql: %w", err)
	}

	var (
		citizen               domain.Citizen
		dob                   sql.NullTime
		drivers, pilot, water sql.NullString
		weapon                sql.NullString
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&citizen.ID,
		&citizen.UserID,
		&citizen.Name,
		&citizen.Surname,
		&dob,
		&citizen.Dead,
		&drivers,
		&pilot,
		&weapon,
		&water,
		&citizen.CreatedAt,
		&citizen.UpdatedAt,
	); err != nil {
		return nil, scanErr(err, "scan citizen")
	}

	citizen.DateOfBirth = nullableTimePtr(dob)
	citizen.DriversLicenseID = nullableStringPtr(drivers)
	citizen.PilotLicenseID = nullableStringPtr(pilot)
	citizen.WeaponLicenseID = nullableStringPtr(weapon)
	citizen.WaterLicenseID = nullableStringPtr(water)
	return &citizen, nil
}

func (r *CitizenRepository) UpdateLicenses(ctx context.Context, id string, licenses domain.CitizenLicenses) error {
	stmt, args, err := r.builder.Update("cad.citizens").
		Set("drivers_license_id", optionalString(licenses.DriversLicenseID)).
		Set("pilot_license_id", optionalString(licenses.PilotLicenseID)).
		Set("weapon_license_id", optionalString(licenses.WeaponLicenseID)).
		Set("water_license_id", optionalString(licenses.WaterLicenseID)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update citizen licenses sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update citizen licenses")
}

func (r *CitizenRepository) Count(ctx context.Context, filter port.CitizenFilter) (int, error) {
	query := r.builder.Select("count(*)").From("cad.citizens")
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.Dead != nil {
		query = query.Where(squirrel.Eq{"dead": *filter.Dead})
	}
	return count(ctx, r.exec, query, "count citizens")
}

var _ port.CitizenRepository = (*CitizenRepository)(nil)
