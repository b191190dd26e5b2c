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

var officerColumns = []string{
	"o.id",
	"o.user_id",
	"o.citizen_id",
	"o.department_id",
	"o.callsign",
	"o.callsign2",
	"o.badge_number",
	"o.status_id",
	"o.radio_channel_id",
	"o.image_id",
	"o.created_at",
	"o.updated_at",
}

// OfficerRepository implements port.OfficerRepository using PostgreSQL.
type OfficerRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewOfficerRepository(exec pgExecutor) *OfficerRepository {
	return &OfficerRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *OfficerRepository) Create(ctx context.Context, officer domain.Officer) error {
	stmt, args, err := r.builder.Insert("cad.officers").
		Columns(
			"id",
			"user_id",
			"citizen_id",
			"department_id",
			"callsign",
			"callsign2",
			"badge_number",
			"status_id",
			"radio_channel_id",
			"image_id",
			"created_at",
			"updated_at",
		).
		Values(
			officer.ID,
			officer.UserID,
			officer.CitizenID,
			officer.DepartmentID,
			officer.Callsign,
			officer.Callsign2,
			optionalInt(officer.BadgeNumber),
			optionalString(officer.StatusID),
			optionalString(officer.RadioChannelID),
			optionalString(officer.ImageID),
			officer.CreatedAt,
			officer.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert officer sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeErr(err, "insert officer")
	}
	return nil
}

func (r *OfficerRepository) GetByID(ctx context.Context, id string) (*domain.Officer, error) {
	return r.getOne(ctx, squirrel.Eq{"o.id": id})
}

// GetOwned returns the officer only when it belongs to userID.
func (r *OfficerRepository) GetOwned(ctx context.Context, id, userID string) (*domain.Officer, error) {
	return r.getOne(ctx, squirrel.Eq{"o.id": id, "o.user_id": userID})
}

func (r *OfficerRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.Officer, error) {
	stmt, args, err := r.builder.Select(officerColumns...).
		From("cad.officers AS o").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select officer sql: %w", err)
	}

	officer, err := scanOfficer(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan officer")
	}
	return officer, nil
}

func (r *OfficerRepository) ListByUser(ctx context.Context, userID string) ([]domain.Officer, error) {
	return r.list(ctx, r.builder.Select(officerColumns...).
		From("cad.officers AS o").
		Where(squirrel.Eq{"o.user_id": userID}).
		OrderBy("o.created_at"))
}

// ListActive returns officers with a status that is not an off-duty code.
func (r *OfficerRepository) ListActive(ctx context.Context) ([]domain.Officer, error) {
	return r.list(ctx, r.builder.Select(officerColumns...).
		From("cad.officers AS o").
		Join("cad.status_values AS s ON s.id = o.status_id").
		Where(squirrel.NotEq{"s.should_do": string(domain.ShouldDoSetOffDuty)}).
		OrderBy("o.callsign", "o.id"))
}

func (r *OfficerRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]domain.Officer, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list officers sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query officers: %w", err)
	}
	defer rows.Close()

	officers := make([]domain.Officer, 0)
	for rows.Next() {
		officer, err := scanOfficer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan officer: %w", err)
		}
		officers = append(officers, *officer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate officers: %w", err)
	}
	return officers, nil
}

func (r *OfficerRepository) Update(ctx context.Context, officer domain.Officer) error {
	stmt, args, err := r.builder.Update("cad.officers").
		Set("citizen_id", officer.CitizenID).
		Set("department_id", officer.DepartmentID).
		Set("callsign", officer.Callsign).
		Set("callsign2", officer.Callsign2).
		Set("badge_number", optionalInt(officer.BadgeNumber)).
		Set("image_id", optionalString(officer.ImageID)).
		Set("updated_at", officer.UpdatedAt).
		Where(squirrel.Eq{"id": officer.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update officer sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update officer")
}

func (r *OfficerRepository) UpdateStatus(ctx context.Context, id string, statusID *string) error {
	return r.setColumn(ctx, id, "status_id", statusID)
}

func (r *OfficerRepository) UpdateRadioChannel(ctx context.Context, id string, channelID *string) error {
	return r.setColumn(ctx, id, "radio_channel_id", channelID)
}

func (r *OfficerRepository) UpdateImage(ctx context.Context, id string, imageID *string) error {
	return r.setColumn(ctx, id, "image_id", imageID)
}

func (r *OfficerRepository) setColumn(ctx context.Context, id, column string, value *string) error {
	return setUnitColumn(ctx, r.exec, r.builder, "cad.officers", id, column, value)
}

func (r *OfficerRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.officers").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete officer sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete officer")
}

func (r *OfficerRepository) Count(ctx context.Context, filter port.OfficerCountFilter) (int, error) {
	query := r.builder.Select("count(*)").From("cad.officers")
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"user_id": filter.UserID})
	}
	if filter.DepartmentID != "" {
		query = query.Where(squirrel.Eq{"department_id": filter.DepartmentID})
	}
	if filter.ExcludeID != "" {
		query = query.Where(squirrel.NotEq{"id": filter.ExcludeID})
	}
	return count(ctx, r.exec, query, "count officers")
}

func scanOfficer(row pgx.Row) (*domain.Officer, error) {
	var (
		officer domain.Officer
		badge   sql.NullInt32
		status  sql.NullString
		radio   sql.NullString
		image   sql.NullString
	)
	if err := row.Scan(
		&officer.ID,
		&officer.UserID,
		&officer.CitizenID,
		&officer.DepartmentID,
		&officer.Callsign,
		&officer.Callsign2,
		&badge,
		&status,
		&radio,
		&image,
		&officer.CreatedAt,
		&officer.UpdatedAt,
	); err != nil {
		return nil, err
	}

	officer.BadgeNumber = nullableIntPtr(badge)
	officer.StatusID = nullableStringPtr(status)
	officer.RadioChannelID = nullableStringPtr(radio)
	officer.ImageID = nullableStringPtr(image)
	return &officer, nil
}

func setUnitColumn(ctx context.Context, exec pgExecutor, builder squirrel.StatementBuilderType, table, id, column string, value *string) error {
	stmt, args, err := builder.Update(table).
		Set(column, optionalString(value)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update %s %s sql: %w", table, column, err)
	}
	return execAffected(ctx, exec, stmt, args, "update "+table+" "+column)
}

var deputyColumns = []string{
	"id",
	"user_id",
	"citizen_id",
	"department_id",
	"callsign",
	"callsign2",
	"status_id",
	"radio_channel_id",
	"created_at",
	"updated_at",
}

// DeputyRepository implements port.DeputyRepository using PostgreSQL.
type DeputyRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewDeputyRepository(exec pgExecutor) *DeputyRepository {
	return &DeputyRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *DeputyRepository) GetByID(ctx context.Context, id string) (*domain.EmsFdDeputy, error) {
	stmt, args, err := r.builder.Select(deputyColumns...).
		From("cad.ems_fd_deputies").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select deputy sql: %w", err)
	}

	deputy, err := scanDeputy(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan deputy")
	}
	return deputy, nil
}

func (r *DeputyRepository) List(ctx context.Context) ([]domain.EmsFdDeputy, error) {
	stmt, args, err := r.builder.Select(deputyColumns...).
		From("cad.ems_fd_deputies").
		OrderBy("callsign", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list deputies sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query deputies: %w", err)
	}
	defer rows.Close()

	deputies := make([]domain.EmsFdDeputy, 0)
	for rows.Next() {
		deputy, err := scanDeputy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deputy: %w", err)
		}
		deputies = append(deputies, *deputy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deputies: %w", err)
	}
	return deputies, nil
}

func (r *DeputyRepository) UpdateRadioChannel(ctx context.Context, id string, channelID *string) error {
	return setUnitColumn(ctx, r.exec, r.builder, "cad.ems_fd_deputies", id, "radio_channel_id", channelID)
}

func scanDeputy(row pgx.Row) (*domain.EmsFdDeputy, error) {
	var (
		deputy domain.EmsFdDeputy
		status sql.NullString
		radio  sql.NullString
	)
	if err := row.Scan(
		&deputy.ID,
		&deputy.UserID,
		&deputy.CitizenID,
		&deputy.DepartmentID,
		&deputy.Callsign,
		&deputy.Callsign2,
		&status,
		&radio,
		&deputy.CreatedAt,
		&deputy.UpdatedAt,
	); err != nil {
		return nil, err
	}

	deputy.StatusID = nullableStringPtr(status)
	deputy.RadioChannelID = nullableStringPtr(radio)
	return &deputy, nil
}

var combinedUnitColumns = []string{
	"u.id",
	"u.callsign",
	"u.status_id",
	"u.radio_channel_id",
	"u.created_at",
	"ARRAY(SELECT m.officer_id FROM cad.combined_leo_unit_officers AS m WHERE m.unit_id = u.id ORDER BY m.officer_id)",
}

// CombinedUnitRepository implements port.CombinedUnitRepository using PostgreSQL.
type CombinedUnitRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewCombinedUnitRepository(exec pgExecutor) *CombinedUnitRepository {
	return &CombinedUnitRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *CombinedUnitRepository) GetByID(ctx context.Context, id string) (*domain.CombinedLeoUnit, error) {
	stmt, args, err := r.builder.Select(combinedUnitColumns...).
		From("cad.combined_leo_units AS u").
		Where(squirrel.Eq{"u.id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select combined unit sql: %w", err)
	}

	unit, err := scanCombinedUnit(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan combined unit")
	}
	return unit, nil
}

func (r *CombinedUnitRepository) List(ctx context.Context) ([]domain.CombinedLeoUnit, error) {
	stmt, args, err := r.builder.Select(combinedUnitColumns...).
		From("cad.combined_leo_units AS u").
		OrderBy("u.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list combined units sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query combined units: %w", err)
	}
	defer rows.Close()

	units := make([]domain.CombinedLeoUnit, 0)
	for rows.Next() {
		unit, err := scanCombinedUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan combined unit: %w", err)
		}
		units = append(units, *unit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate combined units: %w", err)
	}
	return units, nil
}

func (r *CombinedUnitRepository) UpdateStatus(ctx context.Context, id string, statusID *string) error {
	return r.setColumn(ctx, id, "status_id", statusID)
}

func (r *CombinedUnitRepository) UpdateRadioChannel(ctx context.Context, id string, channelID *string) error {
	return r.setColumn(ctx, id, "radio_channel_id", channelID)
}

func (r *CombinedUnitRepository) setColumn(ctx context.Context, id, column string, value *string) error {
	stmt, args, err := r.builder.Update("cad.combined_leo_units").
		Set(column, optionalString(value)).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update combined unit %s sql: %w", column, err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update combined unit "+column)
}

func scanCombinedUnit(row pgx.Row) (*domain.CombinedLeoUnit, error) {
	var (
		unit   domain.CombinedLeoUnit
		status sql.NullString
		radio  sql.NullString
	)
	if err := row.Scan(
		&unit.ID,
		&unit.Callsign,
		&status,
		&radio,
		&unit.CreatedAt,
		&unit.OfficerIDs,
	); err != nil {
		return nil, err
	}

	unit.StatusID = nullableStringPtr(status)
	unit.RadioChannelID = nullableStringPtr(radio)
	return &unit, nil
}

// StatusValueRepository implements port.StatusValueRepository using PostgreSQL.
type StatusValueRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewStatusValueRepository(exec pgExecutor) *StatusValueRepository {
	return &StatusValueRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// FindByShouldDo returns the first status configured with the given behaviour.
func (r *StatusValueRepository) FindByShouldDo(ctx context.Context, shouldDo domain.ShouldDoType) (*domain.StatusValue, error) {
	stmt, args, err := r.builder.Select("id", "value", "should_do", "color").
		From("cad.status_values").
		Where(squirrel.Eq{"should_do": string(shouldDo)}).
		OrderBy("position", "id").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select status value sql: %w", err)
	}

	var (
		value       domain.StatusValue
		rowShouldDo string
		color       sql.NullString
	)
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&value.ID, &value.Value, &rowShouldDo, &color); err != nil {
		return nil, scanErr(err, "scan status value")
	}
	value.ShouldDo = domain.ShouldDoType(rowShouldDo)
	value.Color = nullableStringPtr(color)
	return &value, nil
}

var (
	_ port.OfficerRepository      = (*OfficerRepository)(nil)
	_ port.DeputyRepository       = (*DeputyRepository)(nil)
	_ port.CombinedUnitRepository = (*CombinedUnitRepository)(nil)
	_ port.StatusValueRepository  = (*StatusValueRepository)(nil)
)
