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

var vehicleColumns = []string{
	"v.id",
	"v.user_id",
	"v.citizen_id",
	"v.plate",
	"v.vin_number",
	"v.model_id",
	"v.color",
	"v.registration_status_id",
	"v.insurance_status_id",
	"v.tax_status",
	"v.inspection_status",
	"v.impounded",
	"v.created_at",
	"v.updated_at",
}

// VehicleRepository implements port.VehicleRepository using PostgreSQL.
type VehicleRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewVehicleRepository(exec pgExecutor) *VehicleRepository {
	return &VehicleRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a vehicle. A taken plate yields repository.ErrDuplicate.
func (r *VehicleRepository) Create(ctx context.Context, vehicle domain.RegisteredVehicle) error {
	stmt, args, err := r.builder.Insert("cad.registered_vehicles").
		Columns(
			"id",
			"user_id",
			"citizen_id",
			"plate",
			"vin_number",
			"model_id",
			"color",
			"registration_status_id",
			"insurance_status_id",
			"tax_status",
			"inspection_status",
			"impounded",
			"created_at",
			"updated_at",
		).
		Values(
			vehicle.ID,
			vehicle.UserID,
			vehicle.CitizenID,
			vehicle.Plate,
			vehicle.VinNumber,
			vehicle.ModelID,
			vehicle.Color,
			vehicle.RegistrationStatusID,
			optionalString(vehicle.InsuranceStatusID),
			taxStatusValue(vehicle.TaxStatus),
			inspectionStatusValue(vehicle.InspectionStatus),
			vehicle.Impounded,
			vehicle.CreatedAt,
			vehicle.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert vehicle sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return writeErr(err, "insert vehicle")
	}
	return nil
}

func (r *VehicleRepository) GetByID(ctx context.Context, id string) (*domain.RegisteredVehicle, error) {
	return r.getOne(ctx, squirrel.Eq{"v.id": id})
}

// GetByPlate matches plates case-insensitively.
func (r *VehicleRepository) GetByPlate(ctx context.Context, plate string) (*domain.RegisteredVehicle, error) {
	return r.getOne(ctx, squirrel.Expr("upper(v.plate) = upper(?)", plate))
}

func (r *VehicleRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*domain.RegisteredVehicle, error) {
	stmt, args, err := r.builder.Select(vehicleColumns...).
		From("cad.registered_vehicles AS v").
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select vehicle sql: %w", err)
	}

	vehicle, err := scanVehicle(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan vehicle")
	}
	return vehicle, nil
}

func (r *VehicleRepository) Update(ctx context.Context, vehicle domain.RegisteredVehicle) error {
	stmt, args, err := r.builder.Update("cad.registered_vehicles").
		Set("citizen_id", vehicle.CitizenID).
		Set("plate", vehicle.Plate).
		Set("model_id", vehicle.ModelID).
		Set("color", vehicle.Color).
		Set("registration_status_id", vehicle.RegistrationStatusID).
		Set("insurance_status_id", optionalString(vehicle.InsuranceStatusID)).
		Set("vin_number", vehicle.VinNumber).
		Set("updated_at", vehicle.UpdatedAt).
		Where(squirrel.Eq{"id": vehicle.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update vehicle sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update vehicle")
}

func (r *VehicleRepository) UpdateLicenses(ctx context.Context, id string, licenses domain.VehicleLicenses) error {
	stmt, args, err := r.builder.Update("cad.registered_vehicles").
		Set("registration_status_id", licenses.RegistrationStatusID).
		Set("insurance_status_id", optionalString(licenses.InsuranceStatusID)).
		Set("tax_status", taxStatusValue(licenses.TaxStatus)).
		Set("inspection_status", inspectionStatusValue(licenses.InspectionStatus)).
		Set("updated_at", squirrel.Expr("now()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update vehicle licenses sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update vehicle licenses")
}

func (r *VehicleRepository) SetImpounded(ctx context.Context, id string, impounded bool) error {
	stmt, args, err := r.builder.Update("cad.registered_vehicles").
		Set("impounded", impounded).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update vehicle impounded sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "update vehicle impounded")
}

func (r *VehicleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.registered_vehicles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete vehicle sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete vehicle")
}

func (r *VehicleRepository) List(ctx context.Context, filter port.VehicleFilter) ([]domain.RegisteredVehicle, error) {
	query := r.builder.Select(vehicleColumns...).
		From("cad.registered_vehicles AS v").
		OrderBy("v.created_at")
	query = applyVehicleFilter(query, filter)

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list vehicles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]domain.RegisteredVehicle, 0)
	for rows.Next() {
		vehicle, err := scanVehicle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, *vehicle)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *VehicleRepository) Count(ctx context.Context, filter port.VehicleFilter) (int, error) {
	query := applyVehicleFilter(r.builder.Select("count(*)").From("cad.registered_vehicles AS v"), filter)
	return count(ctx, r.exec, query, "count vehicles")
}

func applyVehicleFilter(query squirrel.SelectBuilder, filter port.VehicleFilter) squirrel.SelectBuilder {
	if filter.UserID != "" {
		query = query.Where(squirrel.Eq{"v.user_id": filter.UserID})
	}
	if filter.Impounded != nil {
		query = query.Where(squirrel.Eq{"v.impounded": *filter.Impounded})
	}
	return query
}

type vehicleScan struct {
	vehicle    domain.RegisteredVehicle
	insurance  sql.NullString
	tax        sql.NullString
	inspection sql.NullString
}

func (s *vehicleScan) targets() []any {
	return []any{
		&s.vehicle.ID,
		&s.vehicle.UserID,
		&s.vehicle.CitizenID,
		&s.vehicle.Plate,
		&s.vehicle.VinNumber,
		&s.vehicle.ModelID,
		&s.vehicle.Color,
		&s.vehicle.RegistrationStatusID,
		&s.insurance,
		&s.tax,
		&s.inspection,
		&s.vehicle.Impounded,
		&s.vehicle.CreatedAt,
		&s.vehicle.UpdatedAt,
	}
}

func (s *vehicleScan) result() *domain.RegisteredVehicle {
	vehicle := s.vehicle
	vehicle.InsuranceStatusID = nullableStringPtr(s.insurance)
	if s.tax.Valid {
		status := domain.VehicleTaxStatus(s.tax.String)
		vehicle.TaxStatus = &status
	}
	if s.inspection.Valid {
		status := domain.VehicleInspectionStatus(s.inspection.String)
		vehicle.InspectionStatus = &status
	}
	return &vehicle
}

func scanVehicle(row pgx.Row) (*domain.RegisteredVehicle, error) {
	var scan vehicleScan
	if err := row.Scan(scan.targets()...); err != nil {
		return nil, err
	}
	return scan.result(), nil
}

func taxStatusValue(status *domain.VehicleTaxStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}

func inspectionStatusValue(status *domain.VehicleInspectionStatus) any {
	if status == nil {
		return nil
	}
	return string(*status)
}

// ImpoundRepository implements port.ImpoundRepository using PostgreSQL.
type ImpoundRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewImpoundRepository(exec pgExecutor) *ImpoundRepository {
	return &ImpoundRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ImpoundRepository) selectImpounds() squirrel.SelectBuilder {
	columns := append([]string{"i.id", "i.registered_vehicle_id", "i.location_id", "i.created_at"}, vehicleColumns...)
	return r.builder.Select(columns...).
		From("cad.impounded_vehicles AS i").
		Join("cad.registered_vehicles AS v ON v.id = i.registered_vehicle_id")
}

// List returns impound entries with their vehicles, oldest first.
func (r *ImpoundRepository) List(ctx context.Context) ([]domain.ImpoundedVehicle, error) {
	stmt, args, err := r.selectImpounds().OrderBy("i.created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list impounds sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query impounds: %w", err)
	}
	defer rows.Close()

	impounds := make([]domain.ImpoundedVehicle, 0)
	for rows.Next() {
		impound, err := scanImpound(rows)
		if err != nil {
			return nil, fmt.Errorf("scan impound: %w", err)
		}
		impounds = append(impounds, *impound)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impounds: %w", err)
	}
	return impounds, nil
}

func (r *ImpoundRepository) GetByID(ctx context.Context, id string) (*domain.ImpoundedVehicle, error) {
	stmt, args, err := r.selectImpounds().Where(squirrel.Eq{"i.id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select impound sql: %w", err)
	}

	impound, err := scanImpound(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, scanErr(err, "scan impound")
	}
	return impound, nil
}

func (r *ImpoundRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete("cad.impounded_vehicles").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete impound sql: %w", err)
	}
	return execAffected(ctx, r.exec, stmt, args, "delete impound")
}

func scanImpound(row pgx.Row) (*domain.ImpoundedVehicle, error) {
	var (
		impound domain.ImpoundedVehicle
		scan    vehicleScan
	)
	targets := append([]any{
		&impound.ID,
		&impound.RegisteredVehicleID,
		&impound.LocationID,
		&impound.CreatedAt,
	}, scan.targets()...)
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}
	impound.Vehicle = scan.result()
	return &impound, nil
}

var (
	_ port.VehicleRepository = (*VehicleRepository)(nil)
	_ port.ImpoundRepository = (*ImpoundRepository)(nil)
)
