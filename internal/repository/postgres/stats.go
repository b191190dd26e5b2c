package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// StatsRepository implements port.StatsRepository with one aggregate query.
type StatsRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

func NewStatsRepository(exec pgExecutor) *StatsRepository {
	return &StatsRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *StatsRepository) AdminStats(ctx context.Context) (domain.AdminStats, error) {
	stmt, args, err := r.builder.Select(
		"(SELECT count(*) FROM cad.users WHERE whitelist_status = 'ACCEPTED' AND NOT banned)",
		"(SELECT count(*) FROM cad.users WHERE whitelist_status = 'PENDING' AND NOT banned)",
		"(SELECT count(*) FROM cad.users WHERE banned)",
		"(SELECT count(*) FROM cad.citizens)",
		"(SELECT count(*) FROM cad.citizens WHERE dead)",
		"(SELECT count(*) FROM cad.bolos WHERE type = 'PERSON')",
		"(SELECT count(*) FROM cad.registered_vehicles)",
		"(SELECT count(*) FROM cad.impounded_vehicles)",
		"(SELECT count(*) FROM cad.bolos WHERE type = 'VEHICLE')",
	).ToSql()
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("build admin stats sql: %w", err)
	}

	var stats domain.AdminStats
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&stats.ActiveUsers,
		&stats.PendingUsers,
		&stats.BannedUsers,
		&stats.CreatedCitizens,
		&stats.DeadCitizens,
		&stats.CitizensInBolo,
		&stats.Vehicles,
		&stats.ImpoundedVehicles,
		&stats.VehiclesInBolo,
	); err != nil {
		return domain.AdminStats{}, fmt.Errorf("scan admin stats: %w", err)
	}
	return stats, nil
}

var _ port.StatsRepository = (*StatsRepository)(nil)
