package usecase

import (
	"context"
	"fmt"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// AdminService exposes the admin dashboard counters.
type AdminService struct {
	stats port.StatsRepository
}

// NewAdminService constructs an AdminService.
func NewAdminService(stats port.StatsRepository) *AdminService {
	return &AdminService{stats: stats}
}

// Stats returns the dashboard counters.
func (s *AdminService) Stats(ctx context.Context, actor domain.Actor) (domain.AdminStats, error) {
	if err := CheckAccess(actor, ActionAdminStats); err != nil {
		return domain.AdminStats{}, err
	}

	stats, err := s.stats.AdminStats(ctx)
	if err != nil {
		return domain.AdminStats{}, fmt.Errorf("load admin stats: %w", err)
	}
	return stats, nil
}
