package port

import (
	"context"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// Store groups the repositories backing the CAD. WithinTx runs fn against a
// store bound to a single transaction: either every change made through it
// commits, or none does. Calling WithinTx on a transaction-bound store reuses
// the outer transaction.
type Store interface {
	Cad() CadRepository
	Citizens() CitizenRepository
	Vehicles() VehicleRepository
	Impounds() ImpoundRepository
	Officers() OfficerRepository
	Deputies() DeputyRepository
	CombinedUnits() CombinedUnitRepository
	StatusValues() StatusValueRepository
	Calls() CallRepository
	Bleets() BleetRepository
	Dispatchers() DispatcherRepository
	Relations() RelationStore
	Stats() StatsRepository

	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}

// RelationStore reads and rewrites many-to-many relation sets.
type RelationStore interface {
	ListRelated(ctx context.Context, relation domain.Relation, ownerID string) ([]string, error)
	ApplyRelationOps(ctx context.Context, relation domain.Relation, ownerID string, ops []domain.RelationOp) error
}
