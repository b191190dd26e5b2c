package memory

import (
	"context"
	"sync"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// dataset is the full in-memory state. WithinTx snapshots it with clone and
// restores the snapshot when the transaction function fails.
type dataset struct {
	cad          *domain.Cad
	citizens     map[string]domain.Citizen
	vehicles     map[string]domain.RegisteredVehicle
	impounds     map[string]domain.ImpoundedVehicle
	officers     map[string]domain.Officer
	deputies     map[string]domain.EmsFdDeputy
	combined     map[string]domain.CombinedLeoUnit
	statusValues map[string]domain.StatusValue
	calls        map[string]domain.Call911
	bleets       map[string]domain.Bleet
	dispatchers  map[string]domain.ActiveDispatcher
	relations    map[domain.Relation]map[string]map[string]struct{}
	stats        domain.AdminStats
}

func newDataset() *dataset {
	return &dataset{
		citizens:     make(map[string]domain.Citizen),
		vehicles:     make(map[string]domain.RegisteredVehicle),
		impounds:     make(map[string]domain.ImpoundedVehicle),
		officers:     make(map[string]domain.Officer),
		deputies:     make(map[string]domain.EmsFdDeputy),
		combined:     make(map[string]domain.CombinedLeoUnit),
		statusValues: make(map[string]domain.StatusValue),
		calls:        make(map[string]domain.Call911),
		bleets:       make(map[string]domain.Bleet),
		dispatchers:  make(map[string]domain.ActiveDispatcher),
		relations:    make(map[domain.Relation]map[string]map[string]struct{}),
	}
}

func (d *dataset) clone() *dataset {
	out := &dataset{
		citizens:     cloneMap(d.citizens),
		vehicles:     cloneMap(d.vehicles),
		impounds:     cloneMap(d.impounds),
		officers:     cloneMap(d.officers),
		deputies:     cloneMap(d.deputies),
		combined:     cloneMap(d.combined),
		statusValues: cloneMap(d.statusValues),
		calls:        cloneMap(d.calls),
		bleets:       cloneMap(d.bleets),
		dispatchers:  cloneMap(d.dispatchers),
		relations:    make(map[domain.Relation]map[string]map[string]struct{}, len(d.relations)),
		stats:        d.stats,
	}
	if d.cad != nil {
		cad := *d.cad
		cad.Features = append([]domain.CadFeature(nil), d.cad.Features...)
		out.cad = &cad
	}
	for relation, owners := range d.relations {
		copied := make(map[string]map[string]struct{}, len(owners))
		for owner, members := range owners {
			copied[owner] = cloneMap(members)
		}
		out.relations[relation] = copied
	}
	return out
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type database struct {
	mu       sync.Mutex
	data     *dataset
	failures map[string]error
}

// Store is a port.Store kept in process memory. Transactions serialize on a
// single mutex and roll back by restoring a snapshot.
type Store struct {
	db   *database
	inTx bool
}

var _ port.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{db: &database{data: newDataset(), failures: make(map[string]error)}}
}

// FailOn makes the named operation (for example "vehicles.SetImpounded")
// return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err == nil {
		delete(s.db.failures, op)
		return
	}
	s.db.failures[op] = err
}

// WithinTx runs fn against a transaction-bound view. Any error restores the
// state that existed before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}

	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	snapshot := s.db.data.clone()
	if err := fn(ctx, &Store{db: s.db, inTx: true}); err != nil {
		s.db.data = snapshot
		return err
	}
	return nil
}

// do runs fn with the state locked, unless the store is already inside a transaction.
func (s *Store) do(op string, fn func(d *dataset) error) error {
	if !s.inTx {
		s.db.mu.Lock()
		defer s.db.mu.Unlock()
	}
	if err, ok := s.db.failures[op]; ok {
		return err
	}
	return fn(s.db.data)
}

func (s *Store) Cad() port.CadRepository                    { return cadRepo{s} }
func (s *Store) Citizens() port.CitizenRepository           { return citizenRepo{s} }
func (s *Store) Vehicles() port.VehicleRepository           { return vehicleRepo{s} }
func (s *Store) Impounds() port.ImpoundRepository           { return impoundRepo{s} }
func (s *Store) Officers() port.OfficerRepository           { return officerRepo{s} }
func (s *Store) Deputies() port.DeputyRepository            { return deputyRepo{s} }
func (s *Store) CombinedUnits() port.CombinedUnitRepository { return combinedRepo{s} }
func (s *Store) StatusValues() port.StatusValueRepository   { return statusRepo{s} }
func (s *Store) Calls() port.CallRepository                 { return callRepo{s} }
func (s *Store) Bleets() port.BleetRepository               { return bleetRepo{s} }
func (s *Store) Dispatchers() port.DispatcherRepository     { return dispatcherRepo{s} }
func (s *Store) Relations() port.RelationStore              { return relationRepo{s} }
func (s *Store) Stats() port.StatsRepository                { return statsRepo{s} }
