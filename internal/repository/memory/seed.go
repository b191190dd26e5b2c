package memory

import "github.com/spiderlily190/cad/internal/core/domain"

// Seed helpers load records that have no create operation in the API:
// citizens, status codes, units owned by other services and the CAD record.

func (s *Store) SetCad(cad domain.Cad) {
	_ = s.do("seed", func(d *dataset) error {
		d.cad = &cad
		return nil
	})
}

func (s *Store) PutCitizen(c domain.Citizen) {
	_ = s.do("seed", func(d *dataset) error {
		d.citizens[c.ID] = c
		return nil
	})
}

func (s *Store) PutVehicle(v domain.RegisteredVehicle) {
	_ = s.do("seed", func(d *dataset) error {
		d.vehicles[v.ID] = v
		return nil
	})
}

func (s *Store) PutImpound(i domain.ImpoundedVehicle) {
	_ = s.do("seed", func(d *dataset) error {
		i.Vehicle = nil
		d.impounds[i.ID] = i
		return nil
	})
}

func (s *Store) PutOfficer(o domain.Officer) {
	_ = s.do("seed", func(d *dataset) error {
		d.officers[o.ID] = o
		return nil
	})
}

func (s *Store) PutDeputy(dep domain.EmsFdDeputy) {
	_ = s.do("seed", func(d *dataset) error {
		d.deputies[dep.ID] = dep
		return nil
	})
}

func (s *Store) PutCombinedUnit(u domain.CombinedLeoUnit) {
	_ = s.do("seed", func(d *dataset) error {
		d.combined[u.ID] = u
		return nil
	})
}

func (s *Store) PutStatusValue(v domain.StatusValue) {
	_ = s.do("seed", func(d *dataset) error {
		d.statusValues[v.ID] = v
		return nil
	})
}

// SetUserStats records the user and bolo counters reported by AdminStats.
func (s *Store) SetUserStats(stats domain.AdminStats) {
	_ = s.do("seed", func(d *dataset) error {
		d.stats = stats
		return nil
	})
}
