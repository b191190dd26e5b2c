package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/repository"
)

type cadRepo struct{ s *Store }

func (r cadRepo) Get(_ context.Context) (*domain.Cad, error) {
	var out *domain.Cad
	err := r.s.do("cad.Get", func(d *dataset) error {
		if d.cad == nil {
			return repository.ErrNotFound
		}
		cad := *d.cad
		cad.Features = append([]domain.CadFeature(nil), d.cad.Features...)
		out = &cad
		return nil
	})
	return out, err
}

func (r cadRepo) UpdateAreaOfPlay(_ context.Context, cadID string, aop *string) error {
	return r.s.do("cad.UpdateAreaOfPlay", func(d *dataset) error {
		if d.cad == nil || d.cad.ID != cadID {
			return repository.ErrNotFound
		}
		d.cad.AreaOfPlay = copyString(aop)
		return nil
	})
}

func (r cadRepo) UpdateSignal100(_ context.Context, settingsID string, enabled bool) error {
	return r.s.do("cad.UpdateSignal100", func(d *dataset) error {
		if d.cad == nil || d.cad.MiscCadSettings.ID != settingsID {
			return repository.ErrNotFound
		}
		d.cad.MiscCadSettings.Signal100Enabled = enabled
		return nil
	})
}

type citizenRepo struct{ s *Store }

func (r citizenRepo) GetByID(_ context.Context, id string) (*domain.Citizen, error) {
	var out *domain.Citizen
	err := r.s.do("citizens.GetByID", func(d *dataset) error {
		c, ok := d.citizens[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r citizenRepo) GetOwned(_ context.Context, id, userID string) (*domain.Citizen, error) {
	var out *domain.Citizen
	err := r.s.do("citizens.GetOwned", func(d *dataset) error {
		c, ok := d.citizens[id]
		if !ok || c.UserID != userID {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r citizenRepo) UpdateLicenses(_ context.Context, id string, licenses domain.CitizenLicenses) error {
	return r.s.do("citizens.UpdateLicenses", func(d *dataset) error {
		c, ok := d.citizens[id]
		if !ok {
			return repository.ErrNotFound
		}
		c.DriversLicenseID = licenses.DriversLicenseID
		c.PilotLicenseID = licenses.PilotLicenseID
		c.WeaponLicenseID = licenses.WeaponLicenseID
		c.WaterLicenseID = licenses.WaterLicenseID
		d.citizens[id] = c
		return nil
	})
}

func (r citizenRepo) Count(_ context.Context, filter port.CitizenFilter) (int, error) {
	count := 0
	err := r.s.do("citizens.Count", func(d *dataset) error {
		for _, c := range d.citizens {
			if filter.UserID != "" && c.UserID != filter.UserID {
				continue
			}
			if filter.Dead != nil && c.Dead != *filter.Dead {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

type vehicleRepo struct{ s *Store }

func (r vehicleRepo) Create(_ context.Context, v domain.RegisteredVehicle) error {
	return r.s.do("vehicles.Create", func(d *dataset) error {
		if plateTaken(d, v.Plate, v.ID) {
			return repository.ErrDuplicate
		}
		v.FlagIDs = nil
		d.vehicles[v.ID] = v
		return nil
	})
}

func (r vehicleRepo) GetByID(_ context.Context, id string) (*domain.RegisteredVehicle, error) {
	var out *domain.RegisteredVehicle
	err := r.s.do("vehicles.GetByID", func(d *dataset) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &v
		return nil
	})
	return out, err
}

func (r vehicleRepo) GetByPlate(_ context.Context, plate string) (*domain.RegisteredVehicle, error) {
	var out *domain.RegisteredVehicle
	err := r.s.do("vehicles.GetByPlate", func(d *dataset) error {
		for _, v := range d.vehicles {
			if strings.EqualFold(v.Plate, plate) {
				found := v
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r vehicleRepo) Update(_ context.Context, v domain.RegisteredVehicle) error {
	return r.s.do("vehicles.Update", func(d *dataset) error {
		if _, ok := d.vehicles[v.ID]; !ok {
			return repository.ErrNotFound
		}
		if plateTaken(d, v.Plate, v.ID) {
			return repository.ErrDuplicate
		}
		v.FlagIDs = nil
		d.vehicles[v.ID] = v
		return nil
	})
}

func (r vehicleRepo) UpdateLicenses(_ context.Context, id string, licenses domain.VehicleLicenses) error {
	return r.s.do("vehicles.UpdateLicenses", func(d *dataset) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		v.RegistrationStatusID = licenses.RegistrationStatusID
		v.InsuranceStatusID = licenses.InsuranceStatusID
		v.TaxStatus = licenses.TaxStatus
		v.InspectionStatus = licenses.InspectionStatus
		d.vehicles[id] = v
		return nil
	})
}

func (r vehicleRepo) SetImpounded(_ context.Context, id string, impounded bool) error {
	return r.s.do("vehicles.SetImpounded", func(d *dataset) error {
		v, ok := d.vehicles[id]
		if !ok {
			return repository.ErrNotFound
		}
		v.Impounded = impounded
		d.vehicles[id] = v
		return nil
	})
}

func (r vehicleRepo) Delete(_ context.Context, id string) error {
	return r.s.do("vehicles.Delete", func(d *dataset) error {
		if _, ok := d.vehicles[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.vehicles, id)
		return nil
	})
}

func (r vehicleRepo) List(_ context.Context, filter port.VehicleFilter) ([]domain.RegisteredVehicle, error) {
	var out []domain.RegisteredVehicle
	err := r.s.do("vehicles.List", func(d *dataset) error {
		for _, v := range d.vehicles {
			if matchVehicle(v, filter) {
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func (r vehicleRepo) Count(_ context.Context, filter port.VehicleFilter) (int, error) {
	count := 0
	err := r.s.do("vehicles.Count", func(d *dataset) error {
		for _, v := range d.vehicles {
			if matchVehicle(v, filter) {
				count++
			}
		}
		return nil
	})
	return count, err
}

func matchVehicle(v domain.RegisteredVehicle, filter port.VehicleFilter) bool {
	if filter.UserID != "" && v.UserID != filter.UserID {
		return false
	}
	if filter.Impounded != nil && v.Impounded != *filter.Impounded {
		return false
	}
	return true
}

func plateTaken(d *dataset, plate, exceptID string) bool {
	for id, v := range d.vehicles {
		if id != exceptID && strings.EqualFold(v.Plate, plate) {
			return true
		}
	}
	return false
}

type impoundRepo struct{ s *Store }

func (r impoundRepo) List(_ context.Context) ([]domain.ImpoundedVehicle, error) {
	var out []domain.ImpoundedVehicle
	err := r.s.do("impounds.List", func(d *dataset) error {
		for _, i := range d.impounds {
			out = append(out, withVehicle(d, i))
		}
		sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
		return nil
	})
	return out, err
}

func (r impoundRepo) GetByID(_ context.Context, id string) (*domain.ImpoundedVehicle, error) {
	var out *domain.ImpoundedVehicle
	err := r.s.do("impounds.GetByID", func(d *dataset) error {
		i, ok := d.impounds[id]
		if !ok {
			return repository.ErrNotFound
		}
		found := withVehicle(d, i)
		out = &found
		return nil
	})
	return out, err
}

func (r impoundRepo) Delete(_ context.Context, id string) error {
	return r.s.do("impounds.Delete", func(d *dataset) error {
		if _, ok := d.impounds[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.impounds, id)
		return nil
	})
}

func withVehicle(d *dataset, i domain.ImpoundedVehicle) domain.ImpoundedVehicle {
	if v, ok := d.vehicles[i.RegisteredVehicleID]; ok {
		i.Vehicle = &v
	}
	return i
}

type officerRepo struct{ s *Store }

func (r officerRepo) Create(_ context.Context, o domain.Officer) error {
	return r.s.do("officers.Create", func(d *dataset) error {
		o.DivisionIDs = nil
		d.officers[o.ID] = o
		return nil
	})
}

func (r officerRepo) GetByID(_ context.Context, id string) (*domain.Officer, error) {
	var out *domain.Officer
	err := r.s.do("officers.GetByID", func(d *dataset) error {
		o, ok := d.officers[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r officerRepo) GetOwned(_ context.Context, id, userID string) (*domain.Officer, error) {
	var out *domain.Officer
	err := r.s.do("officers.GetOwned", func(d *dataset) error {
		o, ok := d.officers[id]
		if !ok || o.UserID != userID {
			return repository.ErrNotFound
		}
		out = &o
		return nil
	})
	return out, err
}

func (r officerRepo) ListByUser(_ context.Context, userID string) ([]domain.Officer, error) {
	return r.list("officers.ListByUser", func(_ *dataset, o domain.Officer) bool {
		return o.UserID == userID
	})
}

func (r officerRepo) ListActive(_ context.Context) ([]domain.Officer, error) {
	return r.list("officers.ListActive", func(d *dataset, o domain.Officer) bool {
		if o.StatusID == nil {
			return false
		}
		status, ok := d.statusValues[*o.StatusID]
		return ok && status.ShouldDo != domain.ShouldDoSetOffDuty
	})
}

func (r officerRepo) list(op string, keep func(*dataset, domain.Officer) bool) ([]domain.Officer, error) {
	var out []domain.Officer
	err := r.s.do(op, func(d *dataset) error {
		for _, o := range d.officers {
			if keep(d, o) {
				out = append(out, o)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

func (r officerRepo) Update(_ context.Context, o domain.Officer) error {
	return r.s.do("officers.Update", func(d *dataset) error {
		if _, ok := d.officers[o.ID]; !ok {
			return repository.ErrNotFound
		}
		o.DivisionIDs = nil
		d.officers[o.ID] = o
		return nil
	})
}

func (r officerRepo) UpdateStatus(_ context.Context, id string, statusID *string) error {
	return r.mutate("officers.UpdateStatus", id, func(o *domain.Officer) { o.StatusID = copyString(statusID) })
}

func (r officerRepo) UpdateRadioChannel(_ context.Context, id string, channelID *string) error {
	return r.mutate("officers.UpdateRadioChannel", id, func(o *domain.Officer) { o.RadioChannelID = copyString(channelID) })
}

func (r officerRepo) UpdateImage(_ context.Context, id string, imageID *string) error {
	return r.mutate("officers.UpdateImage", id, func(o *domain.Officer) { o.ImageID = copyString(imageID) })
}

func (r officerRepo) mutate(op, id string, fn func(*domain.Officer)) error {
	return r.s.do(op, func(d *dataset) error {
		o, ok := d.officers[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&o)
		d.officers[id] = o
		return nil
	})
}

func (r officerRepo) Delete(_ context.Context, id string) error {
	return r.s.do("officers.Delete", func(d *dataset) error {
		if _, ok := d.officers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.officers, id)
		return nil
	})
}

func (r officerRepo) Count(_ context.Context, filter port.OfficerCountFilter) (int, error) {
	count := 0
	err := r.s.do("officers.Count", func(d *dataset) error {
		for _, o := range d.officers {
			if filter.UserID != "" && o.UserID != filter.UserID {
				continue
			}
			if filter.DepartmentID != "" && o.DepartmentID != filter.DepartmentID {
				continue
			}
			if filter.ExcludeID != "" && o.ID == filter.ExcludeID {
				continue
			}
			count++
		}
		return nil
	})
	return count, err
}

type deputyRepo struct{ s *Store }

func (r deputyRepo) GetByID(_ context.Context, id string) (*domain.EmsFdDeputy, error) {
	var out *domain.EmsFdDeputy
	err := r.s.do("deputies.GetByID", func(d *dataset) error {
		dep, ok := d.deputies[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &dep
		return nil
	})
	return out, err
}

func (r deputyRepo) List(_ context.Context) ([]domain.EmsFdDeputy, error) {
	var out []domain.EmsFdDeputy
	err := r.s.do("deputies.List", func(d *dataset) error {
		for _, dep := range d.deputies {
			out = append(out, dep)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r deputyRepo) UpdateRadioChannel(_ context.Context, id string, channelID *string) error {
	return r.s.do("deputies.UpdateRadioChannel", func(d *dataset) error {
		dep, ok := d.deputies[id]
		if !ok {
			return repository.ErrNotFound
		}
		dep.RadioChannelID = copyString(channelID)
		d.deputies[id] = dep
		return nil
	})
}

type combinedRepo struct{ s *Store }

func (r combinedRepo) GetByID(_ context.Context, id string) (*domain.CombinedLeoUnit, error) {
	var out *domain.CombinedLeoUnit
	err := r.s.do("combined.GetByID", func(d *dataset) error {
		u, ok := d.combined[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &u
		return nil
	})
	return out, err
}

func (r combinedRepo) List(_ context.Context) ([]domain.CombinedLeoUnit, error) {
	var out []domain.CombinedLeoUnit
	err := r.s.do("combined.List", func(d *dataset) error {
		for _, u := range d.combined {
			out = append(out, u)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r combinedRepo) UpdateStatus(_ context.Context, id string, statusID *string) error {
	return r.mutate("combined.UpdateStatus", id, func(u *domain.CombinedLeoUnit) { u.StatusID = copyString(statusID) })
}

func (r combinedRepo) UpdateRadioChannel(_ context.Context, id string, channelID *string) error {
	return r.mutate("combined.UpdateRadioChannel", id, func(u *domain.CombinedLeoUnit) { u.RadioChannelID = copyString(channelID) })
}

func (r combinedRepo) mutate(op, id string, fn func(*domain.CombinedLeoUnit)) error {
	return r.s.do(op, func(d *dataset) error {
		u, ok := d.combined[id]
		if !ok {
			return repository.ErrNotFound
		}
		fn(&u)
		d.combined[id] = u
		return nil
	})
}

type statusRepo struct{ s *Store }

func (r statusRepo) FindByShouldDo(_ context.Context, shouldDo domain.ShouldDoType) (*domain.StatusValue, error) {
	var out *domain.StatusValue
	err := r.s.do("statusValues.FindByShouldDo", func(d *dataset) error {
		ids := make([]string, 0, len(d.statusValues))
		for id := range d.statusValues {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			if v := d.statusValues[id]; v.ShouldDo == shouldDo {
				out = &v
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

type callRepo struct{ s *Store }

func (r callRepo) Create(_ context.Context, c domain.Call911) error {
	return r.s.do("calls.Create", func(d *dataset) error {
		d.calls[c.ID] = stripCallRelations(c)
		return nil
	})
}

func (r callRepo) GetByID(_ context.Context, id string) (*domain.Call911, error) {
	var out *domain.Call911
	err := r.s.do("calls.GetByID", func(d *dataset) error {
		c, ok := d.calls[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r callRepo) Update(_ context.Context, c domain.Call911) error {
	return r.s.do("calls.Update", func(d *dataset) error {
		if _, ok := d.calls[c.ID]; !ok {
			return repository.ErrNotFound
		}
		d.calls[c.ID] = stripCallRelations(c)
		return nil
	})
}

func (r callRepo) Delete(_ context.Context, id string) error {
	return r.s.do("calls.Delete", func(d *dataset) error {
		if _, ok := d.calls[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.calls, id)
		return nil
	})
}

func (r callRepo) List(_ context.Context, filter port.CallFilter) ([]domain.Call911, error) {
	var out []domain.Call911
	err := r.s.do("calls.List", func(d *dataset) error {
		for _, c := range d.calls {
			if filter.ActiveOnly && c.Ended {
				continue
			}
			out = append(out, c)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

func stripCallRelations(c domain.Call911) domain.Call911 {
	c.AssignedUnitIDs = nil
	c.DepartmentIDs = nil
	c.DivisionIDs = nil
	return c
}

type bleetRepo struct{ s *Store }

func (r bleetRepo) Create(_ context.Context, b domain.Bleet) error {
	return r.s.do("bleets.Create", func(d *dataset) error {
		d.bleets[b.ID] = b
		return nil
	})
}

func (r bleetRepo) GetByID(_ context.Context, id string) (*domain.Bleet, error) {
	var out *domain.Bleet
	err := r.s.do("bleets.GetByID", func(d *dataset) error {
		b, ok := d.bleets[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r bleetRepo) Update(_ context.Context, b domain.Bleet) error {
	return r.s.do("bleets.Update", func(d *dataset) error {
		if _, ok := d.bleets[b.ID]; !ok {
			return repository.ErrNotFound
		}
		d.bleets[b.ID] = b
		return nil
	})
}

func (r bleetRepo) Delete(_ context.Context, id string) error {
	return r.s.do("bleets.Delete", func(d *dataset) error {
		if _, ok := d.bleets[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.bleets, id)
		return nil
	})
}

func (r bleetRepo) List(_ context.Context) ([]domain.Bleet, error) {
	var out []domain.Bleet
	err := r.s.do("bleets.List", func(d *dataset) error {
		for _, b := range d.bleets {
			out = append(out, b)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
		return nil
	})
	return out, err
}

type dispatcherRepo struct{ s *Store }

func (r dispatcherRepo) GetByUser(_ context.Context, userID string) (*domain.ActiveDispatcher, error) {
	var out *domain.ActiveDispatcher
	err := r.s.do("dispatchers.GetByUser", func(d *dataset) error {
		for _, disp := range d.dispatchers {
			if disp.UserID == userID {
				found := disp
				out = &found
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r dispatcherRepo) Create(_ context.Context, disp domain.ActiveDispatcher) error {
	return r.s.do("dispatchers.Create", func(d *dataset) error {
		for _, existing := range d.dispatchers {
			if existing.UserID == disp.UserID {
				return repository.ErrDuplicate
			}
		}
		d.dispatchers[disp.ID] = disp
		return nil
	})
}

func (r dispatcherRepo) Delete(_ context.Context, id string) error {
	return r.s.do("dispatchers.Delete", func(d *dataset) error {
		if _, ok := d.dispatchers[id]; !ok {
			return repository.ErrNotFound
		}
		delete(d.dispatchers, id)
		return nil
	})
}

func (r dispatcherRepo) List(_ context.Context) ([]domain.ActiveDispatcher, error) {
	out := make([]domain.ActiveDispatcher, 0)
	err := r.s.do("dispatchers.List", func(d *dataset) error {
		for _, disp := range d.dispatchers {
			out = append(out, disp)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
		return nil
	})
	return out, err
}

type relationRepo struct{ s *Store }

func (r relationRepo) ListRelated(_ context.Context, relation domain.Relation, ownerID string) ([]string, error) {
	out := make([]string, 0)
	err := r.s.do("relations.ListRelated", func(d *dataset) error {
		for id := range d.relations[relation][ownerID] {
			out = append(out, id)
		}
		sort.Strings(out)
		return nil
	})
	return out, err
}

func (r relationRepo) ApplyRelationOps(_ context.Context, relation domain.Relation, ownerID string, ops []domain.RelationOp) error {
	return r.s.do("relations.ApplyRelationOps", func(d *dataset) error {
		owners, ok := d.relations[relation]
		if !ok {
			owners = make(map[string]map[string]struct{})
			d.relations[relation] = owners
		}
		members, ok := owners[ownerID]
		if !ok {
			members = make(map[string]struct{})
			owners[ownerID] = members
		}
		for _, op := range ops {
			switch op.Kind {
			case domain.RelationConnect:
				members[op.ID] = struct{}{}
			case domain.RelationDisconnect:
				delete(members, op.ID)
			}
		}
		if len(members) == 0 {
			delete(owners, ownerID)
		}
		return nil
	})
}

type statsRepo struct{ s *Store }

// AdminStats derives resource counters from the stored records. User and
// bolo counters come from SetUserStats since users and bolos are not stored here.
func (r statsRepo) AdminStats(_ context.Context) (domain.AdminStats, error) {
	var out domain.AdminStats
	err := r.s.do("stats.AdminStats", func(d *dataset) error {
		out = d.stats
		out.CreatedCitizens = len(d.citizens)
		out.DeadCitizens = 0
		for _, c := range d.citizens {
			if c.Dead {
				out.DeadCitizens++
			}
		}
		out.Vehicles = len(d.vehicles)
		out.ImpoundedVehicles = 0
		for _, v := range d.vehicles {
			if v.Impounded {
				out.ImpoundedVehicles++
			}
		}
		return nil
	})
	return out, err
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
