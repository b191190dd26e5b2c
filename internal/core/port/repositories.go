package port

import (
	"context"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// CadRepository manages the CAD configuration record.
type CadRepository interface {
	Get(ctx context.Context) (*domain.Cad, error)
	UpdateAreaOfPlay(ctx context.Context, cadID string, aop *string) error
	UpdateSignal100(ctx context.Context, settingsID string, enabled bool) error
}

// CitizenFilter narrows citizen counts.
type CitizenFilter struct {
	UserID string
	Dead   *bool
}

// CitizenRepository manages citizens. Lookups return repository.ErrNotFound when absent.
type CitizenRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Citizen, error)
	GetOwned(ctx context.Context, id, userID string) (*domain.Citizen, error)
	UpdateLicenses(ctx context.Context, id string, licenses domain.CitizenLicenses) error
	Count(ctx context.Context, filter CitizenFilter) (int, error)
}

// VehicleFilter narrows vehicle listings and counts.
type VehicleFilter struct {
	UserID    string
	Impounded *bool
}

// VehicleRepository manages registered vehicles. Plates are unique.
type VehicleRepository interface {
	Create(ctx context.Context, vehicle domain.RegisteredVehicle) error
	GetByID(ctx context.Context, id string) (*domain.RegisteredVehicle, error)
	GetByPlate(ctx context.Context, plate string) (*domain.RegisteredVehicle, error)
	Update(ctx context.Context, vehicle domain.RegisteredVehicle) error
	UpdateLicenses(ctx context.Context, id string, licenses domain.VehicleLicenses) error
	SetImpounded(ctx context.Context, id string, impounded bool) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter VehicleFilter) ([]domain.RegisteredVehicle, error)
	Count(ctx context.Context, filter VehicleFilter) (int, error)
}

// ImpoundRepository manages impound lot entries.
type ImpoundRepository interface {
	List(ctx context.Context) ([]domain.ImpoundedVehicle, error)
	GetByID(ctx context.Context, id string) (*domain.ImpoundedVehicle, error)
	Delete(ctx context.Context, id string) error
}

// OfficerCountFilter narrows officer counts used by per-user limits.
type OfficerCountFilter struct {
	UserID       string
	DepartmentID string
	ExcludeID    string
}

// OfficerRepository manages law enforcement officers. ListActive returns
// officers whose status is set and is not an off-duty code.
type OfficerRepository interface {
	Create(ctx context.Context, officer domain.Officer) error
	GetByID(ctx context.Context, id string) (*domain.Officer, error)
	GetOwned(ctx context.Context, id, userID string) (*domain.Officer, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Officer, error)
	ListActive(ctx context.Context) ([]domain.Officer, error)
	Update(ctx context.Context, officer domain.Officer) error
	UpdateStatus(ctx context.Context, id string, statusID *string) error
	UpdateRadioChannel(ctx context.Context, id string, channelID *string) error
	UpdateImage(ctx context.Context, id string, imageID *string) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, filter OfficerCountFilter) (int, error)
}

// DeputyRepository manages EMS/FD deputies.
type DeputyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.EmsFdDeputy, error)
	List(ctx context.Context) ([]domain.EmsFdDeputy, error)
	UpdateRadioChannel(ctx context.Context, id string, channelID *string) error
}

// CombinedUnitRepository manages combined law enforcement units.
type CombinedUnitRepository interface {
	GetByID(ctx context.Context, id string) (*domain.CombinedLeoUnit, error)
	List(ctx context.Context) ([]domain.CombinedLeoUnit, error)
	UpdateStatus(ctx context.Context, id string, statusID *string) error
	UpdateRadioChannel(ctx context.Context, id string, channelID *string) error
}

// StatusValueRepository resolves operator-configured status codes.
type StatusValueRepository interface {
	FindByShouldDo(ctx context.Context, shouldDo domain.ShouldDoType) (*domain.StatusValue, error)
}

// CallFilter narrows 911 call listings.
type CallFilter struct {
	ActiveOnly bool
}

// CallRepository manages 911 calls.
type CallRepository interface {
	Create(ctx context.Context, call domain.Call911) error
	GetByID(ctx context.Context, id string) (*domain.Call911, error)
	Update(ctx context.Context, call domain.Call911) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter CallFilter) ([]domain.Call911, error)
}

// BleetRepository manages bleets.
type BleetRepository interface {
	Create(ctx context.Context, bleet domain.Bleet) error
	GetByID(ctx context.Context, id string) (*domain.Bleet, error)
	Update(ctx context.Context, bleet domain.Bleet) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.Bleet, error)
}

// DispatcherRepository manages the active dispatcher roster.
type DispatcherRepository interface {
	GetByUser(ctx context.Context, userID string) (*domain.ActiveDispatcher, error)
	Create(ctx context.Context, dispatcher domain.ActiveDispatcher) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]domain.ActiveDispatcher, error)
}

// StatsRepository computes admin dashboard counters.
type StatsRepository interface {
	AdminStats(ctx context.Context) (domain.AdminStats, error)
}
