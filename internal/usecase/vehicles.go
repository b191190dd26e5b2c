package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/repository"
)

const (
	vinLength   = 17
	vinAlphabet = "ABCDEFGHJKLMNPRSTUVWXYZ0123456789"
)

// VehicleInput is the payload for registering or updating a vehicle.
type VehicleInput struct {
	CitizenID            string                      `json:"citizenId" validate:"required"`
	Plate                string                      `json:"plate" validate:"required,plate"`
	ModelID              string                      `json:"model" validate:"required"`
	Color                string                      `json:"color" validate:"required,max=255"`
	RegistrationStatusID string                      `json:"registrationStatus" validate:"required"`
	InsuranceStatusID    validation.Nullable[string] `json:"insuranceStatus" validate:"omitempty,min=1"`
	VinNumber            string                      `json:"vinNumber" validate:"omitempty,len=17"`
	Flags                []string                    `json:"flags" validate:"omitempty,dive,required"`
}

// FlagsInput replaces the flag set of a vehicle or citizen.
type FlagsInput struct {
	Flags []string `json:"flags" validate:"omitempty,dive,required"`
}

// VehicleLicensesInput is the payload law enforcement uses to update vehicle records.
type VehicleLicensesInput struct {
	RegistrationStatusID string                                              `json:"registrationStatus" validate:"required"`
	InsuranceStatusID    validation.Nullable[string]                         `json:"insuranceStatus" validate:"omitempty,min=1"`
	TaxStatus            validation.Nullable[domain.VehicleTaxStatus]        `json:"taxStatus" validate:"omitempty,oneof=TAXED UNTAXED"`
	InspectionStatus     validation.Nullable[domain.VehicleInspectionStatus] `json:"inspectionStatus" validate:"omitempty,oneof=PASSED FAILED"`
}

// VehicleService manages registered vehicles and their law enforcement records.
type VehicleService struct {
	base
	vin func() string
}

// NewVehicleService constructs a VehicleService.
func NewVehicleService(store port.Store, events port.EventNotifier, logger *zap.Logger) *VehicleService {
	return &VehicleService{base: newBase(store, events, logger), vin: generateVIN}
}

// List returns the vehicles registered by the actor.
func (s *VehicleService) List(ctx context.Context, actor domain.Actor) ([]domain.RegisteredVehicle, error) {
	if err := CheckAccess(actor, ActionVehicleList); err != nil {
		return nil, err
	}

	vehicles, err := s.store.Vehicles().List(ctx, port.VehicleFilter{UserID: actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, nil
}

// Register creates a vehicle for one of the actor's citizens. Plates are unique across the CAD.
func (s *VehicleService) Register(ctx context.Context, actor domain.Actor, input VehicleInput) (*domain.RegisteredVehicle, error) {
	if err := CheckAccess(actor, ActionVehicleRegister); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	plate := normalizePlate(input.Plate)
	var created domain.RegisteredVehicle

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		citizen, err := tx.Citizens().GetOwned(ctx, input.CitizenID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup citizen", "citizenId", "citizenNotFound")
		}

		if err := ensurePlateFree(ctx, tx, plate, ""); err != nil {
			return err
		}

		vin := strings.ToUpper(strings.TrimSpace(input.VinNumber))
		if vin == "" {
			vin = s.vin()
		}

		now := s.now()
		created = domain.RegisteredVehicle{
			ID:                   uuid.NewString(),
			UserID:               actor.UserID,
			CitizenID:            citizen.ID,
			Plate:                plate,
			VinNumber:            vin,
			ModelID:              input.ModelID,
			Color:                strings.TrimSpace(input.Color),
			RegistrationStatusID: input.RegistrationStatusID,
			InsuranceStatusID:    input.InsuranceStatusID.Ptr(),
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := tx.Vehicles().Create(ctx, created); err != nil {
			return vehicleWriteErr(err, "create vehicle")
		}

		flags, err := reconcile(ctx, tx, domain.RelationVehicleFlags, created.ID, domain.UniqueIDs(input.Flags))
		if err != nil {
			return fmt.Errorf("link vehicle flags: %w", err)
		}
		created.FlagIDs = flags
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// Update rewrites a vehicle registered by the actor.
func (s *VehicleService) Update(ctx context.Context, actor domain.Actor, vehicleID string, input VehicleInput) (*domain.RegisteredVehicle, error) {
	if err := CheckAccess(actor, ActionVehicleUpdate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	plate := normalizePlate(input.Plate)
	var updated domain.RegisteredVehicle

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		vehicle, err := s.ownedVehicle(ctx, tx, actor, vehicleID)
		if err != nil {
			return err
		}

		citizen, err := tx.Citizens().GetOwned(ctx, input.CitizenID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup citizen", "citizenId", "citizenNotFound")
		}

		if err := ensurePlateFree(ctx, tx, plate, vehicle.ID); err != nil {
			return err
		}

		updated = *vehicle
		updated.CitizenID = citizen.ID
		updated.Plate = plate
		updated.ModelID = input.ModelID
		updated.Color = strings.TrimSpace(input.Color)
		updated.RegistrationStatusID = input.RegistrationStatusID
		updated.InsuranceStatusID = input.InsuranceStatusID.Apply(vehicle.InsuranceStatusID)
		if vin := strings.ToUpper(strings.TrimSpace(input.VinNumber)); vin != "" {
			updated.VinNumber = vin
		}
		updated.UpdatedAt = s.now()

		if err := tx.Vehicles().Update(ctx, updated); err != nil {
			return vehicleWriteErr(err, "update vehicle")
		}

		flags, err := reconcile(ctx, tx, domain.RelationVehicleFlags, updated.ID, domain.UniqueIDs(input.Flags))
		if err != nil {
			return fmt.Errorf("link vehicle flags: %w", err)
		}
		updated.FlagIDs = flags
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Delete removes a vehicle registered by the actor.
func (s *VehicleService) Delete(ctx context.Context, actor domain.Actor, vehicleID string) error {
	if err := CheckAccess(actor, ActionVehicleDelete); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		vehicle, err := s.ownedVehicle(ctx, tx, actor, vehicleID)
		if err != nil {
			return err
		}
		if _, err := reconcile(ctx, tx, domain.RelationVehicleFlags, vehicle.ID, nil); err != nil {
			return fmt.Errorf("unlink vehicle flags: %w", err)
		}
		if err := tx.Vehicles().Delete(ctx, vehicle.ID); err != nil {
			return fmt.Errorf("delete vehicle: %w", err)
		}
		return nil
	})
}

// UpdateFlags replaces the flags law enforcement attached to a vehicle.
func (s *VehicleService) UpdateFlags(ctx context.Context, actor domain.Actor, vehicleID string, input FlagsInput) ([]string, error) {
	if err := CheckAccess(actor, ActionVehicleFlags); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var flags []string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if _, err := tx.Vehicles().GetByID(ctx, vehicleID); err != nil {
			return lookupErr(err, "lookup vehicle", "", "vehicleNotFound")
		}

		linked, err := reconcile(ctx, tx, domain.RelationVehicleFlags, vehicleID, domain.UniqueIDs(input.Flags))
		if err != nil {
			return fmt.Errorf("link vehicle flags: %w", err)
		}
		flags = linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventVehicleFlagsUpdated, actor, domain.FlagsPayload{ResourceID: vehicleID, FlagIDs: flags}))
	return flags, nil
}

// UpdateLicenses sets the registration, insurance, tax and inspection records of a vehicle.
func (s *VehicleService) UpdateLicenses(ctx context.Context, actor domain.Actor, vehicleID string, input VehicleLicensesInput) (*domain.RegisteredVehicle, error) {
	if err := CheckAccess(actor, ActionVehicleLicenses); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var updated domain.RegisteredVehicle
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		vehicle, err := tx.Vehicles().GetByID(ctx, vehicleID)
		if err != nil {
			return lookupErr(err, "lookup vehicle", "", "vehicleNotFound")
		}

		licenses := domain.VehicleLicenses{
			RegistrationStatusID: input.RegistrationStatusID,
			InsuranceStatusID:    input.InsuranceStatusID.Apply(vehicle.InsuranceStatusID),
			TaxStatus:            input.TaxStatus.Apply(vehicle.TaxStatus),
			InspectionStatus:     input.InspectionStatus.Apply(vehicle.InspectionStatus),
		}
		if err := tx.Vehicles().UpdateLicenses(ctx, vehicle.ID, licenses); err != nil {
			return fmt.Errorf("update vehicle licenses: %w", err)
		}

		updated = *vehicle
		updated.RegistrationStatusID = licenses.RegistrationStatusID
		updated.InsuranceStatusID = licenses.InsuranceStatusID
		updated.TaxStatus = licenses.TaxStatus
		updated.InspectionStatus = licenses.InspectionStatus
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *VehicleService) ownedVehicle(ctx context.Context, tx port.Store, actor domain.Actor, vehicleID string) (*domain.RegisteredVehicle, error) {
	vehicle, err := tx.Vehicles().GetByID(ctx, vehicleID)
	if err != nil {
		return nil, lookupErr(err, "lookup vehicle", "", "vehicleNotFound")
	}
	if vehicle.UserID != actor.UserID && !actor.IsAPIToken {
		return nil, notFound("", "vehicleNotFound")
	}
	return vehicle, nil
}

// ensurePlateFree fails with a plate conflict unless no vehicle other than exceptID uses plate.
func ensurePlateFree(ctx context.Context, tx port.Store, plate, exceptID string) error {
	existing, err := tx.Vehicles().GetByPlate(ctx, plate)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("lookup plate: %w", err)
	case existing.ID != exceptID:
		return conflict("plate", "plateAlreadyInUse")
	}
	return nil
}

// vehicleWriteErr reports unique violations raced past ensurePlateFree as plate conflicts.
func vehicleWriteErr(err error, op string) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return conflict("plate", "plateAlreadyInUse")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}

func generateVIN() string {
	b := make([]byte, vinLength)
	for i := range b {
		b[i] = vinAlphabet[rand.IntN(len(vinAlphabet))]
	}
	return string(b)
}
