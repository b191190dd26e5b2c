package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
)

// CitizenLicensesInput carries license status value ids. Omitted fields are
// kept, null clears them.
type CitizenLicensesInput struct {
	DriversLicense validation.Nullable[string] `json:"driversLicense" validate:"omitempty,min=1"`
	PilotLicense   validation.Nullable[string] `json:"pilotLicense" validate:"omitempty,min=1"`
	WeaponLicense  validation.Nullable[string] `json:"weaponLicense" validate:"omitempty,min=1"`
	WaterLicense   validation.Nullable[string] `json:"waterLicense" validate:"omitempty,min=1"`
}

// CitizenService covers the law enforcement operations on citizen records.
type CitizenService struct {
	base
}

// NewCitizenService constructs a CitizenService.
func NewCitizenService(store port.Store, events port.EventNotifier, logger *zap.Logger) *CitizenService {
	return &CitizenService{base: newBase(store, events, logger)}
}

// UpdateFlags replaces the flags attached to a citizen.
func (s *CitizenService) UpdateFlags(ctx context.Context, actor domain.Actor, citizenID string, input FlagsInput) ([]string, error) {
	if err := CheckAccess(actor, ActionCitizenFlags); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var flags []string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if _, err := tx.Citizens().GetByID(ctx, citizenID); err != nil {
			return lookupErr(err, "lookup citizen", "", "citizenNotFound")
		}

		linked, err := reconcile(ctx, tx, domain.RelationCitizenFlags, citizenID, domain.UniqueIDs(input.Flags))
		if err != nil {
			return fmt.Errorf("link citizen flags: %w", err)
		}
		flags = linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventCitizenFlagsUpdated, actor, domain.FlagsPayload{ResourceID: citizenID, FlagIDs: flags}))
	return flags, nil
}

// UpdateLicenses sets the license statuses of a citizen.
func (s *CitizenService) UpdateLicenses(ctx context.Context, actor domain.Actor, citizenID string, input CitizenLicensesInput) (*domain.Citizen, error) {
	if err := CheckAccess(actor, ActionCitizenLicenses); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var updated domain.Citizen
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		citizen, err := tx.Citizens().GetByID(ctx, citizenID)
		if err != nil {
			return lookupErr(err, "lookup citizen", "", "citizenNotFound")
		}

		licenses := domain.CitizenLicenses{
			DriversLicenseID: input.DriversLicense.Apply(citizen.DriversLicenseID),
			PilotLicenseID:   input.PilotLicense.Apply(citizen.PilotLicenseID),
			WeaponLicenseID:  input.WeaponLicense.Apply(citizen.WeaponLicenseID),
			WaterLicenseID:   input.WaterLicense.Apply(citizen.WaterLicenseID),
		}
		if err := tx.Citizens().UpdateLicenses(ctx, citizen.ID, licenses); err != nil {
			return fmt.Errorf("update citizen licenses: %w", err)
		}

		updated = *citizen
		updated.DriversLicenseID = licenses.DriversLicenseID
		updated.PilotLicenseID = licenses.PilotLicenseID
		updated.WeaponLicenseID = licenses.WeaponLicenseID
		updated.WaterLicenseID = licenses.WaterLicenseID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}
