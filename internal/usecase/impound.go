package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// ImpoundService manages the impound lot.
type ImpoundService struct {
	base
}

// NewImpoundService constructs an ImpoundService.
func NewImpoundService(store port.Store, events port.EventNotifier, logger *zap.Logger) *ImpoundService {
	return &ImpoundService{base: newBase(store, events, logger)}
}

// List returns every impounded vehicle.
func (s *ImpoundService) List(ctx context.Context, actor domain.Actor) ([]domain.ImpoundedVehicle, error) {
	if err := CheckAccess(actor, ActionImpoundList); err != nil {
		return nil, err
	}

	vehicles, err := s.store.Impounds().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list impounded vehicles: %w", err)
	}
	return vehicles, nil
}

// Checkout releases a vehicle from the lot. Removing the impound entry and
// clearing the vehicle's impounded flag happen together or not at all.
func (s *ImpoundService) Checkout(ctx context.Context, actor domain.Actor, impoundID string) (*domain.ImpoundedVehicle, error) {
	if err := CheckAccess(actor, ActionImpoundCheckout); err != nil {
		return nil, err
	}

	var released domain.ImpoundedVehicle
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		impound, err := tx.Impounds().GetByID(ctx, impoundID)
		if err != nil {
			return lookupErr(err, "lookup impounded vehicle", "", "vehicleNotFound")
		}

		if err := tx.Impounds().Delete(ctx, impound.ID); err != nil {
			return fmt.Errorf("delete impound entry: %w", err)
		}
		if err := tx.Vehicles().SetImpounded(ctx, impound.RegisteredVehicleID, false); err != nil {
			return lookupErr(err, "release vehicle", "", "vehicleNotFound")
		}

		released = *impound
		if released.Vehicle != nil {
			vehicle := *released.Vehicle
			vehicle.Impounded = false
			released.Vehicle = &vehicle
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventImpoundCheckedOut, actor, domain.ImpoundPayload{
		ImpoundID: released.ID,
		VehicleID: released.RegisteredVehicleID,
	}))
	return &released, nil
}
