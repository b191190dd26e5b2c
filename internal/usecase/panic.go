package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/repository"
)

// PanicInput selects the officer or combined unit whose panic button is pressed.
type PanicInput struct {
	OfficerID string `json:"officerId" validate:"required"`
}

// PanicResult reports the unit after the toggle and which way it went.
type PanicResult struct {
	Unit   domain.Unit
	Raised bool
}

// PanicService toggles units between their on-duty and panic statuses.
type PanicService struct {
	base
}

// NewPanicService constructs a PanicService.
func NewPanicService(store port.Store, events port.EventNotifier, logger *zap.Logger) *PanicService {
	return &PanicService{base: newBase(store, events, logger)}
}

// Toggle flips the unit into panic, or back on duty when it already is in
// panic. Both status codes are looked up from the configured status values;
// when either one needed is missing the unit is left untouched.
func (s *PanicService) Toggle(ctx context.Context, actor domain.Actor, input PanicInput) (PanicResult, error) {
	var result PanicResult
	if err := CheckAccess(actor, ActionPanicButton); err != nil {
		return result, err
	}
	if err := validation.Struct(input); err != nil {
		return result, err
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		unit, err := s.findUnit(ctx, tx, actor, input.OfficerID)
		if err != nil {
			return err
		}

		panicCode, err := tx.StatusValues().FindByShouldDo(ctx, domain.ShouldDoPanicButton)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return precondition("", "mustHavePanicButtonCode")
			}
			return fmt.Errorf("lookup panic status: %w", err)
		}

		next := panicCode.ID
		raised := true
		if unit.HasStatus(panicCode.ID) {
			onDuty, err := tx.StatusValues().FindByShouldDo(ctx, domain.ShouldDoSetOnDuty)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return precondition("", "mustHaveOnDutyCode")
				}
				return fmt.Errorf("lookup on-duty status: %w", err)
			}
			next = onDuty.ID
			raised = false
		}

		if err := setUnitStatus(ctx, tx, unit, &next); err != nil {
			return err
		}

		unit.StatusID = &next
		result = PanicResult{Unit: unit, Raised: raised}
		return nil
	})
	if err != nil {
		return PanicResult{}, err
	}

	kind := domain.EventPanicCleared
	if result.Raised {
		kind = domain.EventPanicRaised
	}
	payload := domain.NewUnitPayload(result.Unit)
	s.notify(ctx,
		s.event(domain.EventOfficerStatus, actor, payload),
		s.event(kind, actor, payload),
	)

	return result, nil
}

// findUnit resolves an officer visible to the actor, falling back to a
// combined unit with the same id.
func (s *PanicService) findUnit(ctx context.Context, tx port.Store, actor domain.Actor, id string) (domain.Unit, error) {
	var (
		officer *domain.Officer
		err     error
	)
	if actor.IsAPIToken {
		officer, err = tx.Officers().GetByID(ctx, id)
	} else {
		officer, err = tx.Officers().GetOwned(ctx, id, actor.UserID)
	}
	if err == nil {
		return officer.AsUnit(), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Unit{}, fmt.Errorf("lookup officer: %w", err)
	}

	combined, err := tx.CombinedUnits().GetByID(ctx, id)
	if err != nil {
		return domain.Unit{}, lookupErr(err, "lookup combined unit", "", "officerNotFound")
	}
	return combined.AsUnit(), nil
}

func setUnitStatus(ctx context.Context, tx port.Store, unit domain.Unit, statusID *string) error {
	var err error
	switch unit.Type {
	case domain.UnitTypeCombined:
		err = tx.CombinedUnits().UpdateStatus(ctx, unit.ID, statusID)
	default:
		err = tx.Officers().UpdateStatus(ctx, unit.ID, statusID)
	}
	if err != nil {
		return fmt.Errorf("update unit status: %w", err)
	}
	return nil
}
