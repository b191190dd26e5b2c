package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/repository"
)

// AopInput sets the area of play.
type AopInput struct {
	Aop string `json:"aop" validate:"required,min=1,max=255"`
}

// ToggleInput carries a required boolean toggle.
type ToggleInput struct {
	Value *bool `json:"value" validate:"required"`
}

// RadioChannelInput sets or clears a unit's radio channel.
type RadioChannelInput struct {
	Channel *string `json:"radioChannel" validate:"omitempty,max=255"`
}

// DispatchService runs the dispatch desk: overview, area of play, signal 100,
// the active dispatcher roster and unit radio channels.
type DispatchService struct {
	base
	cads *CadService
}

// NewDispatchService constructs a DispatchService. cads is used to drop cached
// settings after a change and may be nil.
func NewDispatchService(store port.Store, events port.EventNotifier, cads *CadService, logger *zap.Logger) *DispatchService {
	return &DispatchService{base: newBase(store, events, logger), cads: cads}
}

// Overview returns the units, dispatchers and open calls shown on the dispatch board.
func (s *DispatchService) Overview(ctx context.Context, actor domain.Actor) (domain.DispatchOverview, error) {
	var overview domain.DispatchOverview
	if err := CheckAccess(actor, ActionDispatchOverview); err != nil {
		return overview, err
	}

	officers, err := s.store.Officers().ListActive(ctx)
	if err != nil {
		return overview, fmt.Errorf("list active officers: %w", err)
	}
	deputies, err := s.store.Deputies().List(ctx)
	if err != nil {
		return overview, fmt.Errorf("list deputies: %w", err)
	}
	dispatchers, err := s.store.Dispatchers().List(ctx)
	if err != nil {
		return overview, fmt.Errorf("list dispatchers: %w", err)
	}
	calls, err := s.store.Calls().List(ctx, port.CallFilter{ActiveOnly: true})
	if err != nil {
		return overview, fmt.Errorf("list calls: %w", err)
	}

	overview.Officers = officers
	overview.Deputies = deputies
	overview.ActiveDispatchers = dispatchers
	overview.ActiveCalls = calls
	return overview, nil
}

// UpdateAreaOfPlay sets the area of play shown to every client.
func (s *DispatchService) UpdateAreaOfPlay(ctx context.Context, actor domain.Actor, cad domain.Cad, input AopInput) (*string, error) {
	if err := CheckAccess(actor, ActionDispatchAop); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	aop := strings.TrimSpace(input.Aop)
	if err := s.store.Cad().UpdateAreaOfPlay(ctx, cad.ID, &aop); err != nil {
		return nil, fmt.Errorf("update area of play: %w", err)
	}
	s.cads.Invalidate(ctx)

	s.notify(ctx, s.event(domain.EventAopUpdated, actor, domain.AopUpdatedPayload{AreaOfPlay: &aop}))
	return &aop, nil
}

// SetSignal100 turns signal 100 on or off.
func (s *DispatchService) SetSignal100(ctx context.Context, actor domain.Actor, cad domain.Cad, input ToggleInput) (bool, error) {
	if err := CheckAccess(actor, ActionDispatchSignal); err != nil {
		return false, err
	}
	if err := validation.Struct(input); err != nil {
		return false, err
	}

	value := *input.Value
	if err := s.store.Cad().UpdateSignal100(ctx, cad.MiscCadSettings.ID, value); err != nil {
		return false, fmt.Errorf("update signal 100: %w", err)
	}
	s.cads.Invalidate(ctx)

	s.notify(ctx, s.event(domain.EventSignal100Updated, actor, domain.Signal100Payload{Enabled: value}))
	return value, nil
}

// SetDispatcherState adds the actor to, or removes them from, the active
// dispatcher roster. Repeating a state is a no-op.
func (s *DispatchService) SetDispatcherState(ctx context.Context, actor domain.Actor, cad domain.Cad, input ToggleInput) ([]domain.ActiveDispatcher, error) {
	if err := CheckAccess(actor, ActionDispatchState); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !cad.FeatureEnabled(domain.FeatureActiveDispatchers) {
		return nil, precondition("", "featureDisabled")
	}

	active := *input.Value
	var roster []domain.ActiveDispatcher

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		existing, err := tx.Dispatchers().GetByUser(ctx, actor.UserID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("lookup dispatcher: %w", err)
		}

		switch {
		case active && existing == nil:
			dispatcher := domain.ActiveDispatcher{
				ID:        uuid.NewString(),
				UserID:    actor.UserID,
				Username:  actor.Username,
				CreatedAt: s.now(),
			}
			if err := tx.Dispatchers().Create(ctx, dispatcher); err != nil {
				return fmt.Errorf("create dispatcher: %w", err)
			}
		case !active && existing != nil:
			if err := tx.Dispatchers().Delete(ctx, existing.ID); err != nil {
				return fmt.Errorf("delete dispatcher: %w", err)
			}
		}

		roster, err = tx.Dispatchers().List(ctx)
		if err != nil {
			return fmt.Errorf("list dispatchers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	views := make([]domain.ActiveDispatcherView, 0, len(roster))
	for _, d := range roster {
		views = append(views, domain.ActiveDispatcherView{ID: d.ID, UserID: d.UserID, Username: d.Username})
	}
	s.notify(ctx, s.event(domain.EventDispatchersUpdated, actor, domain.DispatchersPayload{Dispatchers: views}))
	return roster, nil
}

// SetRadioChannel assigns a radio channel to an officer, deputy or combined unit.
func (s *DispatchService) SetRadioChannel(ctx context.Context, actor domain.Actor, unitID string, input RadioChannelInput) (domain.Unit, error) {
	if err := CheckAccess(actor, ActionDispatchRadio); err != nil {
		return domain.Unit{}, err
	}
	if err := validation.Struct(input); err != nil {
		return domain.Unit{}, err
	}

	channel := optionalString(derefString(input.Channel))
	var unit domain.Unit

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		found, err := findAnyUnit(ctx, tx, unitID)
		if err != nil {
			return err
		}

		switch found.Type {
		case domain.UnitTypeOfficer:
			err = tx.Officers().UpdateRadioChannel(ctx, found.ID, channel)
		case domain.UnitTypeDeputy:
			err = tx.Deputies().UpdateRadioChannel(ctx, found.ID, channel)
		default:
			err = tx.CombinedUnits().UpdateRadioChannel(ctx, found.ID, channel)
		}
		if err != nil {
			return fmt.Errorf("update radio channel: %w", err)
		}

		found.RadioChannelID = channel
		unit = found
		return nil
	})
	if err != nil {
		return domain.Unit{}, err
	}

	kind := domain.EventOfficerStatus
	if unit.Type == domain.UnitTypeDeputy {
		kind = domain.EventDeputyStatus
	}
	s.notify(ctx, s.event(kind, actor, domain.NewUnitPayload(unit)))
	return unit, nil
}

// findAnyUnit looks the id up as an officer, then a deputy, then a combined unit.
func findAnyUnit(ctx context.Context, tx port.Store, unitID string) (domain.Unit, error) {
	officer, err := tx.Officers().GetByID(ctx, unitID)
	if err == nil {
		return officer.AsUnit(), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Unit{}, fmt.Errorf("lookup officer: %w", err)
	}

	deputy, err := tx.Deputies().GetByID(ctx, unitID)
	if err == nil {
		return deputy.AsUnit(), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Unit{}, fmt.Errorf("lookup deputy: %w", err)
	}

	combined, err := tx.CombinedUnits().GetByID(ctx, unitID)
	if err != nil {
		return domain.Unit{}, lookupErr(err, "lookup combined unit", "radioChannel", "unitNotFound")
	}
	return combined.AsUnit(), nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
