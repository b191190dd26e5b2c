package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
)

// CallInput is the payload for creating or updating a 911 call.
type CallInput struct {
	Location      string                      `json:"location" validate:"required,min=2"`
	Name          string                      `json:"name" validate:"required,min=2,max=255"`
	Postal        validation.Nullable[string] `json:"postal" validate:"omitempty,max=255"`
	Description   validation.Nullable[string] `json:"description"`
	SituationCode validation.Nullable[string] `json:"situationCode" validate:"omitempty,max=255"`
	Ended         *bool                       `json:"ended"`
	AssignedUnits []string                    `json:"assignedUnits" validate:"omitempty,dive,required"`
	Departments   []string                    `json:"departments" validate:"omitempty,dive,required"`
	Divisions     []string                    `json:"divisions" validate:"omitempty,dive,required"`
}

// CallService manages 911 calls and the units, departments and divisions linked to them.
type CallService struct {
	base
}

// NewCallService constructs a CallService.
func NewCallService(store port.Store, events port.EventNotifier, logger *zap.Logger) *CallService {
	return &CallService{base: newBase(store, events, logger)}
}

// List returns 911 calls, optionally including ended ones.
func (s *CallService) List(ctx context.Context, actor domain.Actor, includeEnded bool) ([]domain.Call911, error) {
	if err := CheckAccess(actor, ActionCallList); err != nil {
		return nil, err
	}

	calls, err := s.store.Calls().List(ctx, port.CallFilter{ActiveOnly: !includeEnded})
	if err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}

	for i := range calls {
		if err := loadCallRelations(ctx, s.store, &calls[i]); err != nil {
			return nil, err
		}
	}
	return calls, nil
}

// Create opens a 911 call.
func (s *CallService) Create(ctx context.Context, actor domain.Actor, cad domain.Cad, input CallInput) (*domain.Call911, error) {
	if err := CheckAccess(actor, ActionCallCreate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !cad.FeatureEnabled(domain.FeatureCalls911) {
		return nil, precondition("", "featureDisabled")
	}

	now := s.now()
	call := domain.Call911{
		ID:            uuid.NewString(),
		Location:      strings.TrimSpace(input.Location),
		Name:          strings.TrimSpace(input.Name),
		Postal:        input.Postal.Ptr(),
		Description:   input.Description.Ptr(),
		SituationCode: input.SituationCode.Ptr(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// API-token requests have no user row to reference.
	if actor.UserID != "" && !actor.IsAPIToken {
		userID := actor.UserID
		call.UserID = &userID
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if err := tx.Calls().Create(ctx, call); err != nil {
			return fmt.Errorf("create call: %w", err)
		}
		return linkCall(ctx, tx, &call, input, false)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventCall911Created, actor, callPayload(call)))
	return &call, nil
}

// Update edits a 911 call and reconciles its linked units, departments and divisions.
func (s *CallService) Update(ctx context.Context, actor domain.Actor, callID string, input CallInput) (*domain.Call911, error) {
	if err := CheckAccess(actor, ActionCallUpdate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var updated domain.Call911
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		call, err := tx.Calls().GetByID(ctx, callID)
		if err != nil {
			return lookupErr(err, "lookup call", "", "callNotFound")
		}

		updated = *call
		updated.Location = strings.TrimSpace(input.Location)
		updated.Name = strings.TrimSpace(input.Name)
		updated.Postal = input.Postal.Apply(call.Postal)
		updated.Description = input.Description.Apply(call.Description)
		updated.SituationCode = input.SituationCode.Apply(call.SituationCode)
		if input.Ended != nil {
			updated.Ended = *input.Ended
		}
		updated.UpdatedAt = s.now()

		if err := tx.Calls().Update(ctx, updated); err != nil {
			return fmt.Errorf("update call: %w", err)
		}
		return linkCall(ctx, tx, &updated, input, true)
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventCall911Updated, actor, callPayload(updated)))
	return &updated, nil
}

// Delete removes a 911 call together with its links.
func (s *CallService) Delete(ctx context.Context, actor domain.Actor, callID string) error {
	if err := CheckAccess(actor, ActionCallDelete); err != nil {
		return err
	}

	var deleted domain.Call911
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		call, err := tx.Calls().GetByID(ctx, callID)
		if err != nil {
			return lookupErr(err, "lookup call", "", "callNotFound")
		}
		if err := linkCall(ctx, tx, call, CallInput{}, false); err != nil {
			return err
		}
		if err := tx.Calls().Delete(ctx, call.ID); err != nil {
			return fmt.Errorf("delete call: %w", err)
		}
		deleted = *call
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, s.event(domain.EventCall911Deleted, actor, domain.CallPayload{CallID: deleted.ID, Ended: true}))
	return nil
}

// linkCall reconciles the call's relations with input. With keepOmitted set,
// a relation whose list was not sent (nil) keeps its current links; an
// explicit empty list still clears them.
func linkCall(ctx context.Context, tx port.Store, call *domain.Call911, input CallInput, keepOmitted bool) error {
	var err error
	if call.AssignedUnitIDs, err = linkRelation(ctx, tx, domain.RelationCallAssignedUnits, call.ID, input.AssignedUnits, keepOmitted); err != nil {
		return fmt.Errorf("link assigned units: %w", err)
	}
	if call.DepartmentIDs, err = linkRelation(ctx, tx, domain.RelationCallDepartments, call.ID, input.Departments, keepOmitted); err != nil {
		return fmt.Errorf("link departments: %w", err)
	}
	if call.DivisionIDs, err = linkRelation(ctx, tx, domain.RelationCallDivisions, call.ID, input.Divisions, keepOmitted); err != nil {
		return fmt.Errorf("link divisions: %w", err)
	}
	return nil
}

func linkRelation(ctx context.Context, tx port.Store, relation domain.Relation, ownerID string, ids []string, keepOmitted bool) ([]string, error) {
	if ids == nil && keepOmitted {
		return tx.Relations().ListRelated(ctx, relation, ownerID)
	}
	return reconcile(ctx, tx, relation, ownerID, domain.UniqueIDs(ids))
}

func loadCallRelations(ctx context.Context, store port.Store, call *domain.Call911) error {
	var err error
	relations := store.Relations()
	if call.AssignedUnitIDs, err = relations.ListRelated(ctx, domain.RelationCallAssignedUnits, call.ID); err != nil {
		return fmt.Errorf("list assigned units: %w", err)
	}
	if call.DepartmentIDs, err = relations.ListRelated(ctx, domain.RelationCallDepartments, call.ID); err != nil {
		return fmt.Errorf("list call departments: %w", err)
	}
	if call.DivisionIDs, err = relations.ListRelated(ctx, domain.RelationCallDivisions, call.ID); err != nil {
		return fmt.Errorf("list call divisions: %w", err)
	}
	return nil
}

func callPayload(call domain.Call911) domain.CallPayload {
	return domain.CallPayload{
		CallID:          call.ID,
		Location:        call.Location,
		Name:            call.Name,
		AssignedUnitIDs: call.AssignedUnitIDs,
		Ended:           call.Ended,
	}
}
