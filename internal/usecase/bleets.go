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

// BleetInput is the payload for posting or editing a bleet.
type BleetInput struct {
	Title string `json:"title" validate:"required,min=1,max=255"`
	Body  string `json:"body" validate:"required"`
	Image string `json:"image" validate:"omitempty,imgururl"`
}

// BleetService manages posts on the bleeter feed.
type BleetService struct {
	base
}

// NewBleetService constructs a BleetService.
func NewBleetService(store port.Store, events port.EventNotifier, logger *zap.Logger) *BleetService {
	return &BleetService{base: newBase(store, events, logger)}
}

// List returns every bleet, newest first.
func (s *BleetService) List(ctx context.Context, actor domain.Actor) ([]domain.Bleet, error) {
	if err := CheckAccess(actor, ActionBleetList); err != nil {
		return nil, err
	}

	bleets, err := s.store.Bleets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list bleets: %w", err)
	}
	return bleets, nil
}

// Create posts a bleet as the actor.
func (s *BleetService) Create(ctx context.Context, actor domain.Actor, cad domain.Cad, input BleetInput) (*domain.Bleet, error) {
	if err := CheckAccess(actor, ActionBleetCreate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if !cad.FeatureEnabled(domain.FeatureBleeter) {
		return nil, precondition("", "featureDisabled")
	}
	// Bleets are authored by a user; the CAD API token has none.
	if actor.IsAPIToken {
		return nil, precondition("", "userRequired")
	}

	now := s.now()
	bleet := domain.Bleet{
		ID:        uuid.NewString(),
		UserID:    actor.UserID,
		Title:     strings.TrimSpace(input.Title),
		Body:      input.Body,
		ImageID:   optionalString(input.Image),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Bleets().Create(ctx, bleet); err != nil {
		return nil, fmt.Errorf("create bleet: %w", err)
	}

	s.notify(ctx, s.event(domain.EventBleetCreated, actor, bleetPayload(bleet)))
	return &bleet, nil
}

// Update edits a bleet. Only its author or a bleet manager may do so.
func (s *BleetService) Update(ctx context.Context, actor domain.Actor, bleetID string, input BleetInput) (*domain.Bleet, error) {
	if err := CheckAccess(actor, ActionBleetUpdate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	var updated domain.Bleet
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		bleet, err := s.editable(ctx, tx, actor, bleetID)
		if err != nil {
			return err
		}

		updated = *bleet
		updated.Title = strings.TrimSpace(input.Title)
		updated.Body = input.Body
		if input.Image != "" {
			updated.ImageID = optionalString(input.Image)
		}
		updated.UpdatedAt = s.now()

		if err := tx.Bleets().Update(ctx, updated); err != nil {
			return fmt.Errorf("update bleet: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify(ctx, s.event(domain.EventBleetUpdated, actor, bleetPayload(updated)))
	return &updated, nil
}

// Delete removes a bleet. Only its author or a bleet manager may do so.
func (s *BleetService) Delete(ctx context.Context, actor domain.Actor, bleetID string) error {
	if err := CheckAccess(actor, ActionBleetDelete); err != nil {
		return err
	}

	var deleted domain.Bleet
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		bleet, err := s.editable(ctx, tx, actor, bleetID)
		if err != nil {
			return err
		}
		if err := tx.Bleets().Delete(ctx, bleet.ID); err != nil {
			return fmt.Errorf("delete bleet: %w", err)
		}
		deleted = *bleet
		return nil
	})
	if err != nil {
		return err
	}

	s.notify(ctx, s.event(domain.EventBleetDeleted, actor, domain.BleetPayload{BleetID: deleted.ID, UserID: deleted.UserID}))
	return nil
}

func (s *BleetService) editable(ctx context.Context, tx port.Store, actor domain.Actor, bleetID string) (*domain.Bleet, error) {
	bleet, err := tx.Bleets().GetByID(ctx, bleetID)
	if err != nil {
		return nil, lookupErr(err, "lookup bleet", "", "bleetNotFound")
	}
	if bleet.UserID != actor.UserID && !actor.HasPermission(domain.PermissionManageBleets) {
		return nil, ErrPermissionDenied
	}
	return bleet, nil
}

func bleetPayload(bleet domain.Bleet) domain.BleetPayload {
	return domain.BleetPayload{BleetID: bleet.ID, UserID: bleet.UserID, Title: bleet.Title}
}
