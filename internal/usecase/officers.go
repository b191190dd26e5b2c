package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/repository"
)

// imageExtensions maps accepted upload content types to file extensions.
var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/gif":  "gif",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// OfficerInput is the payload for creating or updating an officer.
type OfficerInput struct {
	CitizenID    string   `json:"citizenId" validate:"required"`
	DepartmentID string   `json:"department" validate:"required"`
	Callsign     string   `json:"callsign" validate:"required,max=255"`
	Callsign2    string   `json:"callsign2" validate:"required,max=255"`
	BadgeNumber  *int     `json:"badgeNumber" validate:"omitempty,min=0"`
	Divisions    []string `json:"divisions" validate:"required,min=1,dive,required"`
	Image        string   `json:"image" validate:"omitempty,imgururl"`
}

// ImageUpload is an image file submitted for a unit.
type ImageUpload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// ActiveUnits lists every unit currently on the board.
type ActiveUnits struct {
	Officers      []domain.Officer
	CombinedUnits []domain.CombinedLeoUnit
}

// OfficerService manages the officers a user controls.
type OfficerService struct {
	base
	images port.ImageStore
}

// NewOfficerService constructs an OfficerService. images may be nil when object storage is disabled.
func NewOfficerService(store port.Store, events port.EventNotifier, images port.ImageStore, logger *zap.Logger) *OfficerService {
	return &OfficerService{base: newBase(store, events, logger), images: images}
}

// List returns the officers owned by the actor.
func (s *OfficerService) List(ctx context.Context, actor domain.Actor) ([]domain.Officer, error) {
	if err := CheckAccess(actor, ActionOfficerList); err != nil {
		return nil, err
	}

	officers, err := s.store.Officers().ListByUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list officers: %w", err)
	}

	for i := range officers {
		divisions, err := s.store.Relations().ListRelated(ctx, domain.RelationOfficerDivisions, officers[i].ID)
		if err != nil {
			return nil, fmt.Errorf("list officer divisions: %w", err)
		}
		officers[i].DivisionIDs = divisions
	}
	return officers, nil
}

// Create registers a new officer for one of the actor's citizens. The
// officer row and its divisions are written in one transaction.
func (s *OfficerService) Create(ctx context.Context, actor domain.Actor, cad domain.Cad, input OfficerInput) (*domain.Officer, error) {
	if err := CheckAccess(actor, ActionOfficerCreate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	settings := cad.MiscCadSettings
	divisions := domain.UniqueIDs(input.Divisions)
	var created domain.Officer

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		citizen, err := tx.Citizens().GetOwned(ctx, input.CitizenID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup citizen", "citizenId", "citizenNotFound")
		}

		if domain.LimitExceeded(settings.MaxDivisionsPerOfficer, len(divisions)) {
			return limitExceeded("divisions", "maxDivisionsReached")
		}

		officerCount, err := tx.Officers().Count(ctx, port.OfficerCountFilter{UserID: actor.UserID})
		if err != nil {
			return fmt.Errorf("count officers: %w", err)
		}
		if domain.LimitReached(settings.MaxOfficersPerUser, officerCount) {
			return limitExceeded("", "maxLimitOfficersPerUserReached")
		}

		departmentCount, err := tx.Officers().Count(ctx, port.OfficerCountFilter{UserID: actor.UserID, DepartmentID: input.DepartmentID})
		if err != nil {
			return fmt.Errorf("count department officers: %w", err)
		}
		if domain.LimitReached(settings.MaxDepartmentsEachPerUser, departmentCount) {
			return limitExceeded("department", "maxDepartmentsReachedPerUser")
		}

		now := s.now()
		created = domain.Officer{
			ID:           uuid.NewString(),
			UserID:       actor.UserID,
			CitizenID:    citizen.ID,
			DepartmentID: input.DepartmentID,
			Callsign:     strings.TrimSpace(input.Callsign),
			Callsign2:    strings.TrimSpace(input.Callsign2),
			BadgeNumber:  input.BadgeNumber,
			ImageID:      optionalString(input.Image),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Officers().Create(ctx, created); err != nil {
			return fmt.Errorf("create officer: %w", err)
		}

		linked, err := reconcile(ctx, tx, domain.RelationOfficerDivisions, created.ID, divisions)
		if err != nil {
			return fmt.Errorf("link officer divisions: %w", err)
		}
		created.DivisionIDs = linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &created, nil
}

// Update rewrites an officer owned by the actor and reconciles its divisions.
func (s *OfficerService) Update(ctx context.Context, actor domain.Actor, cad domain.Cad, officerID string, input OfficerInput) (*domain.Officer, error) {
	if err := CheckAccess(actor, ActionOfficerUpdate); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	settings := cad.MiscCadSettings
	divisions := domain.UniqueIDs(input.Divisions)
	var updated domain.Officer

	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		officer, err := tx.Officers().GetOwned(ctx, officerID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup officer", "", "officerNotFound")
		}

		if domain.LimitExceeded(settings.MaxDivisionsPerOfficer, len(divisions)) {
			return limitExceeded("divisions", "maxDivisionsReached")
		}

		departmentCount, err := tx.Officers().Count(ctx, port.OfficerCountFilter{
			UserID:       actor.UserID,
			DepartmentID: input.DepartmentID,
			ExcludeID:    officer.ID,
		})
		if err != nil {
			return fmt.Errorf("count department officers: %w", err)
		}
		if domain.LimitReached(settings.MaxDepartmentsEachPerUser, departmentCount) {
			return limitExceeded("department", "maxDepartmentsReachedPerUser")
		}

		citizen, err := tx.Citizens().GetOwned(ctx, input.CitizenID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup citizen", "citizenId", "citizenNotFound")
		}

		updated = *officer
		updated.CitizenID = citizen.ID
		updated.DepartmentID = input.DepartmentID
		updated.Callsign = strings.TrimSpace(input.Callsign)
		updated.Callsign2 = strings.TrimSpace(input.Callsign2)
		updated.BadgeNumber = input.BadgeNumber
		if input.Image != "" {
			updated.ImageID = optionalString(input.Image)
		}
		updated.UpdatedAt = s.now()

		if err := tx.Officers().Update(ctx, updated); err != nil {
			return fmt.Errorf("update officer: %w", err)
		}

		linked, err := reconcile(ctx, tx, domain.RelationOfficerDivisions, updated.ID, divisions)
		if err != nil {
			return fmt.Errorf("link officer divisions: %w", err)
		}
		updated.DivisionIDs = linked
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

// Delete removes an officer owned by the actor.
func (s *OfficerService) Delete(ctx context.Context, actor domain.Actor, officerID string) error {
	if err := CheckAccess(actor, ActionOfficerDelete); err != nil {
		return err
	}

	return s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		officer, err := tx.Officers().GetOwned(ctx, officerID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup officer", "", "officerNotFound")
		}

		if _, err := reconcile(ctx, tx, domain.RelationOfficerDivisions, officer.ID, nil); err != nil {
			return fmt.Errorf("unlink officer divisions: %w", err)
		}
		if err := tx.Officers().Delete(ctx, officer.ID); err != nil {
			return fmt.Errorf("delete officer: %w", err)
		}
		return nil
	})
}

// ListActive returns officers that are not off duty together with all combined units.
func (s *OfficerService) ListActive(ctx context.Context, actor domain.Actor) (ActiveUnits, error) {
	var result ActiveUnits
	if err := CheckAccess(actor, ActionActiveUnits); err != nil {
		return result, err
	}

	officers, err := s.store.Officers().ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("list active officers: %w", err)
	}
	units, err := s.store.CombinedUnits().List(ctx)
	if err != nil {
		return result, fmt.Errorf("list combined units: %w", err)
	}

	result.Officers = officers
	result.CombinedUnits = units
	return result, nil
}

// UploadImage stores an officer picture and records its key on the officer.
// The object is written last, inside the transaction, so a failed upload
// leaves the officer row untouched.
func (s *OfficerService) UploadImage(ctx context.Context, actor domain.Actor, officerID string, upload ImageUpload) (string, error) {
	if err := CheckAccess(actor, ActionOfficerImage); err != nil {
		return "", err
	}

	var key string
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		officer, err := tx.Officers().GetOwned(ctx, officerID, actor.UserID)
		if err != nil {
			return lookupErr(err, "lookup officer", "", "officerNotFound")
		}

		ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(upload.ContentType))]
		if !ok {
			return validation.FieldError("image", "invalidImageType")
		}
		if upload.Body == nil {
			return validation.FieldError("image", "This field is required")
		}
		if s.images == nil {
			return precondition("image", "imageStorageDisabled")
		}

		key = fmt.Sprintf("units/%s.%s", officer.ID, ext)
		if err := tx.Officers().UpdateImage(ctx, officer.ID, &key); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return notFound("", "officerNotFound")
			}
			return fmt.Errorf("update officer image: %w", err)
		}

		if err := s.images.PutImage(ctx, key, upload.ContentType, upload.Body, upload.Size); err != nil {
			return fmt.Errorf("store officer image: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return key, nil
}

func optionalString(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
