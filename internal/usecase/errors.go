package usecase

import (
	"errors"
	"fmt"

	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/repository"
)

var (
	// ErrPermissionDenied indicates the actor does not satisfy the action's requirement.
	ErrPermissionDenied = errors.New("insufficient permissions")
	// ErrNotFound indicates a referenced resource does not exist or is not visible to the actor.
	ErrNotFound = errors.New("resource not found")
	// ErrConflict indicates a uniqueness constraint would be violated.
	ErrConflict = errors.New("resource conflict")
	// ErrLimitExceeded indicates a configured per-user limit was reached.
	ErrLimitExceeded = errors.New("limit exceeded")
	// ErrPrecondition indicates required configuration or state is missing.
	ErrPrecondition = errors.New("precondition failed")
	// ErrValidation is matched by every request validation failure.
	ErrValidation = validation.ErrInvalid
)

// FieldError attaches the offending field and a stable code to one of the
// sentinel errors above. errors.Is sees through it to the sentinel.
type FieldError struct {
	Kind  error
	Field string
	Code  string
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Code)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

func notFound(field, code string) error {
	return &FieldError{Kind: ErrNotFound, Field: field, Code: code}
}

func conflict(field, code string) error {
	return &FieldError{Kind: ErrConflict, Field: field, Code: code}
}

func limitExceeded(field, code string) error {
	return &FieldError{Kind: ErrLimitExceeded, Field: field, Code: code}
}

func precondition(field, code string) error {
	return &FieldError{Kind: ErrPrecondition, Field: field, Code: code}
}

// lookupErr converts a repository miss into a NotFound error for field and
// wraps anything else with op.
func lookupErr(err error, op, field, code string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return notFound(field, code)
	}
	return fmt.Errorf("%s: %w", op, err)
}
