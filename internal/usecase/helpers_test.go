package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/repository/memory"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu      sync.Mutex
	events  []domain.Event
	ctxErrs []error
	err     error
}

func (n *recordingNotifier) Publish(ctx context.Context, event domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.ctxErrs = append(n.ctxErrs, ctx.Err())
	return n.err
}

func (n *recordingNotifier) kinds() []domain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventKind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func leoActor(userID string) domain.Actor {
	return domain.NewActor(userID, domain.PermissionLeo)
}

func dispatchActor(userID string) domain.Actor {
	actor := domain.NewActor(userID, domain.PermissionDispatch)
	actor.Username = userID
	return actor
}

func testCad() domain.Cad {
	return domain.Cad{
		ID:   "cad-1",
		Name: "Test CAD",
		MiscCadSettings: domain.MiscCadSettings{
			ID: "misc-1",
		},
	}
}

// newTestStore seeds a store with one citizen for user-1 and one for user-2.
func newTestStore() *memory.Store {
	store := memory.NewStore()
	store.SetCad(testCad())
	store.PutCitizen(domain.Citizen{ID: "cit-1", UserID: "user-1", Name: "John", Surname: "Doe"})
	store.PutCitizen(domain.Citizen{ID: "cit-2", UserID: "user-2", Name: "Jane", Surname: "Roe"})
	return store
}

func assertFieldError(t *testing.T, err error, kind error, field, code string) {
	t.Helper()

	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	var fieldErr *FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("expected *FieldError, got %T", err)
	}
	if fieldErr.Field != field || fieldErr.Code != code {
		t.Fatalf("expected field %q code %q, got field %q code %q", field, code, fieldErr.Field, fieldErr.Code)
	}
}

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }
