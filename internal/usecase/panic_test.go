package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/repository/memory"
)

const (
	panicStatusID  = "status-panic"
	onDutyStatusID = "status-on"
)

func panicStore(withOnDuty bool) *memory.Store {
	store := newTestStore()
	store.PutStatusValue(domain.StatusValue{ID: panicStatusID, Value: "PANIC", ShouldDo: domain.ShouldDoPanicButton})
	if withOnDuty {
		store.PutStatusValue(domain.StatusValue{ID: onDutyStatusID, Value: "10-8", ShouldDo: domain.ShouldDoSetOnDuty})
	}
	status := onDutyStatusID
	store.PutOfficer(domain.Officer{ID: "off-1", UserID: "user-1", Callsign: "1A", StatusID: &status})
	return store
}

func officerStatus(t *testing.T, store *memory.Store, id string) string {
	t.Helper()
	officer, err := store.Officers().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get officer: %v", err)
	}
	if officer.StatusID == nil {
		return ""
	}
	return *officer.StatusID
}

func TestPanicButtonRaisesAndClears(t *testing.T) {
	ctx := context.Background()
	store := panicStore(true)
	events := &recordingNotifier{}
	svc := NewPanicService(store, events, nil)
	actor := leoActor("user-1")

	result, err := svc.Toggle(ctx, actor, PanicInput{OfficerID: "off-1"})
	if err != nil {
		t.Fatalf("raise panic: %v", err)
	}
	if !result.Raised || officerStatus(t, store, "off-1") != panicStatusID {
		t.Fatalf("expected officer in panic, got %+v", result)
	}

	result, err = svc.Toggle(ctx, actor, PanicInput{OfficerID: "off-1"})
	if err != nil {
		t.Fatalf("clear panic: %v", err)
	}
	if result.Raised || officerStatus(t, store, "off-1") != onDutyStatusID {
		t.Fatalf("expected officer back on duty, got %+v", result)
	}

	want := []domain.EventKind{
		domain.EventOfficerStatus, domain.EventPanicRaised,
		domain.EventOfficerStatus, domain.EventPanicCleared,
	}
	if got := events.kinds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected events %v, got %v", want, got)
	}

	payload, ok := events.events[1].Payload.(domain.UnitPayload)
	if !ok || payload.UnitID != "off-1" || payload.UnitType != domain.UnitTypeOfficer {
		t.Fatalf("unexpected panic payload: %#v", events.events[1].Payload)
	}
}

func TestPanicButtonWithoutOnDutyCodeKeepsPanic(t *testing.T) {
	ctx := context.Background()
	store := panicStore(false)
	status := panicStatusID
	store.PutOfficer(domain.Officer{ID: "off-1", UserID: "user-1", StatusID: &status})
	events := &recordingNotifier{}
	svc := NewPanicService(store, events, nil)

	_, err := svc.Toggle(ctx, leoActor("user-1"), PanicInput{OfficerID: "off-1"})
	assertFieldError(t, err, ErrPrecondition, "", "mustHaveOnDutyCode")

	if got := officerStatus(t, store, "off-1"); got != panicStatusID {
		t.Fatalf("status must stay PANIC, got %s", got)
	}
	if len(events.kinds()) != 0 {
		t.Fatalf("no events expected on failure, got %v", events.kinds())
	}
}

func TestPanicButtonWithoutPanicCode(t *testing.T) {
	store := newTestStore()
	store.PutOfficer(domain.Officer{ID: "off-1", UserID: "user-1"})
	svc := NewPanicService(store, nil, nil)

	_, err := svc.Toggle(context.Background(), leoActor("user-1"), PanicInput{OfficerID: "off-1"})
	assertFieldError(t, err, ErrPrecondition, "", "mustHavePanicButtonCode")
}

func TestPanicButtonOwnership(t *testing.T) {
	ctx := context.Background()
	store := panicStore(true)
	svc := NewPanicService(store, nil, nil)

	_, err := svc.Toggle(ctx, leoActor("user-2"), PanicInput{OfficerID: "off-1"})
	assertFieldError(t, err, ErrNotFound, "", "officerNotFound")

	apiToken := domain.Actor{IsAPIToken: true, IsLeo: true}
	if _, err := svc.Toggle(ctx, apiToken, PanicInput{OfficerID: "off-1"}); err != nil {
		t.Fatalf("api token must skip ownership: %v", err)
	}
	if got := officerStatus(t, store, "off-1"); got != panicStatusID {
		t.Fatalf("expected panic status, got %s", got)
	}
}

func TestPanicButtonCombinedUnit(t *testing.T) {
	ctx := context.Background()
	store := panicStore(true)
	store.PutCombinedUnit(domain.CombinedLeoUnit{ID: "unit-1", Callsign: "1-ADAM"})
	svc := NewPanicService(store, nil, nil)

	result, err := svc.Toggle(ctx, leoActor("user-1"), PanicInput{OfficerID: "unit-1"})
	if err != nil {
		t.Fatalf("toggle combined unit: %v", err)
	}
	if result.Unit.Type != domain.UnitTypeCombined || !result.Raised {
		t.Fatalf("unexpected result: %+v", result)
	}

	unit, err := store.CombinedUnits().GetByID(ctx, "unit-1")
	if err != nil {
		t.Fatalf("get unit: %v", err)
	}
	if unit.StatusID == nil || *unit.StatusID != panicStatusID {
		t.Fatalf("expected combined unit in panic, got %v", unit.StatusID)
	}
}

func TestPanicButtonPublishFailureDoesNotFailToggle(t *testing.T) {
	store := panicStore(true)
	events := &recordingNotifier{err: errors.New("broker down")}
	svc := NewPanicService(store, events, nil)

	if _, err := svc.Toggle(context.Background(), leoActor("user-1"), PanicInput{OfficerID: "off-1"}); err != nil {
		t.Fatalf("publish failure must not fail the mutation: %v", err)
	}
	if got := officerStatus(t, store, "off-1"); got != panicStatusID {
		t.Fatalf("expected panic status to be committed, got %s", got)
	}
}
