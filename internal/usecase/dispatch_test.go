package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spiderlily190/cad/internal/core/domain"
)

type cadCacheStub struct {
	cad         *domain.Cad
	getErr      error
	sets        int
	invalidated int
}

func (c *cadCacheStub) GetCad(context.Context) (*domain.Cad, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.cad, nil
}

func (c *cadCacheStub) SetCad(_ context.Context, cad domain.Cad, _ time.Duration) error {
	c.sets++
	c.cad = &cad
	return nil
}

func (c *cadCacheStub) InvalidateCad(context.Context) error {
	c.invalidated++
	c.cad = nil
	return nil
}

func TestUpdateAreaOfPlay(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	cache := &cadCacheStub{}
	events := &recordingNotifier{}
	cads := NewCadService(store.Cad(), cache, time.Minute, nil)
	svc := NewDispatchService(store, events, cads, nil)

	aop, err := svc.UpdateAreaOfPlay(ctx, dispatchActor("user-1"), testCad(), AopInput{Aop: "  Sandy Shores "})
	if err != nil {
		t.Fatalf("update aop: %v", err)
	}
	if *aop != "Sandy Shores" {
		t.Fatalf("unexpected aop: %q", *aop)
	}

	cad, err := cads.Current(ctx)
	if err != nil {
		t.Fatalf("current cad: %v", err)
	}
	if cad.AreaOfPlay == nil || *cad.AreaOfPlay != "Sandy Shores" {
		t.Fatalf("expected stored aop, got %v", cad.AreaOfPlay)
	}
	if cache.invalidated != 1 || cache.sets != 1 {
		t.Fatalf("expected one invalidation and one refill, got %d/%d", cache.invalidated, cache.sets)
	}

	if got := events.kinds(); len(got) != 1 || got[0] != domain.EventAopUpdated {
		t.Fatalf("unexpected events: %v", got)
	}

	_, err = svc.UpdateAreaOfPlay(ctx, leoActor("user-1"), testCad(), AopInput{Aop: "x"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestSetSignal100RequiresValue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	events := &recordingNotifier{}
	svc := NewDispatchService(store, events, nil, nil)

	if _, err := svc.SetSignal100(ctx, dispatchActor("user-1"), testCad(), ToggleInput{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}

	value, err := svc.SetSignal100(ctx, dispatchActor("user-1"), testCad(), ToggleInput{Value: boolPtr(false)})
	if err != nil || value {
		t.Fatalf("expected signal 100 off, got %v %v", value, err)
	}

	cad, _ := store.Cad().Get(ctx)
	if cad.MiscCadSettings.Signal100Enabled {
		t.Fatalf("expected signal 100 stored as off")
	}

	payload, ok := events.events[0].Payload.(domain.Signal100Payload)
	if !ok || payload.Enabled {
		t.Fatalf("unexpected payload: %#v", events.events[0].Payload)
	}
}

func TestSetDispatcherState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	events := &recordingNotifier{}
	svc := NewDispatchService(store, events, nil, nil)
	actor := dispatchActor("user-1")

	_, err := svc.SetDispatcherState(ctx, actor, testCad(), ToggleInput{Value: boolPtr(true)})
	assertFieldError(t, err, ErrPrecondition, "", "featureDisabled")

	cad := testCad()
	cad.Features = []domain.CadFeature{{Feature: domain.FeatureActiveDispatchers, IsEnabled: true}}

	for i := 0; i < 2; i++ {
		roster, err := svc.SetDispatcherState(ctx, actor, cad, ToggleInput{Value: boolPtr(true)})
		if err != nil {
			t.Fatalf("go active: %v", err)
		}
		if len(roster) != 1 || roster[0].UserID != "user-1" {
			t.Fatalf("expected a single active dispatcher, got %+v", roster)
		}
	}

	roster, err := svc.SetDispatcherState(ctx, actor, cad, ToggleInput{Value: boolPtr(false)})
	if err != nil {
		t.Fatalf("go inactive: %v", err)
	}
	if len(roster) != 0 {
		t.Fatalf("expected empty roster, got %+v", roster)
	}

	if got := events.kinds(); len(got) != 3 {
		t.Fatalf("expected one event per call, got %v", got)
	}
}

func TestSetRadioChannel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.PutOfficer(domain.Officer{ID: "off-1", UserID: "user-1"})
	store.PutDeputy(domain.EmsFdDeputy{ID: "dep-1", UserID: "user-2"})
	events := &recordingNotifier{}
	svc := NewDispatchService(store, events, nil, nil)
	actor := dispatchActor("user-3")

	unit, err := svc.SetRadioChannel(ctx, actor, "dep-1", RadioChannelInput{Channel: strPtr("ch-2")})
	if err != nil {
		t.Fatalf("set deputy channel: %v", err)
	}
	if unit.Type != domain.UnitTypeDeputy || unit.RadioChannelID == nil || *unit.RadioChannelID != "ch-2" {
		t.Fatalf("unexpected unit: %+v", unit)
	}

	if _, err := svc.SetRadioChannel(ctx, actor, "off-1", RadioChannelInput{Channel: strPtr("ch-1")}); err != nil {
		t.Fatalf("set officer channel: %v", err)
	}
	if _, err := svc.SetRadioChannel(ctx, actor, "off-1", RadioChannelInput{}); err != nil {
		t.Fatalf("clear officer channel: %v", err)
	}
	officer, _ := store.Officers().GetByID(ctx, "off-1")
	if officer.RadioChannelID != nil {
		t.Fatalf("expected cleared channel, got %v", *officer.RadioChannelID)
	}

	want := []domain.EventKind{domain.EventDeputyStatus, domain.EventOfficerStatus, domain.EventOfficerStatus}
	got := events.kinds()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	_, err = svc.SetRadioChannel(ctx, actor, "ghost", RadioChannelInput{})
	assertFieldError(t, err, ErrNotFound, "radioChannel", "unitNotFound")
}

func TestDispatchOverview(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	onDuty := "status-on"
	store.PutStatusValue(domain.StatusValue{ID: onDuty, ShouldDo: domain.ShouldDoSetOnDuty})
	store.PutOfficer(domain.Officer{ID: "off-1", StatusID: &onDuty})
	store.PutDeputy(domain.EmsFdDeputy{ID: "dep-1"})

	calls := NewCallService(store, nil, nil)
	if _, err := calls.Create(ctx, dispatchActor("user-1"), testCad(), CallInput{Location: "Route 68", Name: "Caller"}); err != nil {
		t.Fatalf("create call: %v", err)
	}

	overview, err := NewDispatchService(store, nil, nil, nil).Overview(ctx, domain.Actor{UserID: "u", IsDispatch: true})
	if err != nil {
		t.Fatalf("overview: %v", err)
	}
	if len(overview.Officers) != 1 || len(overview.Deputies) != 1 || len(overview.ActiveCalls) != 1 {
		t.Fatalf("unexpected overview: %+v", overview)
	}
}

func TestCadServiceFallsBackWhenCacheFails(t *testing.T) {
	store := newTestStore()
	cache := &cadCacheStub{getErr: errors.New("redis down")}
	cads := NewCadService(store.Cad(), cache, time.Minute, nil)

	cad, err := cads.Current(context.Background())
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if cad.ID != "cad-1" {
		t.Fatalf("unexpected cad: %+v", cad)
	}
}
