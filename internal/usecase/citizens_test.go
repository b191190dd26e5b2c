package usecase

import (
	"context"
	"reflect"
	"testing"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/infra/validation"
)

func TestUpdateCitizenLicensesKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.PutCitizen(domain.Citizen{ID: "cit-3", UserID: "user-3", DriversLicenseID: strPtr("valid"), PilotLicenseID: strPtr("valid")})
	svc := NewCitizenService(store, nil, nil)

	updated, err := svc.UpdateLicenses(ctx, leoActor("user-9"), "cit-3", CitizenLicensesInput{
		DriversLicense: validation.Some("suspended"),
		PilotLicense:   validation.Null[string](),
	})
	if err != nil {
		t.Fatalf("update licenses: %v", err)
	}
	if updated.DriversLicenseID == nil || *updated.DriversLicenseID != "suspended" {
		t.Fatalf("expected suspended drivers license, got %v", updated.DriversLicenseID)
	}
	if updated.PilotLicenseID != nil {
		t.Fatalf("expected pilot license cleared")
	}

	stored, _ := store.Citizens().GetByID(ctx, "cit-3")
	if stored.DriversLicenseID == nil || *stored.DriversLicenseID != "suspended" || stored.PilotLicenseID != nil {
		t.Fatalf("unexpected stored citizen: %+v", stored)
	}

	_, err = svc.UpdateLicenses(ctx, leoActor("user-9"), "missing", CitizenLicensesInput{})
	assertFieldError(t, err, ErrNotFound, "", "citizenNotFound")
}

func TestUpdateCitizenFlags(t *testing.T) {
	ctx := context.Background()
	events := &recordingNotifier{}
	svc := NewCitizenService(newTestStore(), events, nil)

	flags, err := svc.UpdateFlags(ctx, leoActor("user-9"), "cit-1", FlagsInput{Flags: []string{"armed", "armed", "gang"}})
	if err != nil {
		t.Fatalf("update flags: %v", err)
	}
	if !reflect.DeepEqual(flags, []string{"armed", "gang"}) {
		t.Fatalf("unexpected flags: %v", flags)
	}

	payload, ok := events.events[0].Payload.(domain.FlagsPayload)
	if !ok || payload.ResourceID != "cit-1" || events.events[0].Kind != domain.EventCitizenFlagsUpdated {
		t.Fatalf("unexpected event: %+v", events.events[0])
	}
}

func TestAdminStats(t *testing.T) {
	store := newTestStore()
	store.SetUserStats(domain.AdminStats{ActiveUsers: 4, PendingUsers: 1})
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "A", Impounded: true})
	svc := NewAdminService(store.Stats())

	stats, err := svc.Stats(context.Background(), domain.Actor{UserID: "admin", IsAdmin: true})
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.ActiveUsers != 4 || stats.CreatedCitizens != 2 || stats.Vehicles != 1 || stats.ImpoundedVehicles != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := svc.Stats(context.Background(), leoActor("user-1")); err == nil {
		t.Fatalf("expected permission error")
	}
}
