package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/infra/validation"
)

func vehicleInput(plate string) VehicleInput {
	return VehicleInput{
		CitizenID:            "cit-1",
		Plate:                plate,
		ModelID:              "model-1",
		Color:                "Black",
		RegistrationStatusID: "reg-valid",
	}
}

func TestRegisterVehicleRejectsDuplicatePlate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewVehicleService(store, nil, nil)
	actor := domain.Actor{UserID: "user-1"}

	first, err := svc.Register(ctx, actor, vehicleInput("abc 123"))
	if err != nil {
		t.Fatalf("register first: %v", err)
	}
	if first.Plate != "ABC 123" {
		t.Fatalf("expected normalized plate, got %s", first.Plate)
	}
	if len(first.VinNumber) != vinLength {
		t.Fatalf("expected generated %d char vin, got %q", vinLength, first.VinNumber)
	}

	second := vehicleInput("ABC 123")
	second.Color = "White"
	_, err = svc.Register(ctx, actor, second)
	assertFieldError(t, err, ErrConflict, "plate", "plateAlreadyInUse")

	vehicles, err := store.Vehicles().List(ctx, port.VehicleFilter{})
	if err != nil {
		t.Fatalf("list vehicles: %v", err)
	}
	if len(vehicles) != 1 || vehicles[0].ID != first.ID || vehicles[0].Color != "Black" {
		t.Fatalf("storage must keep only the first vehicle, got %+v", vehicles)
	}
}

func TestRegisterVehicleRequiresOwnedCitizen(t *testing.T) {
	svc := NewVehicleService(newTestStore(), nil, nil)

	input := vehicleInput("XYZ")
	input.CitizenID = "cit-2"
	_, err := svc.Register(context.Background(), domain.Actor{UserID: "user-1"}, input)
	assertFieldError(t, err, ErrNotFound, "citizenId", "citizenNotFound")
}

func TestUpdateVehicleKeepsOwnPlate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewVehicleService(store, nil, nil)
	actor := domain.Actor{UserID: "user-1"}

	first, err := svc.Register(ctx, actor, vehicleInput("AAA"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, actor, vehicleInput("BBB")); err != nil {
		t.Fatalf("register: %v", err)
	}

	input := vehicleInput("AAA")
	input.Flags = []string{"flag-1"}
	updated, err := svc.Update(ctx, actor, first.ID, input)
	if err != nil {
		t.Fatalf("update with own plate: %v", err)
	}
	if !reflect.DeepEqual(updated.FlagIDs, []string{"flag-1"}) {
		t.Fatalf("unexpected flags: %v", updated.FlagIDs)
	}

	_, err = svc.Update(ctx, actor, first.ID, vehicleInput("bbb"))
	assertFieldError(t, err, ErrConflict, "plate", "plateAlreadyInUse")

	_, err = svc.Update(ctx, domain.Actor{UserID: "user-2"}, first.ID, vehicleInput("CCC"))
	assertFieldError(t, err, ErrNotFound, "", "vehicleNotFound")
}

func TestUpdateVehicleFlagsEmitsEvent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "AAA"})
	events := &recordingNotifier{}
	svc := NewVehicleService(store, events, nil)
	actor := leoActor("user-9")

	if _, err := svc.UpdateFlags(ctx, actor, "veh-1", FlagsInput{Flags: []string{"stolen", "bolo"}}); err != nil {
		t.Fatalf("set flags: %v", err)
	}
	flags, err := svc.UpdateFlags(ctx, actor, "veh-1", FlagsInput{Flags: []string{"bolo", "wanted"}})
	if err != nil {
		t.Fatalf("reset flags: %v", err)
	}
	if !reflect.DeepEqual(flags, []string{"bolo", "wanted"}) {
		t.Fatalf("unexpected flags: %v", flags)
	}

	if got := events.kinds(); len(got) != 2 || got[1] != domain.EventVehicleFlagsUpdated {
		t.Fatalf("unexpected events: %v", got)
	}

	_, err = svc.UpdateFlags(ctx, actor, "veh-missing", FlagsInput{})
	assertFieldError(t, err, ErrNotFound, "", "vehicleNotFound")
}

func TestUpdateVehicleLicenses(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "AAA", RegistrationStatusID: "reg-1", InsuranceStatusID: strPtr("ins-1")})
	svc := NewVehicleService(store, nil, nil)

	taxed := domain.VehicleTaxTaxed
	updated, err := svc.UpdateLicenses(ctx, leoActor("user-9"), "veh-1", VehicleLicensesInput{
		RegistrationStatusID: "reg-2",
		InsuranceStatusID:    validation.Null[string](),
		TaxStatus:            validation.Some(taxed),
	})
	if err != nil {
		t.Fatalf("update licenses: %v", err)
	}
	if updated.RegistrationStatusID != "reg-2" || updated.InsuranceStatusID != nil || *updated.TaxStatus != taxed {
		t.Fatalf("unexpected vehicle: %+v", updated)
	}

	_, err = svc.UpdateLicenses(ctx, leoActor("user-9"), "veh-1", VehicleLicensesInput{
		RegistrationStatusID: "reg-2",
		TaxStatus:            validation.Some(domain.VehicleTaxStatus("MAYBE")),
	})
	if err == nil {
		t.Fatalf("expected validation error for unknown tax status")
	}
}

func TestUpdateVehicleLicensesKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	taxed, passed := domain.VehicleTaxTaxed, domain.VehicleInspectionPassed
	store.PutVehicle(domain.RegisteredVehicle{
		ID:                   "veh-1",
		Plate:                "AAA",
		RegistrationStatusID: "reg-1",
		InsuranceStatusID:    strPtr("ins-1"),
		TaxStatus:            &taxed,
		InspectionStatus:     &passed,
	})
	svc := NewVehicleService(store, nil, nil)

	var input VehicleLicensesInput
	if err := json.Unmarshal([]byte(`{"registrationStatus":"reg-2"}`), &input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := svc.UpdateLicenses(ctx, leoActor("user-9"), "veh-1", input); err != nil {
		t.Fatalf("update licenses: %v", err)
	}
	stored, _ := store.Vehicles().GetByID(ctx, "veh-1")
	if stored.TaxStatus == nil || *stored.TaxStatus != taxed ||
		stored.InspectionStatus == nil || *stored.InspectionStatus != passed ||
		stored.InsuranceStatusID == nil || *stored.InsuranceStatusID != "ins-1" {
		t.Fatalf("omitted fields must keep their values, got %+v", stored)
	}

	input = VehicleLicensesInput{}
	if err := json.Unmarshal([]byte(`{"registrationStatus":"reg-2","taxStatus":null}`), &input); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := svc.UpdateLicenses(ctx, leoActor("user-9"), "veh-1", input); err != nil {
		t.Fatalf("update licenses: %v", err)
	}
	stored, _ = store.Vehicles().GetByID(ctx, "veh-1")
	if stored.TaxStatus != nil || stored.InspectionStatus == nil {
		t.Fatalf("expected only tax status cleared, got %+v", stored)
	}
}

func TestUpdateVehicleKeepsInsuranceWhenOmitted(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewVehicleService(store, nil, nil)
	actor := domain.Actor{UserID: "user-1"}

	input := vehicleInput("INS1")
	input.InsuranceStatusID = validation.Some("ins-1")
	vehicle, err := svc.Register(ctx, actor, input)
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	updated, err := svc.Update(ctx, actor, vehicle.ID, vehicleInput("INS1"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.InsuranceStatusID == nil || *updated.InsuranceStatusID != "ins-1" {
		t.Fatalf("expected insurance kept, got %v", updated.InsuranceStatusID)
	}

	cleared := vehicleInput("INS1")
	cleared.InsuranceStatusID = validation.Null[string]()
	updated, err = svc.Update(ctx, actor, vehicle.ID, cleared)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.InsuranceStatusID != nil {
		t.Fatalf("expected insurance cleared, got %v", *updated.InsuranceStatusID)
	}
}

func TestRegisterVehicleRollsBackWhenFlagsFail(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.FailOn("relations.ApplyRelationOps", errors.New("write failed"))
	svc := NewVehicleService(store, nil, nil)
	actor := domain.Actor{UserID: "user-1"}

	input := vehicleInput("ROLL1")
	input.Flags = []string{"stolen"}
	if _, err := svc.Register(ctx, actor, input); err == nil {
		t.Fatal("expected register to fail")
	}

	vehicles, err := store.Vehicles().List(ctx, port.VehicleFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(vehicles) != 0 {
		t.Fatalf("expected no vehicle left behind, got %+v", vehicles)
	}

	store.FailOn("relations.ApplyRelationOps", nil)
	if _, err := svc.Register(ctx, actor, input); err != nil {
		t.Fatalf("plate must still be free after the rollback: %v", err)
	}
}

func TestDeleteVehicle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewVehicleService(store, nil, nil)
	actor := domain.Actor{UserID: "user-1"}

	vehicle, err := svc.Register(ctx, actor, vehicleInput("DEL"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Delete(ctx, actor, vehicle.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Register(ctx, actor, vehicleInput("DEL")); err != nil {
		t.Fatalf("plate must be free after delete: %v", err)
	}
}
