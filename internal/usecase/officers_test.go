package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

func officerInput(department string, divisions ...string) OfficerInput {
	return OfficerInput{
		CitizenID:    "cit-1",
		DepartmentID: department,
		Callsign:     "1A",
		Callsign2:    "12",
		Divisions:    divisions,
	}
}

func TestCreateOfficerLinksDivisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewOfficerService(store, nil, nil, nil)
	svc.WithClock(func() time.Time { return fixedNow })

	officer, err := svc.Create(ctx, leoActor("user-1"), testCad(), officerInput("dept-1", "div-2", "div-1", "div-2"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}
	if !reflect.DeepEqual(officer.DivisionIDs, []string{"div-1", "div-2"}) {
		t.Fatalf("unexpected divisions: %v", officer.DivisionIDs)
	}
	if !officer.CreatedAt.Equal(fixedNow) {
		t.Fatalf("expected clock to be used, got %v", officer.CreatedAt)
	}

	stored, err := store.Relations().ListRelated(ctx, domain.RelationOfficerDivisions, officer.ID)
	if err != nil {
		t.Fatalf("list divisions: %v", err)
	}
	if !reflect.DeepEqual(stored, []string{"div-1", "div-2"}) {
		t.Fatalf("unexpected stored divisions: %v", stored)
	}
}

func TestCreateOfficerRollsBackWhenDivisionsFail(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	store.FailOn("relations.ApplyRelationOps", errors.New("write failed"))
	svc := NewOfficerService(store, nil, nil, nil)

	if _, err := svc.Create(ctx, leoActor("user-1"), testCad(), officerInput("dept-1", "div-1")); err == nil {
		t.Fatal("expected create to fail")
	}

	officers, err := store.Officers().ListByUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("list officers: %v", err)
	}
	if len(officers) != 0 {
		t.Fatalf("expected no officer left behind, got %+v", officers)
	}
}

func TestCreateOfficerRespectsMaxOfficersPerUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewOfficerService(store, nil, nil, nil)

	cad := testCad()
	cad.MiscCadSettings.MaxOfficersPerUser = 2
	actor := leoActor("user-1")

	for i := 0; i < 2; i++ {
		if _, err := svc.Create(ctx, actor, cad, officerInput("dept-1", "div-1")); err != nil {
			t.Fatalf("create officer %d: %v", i, err)
		}
	}

	_, err := svc.Create(ctx, actor, cad, officerInput("dept-2", "div-1"))
	assertFieldError(t, err, ErrLimitExceeded, "", "maxLimitOfficersPerUserReached")

	count, err := store.Officers().Count(ctx, port.OfficerCountFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("count officers: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 officers to remain, got %d", count)
	}
}

func TestCreateOfficerRespectsDepartmentAndDivisionLimits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewOfficerService(store, nil, nil, nil)

	cad := testCad()
	cad.MiscCadSettings.MaxDepartmentsEachPerUser = 1
	cad.MiscCadSettings.MaxDivisionsPerOfficer = 2
	actor := leoActor("user-1")

	_, err := svc.Create(ctx, actor, cad, officerInput("dept-1", "div-1", "div-2", "div-3"))
	assertFieldError(t, err, ErrLimitExceeded, "divisions", "maxDivisionsReached")

	if _, err := svc.Create(ctx, actor, cad, officerInput("dept-1", "div-1")); err != nil {
		t.Fatalf("create officer: %v", err)
	}

	_, err = svc.Create(ctx, actor, cad, officerInput("dept-1", "div-1"))
	assertFieldError(t, err, ErrLimitExceeded, "department", "maxDepartmentsReachedPerUser")

	if _, err := svc.Create(ctx, actor, cad, officerInput("dept-2", "div-1")); err != nil {
		t.Fatalf("another department must still be allowed: %v", err)
	}
}

func TestCreateOfficerRequiresOwnedCitizen(t *testing.T) {
	svc := NewOfficerService(newTestStore(), nil, nil, nil)

	input := officerInput("dept-1", "div-1")
	input.CitizenID = "cit-2"

	_, err := svc.Create(context.Background(), leoActor("user-1"), testCad(), input)
	assertFieldError(t, err, ErrNotFound, "citizenId", "citizenNotFound")
}

func TestCreateOfficerChecksPermissionBeforeValidation(t *testing.T) {
	svc := NewOfficerService(newTestStore(), nil, nil, nil)

	_, err := svc.Create(context.Background(), dispatchActor("user-1"), testCad(), OfficerInput{})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	_, err = svc.Create(context.Background(), leoActor("user-1"), testCad(), OfficerInput{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestUpdateOfficerReconcilesDivisions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewOfficerService(store, nil, nil, nil)
	actor := leoActor("user-1")

	cad := testCad()
	cad.MiscCadSettings.MaxDepartmentsEachPerUser = 1

	officer, err := svc.Create(ctx, actor, cad, officerInput("dept-1", "div-1", "div-2"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}

	input := officerInput("dept-1", "div-2", "div-3")
	input.Callsign = "2B"
	updated, err := svc.Update(ctx, actor, cad, officer.ID, input)
	if err != nil {
		t.Fatalf("update officer in its own department must not count itself: %v", err)
	}
	if updated.Callsign != "2B" {
		t.Fatalf("expected callsign to change, got %s", updated.Callsign)
	}
	if !reflect.DeepEqual(updated.DivisionIDs, []string{"div-2", "div-3"}) {
		t.Fatalf("unexpected divisions: %v", updated.DivisionIDs)
	}

	_, err = svc.Update(ctx, leoActor("user-2"), cad, officer.ID, input)
	assertFieldError(t, err, ErrNotFound, "", "officerNotFound")
}

func TestDeleteOfficer(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	svc := NewOfficerService(store, nil, nil, nil)
	actor := leoActor("user-1")

	officer, err := svc.Create(ctx, actor, testCad(), officerInput("dept-1", "div-1"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}

	err = svc.Delete(ctx, leoActor("user-2"), officer.ID)
	assertFieldError(t, err, ErrNotFound, "", "officerNotFound")

	if err := svc.Delete(ctx, actor, officer.ID); err != nil {
		t.Fatalf("delete officer: %v", err)
	}
	officers, err := svc.List(ctx, actor)
	if err != nil {
		t.Fatalf("list officers: %v", err)
	}
	if len(officers) != 0 {
		t.Fatalf("expected no officers, got %d", len(officers))
	}
}

type imageStoreStub struct {
	key         string
	contentType string
	body        []byte
	err         error
}

func (s *imageStoreStub) PutImage(_ context.Context, key, contentType string, body io.Reader, _ int64) error {
	if s.err != nil {
		return s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.key, s.contentType, s.body = key, contentType, data
	return nil
}

func (s *imageStoreStub) ImageURL(key string) string { return "http://images/" + key }

func TestUploadOfficerImage(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	images := &imageStoreStub{}
	svc := NewOfficerService(store, nil, images, nil)
	actor := leoActor("user-1")

	officer, err := svc.Create(ctx, actor, testCad(), officerInput("dept-1", "div-1"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}

	_, err = svc.UploadImage(ctx, actor, officer.ID, ImageUpload{ContentType: "application/pdf", Body: bytes.NewReader([]byte("x"))})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for pdf, got %v", err)
	}

	key, err := svc.UploadImage(ctx, actor, officer.ID, ImageUpload{ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png"))})
	if err != nil {
		t.Fatalf("upload image: %v", err)
	}
	if key != "units/"+officer.ID+".png" || images.key != key || string(images.body) != "png" {
		t.Fatalf("unexpected upload: key=%s stored=%s body=%q", key, images.key, images.body)
	}

	stored, err := store.Officers().GetByID(ctx, officer.ID)
	if err != nil {
		t.Fatalf("get officer: %v", err)
	}
	if stored.ImageID == nil || *stored.ImageID != key {
		t.Fatalf("expected image id %s, got %v", key, stored.ImageID)
	}
}

func TestUploadOfficerImageKeepsRowWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	images := &imageStoreStub{err: errors.New("bucket unavailable")}
	svc := NewOfficerService(store, nil, images, nil)
	actor := leoActor("user-1")

	officer, err := svc.Create(ctx, actor, testCad(), officerInput("dept-1", "div-1"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}

	if _, err := svc.UploadImage(ctx, actor, officer.ID, ImageUpload{ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png"))}); err == nil {
		t.Fatal("expected upload to fail")
	}

	stored, err := store.Officers().GetByID(ctx, officer.ID)
	if err != nil {
		t.Fatalf("get officer: %v", err)
	}
	if stored.ImageID != nil {
		t.Fatalf("expected no image id after failed upload, got %s", *stored.ImageID)
	}
}

func TestUploadOfficerImageSkipsStorageWhenRowUpdateFails(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	images := &imageStoreStub{}
	svc := NewOfficerService(store, nil, images, nil)
	actor := leoActor("user-1")

	officer, err := svc.Create(ctx, actor, testCad(), officerInput("dept-1", "div-1"))
	if err != nil {
		t.Fatalf("create officer: %v", err)
	}

	store.FailOn("officers.UpdateImage", errors.New("write failed"))
	if _, err := svc.UploadImage(ctx, actor, officer.ID, ImageUpload{ContentType: "image/png", Size: 3, Body: bytes.NewReader([]byte("png"))}); err == nil {
		t.Fatal("expected upload to fail")
	}
	if images.key != "" {
		t.Fatalf("expected no object written, got %s", images.key)
	}
}

func TestListActiveUnits(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()
	onDuty := "status-on"
	store.PutStatusValue(domain.StatusValue{ID: onDuty, ShouldDo: domain.ShouldDoSetOnDuty})
	store.PutOfficer(domain.Officer{ID: "off-1", UserID: "user-1", StatusID: &onDuty})
	store.PutOfficer(domain.Officer{ID: "off-2", UserID: "user-1"})
	store.PutCombinedUnit(domain.CombinedLeoUnit{ID: "unit-1", Callsign: "1-ADAM"})

	svc := NewOfficerService(store, nil, nil, nil)
	units, err := svc.ListActive(ctx, domain.Actor{UserID: "user-9", IsEmsFd: true})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(units.Officers) != 1 || units.Officers[0].ID != "off-1" || len(units.CombinedUnits) != 1 {
		t.Fatalf("unexpected active units: %+v", units)
	}
}
