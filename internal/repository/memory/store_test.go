package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/repository"
)

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "ABC123", Impounded: true})

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if err := tx.Vehicles().SetImpounded(ctx, "veh-1", false); err != nil {
			return err
		}
		if err := tx.Relations().ApplyRelationOps(ctx, domain.RelationVehicleFlags, "veh-1", []domain.RelationOp{{Kind: domain.RelationConnect, ID: "flag-1"}}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	vehicle, err := store.Vehicles().GetByID(ctx, "veh-1")
	if err != nil {
		t.Fatalf("get vehicle: %v", err)
	}
	if !vehicle.Impounded {
		t.Fatalf("expected impounded flag to be restored")
	}

	flags, err := store.Relations().ListRelated(ctx, domain.RelationVehicleFlags, "veh-1")
	if err != nil {
		t.Fatalf("list flags: %v", err)
	}
	if len(flags) != 0 {
		t.Fatalf("expected no flags after rollback, got %v", flags)
	}
}

func TestNestedWithinTxJoinsOuterTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "ABC123"})

	err := store.WithinTx(ctx, func(ctx context.Context, tx port.Store) error {
		if err := tx.WithinTx(ctx, func(ctx context.Context, inner port.Store) error {
			return inner.Vehicles().SetImpounded(ctx, "veh-1", true)
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected error")
	}

	vehicle, _ := store.Vehicles().GetByID(ctx, "veh-1")
	if vehicle.Impounded {
		t.Fatalf("inner write must be rolled back with the outer transaction")
	}
}

func TestFailOnInjectsErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	store.PutVehicle(domain.RegisteredVehicle{ID: "veh-1", Plate: "ABC123"})

	injected := errors.New("disk full")
	store.FailOn("vehicles.SetImpounded", injected)
	if err := store.Vehicles().SetImpounded(ctx, "veh-1", true); !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	store.FailOn("vehicles.SetImpounded", nil)
	if err := store.Vehicles().SetImpounded(ctx, "veh-1", true); err != nil {
		t.Fatalf("expected cleared failure, got %v", err)
	}
}

func TestVehiclePlatesAreUnique(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.Vehicles().Create(ctx, domain.RegisteredVehicle{ID: "veh-1", Plate: "ABC123"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	err := store.Vehicles().Create(ctx, domain.RegisteredVehicle{ID: "veh-2", Plate: "abc123"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestListActiveSkipsOffDutyAndUnsetStatus(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	onDuty, offDuty := "status-on", "status-off"
	store.PutStatusValue(domain.StatusValue{ID: onDuty, ShouldDo: domain.ShouldDoSetOnDuty})
	store.PutStatusValue(domain.StatusValue{ID: offDuty, ShouldDo: domain.ShouldDoSetOffDuty})
	store.PutOfficer(domain.Officer{ID: "off-1", StatusID: &onDuty})
	store.PutOfficer(domain.Officer{ID: "off-2", StatusID: &offDuty})
	store.PutOfficer(domain.Officer{ID: "off-3"})

	active, err := store.Officers().ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "off-1" {
		t.Fatalf("unexpected active officers: %+v", active)
	}
}
