package usecase

import (
	"errors"
	"testing"

	"github.com/spiderlily190/cad/internal/core/domain"
)

func TestEveryActionHasARequirement(t *testing.T) {
	for _, action := range Actions() {
		req, ok := RequirementFor(action)
		if !ok {
			t.Fatalf("action %s has no requirement", action)
		}
		if len(req.Permissions) == 0 && req.Fallback == nil {
			t.Fatalf("action %s can never be authorized", action)
		}
	}
}

func TestCheckAccess(t *testing.T) {
	tests := []struct {
		name   string
		actor  domain.Actor
		action Action
		want   error
	}{
		{name: "leo permission", actor: leoActor("u1"), action: ActionOfficerCreate},
		{name: "leo flag", actor: domain.Actor{UserID: "u1", IsLeo: true}, action: ActionPanicButton},
		{name: "dispatch cannot create officer", actor: dispatchActor("u1"), action: ActionOfficerCreate, want: ErrPermissionDenied},
		{name: "ems can see board", actor: domain.NewActor("u1", domain.PermissionEmsFd), action: ActionDispatchOverview},
		{name: "view impound lot", actor: domain.NewActor("u1", domain.PermissionViewImpoundLot), action: ActionImpoundList},
		{name: "view cannot checkout", actor: domain.NewActor("u1", domain.PermissionViewImpoundLot), action: ActionImpoundCheckout, want: ErrPermissionDenied},
		{name: "admin flag", actor: domain.Actor{UserID: "u1", IsAdmin: true}, action: ActionAdminStats},
		{name: "anonymous bleet", actor: domain.Actor{}, action: ActionBleetCreate, want: ErrPermissionDenied},
		{name: "authenticated bleet", actor: domain.Actor{UserID: "u1"}, action: ActionBleetCreate},
		{name: "unknown action", actor: domain.NewActor("u1", domain.KnownPermissions...), action: Action("nope"), want: ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckAccess(tt.actor, tt.action)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
