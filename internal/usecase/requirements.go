package usecase

import (
	"sort"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// Action names a gated operation.
type Action string

const (
	ActionOfficerList      Action = "officer.list"
	ActionOfficerCreate    Action = "officer.create"
	ActionOfficerUpdate    Action = "officer.update"
	ActionOfficerDelete    Action = "officer.delete"
	ActionOfficerImage     Action = "officer.image"
	ActionActiveUnits      Action = "officer.active"
	ActionPanicButton      Action = "officer.panic"
	ActionVehicleFlags     Action = "leo.vehicle_flags"
	ActionCitizenFlags     Action = "leo.citizen_flags"
	ActionCitizenLicenses  Action = "leo.citizen_licenses"
	ActionVehicleLicenses  Action = "leo.vehicle_licenses"
	ActionImpoundList      Action = "impound.list"
	ActionImpoundCheckout  Action = "impound.checkout"
	ActionVehicleList      Action = "vehicle.list"
	ActionVehicleRegister  Action = "vehicle.register"
	ActionVehicleUpdate    Action = "vehicle.update"
	ActionVehicleDelete    Action = "vehicle.delete"
	ActionDispatchOverview Action = "dispatch.overview"
	ActionDispatchAop      Action = "dispatch.aop"
	ActionDispatchSignal   Action = "dispatch.signal100"
	ActionDispatchState    Action = "dispatch.state"
	ActionDispatchRadio    Action = "dispatch.radio_channel"
	ActionCallList         Action = "call911.list"
	ActionCallCreate       Action = "call911.create"
	ActionCallUpdate       Action = "call911.update"
	ActionCallDelete       Action = "call911.delete"
	ActionBleetList        Action = "bleet.list"
	ActionBleetCreate      Action = "bleet.create"
	ActionBleetUpdate      Action = "bleet.update"
	ActionBleetDelete      Action = "bleet.delete"
	ActionAdminStats       Action = "admin.stats"
	ActionSubscribe        Action = "events.subscribe"
)

func isAuthenticated(a domain.Actor) bool {
	return a.UserID != "" || a.IsAPIToken
}

var (
	leoRequirement = domain.Requirement{
		Permissions: []domain.Permission{domain.PermissionLeo},
		Fallback:    domain.IsLeo,
	}
	dispatchRequirement = domain.Requirement{
		Permissions: []domain.Permission{domain.PermissionDispatch},
		Fallback:    domain.IsDispatch,
	}
	emergencyRequirement = domain.Requirement{
		Permissions: []domain.Permission{domain.PermissionLeo, domain.PermissionDispatch, domain.PermissionEmsFd},
		Fallback:    domain.AnyOf(domain.IsLeo, domain.IsDispatch, domain.IsEmsFd),
	}
	authenticatedRequirement = domain.Requirement{Fallback: isAuthenticated}
)

var requirements = map[Action]domain.Requirement{
	ActionOfficerList:     leoRequirement,
	ActionOfficerCreate:   leoRequirement,
	ActionOfficerUpdate:   leoRequirement,
	ActionOfficerDelete:   leoRequirement,
	ActionOfficerImage:    leoRequirement,
	ActionActiveUnits:     emergencyRequirement,
	ActionPanicButton:     leoRequirement,
	ActionVehicleFlags:    leoRequirement,
	ActionCitizenFlags:    leoRequirement,
	ActionCitizenLicenses: leoRequirement,
	ActionVehicleLicenses: leoRequirement,
	ActionImpoundList: {
		Permissions: []domain.Permission{domain.PermissionViewImpoundLot, domain.PermissionManageImpoundLot},
		Fallback:    domain.IsLeo,
	},
	ActionImpoundCheckout: {
		Permissions: []domain.Permission{domain.PermissionManageImpoundLot},
		Fallback:    domain.IsLeo,
	},
	ActionVehicleList:      authenticatedRequirement,
	ActionVehicleRegister:  authenticatedRequirement,
	ActionVehicleUpdate:    authenticatedRequirement,
	ActionVehicleDelete:    authenticatedRequirement,
	ActionDispatchOverview: emergencyRequirement,
	ActionDispatchAop:      dispatchRequirement,
	ActionDispatchSignal:   dispatchRequirement,
	ActionDispatchState:    dispatchRequirement,
	ActionDispatchRadio:    dispatchRequirement,
	ActionCallList:         emergencyRequirement,
	ActionCallCreate:       emergencyRequirement,
	ActionCallUpdate:       emergencyRequirement,
	ActionCallDelete:       emergencyRequirement,
	ActionBleetList:        authenticatedRequirement,
	ActionBleetCreate:      authenticatedRequirement,
	ActionBleetUpdate:      authenticatedRequirement,
	ActionBleetDelete:      authenticatedRequirement,
	ActionAdminStats: {
		Permissions: []domain.Permission{domain.PermissionViewAdmin},
		Fallback:    domain.IsAdmin,
	},
	ActionSubscribe: authenticatedRequirement,
}

// RequirementFor returns the requirement declared for action.
func RequirementFor(action Action) (domain.Requirement, bool) {
	req, ok := requirements[action]
	return req, ok
}

// Actions lists every gated action in lexical order.
func Actions() []Action {
	out := make([]Action, 0, len(requirements))
	for action := range requirements {
		out = append(out, action)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// CheckAccess returns ErrPermissionDenied unless actor may perform action.
// Undeclared actions are always denied.
func CheckAccess(actor domain.Actor, action Action) error {
	req, ok := requirements[action]
	if !ok || !domain.Authorize(actor, req) {
		return ErrPermissionDenied
	}
	return nil
}
