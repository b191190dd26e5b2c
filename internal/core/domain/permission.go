package domain

// Permission is a named capability granted to a user.
type Permission string

const (
	PermissionLeo              Permission = "leo"
	PermissionEmsFd            Permission = "ems-fd"
	PermissionDispatch         Permission = "dispatch"
	PermissionViewImpoundLot   Permission = "view-impound-lot"
	PermissionManageImpoundLot Permission = "manage-impound-lot"
	PermissionManageCitizens   Permission = "manage-citizens"
	PermissionManageBleets     Permission = "manage-bleets"
	PermissionViewAdmin        Permission = "view-admin"
	PermissionManageCad        Permission = "manage-cad-settings"
)

// KnownPermissions lists every permission tag understood by the API.
var KnownPermissions = []Permission{
	PermissionLeo,
	PermissionEmsFd,
	PermissionDispatch,
	PermissionViewImpoundLot,
	PermissionManageImpoundLot,
	PermissionManageCitizens,
	PermissionManageBleets,
	PermissionViewAdmin,
	PermissionManageCad,
}

// KnownPermission reports whether p is one of KnownPermissions.
func KnownPermission(p Permission) bool {
	for _, known := range KnownPermissions {
		if known == p {
			return true
		}
	}
	return false
}

// Requirement declares who may perform an action: anyone holding one of
// Permissions, or anyone for whom Fallback returns true.
type Requirement struct {
	Permissions []Permission
	Fallback    func(Actor) bool
}

// Authorize reports whether the actor satisfies the requirement. It has no side effects.
func Authorize(actor Actor, req Requirement) bool {
	for _, permission := range req.Permissions {
		if actor.HasPermission(permission) {
			return true
		}
	}

	if req.Fallback == nil {
		return false
	}

	return req.Fallback(actor)
}

// Fallback predicates shared by requirement declarations.

func IsLeo(a Actor) bool        { return a.IsLeo }
func IsEmsFd(a Actor) bool      { return a.IsEmsFd }
func IsDispatch(a Actor) bool   { return a.IsDispatch }
func IsAdmin(a Actor) bool      { return a.IsAdmin }
func IsSupervisor(a Actor) bool { return a.IsSupervisor }

// AnyOf combines fallback predicates with a logical OR.
func AnyOf(predicates ...func(Actor) bool) func(Actor) bool {
	return func(a Actor) bool {
		for _, p := range predicates {
			if p != nil && p(a) {
				return true
			}
		}
		return false
	}
}
