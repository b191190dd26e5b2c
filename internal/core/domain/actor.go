package domain

// Actor is the authenticated requester. It is built once per request by the
// auth middleware and never mutated afterwards.
type Actor struct {
	UserID       string
	Username     string
	Permissions  map[Permission]struct{}
	IsLeo        bool
	IsEmsFd      bool
	IsDispatch   bool
	IsSupervisor bool
	IsAdmin      bool
	// IsAPIToken marks requests authenticated with the CAD API token. Such
	// actors act CAD-wide and are not restricted to units they own.
	IsAPIToken bool
}

// NewActor builds an actor from a user id and a list of granted permissions.
func NewActor(userID string, permissions ...Permission) Actor {
	set := make(map[Permission]struct{}, len(permissions))
	for _, p := range permissions {
		if p == "" {
			continue
		}
		set[p] = struct{}{}
	}
	return Actor{UserID: userID, Permissions: set}
}

// HasPermission reports whether the permission was granted to the actor.
func (a Actor) HasPermission(p Permission) bool {
	if a.Permissions == nil {
		return false
	}
	_, ok := a.Permissions[p]
	return ok
}

// PermissionList returns the granted permissions in KnownPermissions order
// followed by any unknown tags.
func (a Actor) PermissionList() []Permission {
	out := make([]Permission, 0, len(a.Permissions))
	seen := make(map[Permission]struct{}, len(a.Permissions))
	for _, p := range KnownPermissions {
		if a.HasPermission(p) {
			out = append(out, p)
			seen[p] = struct{}{}
		}
	}
	for p := range a.Permissions {
		if _, ok := seen[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
