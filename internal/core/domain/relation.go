package domain

import "sort"

// RelationOpKind tags a single change to a many-to-many relation.
type RelationOpKind string

const (
	RelationConnect    RelationOpKind = "connect"
	RelationDisconnect RelationOpKind = "disconnect"
)

// RelationOp connects or disconnects one related entity.
type RelationOp struct {
	Kind RelationOpKind
	ID   string
}

// Relation names a many-to-many link between two resources.
type Relation string

const (
	RelationOfficerDivisions  Relation = "officer_divisions"
	RelationVehicleFlags      Relation = "vehicle_flags"
	RelationCitizenFlags      Relation = "citizen_flags"
	RelationCallAssignedUnits Relation = "call_assigned_units"
	RelationCallDepartments   Relation = "call_departments"
	RelationCallDivisions     Relation = "call_divisions"
)

// ReconcileRelations returns the operations that turn current into desired.
// Disconnects come first, each group sorted by id. Empty ids and duplicates
// are ignored, so reconciling a set with itself yields no operations.
func ReconcileRelations(current, desired []string) []RelationOp {
	currentSet := toSet(current)
	desiredSet := toSet(desired)

	disconnect := make([]string, 0)
	for id := range currentSet {
		if _, keep := desiredSet[id]; !keep {
			disconnect = append(disconnect, id)
		}
	}

	connect := make([]string, 0)
	for id := range desiredSet {
		if _, exists := currentSet[id]; !exists {
			connect = append(connect, id)
		}
	}

	if len(disconnect) == 0 && len(connect) == 0 {
		return nil
	}

	sort.Strings(disconnect)
	sort.Strings(connect)

	ops := make([]RelationOp, 0, len(disconnect)+len(connect))
	for _, id := range disconnect {
		ops = append(ops, RelationOp{Kind: RelationDisconnect, ID: id})
	}
	for _, id := range connect {
		ops = append(ops, RelationOp{Kind: RelationConnect, ID: id})
	}
	return ops
}

// ApplyRelationOps applies ops to an id set and returns the resulting members, sorted.
func ApplyRelationOps(current []string, ops []RelationOp) []string {
	set := toSet(current)
	for _, op := range ops {
		switch op.Kind {
		case RelationConnect:
			set[op.ID] = struct{}{}
		case RelationDisconnect:
			delete(set, op.ID)
		}
	}

	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// UniqueIDs drops blanks and duplicates while keeping first-seen order.
func UniqueIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}
