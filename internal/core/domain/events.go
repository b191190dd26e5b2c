package domain

import "time"

// EventKind tags a domain event so subscribers can filter what they receive.
type EventKind string

const (
	EventAopUpdated          EventKind = "aop.updated"
	EventSignal100Updated    EventKind = "signal100.updated"
	EventDispatchersUpdated  EventKind = "dispatchers.updated"
	EventOfficerStatus       EventKind = "officer.status.updated"
	EventDeputyStatus        EventKind = "deputy.status.updated"
	EventPanicRaised         EventKind = "panic.raised"
	EventPanicCleared        EventKind = "panic.cleared"
	EventCall911Created      EventKind = "call911.created"
	EventCall911Updated      EventKind = "call911.updated"
	EventCall911Deleted      EventKind = "call911.deleted"
	EventBleetCreated        EventKind = "bleet.created"
	EventBleetUpdated        EventKind = "bleet.updated"
	EventBleetDeleted        EventKind = "bleet.deleted"
	EventImpoundCheckedOut   EventKind = "impound.checked_out"
	EventVehicleFlagsUpdated EventKind = "vehicle.flags.updated"
	EventCitizenFlagsUpdated EventKind = "citizen.flags.updated"
)

// Event is an immutable notification emitted after a committed mutation.
type Event struct {
	ID         string
	Kind       EventKind
	ActorID    string
	OccurredAt time.Time
	Payload    any
}

// AopUpdatedPayload carries the new area of play.
type AopUpdatedPayload struct {
	AreaOfPlay *string `json:"area_of_play"`
}

// Signal100Payload carries the signal 100 toggle.
type Signal100Payload struct {
	Enabled bool `json:"enabled"`
}

// DispatchersPayload carries the current dispatcher roster.
type DispatchersPayload struct {
	Dispatchers []ActiveDispatcherView `json:"dispatchers"`
}

// ActiveDispatcherView is the wire shape of an active dispatcher.
type ActiveDispatcherView struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// UnitPayload describes a unit whose status or radio channel changed.
type UnitPayload struct {
	UnitID         string   `json:"unit_id"`
	UnitType       UnitType `json:"unit_type"`
	Callsign       string   `json:"callsign,omitempty"`
	StatusID       *string  `json:"status_id,omitempty"`
	RadioChannelID *string  `json:"radio_channel_id,omitempty"`
}

// NewUnitPayload projects a unit onto its event payload.
func NewUnitPayload(u Unit) UnitPayload {
	return UnitPayload{
		UnitID:         u.ID,
		UnitType:       u.Type,
		Callsign:       u.Callsign,
		StatusID:       u.StatusID,
		RadioChannelID: u.RadioChannelID,
	}
}

// CallPayload carries the affected 911 call.
type CallPayload struct {
	CallID          string   `json:"call_id"`
	Location        string   `json:"location,omitempty"`
	Name            string   `json:"name,omitempty"`
	AssignedUnitIDs []string `json:"assigned_unit_ids,omitempty"`
	Ended           bool     `json:"ended"`
}

// BleetPayload carries the affected bleet.
type BleetPayload struct {
	BleetID string `json:"bleet_id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title,omitempty"`
}

// ImpoundPayload describes a vehicle leaving the impound lot.
type ImpoundPayload struct {
	ImpoundID string `json:"impound_id"`
	VehicleID string `json:"vehicle_id"`
}

// FlagsPayload carries the new flag set of a vehicle or citizen.
type FlagsPayload struct {
	ResourceID string   `json:"resource_id"`
	FlagIDs    []string `json:"flag_ids"`
}

// EventKinds lists every kind the CAD emits, in a stable order.
var EventKinds = []EventKind{
	EventAopUpdated,
	EventSignal100Updated,
	EventDispatchersUpdated,
	EventOfficerStatus,
	EventDeputyStatus,
	EventPanicRaised,
	EventPanicCleared,
	EventCall911Created,
	EventCall911Updated,
	EventCall911Deleted,
	EventBleetCreated,
	EventBleetUpdated,
	EventBleetDeleted,
	EventImpoundCheckedOut,
	EventVehicleFlagsUpdated,
	EventCitizenFlagsUpdated,
}

// KnownEventKind reports whether kind is emitted by the CAD.
func KnownEventKind(kind EventKind) bool {
	for _, k := range EventKinds {
		if k == kind {
			return true
		}
	}
	return false
}
