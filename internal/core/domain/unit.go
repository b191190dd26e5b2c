package domain

import "time"

// ShouldDoType is the behaviour attached to a configurable status code.
type ShouldDoType string

const (
	ShouldDoSetOnDuty   ShouldDoType = "SET_ON_DUTY"
	ShouldDoSetOffDuty  ShouldDoType = "SET_OFF_DUTY"
	ShouldDoPanicButton ShouldDoType = "PANIC_BUTTON"
	ShouldDoSetStatus   ShouldDoType = "SET_STATUS"
)

// Valid reports whether the value is a known ShouldDo code.
func (s ShouldDoType) Valid() bool {
	switch s {
	case ShouldDoSetOnDuty, ShouldDoSetOffDuty, ShouldDoPanicButton, ShouldDoSetStatus:
		return true
	}
	return false
}

// StatusValue is an operator-configured unit status code.
type StatusValue struct {
	ID       string
	Value    string
	ShouldDo ShouldDoType
	Color    *string
}

// UnitType distinguishes the tables a unit can live in.
type UnitType string

const (
	UnitTypeOfficer  UnitType = "leo"
	UnitTypeDeputy   UnitType = "ems-fd"
	UnitTypeCombined UnitType = "combined"
)

// Division is a sub-group of a department.
type Division struct {
	ID           string
	DepartmentID string
	Value        string
}

// Officer is a law enforcement unit controlled by a user through one of their citizens.
type Officer struct {
	ID             string
	UserID         string
	CitizenID      string
	DepartmentID   string
	Callsign       string
	Callsign2      string
	BadgeNumber    *int
	StatusID       *string
	RadioChannelID *string
	ImageID        *string
	DivisionIDs    []string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EmsFdDeputy is an EMS or fire unit.
type EmsFdDeputy struct {
	ID             string
	UserID         string
	CitizenID      string
	DepartmentID   string
	Callsign       string
	Callsign2      string
	StatusID       *string
	RadioChannelID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// CombinedLeoUnit merges several officers into one dispatchable unit.
type CombinedLeoUnit struct {
	ID             string
	Callsign       string
	StatusID       *string
	RadioChannelID *string
	OfficerIDs     []string
	CreatedAt      time.Time
}

// Unit is the common view over officers, deputies and combined units used by
// status and radio channel flows.
type Unit struct {
	ID             string
	Type           UnitType
	UserID         string
	Callsign       string
	StatusID       *string
	RadioChannelID *string
}

// AsUnit projects an officer onto the common unit view.
func (o Officer) AsUnit() Unit {
	return Unit{ID: o.ID, Type: UnitTypeOfficer, UserID: o.UserID, Callsign: o.Callsign, StatusID: o.StatusID, RadioChannelID: o.RadioChannelID}
}

// AsUnit projects a deputy onto the common unit view.
func (d EmsFdDeputy) AsUnit() Unit {
	return Unit{ID: d.ID, Type: UnitTypeDeputy, UserID: d.UserID, Callsign: d.Callsign, StatusID: d.StatusID, RadioChannelID: d.RadioChannelID}
}

// AsUnit projects a combined unit onto the common unit view.
func (c CombinedLeoUnit) AsUnit() Unit {
	return Unit{ID: c.ID, Type: UnitTypeCombined, Callsign: c.Callsign, StatusID: c.StatusID, RadioChannelID: c.RadioChannelID}
}

// HasStatus reports whether the unit currently carries the given status value.
func (u Unit) HasStatus(statusID string) bool {
	return u.StatusID != nil && *u.StatusID == statusID
}
