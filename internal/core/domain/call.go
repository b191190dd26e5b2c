package domain

import "time"

// Call911 is an emergency call handled by dispatch.
type Call911 struct {
	ID              string
	UserID          *string
	Location        string
	Postal          *string
	Name            string
	Description     *string
	SituationCode   *string
	Ended           bool
	AssignedUnitIDs []string
	DepartmentIDs   []string
	DivisionIDs     []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
