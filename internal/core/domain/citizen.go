package domain

import "time"

// Citizen is a role-play character owned by a user.
type Citizen struct {
	ID               string
	UserID           string
	Name             string
	Surname          string
	DateOfBirth      *time.Time
	Dead             bool
	DriversLicenseID *string
	PilotLicenseID   *string
	WeaponLicenseID  *string
	WaterLicenseID   *string
	FlagIDs          []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FullName joins name and surname.
func (c Citizen) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}

// CitizenLicenses carries the license status value ids assigned to a citizen.
type CitizenLicenses struct {
	DriversLicenseID *string
	PilotLicenseID   *string
	WeaponLicenseID  *string
	WaterLicenseID   *string
}
