package domain

import "time"

// VehicleTaxStatus is the tax state recorded by law enforcement.
type VehicleTaxStatus string

const (
	VehicleTaxTaxed   VehicleTaxStatus = "TAXED"
	VehicleTaxUntaxed VehicleTaxStatus = "UNTAXED"
)

// VehicleInspectionStatus is the inspection state recorded by law enforcement.
type VehicleInspectionStatus string

const (
	VehicleInspectionPassed VehicleInspectionStatus = "PASSED"
	VehicleInspectionFailed VehicleInspectionStatus = "FAILED"
)

// RegisteredVehicle is a vehicle registered to a citizen. Plate is unique.
type RegisteredVehicle struct {
	ID                   string
	UserID               string
	CitizenID            string
	Plate                string
	VinNumber            string
	ModelID              string
	Color                string
	RegistrationStatusID string
	InsuranceStatusID    *string
	TaxStatus            *VehicleTaxStatus
	InspectionStatus     *VehicleInspectionStatus
	Impounded            bool
	FlagIDs              []string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ImpoundedVehicle tracks a vehicle held in an impound lot until checkout.
type ImpoundedVehicle struct {
	ID                  string
	RegisteredVehicleID string
	LocationID          string
	CreatedAt           time.Time
	Vehicle             *RegisteredVehicle
}

// VehicleLicenses is the set of license fields law enforcement can update.
type VehicleLicenses struct {
	RegistrationStatusID string
	InsuranceStatusID    *string
	TaxStatus            *VehicleTaxStatus
	InspectionStatus     *VehicleInspectionStatus
}
