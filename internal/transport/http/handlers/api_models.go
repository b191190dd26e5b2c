package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Kind    string            `json:"kind,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: middleware.GetTraceID(c),
	}
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports the state of each backing dependency.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

type OfficerResponse struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	CitizenID      string    `json:"citizen_id"`
	DepartmentID   string    `json:"department_id"`
	Callsign       string    `json:"callsign"`
	Callsign2      string    `json:"callsign2"`
	BadgeNumber    *int      `json:"badge_number,omitempty"`
	StatusID       *string   `json:"status_id,omitempty"`
	RadioChannelID *string   `json:"radio_channel_id,omitempty"`
	ImageID        *string   `json:"image_id,omitempty"`
	DivisionIDs    []string  `json:"division_ids"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newOfficerResponse(o domain.Officer) OfficerResponse {
	return OfficerResponse{
		ID:             o.ID,
		UserID:         o.UserID,
		CitizenID:      o.CitizenID,
		DepartmentID:   o.DepartmentID,
		Callsign:       o.Callsign,
		Callsign2:      o.Callsign2,
		BadgeNumber:    o.BadgeNumber,
		StatusID:       o.StatusID,
		RadioChannelID: o.RadioChannelID,
		ImageID:        o.ImageID,
		DivisionIDs:    nonNil(o.DivisionIDs),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}

func newOfficerResponses(officers []domain.Officer) []OfficerResponse {
	out := make([]OfficerResponse, 0, len(officers))
	for _, o := range officers {
		out = append(out, newOfficerResponse(o))
	}
	return out
}

type DeputyResponse struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	CitizenID      string  `json:"citizen_id"`
	DepartmentID   string  `json:"department_id"`
	Callsign       string  `json:"callsign"`
	Callsign2      string  `json:"callsign2"`
	StatusID       *string `json:"status_id,omitempty"`
	RadioChannelID *string `json:"radio_channel_id,omitempty"`
}

type CombinedUnitResponse struct {
	ID             string   `json:"id"`
	Callsign       string   `json:"callsign"`
	StatusID       *string  `json:"status_id,omitempty"`
	RadioChannelID *string  `json:"radio_channel_id,omitempty"`
	OfficerIDs     []string `json:"officer_ids"`
}

// ActiveUnitsResponse lists every unit on the board.
type ActiveUnitsResponse struct {
	Officers      []OfficerResponse      `json:"officers"`
	CombinedUnits []CombinedUnitResponse `json:"combined_units"`
}

func newActiveUnitsResponse(units usecase.ActiveUnits) ActiveUnitsResponse {
	combined := make([]CombinedUnitResponse, 0, len(units.CombinedUnits))
	for _, u := range units.CombinedUnits {
		combined = append(combined, CombinedUnitResponse{
			ID:             u.ID,
			Callsign:       u.Callsign,
			StatusID:       u.StatusID,
			RadioChannelID: u.RadioChannelID,
			OfficerIDs:     nonNil(u.OfficerIDs),
		})
	}
	return ActiveUnitsResponse{Officers: newOfficerResponses(units.Officers), CombinedUnits: combined}
}

// PanicResponse reports the unit after a panic button toggle.
type PanicResponse struct {
	Unit   domain.UnitPayload `json:"unit"`
	Raised bool               `json:"raised"`
}

type VehicleResponse struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	CitizenID            string    `json:"citizen_id"`
	Plate                string    `json:"plate"`
	VinNumber            string    `json:"vin_number"`
	ModelID              string    `json:"model_id"`
	Color                string    `json:"color"`
	RegistrationStatusID string    `json:"registration_status_id"`
	InsuranceStatusID    *string   `json:"insurance_status_id,omitempty"`
	TaxStatus            *string   `json:"tax_status,omitempty"`
	InspectionStatus     *string   `json:"inspection_status,omitempty"`
	Impounded            bool      `json:"impounded"`
	FlagIDs              []string  `json:"flag_ids"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func newVehicleResponse(v domain.RegisteredVehicle) VehicleResponse {
	resp := VehicleResponse{
		ID:                   v.ID,
		UserID:               v.UserID,
		CitizenID:            v.CitizenID,
		Plate:                v.Plate,
		VinNumber:            v.VinNumber,
		ModelID:              v.ModelID,
		Color:                v.Color,
		RegistrationStatusID: v.RegistrationStatusID,
		InsuranceStatusID:    v.InsuranceStatusID,
		Impounded:            v.Impounded,
		FlagIDs:              nonNil(v.FlagIDs),
		CreatedAt:            v.CreatedAt,
		UpdatedAt:            v.UpdatedAt,
	}
	if v.TaxStatus != nil {
		tax := string(*v.TaxStatus)
		resp.TaxStatus = &tax
	}
	if v.InspectionStatus != nil {
		inspection := string(*v.InspectionStatus)
		resp.InspectionStatus = &inspection
	}
	return resp
}

type ImpoundResponse struct {
	ID         string           `json:"id"`
	VehicleID  string           `json:"vehicle_id"`
	LocationID string           `json:"location_id"`
	CreatedAt  time.Time        `json:"created_at"`
	Vehicle    *VehicleResponse `json:"vehicle,omitempty"`
}

func newImpoundResponse(i domain.ImpoundedVehicle) ImpoundResponse {
	resp := ImpoundResponse{
		ID:         i.ID,
		VehicleID:  i.RegisteredVehicleID,
		LocationID: i.LocationID,
		CreatedAt:  i.CreatedAt,
	}
	if i.Vehicle != nil {
		vehicle := newVehicleResponse(*i.Vehicle)
		resp.Vehicle = &vehicle
	}
	return resp
}

type CitizenResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"user_id"`
	Name             string  `json:"name"`
	Surname          string  `json:"surname"`
	Dead             bool    `json:"dead"`
	DriversLicenseID *string `json:"drivers_license_id,omitempty"`
	PilotLicenseID   *string `json:"pilot_license_id,omitempty"`
	WeaponLicenseID  *string `json:"weapon_license_id,omitempty"`
	WaterLicenseID   *string `json:"water_license_id,omitempty"`
}

// FlagsResponse carries the flag set after reconciliation.
type FlagsResponse struct {
	ID    string   `json:"id"`
	Flags []string `json:"flags"`
}

type CallResponse struct {
	ID              string    `json:"id"`
	UserID          *string   `json:"user_id,omitempty"`
	Location        string    `json:"location"`
	Postal          *string   `json:"postal,omitempty"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	SituationCode   *string   `json:"situation_code,omitempty"`
	Ended           bool      `json:"ended"`
	AssignedUnitIDs []string  `json:"assigned_unit_ids"`
	DepartmentIDs   []string  `json:"department_ids"`
	DivisionIDs     []string  `json:"division_ids"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newCallResponse(call domain.Call911) CallResponse {
	return CallResponse{
		ID:              call.ID,
		UserID:          call.UserID,
		Location:        call.Location,
		Postal:          call.Postal,
		Name:            call.Name,
		Description:     call.Description,
		SituationCode:   call.SituationCode,
		Ended:           call.Ended,
		AssignedUnitIDs: nonNil(call.AssignedUnitIDs),
		DepartmentIDs:   nonNil(call.DepartmentIDs),
		DivisionIDs:     nonNil(call.DivisionIDs),
		CreatedAt:       call.CreatedAt,
		UpdatedAt:       call.UpdatedAt,
	}
}

func newCallResponses(calls []domain.Call911) []CallResponse {
	out := make([]CallResponse, 0, len(calls))
	for _, call := range calls {
		out = append(out, newCallResponse(call))
	}
	return out
}

type BleetResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ImageID   *string   `json:"image_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newBleetResponse(b domain.Bleet) BleetResponse {
	return BleetResponse{
		ID:        b.ID,
		UserID:    b.UserID,
		Title:     b.Title,
		Body:      b.Body,
		ImageID:   b.ImageID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// DispatchOverviewResponse is the dispatch board.
type DispatchOverviewResponse struct {
	Officers          []OfficerResponse             `json:"officers"`
	Deputies          []DeputyResponse              `json:"deputies"`
	ActiveDispatchers []domain.ActiveDispatcherView `json:"active_dispatchers"`
	ActiveCalls       []CallResponse                `json:"active_calls"`
}

func newDispatchOverviewResponse(o domain.DispatchOverview) DispatchOverviewResponse {
	deputies := make([]DeputyResponse, 0, len(o.Deputies))
	for _, d := range o.Deputies {
		deputies = append(deputies, DeputyResponse{
			ID:             d.ID,
			UserID:         d.UserID,
			CitizenID:      d.CitizenID,
			DepartmentID:   d.DepartmentID,
			Callsign:       d.Callsign,
			Callsign2:      d.Callsign2,
			StatusID:       d.StatusID,
			RadioChannelID: d.RadioChannelID,
		})
	}
	return DispatchOverviewResponse{
		Officers:          newOfficerResponses(o.Officers),
		Deputies:          deputies,
		ActiveDispatchers: newDispatcherViews(o.ActiveDispatchers),
		ActiveCalls:       newCallResponses(o.ActiveCalls),
	}
}

func newDispatcherViews(dispatchers []domain.ActiveDispatcher) []domain.ActiveDispatcherView {
	out := make([]domain.ActiveDispatcherView, 0, len(dispatchers))
	for _, d := range dispatchers {
		out = append(out, domain.ActiveDispatcherView{ID: d.ID, UserID: d.UserID, Username: d.Username})
	}
	return out
}

type AdminStatsResponse struct {
	Users struct {
		Active  int `json:"active"`
		Pending int `json:"pending"`
		Banned  int `json:"banned"`
	} `json:"users"`
	Citizens struct {
		Created int `json:"created"`
		Dead    int `json:"dead"`
		InBolo  int `json:"in_bolo"`
	} `json:"citizens"`
	Vehicles struct {
		Registered int `json:"registered"`
		Impounded  int `json:"impounded"`
		InBolo     int `json:"in_bolo"`
	} `json:"vehicles"`
}

func newAdminStatsResponse(s domain.AdminStats) AdminStatsResponse {
	var resp AdminStatsResponse
	resp.Users.Active = s.ActiveUsers
	resp.Users.Pending = s.PendingUsers
	resp.Users.Banned = s.BannedUsers
	resp.Citizens.Created = s.CreatedCitizens
	resp.Citizens.Dead = s.DeadCitizens
	resp.Citizens.InBolo = s.CitizensInBolo
	resp.Vehicles.Registered = s.Vehicles
	resp.Vehicles.Impounded = s.ImpoundedVehicles
	resp.Vehicles.InBolo = s.VehiclesInBolo
	return resp
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
