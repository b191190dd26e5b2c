package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// maxImageSize bounds officer image uploads.
const maxImageSize = 5 << 20

// LeoHandler exposes the law enforcement routes.
type LeoHandler struct {
	officers *usecase.OfficerService
	panics   *usecase.PanicService
	vehicles *usecase.VehicleService
	citizens *usecase.CitizenService
	impounds *usecase.ImpoundService
}

// NewLeoHandler constructs a LeoHandler.
func NewLeoHandler(
	officers *usecase.OfficerService,
	panics *usecase.PanicService,
	vehicles *usecase.VehicleService,
	citizens *usecase.CitizenService,
	impounds *usecase.ImpoundService,
) *LeoHandler {
	return &LeoHandler{officers: officers, panics: panics, vehicles: vehicles, citizens: citizens, impounds: impounds}
}

// RegisterRoutes binds the /leo routes. The group must already authenticate and load the CAD.
func (h *LeoHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	gate := middleware.RequireAccess
	r.GET("", gate(usecase.ActionOfficerList), h.List)
	r.POST("", gate(usecase.ActionOfficerCreate), h.Create)
	r.GET("/active-officers", gate(usecase.ActionActiveUnits), h.ActiveOfficers)
	r.POST("/panic-button", gate(usecase.ActionPanicButton), h.PanicButton)
	r.POST("/image/:id", gate(usecase.ActionOfficerImage), h.UploadImage)
	r.PUT("/vehicle-flags/:vehicleId", gate(usecase.ActionVehicleFlags), h.VehicleFlags)
	r.PUT("/vehicle-licenses/:vehicleId", gate(usecase.ActionVehicleLicenses), h.VehicleLicenses)
	r.PUT("/citizen-flags/:citizenId", gate(usecase.ActionCitizenFlags), h.CitizenFlags)
	r.PUT("/licenses/:citizenId", gate(usecase.ActionCitizenLicenses), h.CitizenLicenses)
	r.GET("/impounded-vehicles", gate(usecase.ActionImpoundList), h.ImpoundedVehicles)
	r.DELETE("/impounded-vehicles/:id", gate(usecase.ActionImpoundCheckout), h.CheckoutImpound)
	r.PUT("/:id", gate(usecase.ActionOfficerUpdate), h.Update)
	r.DELETE("/:id", gate(usecase.ActionOfficerDelete), h.Delete)
}

// List returns the officers of the authenticated user.
func (h *LeoHandler) List(c *gin.Context) {
	officers, err := h.officers.List(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOfficerResponses(officers))
}

// Create registers a new officer.
func (h *LeoHandler) Create(c *gin.Context) {
	var input usecase.OfficerInput
	if !bindJSON(c, &input) {
		return
	}

	officer, err := h.officers.Create(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newOfficerResponse(*officer))
}

// Update edits an officer owned by the authenticated user.
func (h *LeoHandler) Update(c *gin.Context) {
	var input usecase.OfficerInput
	if !bindJSON(c, &input) {
		return
	}

	officer, err := h.officers.Update(c.Request.Context(), requestActor(c), requestCad(c), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newOfficerResponse(*officer))
}

// Delete removes an officer owned by the authenticated user.
func (h *LeoHandler) Delete(c *gin.Context) {
	if err := h.officers.Delete(c.Request.Context(), requestActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ActiveOfficers lists officers on duty and combined units.
func (h *LeoHandler) ActiveOfficers(c *gin.Context) {
	units, err := h.officers.ListActive(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newActiveUnitsResponse(units))
}

// PanicButton toggles the panic status of an officer or combined unit.
func (h *LeoHandler) PanicButton(c *gin.Context) {
	var input usecase.PanicInput
	if !bindJSON(c, &input) {
		return
	}

	result, err := h.panics.Toggle(c.Request.Context(), requestActor(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, PanicResponse{Unit: domain.NewUnitPayload(result.Unit), Raised: result.Raised})
}

// UploadImage stores a picture for an officer from the multipart field "image".
func (h *LeoHandler) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageSize)

	header, err := c.FormFile("image")
	if err != nil {
		respondBadBody(c, err)
		return
	}
	file, err := header.Open()
	if err != nil {
		respondBadBody(c, err)
		return
	}
	defer file.Close()

	key, err := h.officers.UploadImage(c.Request.Context(), requestActor(c), c.Param("id"), usecase.ImageUpload{
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"image_id": key})
}

// VehicleFlags replaces the flags on a vehicle.
func (h *LeoHandler) VehicleFlags(c *gin.Context) {
	var input usecase.FlagsInput
	if !bindJSON(c, &input) {
		return
	}

	id := c.Param("vehicleId")
	flags, err := h.vehicles.UpdateFlags(c.Request.Context(), requestActor(c), id, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FlagsResponse{ID: id, Flags: nonNil(flags)})
}

// VehicleLicenses updates the registration, insurance, tax and inspection records of a vehicle.
func (h *LeoHandler) VehicleLicenses(c *gin.Context) {
	var input usecase.VehicleLicensesInput
	if !bindJSON(c, &input) {
		return
	}

	vehicle, err := h.vehicles.UpdateLicenses(c.Request.Context(), requestActor(c), c.Param("vehicleId"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVehicleResponse(*vehicle))
}

// CitizenFlags replaces the flags on a citizen.
func (h *LeoHandler) CitizenFlags(c *gin.Context) {
	var input usecase.FlagsInput
	if !bindJSON(c, &input) {
		return
	}

	id := c.Param("citizenId")
	flags, err := h.citizens.UpdateFlags(c.Request.Context(), requestActor(c), id, input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, FlagsResponse{ID: id, Flags: nonNil(flags)})
}

// CitizenLicenses sets the license statuses of a citizen.
func (h *LeoHandler) CitizenLicenses(c *gin.Context) {
	var input usecase.CitizenLicensesInput
	if !bindJSON(c, &input) {
		return
	}

	citizen, err := h.citizens.UpdateLicenses(c.Request.Context(), requestActor(c), c.Param("citizenId"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, CitizenResponse{
		ID:               citizen.ID,
		UserID:           citizen.UserID,
		Name:             citizen.Name,
		Surname:          citizen.Surname,
		Dead:             citizen.Dead,
		DriversLicenseID: citizen.DriversLicenseID,
		PilotLicenseID:   citizen.PilotLicenseID,
		WeaponLicenseID:  citizen.WeaponLicenseID,
		WaterLicenseID:   citizen.WaterLicenseID,
	})
}

// ImpoundedVehicles lists the impound lot.
func (h *LeoHandler) ImpoundedVehicles(c *gin.Context) {
	impounds, err := h.impounds.List(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]ImpoundResponse, 0, len(impounds))
	for _, i := range impounds {
		out = append(out, newImpoundResponse(i))
	}
	c.JSON(http.StatusOK, out)
}

// CheckoutImpound releases a vehicle from the impound lot.
func (h *LeoHandler) CheckoutImpound(c *gin.Context) {
	released, err := h.impounds.Checkout(c.Request.Context(), requestActor(c), c.Param("id"))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newImpoundResponse(*released))
}
