package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// VehicleHandler exposes vehicle registration routes for citizens.
type VehicleHandler struct {
	vehicles *usecase.VehicleService
}

// NewVehicleHandler constructs a VehicleHandler.
func NewVehicleHandler(vehicles *usecase.VehicleService) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

// RegisterRoutes binds the /vehicles routes.
func (h *VehicleHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	gate := middleware.RequireAccess
	r.GET("", gate(usecase.ActionVehicleList), h.List)
	r.POST("", gate(usecase.ActionVehicleRegister), h.Register)
	r.PUT("/:id", gate(usecase.ActionVehicleUpdate), h.Update)
	r.DELETE("/:id", gate(usecase.ActionVehicleDelete), h.Delete)
}

func (h *VehicleHandler) List(c *gin.Context) {
	vehicles, err := h.vehicles.List(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]VehicleResponse, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, newVehicleResponse(v))
	}
	c.JSON(http.StatusOK, out)
}

func (h *VehicleHandler) Register(c *gin.Context) {
	var input usecase.VehicleInput
	if !bindJSON(c, &input) {
		return
	}

	vehicle, err := h.vehicles.Register(c.Request.Context(), requestActor(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newVehicleResponse(*vehicle))
}

func (h *VehicleHandler) Update(c *gin.Context) {
	var input usecase.VehicleInput
	if !bindJSON(c, &input) {
		return
	}

	vehicle, err := h.vehicles.Update(c.Request.Context(), requestActor(c), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVehicleResponse(*vehicle))
}

func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.vehicles.Delete(c.Request.Context(), requestActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
