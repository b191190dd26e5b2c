package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// BleeterHandler exposes the bleet feed routes.
type BleeterHandler struct {
	bleets *usecase.BleetService
}

// NewBleeterHandler constructs a BleeterHandler.
func NewBleeterHandler(bleets *usecase.BleetService) *BleeterHandler {
	return &BleeterHandler{bleets: bleets}
}

// RegisterRoutes binds the /bleeter routes.
func (h *BleeterHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	gate := middleware.RequireAccess
	r.GET("", gate(usecase.ActionBleetList), h.List)
	r.POST("", gate(usecase.ActionBleetCreate), h.Create)
	r.PUT("/:id", gate(usecase.ActionBleetUpdate), h.Update)
	r.DELETE("/:id", gate(usecase.ActionBleetDelete), h.Delete)
}

func (h *BleeterHandler) List(c *gin.Context) {
	bleets, err := h.bleets.List(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	out := make([]BleetResponse, 0, len(bleets))
	for _, b := range bleets {
		out = append(out, newBleetResponse(b))
	}
	c.JSON(http.StatusOK, out)
}

func (h *BleeterHandler) Create(c *gin.Context) {
	var input usecase.BleetInput
	if !bindJSON(c, &input) {
		return
	}

	bleet, err := h.bleets.Create(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newBleetResponse(*bleet))
}

func (h *BleeterHandler) Update(c *gin.Context) {
	var input usecase.BleetInput
	if !bindJSON(c, &input) {
		return
	}

	bleet, err := h.bleets.Update(c.Request.Context(), requestActor(c), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newBleetResponse(*bleet))
}

func (h *BleeterHandler) Delete(c *gin.Context) {
	if err := h.bleets.Delete(c.Request.Context(), requestActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
