package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// CallHandler exposes the 911 call routes.
type CallHandler struct {
	calls *usecase.CallService
}

// NewCallHandler constructs a CallHandler.
func NewCallHandler(calls *usecase.CallService) *CallHandler {
	return &CallHandler{calls: calls}
}

// RegisterRoutes binds the /911-calls routes.
func (h *CallHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	gate := middleware.RequireAccess
	r.GET("", gate(usecase.ActionCallList), h.List)
	r.POST("", gate(usecase.ActionCallCreate), h.Create)
	r.PUT("/:id", gate(usecase.ActionCallUpdate), h.Update)
	r.DELETE("/:id", gate(usecase.ActionCallDelete), h.Delete)
}

// List returns open calls; ?includeEnded=true adds ended ones.
func (h *CallHandler) List(c *gin.Context) {
	includeEnded, _ := strconv.ParseBool(c.Query("includeEnded"))

	calls, err := h.calls.List(c.Request.Context(), requestActor(c), includeEnded)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCallResponses(calls))
}

func (h *CallHandler) Create(c *gin.Context) {
	var input usecase.CallInput
	if !bindJSON(c, &input) {
		return
	}

	call, err := h.calls.Create(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCallResponse(*call))
}

func (h *CallHandler) Update(c *gin.Context) {
	var input usecase.CallInput
	if !bindJSON(c, &input) {
		return
	}

	call, err := h.calls.Update(c.Request.Context(), requestActor(c), c.Param("id"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCallResponse(*call))
}

func (h *CallHandler) Delete(c *gin.Context) {
	if err := h.calls.Delete(c.Request.Context(), requestActor(c), c.Param("id")); err != nil {
		RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
