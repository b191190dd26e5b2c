package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// DispatchHandler exposes the dispatch desk routes.
type DispatchHandler struct {
	dispatch *usecase.DispatchService
}

// NewDispatchHandler constructs a DispatchHandler.
func NewDispatchHandler(dispatch *usecase.DispatchService) *DispatchHandler {
	return &DispatchHandler{dispatch: dispatch}
}

// RegisterRoutes binds the /dispatch routes.
func (h *DispatchHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}

	gate := middleware.RequireAccess
	r.GET("", gate(usecase.ActionDispatchOverview), h.Overview)
	r.POST("/aop", gate(usecase.ActionDispatchAop), h.AreaOfPlay)
	r.POST("/signal-100", gate(usecase.ActionDispatchSignal), h.Signal100)
	r.POST("/dispatchers-state", gate(usecase.ActionDispatchState), h.DispatcherState)
	r.PUT("/radio-channel/:unitId", gate(usecase.ActionDispatchRadio), h.RadioChannel)
}

func (h *DispatchHandler) Overview(c *gin.Context) {
	overview, err := h.dispatch.Overview(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDispatchOverviewResponse(overview))
}

func (h *DispatchHandler) AreaOfPlay(c *gin.Context) {
	var input usecase.AopInput
	if !bindJSON(c, &input) {
		return
	}

	aop, err := h.dispatch.UpdateAreaOfPlay(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.AopUpdatedPayload{AreaOfPlay: aop})
}

func (h *DispatchHandler) Signal100(c *gin.Context) {
	var input usecase.ToggleInput
	if !bindJSON(c, &input) {
		return
	}

	enabled, err := h.dispatch.SetSignal100(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.Signal100Payload{Enabled: enabled})
}

func (h *DispatchHandler) DispatcherState(c *gin.Context) {
	var input usecase.ToggleInput
	if !bindJSON(c, &input) {
		return
	}

	dispatchers, err := h.dispatch.SetDispatcherState(c.Request.Context(), requestActor(c), requestCad(c), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.DispatchersPayload{Dispatchers: newDispatcherViews(dispatchers)})
}

func (h *DispatchHandler) RadioChannel(c *gin.Context) {
	var input usecase.RadioChannelInput
	if !bindJSON(c, &input) {
		return
	}

	unit, err := h.dispatch.SetRadioChannel(c.Request.Context(), requestActor(c), c.Param("unitId"), input)
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.NewUnitPayload(unit))
}
