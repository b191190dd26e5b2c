package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// AdminHandler exposes the admin dashboard counters.
type AdminHandler struct {
	admin *usecase.AdminService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(admin *usecase.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// RegisterRoutes binds the /admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}
	r.GET("", middleware.RequireAccess(usecase.ActionAdminStats), h.Stats)
}

func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context(), requestActor(c))
	if err != nil {
		RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdminStatsResponse(stats))
}
