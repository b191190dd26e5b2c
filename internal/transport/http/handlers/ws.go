package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/infra/logger"
	"github.com/spiderlily190/cad/internal/infra/realtime"
	"github.com/spiderlily190/cad/internal/infra/validation"
	"github.com/spiderlily190/cad/internal/transport/http/middleware"
	"github.com/spiderlily190/cad/internal/usecase"
)

// EventsHandler upgrades authenticated requests to an event stream.
type EventsHandler struct {
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
}

// NewEventsHandler constructs an EventsHandler. An empty or "*" origin list accepts every origin.
func NewEventsHandler(hub *realtime.Hub, allowedOrigins []string) *EventsHandler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	allowAll := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
		}
		origins[origin] = struct{}{}
	}

	return &EventsHandler{
		hub: hub,
		upgrader: &websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if allowAll {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes binds the websocket route.
func (h *EventsHandler) RegisterRoutes(r *gin.RouterGroup) {
	if r == nil {
		return
	}
	r.GET("", middleware.RequireAccess(usecase.ActionSubscribe), h.Subscribe)
}

// Subscribe streams events to the client. ?kinds=a,b restricts the stream to those kinds.
func (h *EventsHandler) Subscribe(c *gin.Context) {
	kinds, err := realtime.ParseKinds(c.Query("kinds"))
	if err != nil {
		RespondError(c, validation.FieldError("kinds", err.Error()))
		return
	}

	actor := requestActor(c)
	if err := h.hub.Serve(c.Writer, c.Request, h.upgrader, actor.UserID, kinds); err != nil {
		logger.WithContext(c.Request.Context()).Warn("websocket upgrade failed", zap.Error(err))
	}
}
