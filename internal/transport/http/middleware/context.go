package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/spiderlily190/cad/internal/core/domain"
)

const (
	// TraceIDHeader is the HTTP header name for trace ID
	TraceIDHeader = "X-Trace-ID"
	// TraceIDKey is the context key for trace ID
	TraceIDKey = "trace_id"
	// UserIDKey is the context key for authenticated user ID
	UserIDKey = "user_id"

	actorKey          = "actor"
	cadKey            = "cad"
	requestContextKey = "request_context"
)

// RequestContext holds request-scoped information
type RequestContext struct {
	TraceID   string
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext adds trace ID and request context to each request. The trace
// ID prefers the caller's X-Trace-ID, then the active OpenTelemetry span.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if !validRequestID(traceID) {
			traceID = ""
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); traceID == "" && sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		if traceID == "" {
			traceID = uuid.NewString()
		}

		c.Set(TraceIDKey, traceID)
		c.Header(TraceIDHeader, traceID)

		c.Set(requestContextKey, &RequestContext{
			TraceID:   traceID,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})

		c.Next()
	}
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(TraceIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return ""
}

// GetRequestContext retrieves the full request context
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// SetActor stores the authenticated actor for downstream handlers.
func SetActor(c *gin.Context, actor domain.Actor) {
	c.Set(actorKey, actor)
	c.Set(UserIDKey, actor.UserID)
	if reqCtx := GetRequestContext(c); reqCtx != nil {
		reqCtx.UserID = actor.UserID
	}
}

// GetActor returns the authenticated actor. ok is false on unauthenticated routes.
func GetActor(c *gin.Context) (domain.Actor, bool) {
	if v, exists := c.Get(actorKey); exists {
		if actor, ok := v.(domain.Actor); ok {
			return actor, true
		}
	}
	return domain.Actor{}, false
}

// SetCad stores the CAD record loaded for this request.
func SetCad(c *gin.Context, cad domain.Cad) {
	c.Set(cadKey, cad)
}

// GetCad returns the CAD record loaded by LoadCad.
func GetCad(c *gin.Context) (domain.Cad, bool) {
	if v, exists := c.Get(cadKey); exists {
		if cad, ok := v.(domain.Cad); ok {
			return cad, true
		}
	}
	return domain.Cad{}, false
}
