package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// CadLoader returns the current CAD configuration.
type CadLoader interface {
	Current(ctx context.Context) (domain.Cad, error)
}

// LoadCad attaches the CAD record to the request. Requests fail with 503
// when no CAD has been set up.
func LoadCad(loader CadLoader, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		cad, err := loader.Current(c.Request.Context())
		if err != nil {
			log.Error("load cad", zap.Error(err), zap.String("trace_id", GetTraceID(c)))
			deny(c, http.StatusServiceUnavailable, "internal", "cad is not configured")
			return
		}

		SetCad(c, cad)
		c.Next()
	}
}
