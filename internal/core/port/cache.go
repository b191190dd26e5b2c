package port

import (
	"context"
	"time"

	"github.com/spiderlily190/cad/internal/core/domain"
)

// CadCache caches the CAD configuration record loaded on every request.
type CadCache interface {
	GetCad(ctx context.Context) (*domain.Cad, error)
	SetCad(ctx context.Context, cad domain.Cad, ttl time.Duration) error
	InvalidateCad(ctx context.Context) error
}
