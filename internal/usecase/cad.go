package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
)

// CadService serves the CAD configuration record, read-through cached.
type CadService struct {
	cads   port.CadRepository
	cache  port.CadCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCadService constructs a CadService. cache may be nil.
func NewCadService(cads port.CadRepository, cache port.CadCache, ttl time.Duration, logger *zap.Logger) *CadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CadService{cads: cads, cache: cache, ttl: ttl, logger: logger}
}

// Current returns the CAD record. Cache failures fall back to storage.
func (s *CadService) Current(ctx context.Context) (domain.Cad, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCad(ctx)
		if err != nil {
			s.logger.Warn("read cad cache failed", zap.Error(err))
		} else if cached != nil {
			return *cached, nil
		}
	}

	cad, err := s.cads.Get(ctx)
	if err != nil {
		return domain.Cad{}, fmt.Errorf("load cad: %w", err)
	}

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetCad(ctx, *cad, s.ttl); err != nil {
			s.logger.Warn("write cad cache failed", zap.Error(err))
		}
	}
	return *cad, nil
}

// Invalidate drops the cached record after a settings change.
func (s *CadService) Invalidate(ctx context.Context) {
	if s == nil || s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCad(ctx); err != nil {
		s.logger.Warn("invalidate cad cache failed", zap.Error(err))
	}
}
