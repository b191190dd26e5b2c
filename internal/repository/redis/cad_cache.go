package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/spiderlily190/cad/internal/core/domain"
	"github.com/spiderlily190/cad/internal/core/port"
	"github.com/spiderlily190/cad/internal/repository"
)

const defaultCadCacheKey = "cad:current"

// CadCacheRepository keeps the community configuration record as JSON with a short TTL.
type CadCacheRepository struct {
	client *red.Client
	key    string
}

// NewCadCacheRepository constructs a cache helper storing the record under key.
func NewCadCacheRepository(client *red.Client, key string) *CadCacheRepository {
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultCadCacheKey
	}
	return &CadCacheRepository{client: client, key: key}
}

// GetCad returns the cached record or repository.ErrNotFound on a miss.
func (r *CadCacheRepository) GetCad(ctx context.Context) (*domain.Cad, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, red.Nil) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis get cad: %w", err)
	}

	var cad domain.Cad
	if err := json.Unmarshal(raw, &cad); err != nil {
		return nil, fmt.Errorf("decode cached cad: %w", err)
	}
	return &cad, nil
}

func (r *CadCacheRepository) SetCad(ctx context.Context, cad domain.Cad, ttl time.Duration) error {
	raw, err := json.Marshal(cad)
	if err != nil {
		return fmt.Errorf("encode cad: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set cad: %w", err)
	}
	return nil
}

func (r *CadCacheRepository) InvalidateCad(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del cad: %w", err)
	}
	return nil
}

var _ port.CadCache = (*CadCacheRepository)(nil)
