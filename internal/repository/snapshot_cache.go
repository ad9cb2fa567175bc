package repository

import (
	"context"
	"errors"
	"time"

	"BitDCA/internal/domain/models"
	domrepo "BitDCA/internal/domain/repository"
	"BitDCA/pkg/cache"
)

// CachedSnapshots stores market snapshots in any pkg/cache backend.
type CachedSnapshots struct {
	c cache.Service
}

func NewCachedSnapshots(c cache.Service) *CachedSnapshots {
	return &CachedSnapshots{c: c}
}

func (s *CachedSnapshots) Get(ctx context.Context, key string) (models.MarketSnapshot, bool, error) {
	snap, err := cache.GetTyped[models.MarketSnapshot](ctx, s.c, cache.GenerateKey("snapshot", key))
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.MarketSnapshot{}, false, nil
	}
	if err != nil {
		return models.MarketSnapshot{}, false, err
	}
	return snap, true, nil
}

func (s *CachedSnapshots) Set(ctx context.Context, key string, snap models.MarketSnapshot, ttl time.Duration) error {
	return s.c.Set(ctx, cache.GenerateKey("snapshot", key), snap, ttl)
}

var _ domrepo.SnapshotCache = (*CachedSnapshots)(nil)
