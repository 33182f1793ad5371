package services

import (
	"context"
	"errors"
	"time"

	"github.com/address-matcher/app/models"
	"go.uber.org/zap"
)

// HybridCacheService reads Redis first and falls back to MongoDB; writes go
// to both.
type HybridCacheService struct {
	redisCache ICacheService // L1, shared and fast
	mongoCache ICacheService // L2, persistent
	logger     *zap.Logger
}

func NewHybridCacheService(redisCache, mongoCache ICacheService, logger *zap.Logger) *HybridCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HybridCacheService{redisCache: redisCache, mongoCache: mongoCache, logger: logger}
}

// both runs f on the two layers in parallel and joins their errors.
func (hcs *HybridCacheService) both(f func(ICacheService) error) error {
	errCh := make(chan error, 2)
	go func() { errCh <- f(hcs.redisCache) }()
	go func() { errCh <- f(hcs.mongoCache) }()
	return errors.Join(<-errCh, <-errCh)
}

func (hcs *HybridCacheService) Get(ctx context.Context, key models.CacheKey) (*models.AddressResult, bool, error) {
	result, found, err := hcs.redisCache.Get(ctx, key)
	if err != nil {
		hcs.logger.Warn("Redis cache failed, trying MongoDB", zap.Error(err))
	} else if found {
		return result, true, nil
	}

	result, found, err = hcs.mongoCache.Get(ctx, key)
	if err != nil || !found {
		return nil, false, err
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hcs.redisCache.Set(bgCtx, key, result); err != nil {
			hcs.logger.Warn("Sync MongoDB->Redis failed", zap.Error(err))
		}
	}()
	return result, true, nil
}

func (hcs *HybridCacheService) Set(ctx context.Context, key models.CacheKey, result *models.AddressResult) error {
	return hcs.both(func(c ICacheService) error { return c.Set(ctx, key, result) })
}

func (hcs *HybridCacheService) Delete(ctx context.Context, key models.CacheKey) error {
	return hcs.both(func(c ICacheService) error { return c.Delete(ctx, key) })
}

func (hcs *HybridCacheService) Clear(ctx context.Context) error {
	return hcs.both(func(c ICacheService) error { return c.Clear(ctx) })
}

func (hcs *HybridCacheService) InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error) {
	r, errR := hcs.redisCache.InvalidateByVersion(ctx, currentVersion)
	m, errM := hcs.mongoCache.InvalidateByVersion(ctx, currentVersion)
	return r + m, errors.Join(errR, errM)
}

// GetStats sums both layers; a failing layer is skipped.
func (hcs *HybridCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	rs, errR := hcs.redisCache.GetStats(ctx)
	ms, errM := hcs.mongoCache.GetStats(ctx)
	switch {
	case errR != nil && errM != nil:
		return nil, errors.Join(errR, errM)
	case errR != nil:
		return ms, nil
	case errM != nil:
		return rs, nil
	}
	return newStats("hybrid", rs.TotalHits+ms.TotalHits, ms.TotalMiss, ms.TotalItems), nil
}

func (hcs *HybridCacheService) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	if ok, err := hcs.redisCache.Exists(ctx, key); err == nil && ok {
		return true, nil
	}
	return hcs.mongoCache.Exists(ctx, key)
}

func (hcs *HybridCacheService) GetTTL(ctx context.Context, key models.CacheKey) (time.Duration, error) {
	return hcs.redisCache.GetTTL(ctx, key)
}

func (hcs *HybridCacheService) Close() error {
	return hcs.both(func(c ICacheService) error { return c.Close() })
}
