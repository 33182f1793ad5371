package services

import (
	"context"
	"time"

	"github.com/address-matcher/app/models"
)

// CacheStats summarizes one cache backend.
type CacheStats struct {
	Backend    string  `json:"backend"`
	HitRate    float64 `json:"hit_rate"`
	TotalHits  int64   `json:"total_hits"`
	TotalMiss  int64   `json:"total_miss"`
	TotalItems int64   `json:"total_items"`
}

func newStats(backend string, hits, misses, items int64) *CacheStats {
	s := &CacheStats{Backend: backend, TotalHits: hits, TotalMiss: misses, TotalItems: items}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}

// ICacheService stores parse results under (content-hash, version-tag)
// keys. Get reports a miss as (nil, false, nil).
type ICacheService interface {
	Get(ctx context.Context, key models.CacheKey) (*models.AddressResult, bool, error)
	Set(ctx context.Context, key models.CacheKey, result *models.AddressResult) error
	Delete(ctx context.Context, key models.CacheKey) error
	Clear(ctx context.Context) error

	// InvalidateByVersion drops every entry whose version tag differs from
	// currentVersion and returns how many were removed.
	InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error)

	GetStats(ctx context.Context) (*CacheStats, error)
	Exists(ctx context.Context, key models.CacheKey) (bool, error)
	GetTTL(ctx context.Context, key models.CacheKey) (time.Duration, error)
	Close() error
}
