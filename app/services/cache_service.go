package services

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type memEntry struct {
	result  *models.AddressResult
	version string
	stored  time.Time
}

// CacheService is the in-process cache: a size-bounded LRU whose entries
// also expire after ttl.
type CacheService struct {
	lru    *expirable.LRU[string, memEntry]
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCacheService creates an LRU of size entries. ttl <= 0 disables
// expiry.
func NewCacheService(size int, ttl time.Duration) *CacheService {
	if size <= 0 {
		size = 10000
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CacheService{
		lru: expirable.NewLRU[string, memEntry](size, nil, ttl),
		ttl: ttl,
	}
}

func (cs *CacheService) Get(ctx context.Context, key models.CacheKey) (*models.AddressResult, bool, error) {
	e, ok := cs.lru.Get(key.Fingerprint())
	if !ok {
		cs.misses.Add(1)
		return nil, false, nil
	}
	cs.hits.Add(1)
	return e.result, true, nil
}

func (cs *CacheService) Set(ctx context.Context, key models.CacheKey, result *models.AddressResult) error {
	cs.lru.Add(key.Fingerprint(), memEntry{result: result, version: key.VersionTag, stored: time.Now()})
	return nil
}

func (cs *CacheService) Delete(ctx context.Context, key models.CacheKey) error {
	cs.lru.Remove(key.Fingerprint())
	return nil
}

func (cs *CacheService) Clear(ctx context.Context) error {
	cs.lru.Purge()
	cs.hits.Store(0)
	cs.misses.Store(0)
	return nil
}

func (cs *CacheService) InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error) {
	var removed int64
	for _, k := range cs.lru.Keys() {
		e, ok := cs.lru.Peek(k)
		if ok && e.version != currentVersion {
			cs.lru.Remove(k)
			removed++
		}
	}
	return removed, nil
}

func (cs *CacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	return newStats("memory", cs.hits.Load(), cs.misses.Load(), int64(cs.lru.Len())), nil
}

func (cs *CacheService) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	return cs.lru.Contains(key.Fingerprint()), nil
}

// GetTTL returns the remaining lifetime, 0 for unknown keys or when expiry
// is disabled.
func (cs *CacheService) GetTTL(ctx context.Context, key models.CacheKey) (time.Duration, error) {
	e, ok := cs.lru.Peek(key.Fingerprint())
	if !ok || cs.ttl == 0 {
		return 0, nil
	}
	return max(0, cs.ttl-time.Since(e.stored)), nil
}

// Size returns the number of live entries.
func (cs *CacheService) Size() int {
	return cs.lru.Len()
}

func (cs *CacheService) Close() error {
	return nil
}
