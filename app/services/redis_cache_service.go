package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisKeyPrefix = "addr_match:"
	redisScanBatch = 500
)

// RedisCacheService stores results as JSON under
// "addr_match:<version>:<hash>" so a version can be scanned out.
type RedisCacheService struct {
	client *redis.Client
	logger *zap.Logger
	prefix string
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewRedisCacheService connects to redisURL and pings it.
func NewRedisCacheService(redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisCacheService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCacheService{client: client, logger: logger, prefix: redisKeyPrefix, ttl: ttl}, nil
}

func (rcs *RedisCacheService) redisKey(key models.CacheKey) string {
	return rcs.prefix + key.VersionTag + ":" + key.ContentHash
}

func (rcs *RedisCacheService) Get(ctx context.Context, key models.CacheKey) (*models.AddressResult, bool, error) {
	rk := rcs.redisKey(key)
	val, err := rcs.client.Get(ctx, rk).Bytes()
	if errors.Is(err, redis.Nil) {
		rcs.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		rcs.logger.Error("Redis get failed", zap.Error(err), zap.String("key", rk))
		return nil, false, err
	}

	var result models.AddressResult
	if err := json.Unmarshal(val, &result); err != nil {
		return nil, false, fmt.Errorf("decode cached result %s: %w", rk, err)
	}
	rcs.hits.Add(1)
	rcs.logger.Debug("Redis cache hit", zap.String("key", rk))
	return &result, true, nil
}

func (rcs *RedisCacheService) Set(ctx context.Context, key models.CacheKey, result *models.AddressResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	rk := rcs.redisKey(key)
	if err := rcs.client.Set(ctx, rk, data, rcs.ttl).Err(); err != nil {
		rcs.logger.Error("Redis set failed", zap.Error(err), zap.String("key", rk))
		return err
	}
	return nil
}

func (rcs *RedisCacheService) Delete(ctx context.Context, key models.CacheKey) error {
	return rcs.client.Del(ctx, rcs.redisKey(key)).Err()
}

// scanDelete removes every key under the prefix for which drop is true.
func (rcs *RedisCacheService) scanDelete(ctx context.Context, drop func(string) bool) (int64, error) {
	var removed int64
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", redisScanBatch).Iterator()
	var batch []string
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := rcs.client.Del(ctx, batch...).Result()
		removed += n
		batch = batch[:0]
		return err
	}
	for iter.Next(ctx) {
		if k := iter.Val(); drop(k) {
			batch = append(batch, k)
			if len(batch) >= redisScanBatch {
				if err := flush(); err != nil {
					return removed, fmt.Errorf("delete keys: %w", err)
				}
			}
		}
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan keys: %w", err)
	}
	if err := flush(); err != nil {
		return removed, fmt.Errorf("delete keys: %w", err)
	}
	return removed, nil
}

func (rcs *RedisCacheService) Clear(ctx context.Context) error {
	n, err := rcs.scanDelete(ctx, func(string) bool { return true })
	if err != nil {
		return err
	}
	rcs.hits.Store(0)
	rcs.misses.Store(0)
	rcs.logger.Info("Redis cache cleared", zap.Int64("keys_deleted", n))
	return nil
}

func (rcs *RedisCacheService) InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error) {
	keep := rcs.prefix + currentVersion + ":"
	n, err := rcs.scanDelete(ctx, func(k string) bool { return !strings.HasPrefix(k, keep) })
	if err != nil {
		return n, err
	}
	rcs.logger.Info("Redis cache invalidated", zap.String("version", currentVersion), zap.Int64("keys_deleted", n))
	return n, nil
}

func (rcs *RedisCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	var items int64
	iter := rcs.client.Scan(ctx, 0, rcs.prefix+"*", redisScanBatch).Iterator()
	for iter.Next(ctx) {
		items++
	}
	if err := iter.Err(); err != nil {
		rcs.logger.Warn("Redis key count failed", zap.Error(err))
	}
	return newStats("redis", rcs.hits.Load(), rcs.misses.Load(), items), nil
}

func (rcs *RedisCacheService) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	n, err := rcs.client.Exists(ctx, rcs.redisKey(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (rcs *RedisCacheService) GetTTL(ctx context.Context, key models.CacheKey) (time.Duration, error) {
	return rcs.client.TTL(ctx, rcs.redisKey(key)).Result()
}

func (rcs *RedisCacheService) Close() error {
	return rcs.client.Close()
}
