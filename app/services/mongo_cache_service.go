package services

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/address-matcher/app/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const addressCacheCollection = "address_cache"

// MongoCacheService is a persistent cache in MongoDB fronted by an
// in-process LRU.
type MongoCacheService struct {
	collection *mongo.Collection
	l1Cache    *lru.Cache[string, *models.AddressResult]
	logger     *zap.Logger

	l1Hits    atomic.Int64
	mongoHits atomic.Int64
	totalMiss atomic.Int64
}

// NewMongoCacheService uses db's address_cache collection and creates its
// indexes.
func NewMongoCacheService(db *mongo.Database, l1Size int, logger *zap.Logger) (*MongoCacheService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if l1Size <= 0 {
		l1Size = 1000
	}
	l1Cache, err := lru.New[string, *models.AddressResult](l1Size)
	if err != nil {
		return nil, fmt.Errorf("create l1 cache: %w", err)
	}

	collection := db.Collection(addressCacheCollection)
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "fingerprint", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "version_tag", Value: 1}}},
		{Keys: bson.D{{Key: "last_accessed", Value: 1}}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		logger.Warn("Creating address_cache indexes failed", zap.Error(err))
	}

	return &MongoCacheService{collection: collection, l1Cache: l1Cache, logger: logger}, nil
}

// Get checks the LRU, then MongoDB. A MongoDB hit is promoted to the LRU.
func (mcs *MongoCacheService) Get(ctx context.Context, key models.CacheKey) (*models.AddressResult, bool, error) {
	fp := key.Fingerprint()
	if result, ok := mcs.l1Cache.Get(fp); ok {
		mcs.l1Hits.Add(1)
		return result, true, nil
	}

	var entry models.AddressCache
	err := mcs.collection.FindOne(ctx, bson.M{"fingerprint": fp}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		mcs.totalMiss.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query address cache: %w", err)
	}

	mcs.mongoHits.Add(1)
	go mcs.updateAccessStats(entry.ID)
	mcs.l1Cache.Add(fp, &entry.ParsedResult)
	mcs.logger.Debug("MongoDB cache hit", zap.String("fingerprint", fp))
	return &entry.ParsedResult, true, nil
}

// Set writes through to both layers.
func (mcs *MongoCacheService) Set(ctx context.Context, key models.CacheKey, result *models.AddressResult) error {
	fp := key.Fingerprint()
	mcs.l1Cache.Add(fp, result)

	entry := models.NewAddressCache(key, *result)
	_, err := mcs.collection.ReplaceOne(ctx, bson.M{"fingerprint": fp}, entry, options.Replace().SetUpsert(true))
	if err != nil {
		mcs.logger.Error("MongoDB cache write failed", zap.Error(err), zap.String("fingerprint", fp))
		return fmt.Errorf("write address cache: %w", err)
	}
	return nil
}

func (mcs *MongoCacheService) Delete(ctx context.Context, key models.CacheKey) error {
	fp := key.Fingerprint()
	mcs.l1Cache.Remove(fp)
	if _, err := mcs.collection.DeleteOne(ctx, bson.M{"fingerprint": fp}); err != nil {
		return fmt.Errorf("delete from address cache: %w", err)
	}
	return nil
}

func (mcs *MongoCacheService) Clear(ctx context.Context) error {
	mcs.l1Cache.Purge()
	if _, err := mcs.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("clear address cache: %w", err)
	}
	mcs.l1Hits.Store(0)
	mcs.mongoHits.Store(0)
	mcs.totalMiss.Store(0)
	return nil
}

func (mcs *MongoCacheService) InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error) {
	mcs.l1Cache.Purge()
	res, err := mcs.collection.DeleteMany(ctx, bson.M{"version_tag": bson.M{"$ne": currentVersion}})
	if err != nil {
		return 0, fmt.Errorf("invalidate address cache: %w", err)
	}
	mcs.logger.Info("MongoDB cache invalidated",
		zap.String("version", currentVersion),
		zap.Int64("deleted_count", res.DeletedCount))
	return res.DeletedCount, nil
}

func (mcs *MongoCacheService) GetStats(ctx context.Context) (*CacheStats, error) {
	count, err := mcs.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("count address cache: %w", err)
	}
	hits := mcs.l1Hits.Load() + mcs.mongoHits.Load()
	mcs.logger.Debug("Cache stats",
		zap.Int64("l1_hits", mcs.l1Hits.Load()),
		zap.Int64("mongo_hits", mcs.mongoHits.Load()),
		zap.Int("l1_size", mcs.l1Cache.Len()))
	return newStats("mongo", hits, mcs.totalMiss.Load(), count), nil
}

func (mcs *MongoCacheService) Exists(ctx context.Context, key models.CacheKey) (bool, error) {
	fp := key.Fingerprint()
	if mcs.l1Cache.Contains(fp) {
		return true, nil
	}
	n, err := mcs.collection.CountDocuments(ctx, bson.M{"fingerprint": fp})
	if err != nil {
		return false, fmt.Errorf("check address cache: %w", err)
	}
	return n > 0, nil
}

// GetTTL is always 0: persistent entries do not expire.
func (mcs *MongoCacheService) GetTTL(ctx context.Context, key models.CacheKey) (time.Duration, error) {
	return 0, nil
}

// Close is a no-op; the client belongs to the caller.
func (mcs *MongoCacheService) Close() error {
	return nil
}

func (mcs *MongoCacheService) updateAccessStats(id primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	update := bson.M{
		"$set": bson.M{"last_accessed": time.Now()},
		"$inc": bson.M{"access_count": 1},
	}
	if _, err := mcs.collection.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		mcs.logger.Warn("Updating access stats failed", zap.Error(err))
	}
}

// WarmUp loads the most accessed entries of currentVersion into the LRU.
func (mcs *MongoCacheService) WarmUp(ctx context.Context, currentVersion string, limit int) (int, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "access_count", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := mcs.collection.Find(ctx, bson.M{"version_tag": currentVersion}, opts)
	if err != nil {
		return 0, fmt.Errorf("warm up cache: %w", err)
	}
	defer cursor.Close(ctx)

	count := 0
	for cursor.Next(ctx) {
		var entry models.AddressCache
		if err := cursor.Decode(&entry); err != nil {
			mcs.logger.Warn("Skipping undecodable cache entry", zap.Error(err))
			continue
		}
		mcs.l1Cache.Add(entry.Fingerprint, &entry.ParsedResult)
		count++
	}
	mcs.logger.Info("Cache warm up finished", zap.Int("loaded_items", count))
	return count, cursor.Err()
}
