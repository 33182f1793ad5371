package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/matcher"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const batchCacheSchema = `
CREATE TABLE IF NOT EXISTS batch_cache (
	content_hash TEXT NOT NULL,
	version_tag  TEXT NOT NULL,
	kind         TEXT NOT NULL,
	payload      BLOB NOT NULL,
	created_at   INTEGER NOT NULL,
	PRIMARY KEY (content_hash, version_tag, kind)
);
CREATE INDEX IF NOT EXISTS idx_batch_cache_version ON batch_cache(version_tag);
`

// Batch cache payload kinds
const (
	BatchKindParsed = "parsed"
	BatchKindMatch  = "match"
)

// BatchCacheService stores whole-file results in a sqlite file, keyed by the
// source file hash and the pipeline version tag.
type BatchCacheService struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBatchCacheService opens (and creates if needed) the cache file.
func NewBatchCacheService(path string, logger *zap.Logger) (*BatchCacheService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_timeout=2000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open batch cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(batchCacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init batch cache schema: %w", err)
	}

	logger.Info("Batch cache opened", zap.String("path", path))
	return &BatchCacheService{db: db, logger: logger}, nil
}

// Get returns the raw payload stored under key and kind.
func (bc *BatchCacheService) Get(ctx context.Context, key models.CacheKey, kind string) ([]byte, bool, error) {
	var payload []byte
	err := bc.db.QueryRowContext(ctx,
		`SELECT payload FROM batch_cache WHERE content_hash = ? AND version_tag = ? AND kind = ?`,
		key.ContentHash, key.VersionTag, kind,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("batch cache get: %w", err)
	}
	return payload, true, nil
}

// Put stores payload, replacing any previous entry.
func (bc *BatchCacheService) Put(ctx context.Context, key models.CacheKey, kind string, payload []byte) error {
	_, err := bc.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_cache (content_hash, version_tag, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		key.ContentHash, key.VersionTag, kind, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("batch cache put: %w", err)
	}
	return nil
}

// GetResults decodes cached parse results for a file.
func (bc *BatchCacheService) GetResults(ctx context.Context, key models.CacheKey) ([]*models.AddressResult, bool, error) {
	var results []*models.AddressResult
	found, err := bc.getJSON(ctx, key, BatchKindParsed, &results)
	return results, found, err
}

// PutResults stores parse results for a file.
func (bc *BatchCacheService) PutResults(ctx context.Context, key models.CacheKey, results []*models.AddressResult) error {
	return bc.putJSON(ctx, key, BatchKindParsed, results)
}

// GetMatch decodes a cached match run for a pair of files.
func (bc *BatchCacheService) GetMatch(ctx context.Context, key models.CacheKey) (*matcher.Result, bool, error) {
	res := &matcher.Result{}
	found, err := bc.getJSON(ctx, key, BatchKindMatch, res)
	if !found {
		return nil, false, err
	}
	return res, true, nil
}

// PutMatch stores a match run.
func (bc *BatchCacheService) PutMatch(ctx context.Context, key models.CacheKey, res *matcher.Result) error {
	return bc.putJSON(ctx, key, BatchKindMatch, res)
}

// getJSON treats an undecodable payload as a miss.
func (bc *BatchCacheService) getJSON(ctx context.Context, key models.CacheKey, kind string, v any) (bool, error) {
	payload, found, err := bc.Get(ctx, key, kind)
	if err != nil || !found {
		return false, err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		bc.logger.Warn("Corrupt batch cache entry",
			zap.String("key", key.Fingerprint()),
			zap.String("kind", kind),
			zap.Error(err))
		return false, nil
	}
	return true, nil
}

func (bc *BatchCacheService) putJSON(ctx context.Context, key models.CacheKey, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode batch %s: %w", kind, err)
	}
	return bc.Put(ctx, key, kind, payload)
}

// InvalidateByVersion drops entries written by any other version.
func (bc *BatchCacheService) InvalidateByVersion(ctx context.Context, currentVersion string) (int64, error) {
	res, err := bc.db.ExecContext(ctx, `DELETE FROM batch_cache WHERE version_tag <> ?`, currentVersion)
	if err != nil {
		return 0, fmt.Errorf("batch cache invalidate: %w", err)
	}
	n, _ := res.RowsAffected()
	bc.logger.Info("Batch cache invalidated", zap.String("version", currentVersion), zap.Int64("deleted", n))
	return n, nil
}

// Count returns the number of stored entries.
func (bc *BatchCacheService) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := bc.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batch_cache`).Scan(&n); err != nil {
		return 0, fmt.Errorf("batch cache count: %w", err)
	}
	return n, nil
}

func (bc *BatchCacheService) Close() error {
	return bc.db.Close()
}
