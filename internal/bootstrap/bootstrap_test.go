package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/address-matcher/app/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: "9090"
cache:
  backend: Redis
  ttl: 1h
ratelimit:
  rps: 5
jobs:
  ttl: 10m
`), 0o644))

	t.Setenv("CACHE_SIZE", "123")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "9090", s.Port)
	assert.Equal(t, CacheRedis, s.CacheBackend)
	assert.Equal(t, time.Hour, s.CacheTTL)
	assert.Equal(t, 123, s.CacheSize)
	assert.Equal(t, 5.0, s.RateLimitRPS)
	assert.Equal(t, "admin_units", s.MeiliIndex)
	assert.False(t, s.SearchEnabled)
	assert.Equal(t, 10*time.Minute, s.JobTTL)
	assert.Equal(t, 1000, s.MaxJobs)

	_, err = LoadSettings(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	l, err := NewLogger("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zap.InfoLevel))
	assert.True(t, l.Core().Enabled(zap.WarnLevel))

	_, err = NewLogger("development", "loud")
	assert.Error(t, err)
}

func TestNewCache(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	c, closeFn, err := NewCache(ctx, &Settings{CacheBackend: CacheNone}, "v", logger)
	require.NoError(t, err)
	assert.Nil(t, c)
	closeFn()

	c, closeFn, err = NewCache(ctx, &Settings{CacheBackend: CacheMemory, CacheSize: 5}, "v", logger)
	require.NoError(t, err)
	assert.IsType(t, &services.CacheService{}, c)
	closeFn()

	_, _, err = NewCache(ctx, &Settings{CacheBackend: "disk"}, "v", logger)
	assert.Error(t, err)
}

func TestLoadPipeline(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("method: exact\n"), 0o644))
	t.Setenv("MATCH_METHOD", "")

	_, err := LoadPipeline(bad)
	assert.Error(t, err)

	cfg, err := LoadPipeline(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fuzzy", cfg.Method)
}

func TestNewParser(t *testing.T) {
	p := NewParser(&Settings{LibpostalEnabled: false}, nil, nil, nil, zap.NewNop())
	require.NotNil(t, p)
	assert.NotEmpty(t, p.VersionTag())
}
