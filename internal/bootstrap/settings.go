// Package bootstrap turns environment and app.yaml settings into wired
// services for the API server, the worker CLI and the seeder.
package bootstrap

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cache backends
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
	CacheMongo  = "mongo"
	CacheHybrid = "hybrid"
)

// Settings are the process-level knobs. Pipeline behavior lives in the
// document at PipelineConfig.
type Settings struct {
	Port           string
	Env            string
	LogLevel       string
	PipelineConfig string

	CacheBackend string
	CacheSize    int
	CacheTTL     time.Duration
	RedisURL     string
	MongoURL     string
	MongoDB      string

	SearchEnabled bool
	MeiliURL      string
	MeiliKey      string
	MeiliIndex    string
	MeiliTimeout  time.Duration

	LibpostalEnabled     bool
	LibpostalMinCoverage float64

	RateLimitRPS   float64
	RateLimitBurst int

	BatchCachePath string

	JobTTL  time.Duration // finished batch jobs are dropped after this
	MaxJobs int
}

// LoadSettings reads .env (if present), then app.yaml from ./config or the
// working directory, then environment variables. configFile, when set,
// replaces the app.yaml lookup.
func LoadSettings(configFile string) (*Settings, error) {
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("app")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("pipeline.config", "config/pipeline.yaml")
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.size", 10000)
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("redis.url", "redis://localhost:6379")
	v.SetDefault("mongo.url", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "address_matcher")
	v.SetDefault("meilisearch.enabled", false)
	v.SetDefault("meilisearch.url", "http://localhost:7700")
	v.SetDefault("meilisearch.master_key", "")
	v.SetDefault("meilisearch.index", "admin_units")
	v.SetDefault("meilisearch.timeout", "2s")
	v.SetDefault("libpostal.enabled", false)
	v.SetDefault("libpostal.min_coverage", 0.5)
	v.SetDefault("ratelimit.rps", 0)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("batch_cache.path", ".cache/batch.db")
	v.SetDefault("jobs.ttl", "1h")
	v.SetDefault("jobs.max", 1000)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read settings: %w", err)
		}
	}

	return &Settings{
		Port:                 v.GetString("app.port"),
		Env:                  v.GetString("app.env"),
		LogLevel:             v.GetString("log.level"),
		PipelineConfig:       v.GetString("pipeline.config"),
		CacheBackend:         strings.ToLower(v.GetString("cache.backend")),
		CacheSize:            v.GetInt("cache.size"),
		CacheTTL:             v.GetDuration("cache.ttl"),
		RedisURL:             v.GetString("redis.url"),
		MongoURL:             v.GetString("mongo.url"),
		MongoDB:              v.GetString("mongo.database"),
		SearchEnabled:        v.GetBool("meilisearch.enabled"),
		MeiliURL:             v.GetString("meilisearch.url"),
		MeiliKey:             v.GetString("meilisearch.master_key"),
		MeiliIndex:           v.GetString("meilisearch.index"),
		MeiliTimeout:         v.GetDuration("meilisearch.timeout"),
		LibpostalEnabled:     v.GetBool("libpostal.enabled"),
		LibpostalMinCoverage: v.GetFloat64("libpostal.min_coverage"),
		RateLimitRPS:         v.GetFloat64("ratelimit.rps"),
		RateLimitBurst:       v.GetInt("ratelimit.burst"),
		BatchCachePath:       v.GetString("batch_cache.path"),
		JobTTL:               v.GetDuration("jobs.ttl"),
		MaxJobs:              v.GetInt("jobs.max"),
	}, nil
}
