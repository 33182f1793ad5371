package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/services"
	"github.com/address-matcher/internal/external"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/parser"
	"github.com/address-matcher/internal/search"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Closer releases a backend.
type Closer func()

// NewCache builds the configured per-address cache. A nil cache means
// caching is off.
func NewCache(ctx context.Context, s *Settings, versionTag string, logger *zap.Logger) (services.ICacheService, Closer, error) {
	switch s.CacheBackend {
	case CacheNone, "":
		return nil, func() {}, nil
	case CacheMemory:
		return services.NewCacheService(s.CacheSize, s.CacheTTL), func() {}, nil
	case CacheRedis:
		rc, err := services.NewRedisCacheService(s.RedisURL, s.CacheTTL, logger)
		if err != nil {
			return nil, nil, err
		}
		return rc, func() { rc.Close() }, nil
	case CacheMongo, CacheHybrid:
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", s.CacheBackend)
	}

	db, disconnect, err := ConnectMongo(ctx, s.MongoURL, s.MongoDB, logger)
	if err != nil {
		return nil, nil, err
	}
	mc, err := services.NewMongoCacheService(db, s.CacheSize, logger)
	if err != nil {
		disconnect()
		return nil, nil, err
	}
	if n, err := mc.WarmUp(ctx, versionTag, s.CacheSize/2); err != nil {
		logger.Warn("Cache warm-up failed", zap.Error(err))
	} else {
		logger.Info("Cache warmed up", zap.Int("entries", n))
	}

	if s.CacheBackend == CacheMongo {
		return mc, disconnect, nil
	}

	rc, err := services.NewRedisCacheService(s.RedisURL, s.CacheTTL, logger)
	if err != nil {
		disconnect()
		return nil, nil, err
	}
	hc := services.NewHybridCacheService(rc, mc, logger)
	return hc, func() {
		if err := hc.Close(); err != nil {
			logger.Warn("Cache close failed", zap.Error(err))
		}
		disconnect()
	}, nil
}

// ConnectMongo opens a client and checks it with a ping.
func ConnectMongo(ctx context.Context, url, database string, logger *zap.Logger) (*mongo.Database, Closer, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	logger.Info("Connected to MongoDB", zap.String("database", database))
	return client.Database(database), func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Error("Error disconnecting MongoDB", zap.Error(err))
		}
	}, nil
}

// NewSearcher connects to Meilisearch when enabled. It returns (nil, nil)
// when search is off.
func NewSearcher(s *Settings, logger *zap.Logger) (*search.GazetteerSearcher, error) {
	if !s.SearchEnabled {
		return nil, nil
	}
	return search.NewGazetteerSearcher(search.SearchConfig{
		Host:      s.MeiliURL,
		APIKey:    s.MeiliKey,
		IndexName: s.MeiliIndex,
		Timeout:   s.MeiliTimeout,
	}, logger)
}

// NewParser builds the parser with the optional search resolver and
// libpostal fallback.
func NewParser(s *Settings, cfg *config.PipelineCfg, gaz *gazetteer.Gazetteer, searcher *search.GazetteerSearcher, logger *zap.Logger) *parser.AddressParser {
	var opts []parser.Option
	if searcher != nil {
		opts = append(opts, parser.WithProvinceResolver(searcher))
	}
	if s.LibpostalEnabled {
		if lp := external.NewLibpostalParser(s.LibpostalMinCoverage, logger); lp != nil {
			opts = append(opts, parser.WithFallback(lp))
		} else {
			logger.Warn("libpostal requested but not built in")
		}
	}
	return parser.NewAddressParser(cfg, gaz, logger, opts...)
}

// LoadPipeline reads the pipeline document; a missing file yields the
// defaults. An unusable method is rejected here rather than per request.
func LoadPipeline(path string) (*config.PipelineCfg, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if cfg.Method != config.MethodIndex && cfg.Method != config.MethodFuzzy {
		return nil, fmt.Errorf("pipeline %s: unknown method %q", path, cfg.Method)
	}
	return cfg, nil
}
