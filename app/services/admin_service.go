package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/app/requests"
	"github.com/address-matcher/app/responses"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/search"
	"go.uber.org/zap"
)

var (
	ErrCacheDisabled     = errors.New("cache is disabled")
	ErrSearchUnavailable = errors.New("search index is not configured")
)

// GazetteerSeeder loads a gazetteer into a search index.
type GazetteerSeeder interface {
	SeedGazetteer(g *gazetteer.Gazetteer) (int, error)
}

// AdminService handles cache maintenance, gazetteer seeding and stats.
type AdminService struct {
	addresses *AddressService
	gazetteer *gazetteer.Gazetteer
	seeder    GazetteerSeeder // nil when search is off
	logger    *zap.Logger
}

// GazetteerValidation is the outcome of checking admin units before a seed.
type GazetteerValidation struct {
	Passed   bool     `json:"passed"`
	Warnings []string `json:"warnings"`
}

func NewAdminService(addresses *AddressService, gaz *gazetteer.Gazetteer, seeder GazetteerSeeder, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	return &AdminService{addresses: addresses, gazetteer: gaz, seeder: seeder, logger: logger}
}

// ValidateGazetteerData checks ids, names and levels of units.
func (as *AdminService) ValidateGazetteerData(units []models.AdminUnit) *GazetteerValidation {
	if len(units) == 0 {
		return &GazetteerValidation{Warnings: []string{"no admin units"}}
	}

	var warnings []string
	seen := make(map[string]bool, len(units))
	for i, u := range units {
		switch {
		case u.ID == "":
			warnings = append(warnings, fmt.Sprintf("missing id at index %d", i))
		case seen[u.ID]:
			warnings = append(warnings, fmt.Sprintf("duplicate id %s", u.ID))
		}
		seen[u.ID] = true

		if u.Name == "" {
			warnings = append(warnings, fmt.Sprintf("missing name at index %d", i))
		}
		if u.Level != models.AdminLevelProvince && u.Level != models.AdminLevelDistrict {
			warnings = append(warnings, fmt.Sprintf("invalid level %d at index %d", u.Level, i))
		}
		if u.Level == models.AdminLevelDistrict && u.Province == "" {
			warnings = append(warnings, fmt.Sprintf("district %s has no province", u.ID))
		}
	}
	return &GazetteerValidation{Passed: len(warnings) == 0, Warnings: warnings}
}

// SeedGazetteer validates the gazetteer and loads it into the search index.
// A dry run stops after validation.
func (as *AdminService) SeedGazetteer(ctx context.Context, dryRun bool) (*responses.SeedGazetteerResponse, error) {
	start := time.Now()
	units := search.AdminUnitsFromGazetteer(as.gazetteer)

	validation := as.ValidateGazetteerData(units)
	if !validation.Passed {
		return nil, fmt.Errorf("invalid gazetteer: %v", validation.Warnings)
	}
	if dryRun {
		return &responses.SeedGazetteerResponse{
			UnitsProcessed:   len(units),
			ProcessingTimeMs: time.Since(start).Milliseconds(),
			DryRun:           true,
			Message:          "validation passed",
		}, nil
	}
	if as.seeder == nil {
		return nil, ErrSearchUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := as.seeder.SeedGazetteer(as.gazetteer)
	if err != nil {
		return nil, fmt.Errorf("seed gazetteer: %w", err)
	}
	elapsed := time.Since(start)
	as.logger.Info("Gazetteer seed completed", zap.Int("units_processed", n), zap.Duration("processing_time", elapsed))

	return &responses.SeedGazetteerResponse{
		UnitsProcessed:   n,
		ProcessingTimeMs: elapsed.Milliseconds(),
		Message:          "seeded",
	}, nil
}

// InvalidateCache drops stale entries. Without a version it keeps only the
// current pipeline version; All clears the cache.
func (as *AdminService) InvalidateCache(ctx context.Context, req *requests.InvalidateCacheRequest) (*responses.CacheInvalidateResponse, error) {
	cache := as.addresses.Cache()
	if cache == nil {
		return nil, ErrCacheDisabled
	}

	if req.All {
		var before int64
		if st, err := cache.GetStats(ctx); err == nil {
			before = st.TotalItems
		}
		if err := cache.Clear(ctx); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
		as.logger.Info("Cache cleared", zap.Int64("removed", before))
		return &responses.CacheInvalidateResponse{Removed: before}, nil
	}

	version := req.Version
	if version == "" {
		version = as.addresses.VersionTag()
	}
	removed, err := cache.InvalidateByVersion(ctx, version)
	if err != nil {
		return nil, fmt.Errorf("invalidate cache: %w", err)
	}
	as.logger.Info("Cache invalidated", zap.String("kept_version", version), zap.Int64("removed", removed))
	return &responses.CacheInvalidateResponse{Removed: removed, Version: version}, nil
}

// GetSystemStats summarizes the running service.
func (as *AdminService) GetSystemStats(ctx context.Context) *responses.AdminStatsResponse {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	provinces, districts := as.gazetteer.Stats()
	stats := &responses.AdminStatsResponse{
		TotalProcessed: as.addresses.TotalProcessed(),
		CacheBackend:   "none",
		VersionTag:     as.addresses.VersionTag(),
		Provinces:      provinces,
		Districts:      districts,
		ActiveJobs:     as.addresses.ActiveJobs(),
		MemoryAllocMB:  bToMb(m.Alloc),
		UptimeSeconds:  int64(time.Since(as.addresses.GetStartTime()).Seconds()),
		LastUpdated:    time.Now().Format(time.RFC3339),
	}

	if cache := as.addresses.Cache(); cache != nil {
		cs, err := cache.GetStats(ctx)
		if err != nil {
			as.logger.Warn("Cache stats unavailable", zap.Error(err))
		} else {
			stats.CacheBackend = cs.Backend
			stats.CacheHitRate = cs.HitRate
			stats.TotalCached = cs.TotalItems
		}
	}
	return stats
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
