package responses

import (
	"github.com/address-matcher/app/models"
)

// NormalizeResponse returns normalized texts in input order.
type NormalizeResponse struct {
	Normalized []string `json:"normalized"`
	VersionTag string   `json:"version_tag"`
}

// ParseAddressResponse wraps one parse result.
type ParseAddressResponse struct {
	Result           *models.AddressResult `json:"result"`
	VersionTag       string                `json:"version_tag"`
	ProcessingTimeMs int64                 `json:"processing_time_ms"`
	CacheHit         bool                  `json:"cache_hit"`
}

// BatchParseResponse acknowledges a job.
type BatchParseResponse struct {
	JobID            string `json:"job_id"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	TotalAddresses   int    `json:"total_addresses"`
	Message          string `json:"message"`
}

// JobStatusResponse reports job progress.
type JobStatusResponse struct {
	JobID     string  `json:"job_id"`
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"` // 0..1
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Message   string  `json:"message"`
}

// JobStatus constants
const (
	JobStatusPending = "pending"
	JobStatusRunning = "running"
	JobStatusDone    = "done"
	JobStatusFailed  = "failed"
)

// MatchResponse carries the pairs plus the unmatched ids.
type MatchResponse struct {
	Method           string             `json:"method"`
	Pairs            []models.MatchPair `json:"pairs"`
	UnmatchedLeft    []string           `json:"unmatched_left"`
	UnmatchedRight   []string           `json:"unmatched_right"`
	Compared         int                `json:"compared"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
}

// ScoreResponse rates one pair.
type ScoreResponse struct {
	Score  float64 `json:"score"`
	Gated  bool    `json:"gated"` // rejected by the semantic stopword gate
	Scorer string  `json:"scorer"`
}

// SeedGazetteerResponse reports a seed run.
type SeedGazetteerResponse struct {
	UnitsProcessed   int    `json:"units_processed"`
	ProcessingTimeMs int64  `json:"processing_time_ms"`
	DryRun           bool   `json:"dry_run"`
	Message          string `json:"message"`
}

// CacheInvalidateResponse reports removed entries.
type CacheInvalidateResponse struct {
	Removed int64  `json:"removed"`
	Version string `json:"version"`
}

// AdminStatsResponse summarizes service state.
type AdminStatsResponse struct {
	CacheHitRate   float64 `json:"cache_hit_rate"`
	TotalProcessed int64   `json:"total_processed"`
	TotalCached    int64   `json:"total_cached"`
	CacheBackend   string  `json:"cache_backend"`
	VersionTag     string  `json:"version_tag"`
	Provinces      int     `json:"provinces"`
	Districts      int     `json:"districts"`
	ActiveJobs     int     `json:"active_jobs"`
	MemoryAllocMB  uint64  `json:"memory_alloc_mb"`
	UptimeSeconds  int64   `json:"uptime_seconds"`
	LastUpdated    string  `json:"last_updated"`
}

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	Error     string      `json:"error"`   // machine-readable code
	Message   string      `json:"message"` // human-readable text
	Details   interface{} `json:"details,omitempty"`
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// HealthCheckResponse for /health
type HealthCheckResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
}
