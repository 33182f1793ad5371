package requests

import "github.com/address-matcher/app/models"

// NormalizeRequest normalizes one or more texts.
type NormalizeRequest struct {
	Address   string   `json:"address,omitempty"`   // single text
	Addresses []string `json:"addresses,omitempty"` // or a list, max 20k
}

// ParseAddressRequest parses one address.
type ParseAddressRequest struct {
	Address string       `json:"address" binding:"required"`
	Options ParseOptions `json:"options,omitempty"`
}

// ParseOptions tune a parse call.
type ParseOptions struct {
	UseCache      *bool   `json:"use_cache,omitempty"`      // default true
	MinConfidence float64 `json:"min_confidence,omitempty"` // below this the result is reported partial
}

// CacheEnabled resolves the default of UseCache.
func (o ParseOptions) CacheEnabled() bool {
	return o.UseCache == nil || *o.UseCache
}

// BatchParseRequest starts an asynchronous parse job.
type BatchParseRequest struct {
	Addresses []string     `json:"addresses" binding:"required,min=1,max=20000"`
	Options   ParseOptions `json:"options,omitempty"`
}

// MatchRequest matches two record lists. Fields override the service's
// pipeline settings for this call only.
type MatchRequest struct {
	Left      []models.Record `json:"left" binding:"required,min=1"`
	Right     []models.Record `json:"right" binding:"required,min=1"`
	Method    string          `json:"method,omitempty"`
	Threshold *float64        `json:"threshold,omitempty"`
	Scorer    string          `json:"scorer,omitempty"`
	BlockBy   *string         `json:"block_by,omitempty"`
	TopK      *int            `json:"topk,omitempty"`
	Normalize bool            `json:"normalize,omitempty"` // run the full normalizer before scoring
}

// ScoreRequest rates a single pair.
type ScoreRequest struct {
	Left   models.Record `json:"left" binding:"required"`
	Right  models.Record `json:"right" binding:"required"`
	Scorer string        `json:"scorer,omitempty"`
}

// InvalidateCacheRequest drops cache entries. An empty version drops
// entries of every version but the current one; All clears everything.
type InvalidateCacheRequest struct {
	Version string `json:"version,omitempty"`
	All     bool   `json:"all,omitempty"`
}

// SeedGazetteerRequest loads the gazetteer into the search index.
type SeedGazetteerRequest struct {
	DryRun bool `json:"dry_run,omitempty"`
}
