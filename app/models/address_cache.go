package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AddressCache is the persisted form of a parse result.
type AddressCache struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Fingerprint  string             `bson:"fingerprint" json:"fingerprint"`   // sha256:<hash>@<tag>
	ContentHash  string             `bson:"content_hash" json:"content_hash"` // hash of the raw address
	VersionTag   string             `bson:"version_tag" json:"version_tag"`   // pipeline version
	RawAddress   string             `bson:"raw_address" json:"raw_address"`
	Normalized   string             `bson:"normalized" json:"normalized"`
	ParsedResult AddressResult      `bson:"parsed_result" json:"parsed_result"`
	Confidence   float64            `bson:"confidence" json:"confidence"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	LastAccessed time.Time          `bson:"last_accessed" json:"last_accessed"`
	AccessCount  int                `bson:"access_count" json:"access_count"`
}

// NewAddressCache wraps result for storage under key.
func NewAddressCache(key CacheKey, result AddressResult) *AddressCache {
	now := time.Now()
	return &AddressCache{
		Fingerprint:  key.Fingerprint(),
		ContentHash:  key.ContentHash,
		VersionTag:   key.VersionTag,
		RawAddress:   result.Raw,
		Normalized:   result.Normalized,
		ParsedResult: result,
		Confidence:   result.Confidence,
		CreatedAt:    now,
		LastAccessed: now,
		AccessCount:  1,
	}
}

// UpdateAccess records a read.
func (ac *AddressCache) UpdateAccess() {
	ac.LastAccessed = time.Now()
	ac.AccessCount++
}

// IsExpired reports whether the entry is older than ttlHours.
func (ac *AddressCache) IsExpired(ttlHours int) bool {
	return time.Since(ac.CreatedAt) > time.Duration(ttlHours)*time.Hour
}

func (ac *AddressCache) IsValidVersion(currentTag string) bool {
	return ac.VersionTag == currentTag
}
