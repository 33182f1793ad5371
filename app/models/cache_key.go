package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// CacheKey identifies a cached result by what was processed (content hash)
// and how (pipeline version tag). A change in either half is a miss.
type CacheKey struct {
	ContentHash string `json:"content_hash" bson:"content_hash"`
	VersionTag  string `json:"version_tag" bson:"version_tag"`
}

// NewCacheKey hashes content and pairs it with versionTag.
func NewCacheKey(content []byte, versionTag string) CacheKey {
	sum := sha256.Sum256(content)
	return CacheKey{ContentHash: hex.EncodeToString(sum[:]), VersionTag: versionTag}
}

// Fingerprint renders the key as "sha256:<hash>@<tag>".
func (k CacheKey) Fingerprint() string {
	return "sha256:" + k.ContentHash + "@" + k.VersionTag
}

func (k CacheKey) String() string {
	return k.Fingerprint()
}

// ParseFingerprint is the inverse of Fingerprint.
func ParseFingerprint(s string) (CacheKey, error) {
	rest, ok := strings.CutPrefix(s, "sha256:")
	if !ok {
		return CacheKey{}, fmt.Errorf("fingerprint %q: missing sha256 prefix", s)
	}
	hash, tag, ok := strings.Cut(rest, "@")
	if !ok || hash == "" || tag == "" {
		return CacheKey{}, fmt.Errorf("fingerprint %q: want sha256:<hash>@<tag>", s)
	}
	return CacheKey{ContentHash: hash, VersionTag: tag}, nil
}
