package models

// AddressResult is the outcome of parsing one raw address.
type AddressResult struct {
	Raw            string       `json:"raw"`                    // input text
	Normalized     string       `json:"normalized"`             // normalized text
	Parts          AddressParts `json:"parts"`                  // extracted fields
	Confidence     float64      `json:"confidence"`             // extraction confidence, 0..1
	Quality        QualityInfo  `json:"quality"`                // text quality metrics
	RawFingerprint string       `json:"raw_fingerprint"`        // cache fingerprint
	VersionTag     string       `json:"version_tag"`            // pipeline version that produced it
	MatchStrategy  string       `json:"match_strategy"`         // which resolvers contributed
	Status         string       `json:"status"`                 // parsed / partial / empty
	Diagnostics    []string     `json:"diagnostics,omitempty"` // skipped rules
}

// QualityInfo holds cheap text statistics and the flags derived from them.
type QualityInfo struct {
	CharLen      int      `json:"char_len"`
	WordLen      int      `json:"word_len"`
	DigitCount   int      `json:"digit_count"`
	PunctCount   int      `json:"punct_count"`
	IsSuspicious bool     `json:"is_suspicious"`
	Flags        []string `json:"flags"`
}

// QualityMetrics alias for QualityInfo
type QualityMetrics = QualityInfo

// Status constants
const (
	StatusParsed  = "parsed"
	StatusPartial = "partial"
	StatusEmpty   = "empty"
)

// MatchStrategy constants
const (
	StrategyRules     = "rules"
	StrategySearch    = "rules+search"
	StrategyLibpostal = "rules+libpostal"
)

// Quality flags
const (
	FlagTooShort         = "TOO_SHORT"
	FlagTooFewWords      = "TOO_FEW_WORDS"
	FlagTooLong          = "TOO_LONG"
	FlagNoDigits         = "NO_DIGITS"
	FlagLowConfidence    = "LOW_CONFIDENCE"
	FlagProvinceResolved = "PROVINCE_RESOLVED"
	FlagLibpostal        = "LIBPOSTAL_FALLBACK"
)

// HasFlag reports whether flag is set on the result.
func (ar *AddressResult) HasFlag(flag string) bool {
	for _, f := range ar.Quality.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsValidStatus reports whether Status is a known value.
func (ar *AddressResult) IsValidStatus() bool {
	switch ar.Status {
	case StatusParsed, StatusPartial, StatusEmpty:
		return true
	}
	return false
}
