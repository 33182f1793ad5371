// Package blocking partitions records into buckets by a cheap key so the
// matcher only compares records inside the same bucket.
package blocking

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/address-matcher/internal/normalizer"
)

// Kind of blocking strategy
type Kind string

const (
	KindNone             Kind = "none"
	KindFirstToken       Kind = "first_token"
	KindDigits           Kind = "digits"
	KindPrefix           Kind = "prefix"
	KindDigitsPrefix     Kind = "digits+prefix"
	KindProvinceDistrict Kind = "province+district"
)

const defaultPrefixLen = 8

// column pairs tried, in order, by province+district
var provinceDistrictColumns = [][2]string{
	{"il", "ilce"},
	{"province", "district"},
	{"city", "county"},
}

var (
	strategyPattern = regexp.MustCompile(`^(digits\+prefix|prefix)(\d*)$`)
	digitRunPattern = regexp.MustCompile(`\d+`)
	nonAlnumPattern = regexp.MustCompile(`[^a-z0-9çğıöşü]`)
)

// Strategy is a parsed block_by value.
type Strategy struct {
	Kind      Kind
	PrefixLen int
}

// ParseStrategy reads a block_by string: "", "none", "first_token",
// "digits", "prefixN", "digits+prefixN" or "province+district". Unknown
// values mean no blocking and ok=false.
func ParseStrategy(s string) (Strategy, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "", "none":
		return Strategy{Kind: KindNone}, true
	case "first_token", "token":
		return Strategy{Kind: KindFirstToken}, true
	case "digits":
		return Strategy{Kind: KindDigits}, true
	case "province+district":
		return Strategy{Kind: KindProvinceDistrict, PrefixLen: defaultPrefixLen}, true
	}
	if m := strategyPattern.FindStringSubmatch(s); m != nil {
		n := defaultPrefixLen
		if m[2] != "" {
			if v, err := strconv.Atoi(m[2]); err == nil && v > 0 {
				n = v
			}
		}
		return Strategy{Kind: Kind(m[1]), PrefixLen: n}, true
	}
	return Strategy{Kind: KindNone}, false
}

func (s Strategy) String() string {
	switch s.Kind {
	case KindPrefix, KindDigitsPrefix:
		return string(s.Kind) + strconv.Itoa(s.PrefixLen)
	}
	return string(s.Kind)
}

// Key computes the block key of one row. fields carries the row's columns
// (read by province+district); text is its address text. Missing columns
// count as empty.
func (s Strategy) Key(fields map[string]string, text string) string {
	switch s.Kind {
	case KindFirstToken:
		if toks := strings.Fields(normalizer.TurkishLower(text)); len(toks) > 0 {
			return toks[0]
		}
		return ""
	case KindDigits:
		return firstDigits(text)
	case KindPrefix:
		return prefix(text, s.PrefixLen)
	case KindDigitsPrefix:
		return firstDigits(text) + "|" + prefix(text, s.PrefixLen)
	case KindProvinceDistrict:
		for _, cols := range provinceDistrictColumns {
			a := normalizer.TurkishLower(strings.TrimSpace(fields[cols[0]]))
			b := normalizer.TurkishLower(strings.TrimSpace(fields[cols[1]]))
			if a != "" || b != "" {
				return a + "|" + b
			}
		}
		return prefix(text, s.PrefixLen)
	}
	return ""
}

// BlockKey is Key for a row whose text lives in textColumn.
func BlockKey(row map[string]string, textColumn, strategy string) string {
	s, _ := ParseStrategy(strategy)
	return s.Key(row, row[textColumn])
}

// GroupByBlock buckets rows by BlockKey, keeping input order inside each
// bucket.
func GroupByBlock(rows []map[string]string, textColumn, strategy string) map[string][]map[string]string {
	s, _ := ParseStrategy(strategy)
	out := make(map[string][]map[string]string)
	for _, r := range rows {
		k := s.Key(r, r[textColumn])
		out[k] = append(out[k], r)
	}
	return out
}

// SortedKeys returns the bucket keys of groups in ascending order.
func SortedKeys[T any](groups map[string][]T) []string {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func alnumLower(s string) string {
	return nonAlnumPattern.ReplaceAllString(normalizer.TurkishLower(s), "")
}

func prefix(s string, n int) string {
	r := []rune(alnumLower(s))
	if len(r) > n {
		r = r[:n]
	}
	return string(r)
}

func firstDigits(s string) string {
	return digitRunPattern.FindString(s)
}
