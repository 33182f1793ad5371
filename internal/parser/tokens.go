package parser

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
)

const (
	maxNameTokens     = 3
	maxBuildingTokens = 2
	tailWindow        = 8
)

var (
	// 2001, 90a, 10/3
	numberTokenPattern = regexp.MustCompile(`^\d+(?:/\d+)?[a-z]?$`)
	// no value as written: 12, 12a, 12/3, 12a/3b
	noValuePattern = regexp.MustCompile(`^\d+[a-z]?(?:/\d+[a-z]?)?$`)
	// final shape of no / daire / kat
	numericFieldPattern = regexp.MustCompile(`^\d+[a-z]?$`)
	digitsPattern       = regexp.MustCompile(`^\d+$`)
	slashPairPattern    = regexp.MustCompile(`^(\p{L}+)/(\p{L}+)$`)
)

// Named-segment anchors
var namedAnchors = []string{models.FieldMahalle, models.FieldCadde, models.FieldSokak, models.FieldBulvar}

// Building-name triggers
var buildingTriggers = toSet(
	"apartman", "apt", "residence", "rezidans", "site", "sitesi", "blok",
	"plaza", "tower", "işhanı", "ishani", "otel", "hotel", "bina",
)

// Words that end a captured name run.
var boundaryWords = toSet(
	"mahalle", "cadde", "sokak", "bulvar", "no", "daire", "kat", "mevkii",
	"il", "ilçe", "ilce",
	"apartman", "apt", "site", "sitesi", "blok", "bina", "residence", "rezidans",
	"otel", "hotel", "plaza", "tower", "işhanı", "ishani",
)

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func isBoundary(tok string) bool {
	_, ok := boundaryWords[tok]
	return ok
}

func isBuildingTrigger(tok string) bool {
	_, ok := buildingTriggers[tok]
	return ok
}

func tokenize(s string) []string {
	return strings.Fields(s)
}

func isNumberToken(tok string) bool {
	return numberTokenPattern.MatchString(tok)
}

func hasDigit(tok string) bool {
	return strings.IndexFunc(tok, unicode.IsDigit) >= 0
}

// isAlphaToken accepts letters and hyphens only.
func isAlphaToken(tok string) bool {
	if tok == "" {
		return false
	}
	for _, r := range tok {
		if r != '-' && !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func indexOf(toks []string, word string) int {
	for i, t := range toks {
		if t == word {
			return i
		}
	}
	return -1
}

// captureBackward collects up to maxNameTokens tokens before toks[i],
// stopping at a boundary word or (unless allowDigits) a token with digits.
func captureBackward(toks []string, i int, allowDigits bool) string {
	var bucket []string
	for j := i - 1; j >= 0 && len(bucket) < maxNameTokens; j-- {
		w := toks[j]
		if isBoundary(w) || (!allowDigits && hasDigit(w)) {
			break
		}
		bucket = append(bucket, w)
	}
	for l, r := 0, len(bucket)-1; l < r; l, r = l+1, r-1 {
		bucket[l], bucket[r] = bucket[r], bucket[l]
	}
	return strings.Join(bucket, " ")
}

// captureForward is the mirror of captureBackward.
func captureForward(toks []string, i int, allowDigits bool) string {
	var bucket []string
	for k := i + 1; k < len(toks) && len(bucket) < maxNameTokens; k++ {
		w := toks[k]
		if isBoundary(w) || (!allowDigits && hasDigit(w)) {
			break
		}
		bucket = append(bucket, w)
	}
	return strings.Join(bucket, " ")
}

// segmentName resolves the value of the named anchor at toks[i]: the
// backward run first, then the forward run. Streets may be named by a
// number, and a number directly before "sokak" wins over any name.
func segmentName(toks []string, i int, anchor string) string {
	if anchor == models.FieldSokak {
		if i > 0 && isNumberToken(toks[i-1]) {
			return toks[i-1]
		}
		if b := captureBackward(toks, i, false); b != "" {
			return b
		}
		a := captureForward(toks, i, true)
		if a == "" {
			return ""
		}
		if first := strings.Fields(a)[0]; isNumberToken(first) {
			return ""
		}
		return a
	}
	if b := captureBackward(toks, i, false); b != "" {
		return b
	}
	return captureForward(toks, i, false)
}

// buildingName forms "<up to two names> <trigger>" for the first trigger.
func buildingName(toks []string) string {
	for i, t := range toks {
		if !isBuildingTrigger(t) {
			continue
		}
		var name []string
		for j := i - 1; j >= 0 && j >= i-maxBuildingTokens; j-- {
			w := toks[j]
			if !isAlphaToken(w) || isBoundary(w) {
				break
			}
			name = append([]string{w}, name...)
		}
		name = append(name, t)
		return stripLeadingNumbers(strings.Join(name, " "))
	}
	return ""
}

// stripLeadingNumbers removes "no 12/3" and bare numeric prefixes.
func stripLeadingNumbers(s string) string {
	toks := tokenize(s)
	for len(toks) > 0 {
		switch {
		case toks[0] == "no" && len(toks) > 1 && isNumberToken(toks[1]):
			toks = toks[2:]
		case isNumberToken(toks[0]):
			toks = toks[1:]
		default:
			return strings.Join(toks, " ")
		}
	}
	return ""
}

// tailProvinceDistrict looks for il/ilce in the last tailWindow tokens:
// slash pairs first, then adjacent pairs, then district hints, then a lone
// province.
func tailProvinceDistrict(gaz *gazetteer.Gazetteer, toks []string) (il, ilce string) {
	tail := toks
	if len(tail) > tailWindow {
		tail = tail[len(tail)-tailWindow:]
	}

	for k := len(tail) - 1; k >= 0; k-- {
		m := slashPairPattern.FindStringSubmatch(tail[k])
		if m == nil {
			continue
		}
		a, b := m[1], m[2]
		aProv, bProv := gaz.IsProvince(a), gaz.IsProvince(b)
		if bProv && !aProv {
			return b, a
		}
		if aProv && !bProv {
			return a, b
		}
	}

	for k := len(tail) - 1; k > 0; k-- {
		a, b := tail[k-1], tail[k]
		if !isAlphaToken(a) || !isAlphaToken(b) || isBoundary(a) {
			continue
		}
		if gaz.IsProvince(b) && !gaz.IsProvince(a) {
			return b, a
		}
	}

	for k := len(tail) - 1; k >= 0; k-- {
		for _, piece := range strings.Split(tail[k], "/") {
			if !gaz.IsDistrict(piece) {
				continue
			}
			if p, ok := gaz.ProvinceOfDistrict(piece); ok {
				return p, piece
			}
			return lastProvince(gaz, tail), piece
		}
	}

	return lastProvince(gaz, tail), ""
}

func lastProvince(gaz *gazetteer.Gazetteer, tail []string) string {
	for k := len(tail) - 1; k >= 0; k-- {
		for _, piece := range strings.Split(tail[k], "/") {
			if gaz.IsProvince(piece) {
				return piece
			}
		}
	}
	return ""
}
