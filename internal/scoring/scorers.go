package scoring

import (
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/xrash/smetrics"
)

// Scorer names
const (
	ScorerRatio          = "ratio"
	ScorerPartialRatio   = "partial_ratio"
	ScorerTokenSortRatio = "token_sort_ratio"
	ScorerTokenSetRatio  = "token_set_ratio"
	ScorerJaroWinkler    = "jaro_winkler"
)

// Scorer rates the similarity of two strings on a 0-100 scale.
type Scorer func(a, b string) float64

var scorers = map[string]Scorer{
	ScorerRatio:          Ratio,
	ScorerPartialRatio:   PartialRatio,
	ScorerTokenSortRatio: TokenSortRatio,
	ScorerTokenSetRatio:  TokenSetRatio,
	ScorerJaroWinkler:    JaroWinkler,
}

// ScorerByName looks up a scorer. Unknown names return TokenSetRatio and
// false.
func ScorerByName(name string) (Scorer, bool) {
	if s, ok := scorers[strings.ToLower(strings.TrimSpace(name))]; ok {
		return s, true
	}
	return TokenSetRatio, false
}

// ScorerNames lists the registered scorers, sorted.
func ScorerNames() []string {
	names := make([]string, 0, len(scorers))
	for n := range scorers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Ratio is 100 * (1 - levenshtein / longer length), over runes.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	la, lb := len([]rune(a)), len([]rune(b))
	longest := la
	if lb > longest {
		longest = lb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// PartialRatio is the best Ratio of the shorter string against every
// equal-length window of the longer one.
func PartialRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	s := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		r := Ratio(s, string(long[i:i+len(short)]))
		if r > best {
			best = r
			if best == 100 {
				break
			}
		}
	}
	return best
}

// TokenSortRatio compares the alphabetically sorted tokens.
func TokenSortRatio(a, b string) float64 {
	return Ratio(sortedTokens(a), sortedTokens(b))
}

// TokenSetRatio compares the shared tokens against each side's remainder,
// so word order and duplicated words do not count. A non-empty intersection
// with nothing left on one side scores 100.
func TokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	var inter, onlyA, onlyB []string
	for t := range ta {
		if _, ok := tb[t]; ok {
			inter = append(inter, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}
	for t := range tb {
		if _, ok := ta[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}
	sort.Strings(inter)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	if len(inter) > 0 && (len(onlyA) == 0 || len(onlyB) == 0) {
		return 100
	}

	base := strings.Join(inter, " ")
	combinedA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	combinedB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))

	best := Ratio(combinedA, combinedB)
	if base != "" {
		best = max(best, Ratio(base, combinedA), Ratio(base, combinedB))
	}
	return best
}

// JaroWinkler scales smetrics' Jaro-Winkler similarity to 0-100.
func JaroWinkler(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	return 100 * smetrics.JaroWinkler(a, b, 0.7, 4)
}

func sortedTokens(s string) string {
	toks := strings.Fields(s)
	sort.Strings(toks)
	return strings.Join(toks, " ")
}

func tokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		out[t] = struct{}{}
	}
	return out
}
