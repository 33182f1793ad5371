package normalizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RuleKind tags a configured rewrite rule.
type RuleKind string

const (
	RuleRegex        RuleKind = "regex"
	RuleLiteral      RuleKind = "literal"
	RuleAbbreviation RuleKind = "abbreviation"
	RulePart         RuleKind = "part"
)

// Rule is one configured rewrite step.
type Rule struct {
	Kind   RuleKind
	Source string
	Target string
	re     *regexp.Regexp
}

// Diagnostic records a rule that was skipped.
type Diagnostic struct {
	Kind   RuleKind `json:"kind"`
	Source string   `json:"source"`
	Reason string   `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s rule %q skipped: %s", d.Kind, d.Source, d.Reason)
}

// backrefPattern matches \1 and \g<1> style group references.
var backrefPattern = regexp.MustCompile(`\\g<(\d+)>|\\(\d+)`)

// NewRegexRule compiles pattern. Replacement templates may use Go ($1,
// ${1}) or backslash (\1, \g<1>) group references.
func NewRegexRule(pattern, repl string) (Rule, error) {
	if pattern == "" {
		return Rule{}, fmt.Errorf("empty pattern")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, err
	}
	repl = backrefPattern.ReplaceAllStringFunc(repl, func(m string) string {
		sub := backrefPattern.FindStringSubmatch(m)
		n := sub[1]
		if n == "" {
			n = sub[2]
		}
		return "${" + n + "}"
	})
	return Rule{Kind: RuleRegex, Source: pattern, Target: repl, re: re}, nil
}

func NewLiteralRule(from, to string) Rule {
	return Rule{Kind: RuleLiteral, Source: from, Target: to}
}

func NewAbbreviationRule(abbr, canonical string) Rule {
	return Rule{Kind: RuleAbbreviation, Source: abbr, Target: canonical}
}

// Apply runs the rule over s.
func (r Rule) Apply(s string) string {
	switch r.Kind {
	case RuleRegex:
		if r.re == nil {
			return s
		}
		return r.re.ReplaceAllString(s, r.Target)
	case RuleLiteral:
		if r.Source == "" {
			return s
		}
		return strings.ReplaceAll(s, r.Source, r.Target)
	case RuleAbbreviation:
		return ReplaceWholeWord(s, r.Source, r.Target)
	}
	return s
}

// IsWordRune reports whether r counts as a word character for boundary
// purposes: any letter, digit or underscore, not only ASCII.
func IsWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}

// ReplaceWholeWord substitutes word with repl wherever it is delimited by
// word boundaries, with \b semantics over Unicode word characters. Go's \b
// only knows ASCII, which would let "mah" match inside "mahçe".
func ReplaceWholeWord(s, word, repl string) string {
	if word == "" || s == "" {
		return s
	}
	firstRune, _ := utf8.DecodeRuneInString(word)
	lastRune, _ := utf8.DecodeLastRuneInString(word)
	firstIsWord, lastIsWord := IsWordRune(firstRune), IsWordRune(lastRune)

	var b strings.Builder
	i := 0
	for i <= len(s) {
		j := strings.Index(s[i:], word)
		if j < 0 {
			break
		}
		start := i + j
		end := start + len(word)

		before := false
		if start > 0 {
			r, _ := utf8.DecodeLastRuneInString(s[:start])
			before = IsWordRune(r)
		}
		after := false
		if end < len(s) {
			r, _ := utf8.DecodeRuneInString(s[end:])
			after = IsWordRune(r)
		}

		if before != firstIsWord && lastIsWord != after {
			b.WriteString(s[i:start])
			b.WriteString(repl)
			i = end
			continue
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		b.WriteString(s[i : start+size])
		i = start + size
	}
	if i < len(s) {
		b.WriteString(s[i:])
	}
	return b.String()
}
