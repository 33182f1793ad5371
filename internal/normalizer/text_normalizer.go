package normalizer

import (
	"regexp"
	"strings"

	"github.com/address-matcher/app/config"
	"go.uber.org/zap"
)

// TextNormalizer runs the configured rewrite pipeline:
//
//	mojibake -> lowercase -> fold -> regex rules -> literal replace ->
//	abbreviations -> stopwords -> punctuation -> whitespace
//
// Order matters: abbreviations are expanded while punctuation is still
// present, and after folding, so the abbreviation table must list folded
// spellings when folding is enabled.
type TextNormalizer struct {
	fixMojibake      bool
	lowercase        bool
	foldMode         string
	stripPunctuation bool
	collapseSpaces   bool

	regexRules   []Rule
	literalRules []Rule
	abbrevRules  []Rule
	stopwords    map[string]struct{}

	punctuationPattern *regexp.Regexp
	spacePattern       *regexp.Regexp

	diagnostics []Diagnostic
	logger      *zap.Logger
}

// NewTextNormalizer compiles cfg. A nil cfg means the embedded defaults.
// Rules that fail to compile are skipped and reported by Diagnostics.
func NewTextNormalizer(cfg *config.PipelineCfg, logger *zap.Logger) *TextNormalizer {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	tn := &TextNormalizer{
		fixMojibake:      cfg.FixMojibake,
		lowercase:        cfg.Lowercase,
		foldMode:         cfg.FoldMode(),
		stripPunctuation: cfg.StripPunctuation,
		collapseSpaces:   cfg.StripExtraSpaces,
		stopwords:        make(map[string]struct{}, len(cfg.Stopwords)),
		logger:           logger,
	}

	tn.initializePatterns()
	tn.initializeRules(cfg)

	for _, d := range tn.diagnostics {
		logger.Warn("Normalization rule skipped",
			zap.String("kind", string(d.Kind)),
			zap.String("source", d.Source),
			zap.String("reason", d.Reason))
	}
	return tn
}

func (tn *TextNormalizer) initializePatterns() {
	tn.punctuationPattern = regexp.MustCompile(`[^\p{L}\p{M}\p{N}_\s]`)
	tn.spacePattern = regexp.MustCompile(`\s+`)
}

func (tn *TextNormalizer) initializeRules(cfg *config.PipelineCfg) {
	for _, rr := range cfg.Regex {
		rule, err := NewRegexRule(rr.Pattern, rr.Replace())
		if err != nil {
			tn.diagnostics = append(tn.diagnostics, Diagnostic{Kind: RuleRegex, Source: rr.Pattern, Reason: err.Error()})
			continue
		}
		tn.regexRules = append(tn.regexRules, rule)
	}

	for _, p := range cfg.Replace {
		if p.Key == "" {
			tn.diagnostics = append(tn.diagnostics, Diagnostic{Kind: RuleLiteral, Source: p.Key, Reason: "empty search string"})
			continue
		}
		tn.literalRules = append(tn.literalRules, NewLiteralRule(p.Key, p.Value))
	}

	for _, p := range cfg.Abbreviations {
		if strings.TrimSpace(p.Key) == "" {
			tn.diagnostics = append(tn.diagnostics, Diagnostic{Kind: RuleAbbreviation, Source: p.Key, Reason: "empty abbreviation"})
			continue
		}
		tn.abbrevRules = append(tn.abbrevRules, NewAbbreviationRule(p.Key, p.Value))
	}

	for _, w := range cfg.Stopwords {
		if w = strings.TrimSpace(w); w != "" {
			tn.stopwords[w] = struct{}{}
		}
	}
}

// Normalize returns the normalized form of raw. It never fails; an empty
// input yields an empty string.
func (tn *TextNormalizer) Normalize(raw string) string {
	s := raw
	if s == "" {
		return ""
	}

	// 1. Mojibake
	if tn.fixMojibake {
		s = FixMojibake(s)
	}

	// 2. Lowercase
	if tn.lowercase {
		s = TurkishLower(s)
	}

	// 3. Fold
	s = tn.fold(s)

	// 4. Regex rules
	for _, r := range tn.regexRules {
		s = r.Apply(s)
	}

	// 5. Literal replace
	for _, r := range tn.literalRules {
		s = r.Apply(s)
	}

	// 6. Abbreviations
	for _, r := range tn.abbrevRules {
		s = r.Apply(s)
	}

	// 7. Stopwords
	if len(tn.stopwords) > 0 {
		s = tn.removeStopwords(s)
	}

	// 8. Punctuation
	if tn.stripPunctuation {
		s = tn.punctuationPattern.ReplaceAllString(s, " ")
	}

	// 9. Whitespace
	if tn.collapseSpaces {
		s = strings.TrimSpace(tn.spacePattern.ReplaceAllString(s, " "))
	}
	return s
}

// Fold applies the configured diacritic fold only.
func (tn *TextNormalizer) Fold(s string) string {
	return tn.fold(s)
}

func (tn *TextNormalizer) fold(s string) string {
	switch tn.foldMode {
	case config.FoldTurkish:
		return FoldTurkish(s)
	case config.FoldASCII:
		return FoldASCII(s)
	}
	return s
}

func (tn *TextNormalizer) removeStopwords(s string) string {
	toks := strings.Fields(s)
	kept := toks[:0]
	for _, t := range toks {
		if _, stop := tn.stopwords[t]; !stop {
			kept = append(kept, t)
		}
	}
	if len(kept) == len(toks) {
		return s
	}
	return strings.Join(kept, " ")
}

// Diagnostics lists the rules skipped at construction.
func (tn *TextNormalizer) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(tn.diagnostics))
	copy(out, tn.diagnostics)
	return out
}

// IsStopword reports whether tok is a configured stopword.
func (tn *TextNormalizer) IsStopword(tok string) bool {
	_, ok := tn.stopwords[tok]
	return ok
}
