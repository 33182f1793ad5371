package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/normalizer"
	"go.uber.org/zap"
)

type partPattern struct {
	field string
	re    *regexp.Regexp
}

// FieldExtractor scans normalized text for address fields.
type FieldExtractor struct {
	gazetteer    *gazetteer.Gazetteer
	partPatterns []partPattern
	diagnostics  []normalizer.Diagnostic
	logger       *zap.Logger
}

// NewFieldExtractor builds an extractor. parts holds optional field ->
// regex overrides; a pattern with a capture group yields group 1, otherwise
// the whole match. Patterns only fill fields the heuristics left empty.
func NewFieldExtractor(gaz *gazetteer.Gazetteer, parts map[string]string, logger *zap.Logger) *FieldExtractor {
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	fe := &FieldExtractor{gazetteer: gaz, logger: logger}

	fields := make([]string, 0, len(parts))
	for f := range parts {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		re, err := regexp.Compile(parts[f])
		if err != nil {
			fe.diagnostics = append(fe.diagnostics, normalizer.Diagnostic{
				Kind: normalizer.RulePart, Source: f + ": " + parts[f], Reason: err.Error(),
			})
			logger.Warn("Part pattern skipped", zap.String("field", f), zap.Error(err))
			continue
		}
		fe.partPatterns = append(fe.partPatterns, partPattern{field: f, re: re})
	}
	return fe
}

// Diagnostics lists part patterns that failed to compile.
func (fe *FieldExtractor) Diagnostics() []normalizer.Diagnostic {
	return append([]normalizer.Diagnostic(nil), fe.diagnostics...)
}

// Extract returns the raw fields found in normalized. Numeric fields are
// not validated yet; that is the post-processor's job.
func (fe *FieldExtractor) Extract(normalized string) models.AddressParts {
	parts := models.AddressParts{}
	toks := tokenize(normalized)

	fe.extractNumeric(toks, parts)
	fe.extractNamed(toks, parts)

	if i := indexOf(toks, "mevkii"); i >= 0 {
		parts.Set(models.FieldMevkii, captureBackward(toks, i, false))
	}

	parts.Set(models.FieldBinaAdi, buildingName(toks))

	il, ilce := tailProvinceDistrict(fe.gazetteer, toks)
	parts.Set(models.FieldIl, il)
	parts.Set(models.FieldIlce, ilce)

	for _, pp := range fe.partPatterns {
		if parts.Has(pp.field) {
			continue
		}
		m := pp.re.FindStringSubmatch(normalized)
		if m == nil {
			continue
		}
		val := m[0]
		if len(m) > 1 {
			val = m[1]
		}
		parts.Set(pp.field, val)
	}
	return parts
}

// extractNumeric handles "no N[/M]", "daire N" and "kat N". The first
// occurrence of each anchor wins.
func (fe *FieldExtractor) extractNumeric(toks []string, parts models.AddressParts) {
	for i := 0; i+1 < len(toks); i++ {
		anchor, val := toks[i], toks[i+1]
		switch anchor {
		case models.FieldNo:
			if parts.Has(models.FieldNo) || !noValuePattern.MatchString(val) {
				continue
			}
			n, d, split := splitNoDaire(val)
			if split {
				parts.Set(models.FieldNo, n)
				if !parts.Has(models.FieldDaire) {
					parts.Set(models.FieldDaire, d)
				}
			} else {
				parts.Set(models.FieldNo, val)
			}
			i++
		case models.FieldDaire, models.FieldKat:
			if parts.Has(anchor) || !isNumberToken(val) {
				continue
			}
			parts.Set(anchor, val)
			i++
		}
	}
}

// extractNamed fills mahalle, cadde, sokak and bulvar with segmentName.
// Only bulvar keeps this value as is; the post-processor re-derives the
// other three.
func (fe *FieldExtractor) extractNamed(toks []string, parts models.AddressParts) {
	for _, anchor := range namedAnchors {
		i := indexOf(toks, anchor)
		if i < 0 {
			continue
		}
		parts.Set(anchor, segmentName(toks, i, anchor))
	}
}

// splitNoDaire splits "12/3" into ("12", "3") when both sides are digits.
func splitNoDaire(v string) (no, daire string, ok bool) {
	n, d, found := strings.Cut(v, "/")
	if !found || !digitsPattern.MatchString(n) || !digitsPattern.MatchString(d) {
		return "", "", false
	}
	return n, d, true
}
