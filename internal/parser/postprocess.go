package parser

import (
	"math"
	"regexp"
	"strings"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"go.uber.org/zap"
)

// PostProcessor repairs extracted fields against the normalized text and
// recomputes the extraction confidence. Running it again on its own output
// leaves the result unchanged.
type PostProcessor struct {
	gazetteer *gazetteer.Gazetteer
	logger    *zap.Logger

	numberedStreetPattern *regexp.Regexp
	mevkiiPattern         *regexp.Regexp
	spacesPattern         *regexp.Regexp
}

func NewPostProcessor(gaz *gazetteer.Gazetteer, logger *zap.Logger) *PostProcessor {
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	pp := &PostProcessor{gazetteer: gaz, logger: logger}
	pp.initializePatterns()
	return pp
}

func (pp *PostProcessor) initializePatterns() {
	pp.numberedStreetPattern = regexp.MustCompile(`(?:^|\s)(\d+)\s+sokak(?:\s|$)`)
	pp.mevkiiPattern = regexp.MustCompile(`(?:^|\s)([\p{L}-]+)\s+mevkii(?:\s|$)`)
	pp.spacesPattern = regexp.MustCompile(`\s{2,}`)
}

// Process returns a repaired copy of parts and its confidence in [0,1].
// The input map is not modified.
func (pp *PostProcessor) Process(normalized string, parts models.AddressParts) (models.AddressParts, float64) {
	out := parts.Clone()
	toks := tokenize(normalized)

	pp.fixNoAndDaire(out)
	pp.dropNonNumeric(out, models.FieldDaire, models.FieldKat)
	pp.fixSokak(normalized, out)
	pp.reassignSegments(toks, out)
	pp.fixBuildingName(toks, out)
	pp.fixMevkii(normalized, out)
	pp.fixProvinceDistrict(toks, out)
	pp.cleanSegments(out)
	pp.dropNonNumeric(out, models.FieldNo, models.FieldDaire, models.FieldKat)

	for k, v := range out {
		if strings.TrimSpace(v) == "" {
			delete(out, k)
		}
	}
	return out, ExtractionConfidence(out)
}

// fixNoAndDaire splits a lingering "12/3" number.
func (pp *PostProcessor) fixNoAndDaire(parts models.AddressParts) {
	if n, d, ok := splitNoDaire(parts[models.FieldNo]); ok {
		parts.Set(models.FieldNo, n)
		parts.Set(models.FieldDaire, d)
	}
}

func (pp *PostProcessor) dropNonNumeric(parts models.AddressParts, fields ...string) {
	for _, f := range fields {
		if v, ok := parts[f]; ok && !numericFieldPattern.MatchString(v) {
			pp.logger.Debug("Dropping malformed numeric field", zap.String("field", f), zap.String("value", v))
			delete(parts, f)
		}
	}
}

// fixSokak handles a street value that begins with "no", a sign the forward
// scan ran past the real anchor.
func (pp *PostProcessor) fixSokak(normalized string, parts models.AddressParts) {
	v, ok := parts[models.FieldSokak]
	if !ok {
		return
	}
	if f := strings.Fields(v); len(f) == 0 || f[0] != "no" {
		return
	}
	if m := pp.numberedStreetPattern.FindStringSubmatch(normalized); m != nil {
		parts.Set(models.FieldSokak, m[1])
		return
	}
	delete(parts, models.FieldSokak)
}

// reassignSegments re-derives mahalle/cadde/sokak around the first
// occurrence of each anchor. Values found there replace earlier ones.
func (pp *PostProcessor) reassignSegments(toks []string, parts models.AddressParts) {
	for _, anchor := range []string{models.FieldMahalle, models.FieldCadde, models.FieldSokak} {
		i := indexOf(toks, anchor)
		if i < 0 {
			continue
		}
		if v := segmentName(toks, i, anchor); v != "" {
			parts.Set(anchor, v)
		}
	}
}

// fixBuildingName overwrites bina_adi only when the current value is
// missing, is a bare trigger word, or looks numeric.
func (pp *PostProcessor) fixBuildingName(toks []string, parts models.AddressParts) {
	cand := buildingName(toks)
	if cand == "" {
		return
	}
	cur := parts[models.FieldBinaAdi]
	if cur == "" || isBuildingTrigger(cur) || strings.HasPrefix(cur, "no") || (cur[0] >= '0' && cur[0] <= '9') {
		parts.Set(models.FieldBinaAdi, cand)
	}
}

// fixMevkii keeps a longer existing locality that already ends with the
// word in front of "mevkii".
func (pp *PostProcessor) fixMevkii(normalized string, parts models.AddressParts) {
	m := pp.mevkiiPattern.FindStringSubmatch(normalized)
	if m == nil {
		return
	}
	name := m[1]
	cur := parts[models.FieldMevkii]
	if cur == name || strings.HasSuffix(cur, " "+name) {
		return
	}
	parts.Set(models.FieldMevkii, name)
}

func (pp *PostProcessor) fixProvinceDistrict(toks []string, parts models.AddressParts) {
	il, ilce := tailProvinceDistrict(pp.gazetteer, toks)
	if il == "" && ilce == "" {
		return
	}
	parts.Set(models.FieldIl, il)
	parts.Set(models.FieldIlce, ilce)
}

// cleanSegments cuts anything from a "no" token onward out of the named
// segments and collapses inner spaces.
func (pp *PostProcessor) cleanSegments(parts models.AddressParts) {
	for _, key := range []string{models.FieldMahalle, models.FieldCadde, models.FieldSokak} {
		v, ok := parts[key]
		if !ok {
			continue
		}
		f := strings.Fields(v)
		if i := indexOf(f, "no"); i >= 0 {
			f = f[:i]
		}
		parts.Set(key, pp.spacesPattern.ReplaceAllString(strings.Join(f, " "), " "))
	}
}

// ExtractionConfidence scores parts: 0.22 per core field (mahalle, cadde,
// sokak, no) plus 0.06 each for daire, kat, a building or locality name,
// and il. Capped at 1 and rounded to two decimals.
func ExtractionConfidence(parts models.AddressParts) float64 {
	score := 0.0
	for _, k := range []string{models.FieldMahalle, models.FieldCadde, models.FieldSokak, models.FieldNo} {
		if parts.Has(k) {
			score += 0.22
		}
	}
	if parts.Has(models.FieldDaire) {
		score += 0.06
	}
	if parts.Has(models.FieldKat) {
		score += 0.06
	}
	if parts.Has(models.FieldBinaAdi) || parts.Has(models.FieldMevkii) {
		score += 0.06
	}
	if parts.Has(models.FieldIl) {
		score += 0.06
	}
	return math.Round(math.Min(1.0, score)*100) / 100
}
