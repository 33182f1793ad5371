package parser

import (
	"context"
	"strings"

	"github.com/address-matcher/app/config"
	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/normalizer"
	"go.uber.org/zap"
)

// ProvinceResolver finds a province/district for tokens the static tail
// scan could not place (e.g. misspellings). Backed by the search index.
type ProvinceResolver interface {
	ResolveProvince(ctx context.Context, tokens []string) (il, ilce string, err error)
}

// FallbackParser is a statistical parser consulted for fields the rules
// left empty.
type FallbackParser interface {
	ParseFields(raw string) map[string]string
}

type Option func(*AddressParser)

func WithProvinceResolver(r ProvinceResolver) Option {
	return func(ap *AddressParser) { ap.resolver = r }
}

func WithFallback(f FallbackParser) Option {
	return func(ap *AddressParser) { ap.fallback = f }
}

// AddressParser runs normalize -> extract -> post-process for one address.
type AddressParser struct {
	cfg        *config.PipelineCfg
	normalizer *normalizer.TextNormalizer
	extractor  *FieldExtractor
	post       *PostProcessor
	resolver   ProvinceResolver
	fallback   FallbackParser
	versionTag string
	logger     *zap.Logger
}

// NewAddressParser wires the pipeline for cfg. nil cfg and gaz mean the
// embedded defaults.
func NewAddressParser(cfg *config.PipelineCfg, gaz *gazetteer.Gazetteer, logger *zap.Logger, opts ...Option) *AddressParser {
	if cfg == nil {
		cfg = config.Default()
	}
	if gaz == nil {
		gaz = gazetteer.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ap := &AddressParser{
		cfg:        cfg,
		normalizer: normalizer.NewTextNormalizer(cfg, logger),
		extractor:  NewFieldExtractor(gaz, cfg.Parts, logger),
		post:       NewPostProcessor(gaz, logger),
		versionTag: cfg.VersionTag(),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(ap)
	}
	return ap
}

// VersionTag identifies the pipeline configuration for caching.
func (ap *AddressParser) VersionTag() string {
	return ap.versionTag
}

func (ap *AddressParser) Normalizer() *normalizer.TextNormalizer {
	return ap.normalizer
}

// Diagnostics lists every configured rule that was skipped.
func (ap *AddressParser) Diagnostics() []normalizer.Diagnostic {
	return append(ap.normalizer.Diagnostics(), ap.extractor.Diagnostics()...)
}

// Normalize returns the normalized text only.
func (ap *AddressParser) Normalize(raw string) string {
	return ap.normalizer.Normalize(raw)
}

// Parse runs the full pipeline. It never fails: an unusable input yields an
// empty result with status "empty".
func (ap *AddressParser) Parse(ctx context.Context, raw string) *models.AddressResult {
	norm := ap.normalizer.Normalize(raw)
	parts, confidence := ap.post.Process(norm, ap.extractor.Extract(norm))

	strategy := models.StrategyRules
	var extraFlags []string

	if ap.resolver != nil && !parts.Has(models.FieldIl) && norm != "" {
		il, ilce, err := ap.resolver.ResolveProvince(ctx, tokenize(norm))
		if err != nil {
			ap.logger.Debug("Province resolver failed", zap.String("normalized", norm), zap.Error(err))
		} else if il != "" {
			parts.Set(models.FieldIl, il)
			if !parts.Has(models.FieldIlce) {
				parts.Set(models.FieldIlce, ilce)
			}
			strategy = models.StrategySearch
			extraFlags = append(extraFlags, models.FlagProvinceResolved)
		}
	}

	if ap.fallback != nil && ap.needsFallback(parts) {
		if ap.applyFallback(raw, parts) {
			strategy = models.StrategyLibpostal
			extraFlags = append(extraFlags, models.FlagLibpostal)
		}
	}
	confidence = ExtractionConfidence(parts)

	res := &models.AddressResult{
		Raw:           raw,
		Normalized:    norm,
		Parts:         parts,
		Confidence:    confidence,
		Quality:       AssessQuality(norm, confidence),
		VersionTag:    ap.versionTag,
		MatchStrategy: strategy,
	}
	res.Quality.Flags = append(res.Quality.Flags, extraFlags...)
	for _, d := range ap.Diagnostics() {
		res.Diagnostics = append(res.Diagnostics, d.String())
	}

	switch {
	case len(parts) == 0:
		res.Status = models.StatusEmpty
	case confidence >= lowConfidenceCutoff:
		res.Status = models.StatusParsed
	default:
		res.Status = models.StatusPartial
	}

	ap.logger.Debug("Parsed address",
		zap.String("normalized", norm),
		zap.Float64("confidence", confidence),
		zap.String("status", res.Status))
	return res
}

func (ap *AddressParser) needsFallback(parts models.AddressParts) bool {
	return !parts.Has(models.FieldNo) || !parts.Has(models.FieldIl) || !parts.Has(models.FieldIlce)
}

// applyFallback fills missing il/ilce/no from the statistical parser. Values
// are normalized first and numbers must pass the usual shape check.
func (ap *AddressParser) applyFallback(raw string, parts models.AddressParts) bool {
	fields := ap.fallback.ParseFields(raw)
	filled := false
	for _, f := range []string{models.FieldIl, models.FieldIlce, models.FieldNo} {
		if parts.Has(f) {
			continue
		}
		v := strings.TrimSpace(ap.normalizer.Normalize(fields[f]))
		if v == "" {
			continue
		}
		if f == models.FieldNo && !numericFieldPattern.MatchString(v) {
			continue
		}
		parts.Set(f, v)
		filled = true
	}
	return filled
}
