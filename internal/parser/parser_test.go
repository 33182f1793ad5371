package parser

import (
	"context"
	"errors"
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/address-matcher/internal/normalizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fullAddress = "Atatürk Mah. Cumhuriyet Cad. Lale Sok. No:12 D:3 Kat 2 Bornova/İzmir"

func newTestPipeline() (*normalizer.TextNormalizer, *FieldExtractor, *PostProcessor) {
	gaz := gazetteer.Default()
	logger := zap.NewNop()
	return normalizer.NewTextNormalizer(nil, logger), NewFieldExtractor(gaz, nil, logger), NewPostProcessor(gaz, logger)
}

func TestExtract_FullAddress(t *testing.T) {
	tn, fe, _ := newTestPipeline()
	parts := fe.Extract(tn.Normalize(fullAddress))

	assert.Equal(t, models.AddressParts{
		"mahalle": "atatürk",
		"cadde":   "cumhuriyet",
		"sokak":   "lale",
		"no":      "12",
		"daire":   "3",
		"kat":     "2",
		"il":      "izmir",
		"ilce":    "bornova",
	}, parts)

	for _, k := range []string{models.FieldMahalle, models.FieldCadde, models.FieldSokak} {
		assert.False(t, isNumberToken(parts[k]), k)
	}
}

func TestExtract_Cases(t *testing.T) {
	_, fe, _ := newTestPipeline()

	testCases := []struct {
		name       string
		normalized string
		expected   models.AddressParts
	}{
		{
			name:       "slash number splits",
			normalized: "lale sokak no 12/3",
			expected:   models.AddressParts{"sokak": "lale", "no": "12", "daire": "3"},
		},
		{
			name:       "numbered street",
			normalized: "2001 sokak no 5 konak izmir",
			expected:   models.AddressParts{"sokak": "2001", "no": "5", "il": "izmir", "ilce": "konak"},
		},
		{
			name:       "number before sokak beats forward name",
			normalized: "kızılay mahalle 1453 sokak güneş no 7",
			expected:   models.AddressParts{"mahalle": "kızılay", "sokak": "1453", "no": "7"},
		},
		{
			name:       "forward capture",
			normalized: "mahalle yeşilyurt",
			expected:   models.AddressParts{"mahalle": "yeşilyurt"},
		},
		{
			name:       "number not a neighborhood",
			normalized: "mahalle 12",
			expected:   models.AddressParts{},
		},
		{
			name:       "building name",
			normalized: "güneş apartman no 5 daire 2",
			expected:   models.AddressParts{"bina_adi": "güneş apartman", "no": "5", "daire": "2"},
		},
		{
			name:       "locality and adjacent province",
			normalized: "karaağaç mevkii no 4 fethiye muğla",
			expected:   models.AddressParts{"mevkii": "karaağaç", "no": "4", "il": "muğla", "ilce": "fethiye"},
		},
		{
			name:       "district hint alone",
			normalized: "lale sokak no 3 kadıköy",
			expected:   models.AddressParts{"sokak": "lale", "no": "3", "il": "istanbul", "ilce": "kadıköy"},
		},
		{
			name:       "boulevard",
			normalized: "atatürk bulvar no 100",
			expected:   models.AddressParts{"bulvar": "atatürk", "no": "100"},
		},
		{
			name:       "boulevard name before anchor wins",
			normalized: "atatürk bulvar gazi no 3",
			expected:   models.AddressParts{"bulvar": "atatürk", "no": "3"},
		},
		{
			name:       "boulevard forward capture",
			normalized: "bulvar gazi osmanpaşa no 3",
			expected:   models.AddressParts{"bulvar": "gazi osmanpaşa", "no": "3"},
		},
		{
			name:       "boulevard rejects a number",
			normalized: "bulvar 12",
			expected:   models.AddressParts{},
		},
		{
			name:       "empty",
			normalized: "",
			expected:   models.AddressParts{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, fe.Extract(tc.normalized))
		})
	}
}

func TestExtract_PartPatterns(t *testing.T) {
	fe := NewFieldExtractor(gazetteer.Default(), map[string]string{
		"mevkii": `(\p{L}+) köyü`,
		"bulvar": `([`,
	}, nil)

	diags := fe.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, normalizer.RulePart, diags[0].Kind)

	parts := fe.Extract("yazır köyü no 3")
	assert.Equal(t, "yazır", parts[models.FieldMevkii])
}

func TestPostProcess_Repairs(t *testing.T) {
	_, _, pp := newTestPipeline()

	t.Run("slash number", func(t *testing.T) {
		out, _ := pp.Process("", models.AddressParts{"no": "12/3"})
		assert.Equal(t, models.AddressParts{"no": "12", "daire": "3"}, out)
	})

	t.Run("non-numeric apartment and floor dropped", func(t *testing.T) {
		out, conf := pp.Process("", models.AddressParts{"no": "5", "daire": "oria", "kat": "iki"})
		assert.Equal(t, models.AddressParts{"no": "5"}, out)
		assert.Equal(t, 0.22, conf)
	})

	t.Run("malformed number dropped", func(t *testing.T) {
		out, _ := pp.Process("", models.AddressParts{"no": "12a/3"})
		assert.False(t, out.Has(models.FieldNo))
	})

	t.Run("street starting with no re-derived", func(t *testing.T) {
		out, _ := pp.Process("lale 15 sokak", models.AddressParts{"sokak": "no 15"})
		assert.Equal(t, "15", out[models.FieldSokak])

		out, _ = pp.Process("lale cadde", models.AddressParts{"sokak": "no 3"})
		assert.False(t, out.Has(models.FieldSokak))
	})

	t.Run("no fragment cut from segments", func(t *testing.T) {
		out, _ := pp.Process("", models.AddressParts{"mahalle": "atatürk no 5", "cadde": "  inönü  "})
		assert.Equal(t, "atatürk", out[models.FieldMahalle])
		assert.Equal(t, "inönü", out[models.FieldCadde])
	})

	t.Run("building name overwrite rule", func(t *testing.T) {
		out, _ := pp.Process("güneş apartman", models.AddressParts{"bina_adi": "12 x"})
		assert.Equal(t, "güneş apartman", out[models.FieldBinaAdi])

		out, _ = pp.Process("güneş apartman", models.AddressParts{"bina_adi": "özel konut"})
		assert.Equal(t, "özel konut", out[models.FieldBinaAdi])
	})

	t.Run("input not modified", func(t *testing.T) {
		in := models.AddressParts{"no": "12/3"}
		_, _ = pp.Process("", in)
		assert.Equal(t, models.AddressParts{"no": "12/3"}, in)
	})
}

func TestPostProcess_KeepsBoulevard(t *testing.T) {
	_, fe, pp := newTestPipeline()
	norm := "atatürk bulvar gazi no 3"
	out, _ := pp.Process(norm, fe.Extract(norm))
	assert.Equal(t, "atatürk", out[models.FieldBulvar])
}

func TestPostProcess_Idempotent(t *testing.T) {
	tn, fe, pp := newTestPipeline()
	for _, raw := range []string{
		fullAddress,
		"Kızılay Mah. 1453 Sk. No:7/2 Çankaya Ankara",
		"Güneş Apt. No 5 D.2 Karaağaç Mevkii Fethiye Muğla",
		"Lale Sokak No:12a Kat:zemin",
	} {
		norm := tn.Normalize(raw)
		once, c1 := pp.Process(norm, fe.Extract(norm))
		twice, c2 := pp.Process(norm, once)
		assert.Equal(t, once, twice, raw)
		assert.Equal(t, c1, c2, raw)
	}
}

func TestExtractionConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ExtractionConfidence(models.AddressParts{}))
	assert.Equal(t, 1.0, ExtractionConfidence(models.AddressParts{
		"mahalle": "a", "cadde": "b", "sokak": "c", "no": "1", "daire": "2", "kat": "3", "il": "izmir",
	}))
	assert.Equal(t, 0.12, ExtractionConfidence(models.AddressParts{"mevkii": "x", "bina_adi": "y", "il": "z"}))

	// non-decreasing in the number of core fields
	extras := models.AddressParts{"daire": "2", "il": "izmir"}
	prev := ExtractionConfidence(extras)
	parts := extras.Clone()
	for _, k := range []string{"mahalle", "cadde", "sokak", "no"} {
		parts[k] = "x"
		c := ExtractionConfidence(parts)
		assert.GreaterOrEqual(t, c, prev)
		assert.LessOrEqual(t, c, 1.0)
		assert.GreaterOrEqual(t, c, 0.0)
		prev = c
	}
}

func TestAssessQuality(t *testing.T) {
	q := AssessQuality("lale", 0.9)
	assert.True(t, q.IsSuspicious)
	assert.Equal(t, []string{models.FlagTooShort, models.FlagTooFewWords, models.FlagNoDigits}, q.Flags)

	q = AssessQuality("atatürk mahalle no 12", 0.44)
	assert.False(t, q.IsSuspicious)
	assert.Equal(t, 21, q.CharLen)
	assert.Equal(t, 4, q.WordLen)
	assert.Equal(t, 2, q.DigitCount)
	assert.Equal(t, []string{models.FlagLowConfidence}, q.Flags)
}

type stubResolver struct {
	il, ilce string
	err      error
}

func (s stubResolver) ResolveProvince(context.Context, []string) (string, string, error) {
	return s.il, s.ilce, s.err
}

type stubFallback map[string]string

func (s stubFallback) ParseFields(string) map[string]string { return s }

func TestAddressParser_Parse(t *testing.T) {
	ctx := context.Background()

	t.Run("rules only", func(t *testing.T) {
		ap := NewAddressParser(nil, nil, zap.NewNop())
		res := ap.Parse(ctx, fullAddress)
		assert.Equal(t, models.StatusParsed, res.Status)
		assert.Equal(t, models.StrategyRules, res.MatchStrategy)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, ap.VersionTag(), res.VersionTag)
		assert.Equal(t, "il:izmir | ilce:bornova | mahalle:atatürk | cadde:cumhuriyet | sokak:lale | no:12 | kat:2 | daire:3", res.Parts.String())
	})

	t.Run("empty input", func(t *testing.T) {
		ap := NewAddressParser(nil, nil, nil)
		res := ap.Parse(ctx, "")
		assert.Equal(t, models.StatusEmpty, res.Status)
		assert.Empty(t, res.Parts)
		assert.Equal(t, 0.0, res.Confidence)
		assert.True(t, res.HasFlag(models.FlagLowConfidence))
	})

	t.Run("province resolver", func(t *testing.T) {
		ap := NewAddressParser(nil, nil, nil, WithProvinceResolver(stubResolver{il: "izmir"}))
		res := ap.Parse(ctx, "Lale Sok. No:5 Izmr")
		assert.Equal(t, "izmir", res.Parts[models.FieldIl])
		assert.Equal(t, models.StrategySearch, res.MatchStrategy)
		assert.True(t, res.HasFlag(models.FlagProvinceResolved))
	})

	t.Run("resolver error ignored", func(t *testing.T) {
		ap := NewAddressParser(nil, nil, nil, WithProvinceResolver(stubResolver{err: errors.New("down")}))
		res := ap.Parse(ctx, "Lale Sok. No:5 Izmr")
		assert.False(t, res.Parts.Has(models.FieldIl))
		assert.Equal(t, models.StrategyRules, res.MatchStrategy)
	})

	t.Run("fallback fills missing fields", func(t *testing.T) {
		ap := NewAddressParser(nil, nil, nil, WithFallback(stubFallback{"il": "ANKARA", "no": "5b", "ilce": ""}))
		res := ap.Parse(ctx, "Lale Sokak")
		assert.Equal(t, "ankara", res.Parts[models.FieldIl])
		assert.Equal(t, "5b", res.Parts[models.FieldNo])
		assert.Equal(t, models.StrategyLibpostal, res.MatchStrategy)
		assert.Equal(t, 0.5, res.Confidence)
		assert.Equal(t, models.StatusParsed, res.Status)
	})
}
