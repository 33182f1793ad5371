package normalizer

import (
	"testing"

	"github.com/address-matcher/app/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTextNormalizer_DefaultPipeline(t *testing.T) {
	tn := NewTextNormalizer(nil, zap.NewNop())
	require.Empty(t, tn.Diagnostics())

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"dotted capital I", "İSTANBUL   Bağcılar", "istanbul bağcılar"},
		{"empty", "", ""},
		{"only spaces", "   \t ", ""},
		{
			name:     "full address",
			input:    "Atatürk Mah. Cumhuriyet Cad. Lale Sok. No:12 D:3 Kat 2 Bornova/İzmir",
			expected: "atatürk mahalle cumhuriyet cadde lale sokak no 12 daire 3 kat 2 bornova/izmir",
		},
		{"stopwords dropped", "Bornova İzmir Türkiye", "bornova izmir"},
		{"abbreviation not inside word", "Mahçe Mah. Ask Sk.", "mahçe mahalle ask sokak"},
		{"numbered street", "1453. Sok. No:5", "1453 sokak no 5"},
		{"kapı no", "Kapı No: 7", "no 7"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tn.Normalize(tc.input)
			assert.Equal(t, tc.expected, got)
			t.Logf("Input: %q -> %q", tc.input, got)
		})
	}
}

func TestTextNormalizer_NoNaiveDottedI(t *testing.T) {
	tn := NewTextNormalizer(nil, nil)
	got := tn.Normalize("İSTANBUL")
	assert.Equal(t, "istanbul", got)
	assert.NotContains(t, got, "ı")
	assert.NotContains(t, got, "\u0307")
}

func TestTextNormalizer_Idempotent(t *testing.T) {
	tn := NewTextNormalizer(nil, nil)
	for _, in := range []string{
		"Atatürk Mah. Cumhuriyet Cad. Lale Sok. No:12 D:3 Kat 2 Bornova/İzmir",
		"İSTANBUL Bağcılar",
	} {
		once := tn.Normalize(in)
		assert.Equal(t, once, tn.Normalize(once), in)
	}
}

func TestTextNormalizer_BadRegexSkipped(t *testing.T) {
	cfg := config.Default()
	cfg.Regex = []config.RegexRule{
		{Pattern: "(unclosed", Repl: "x"},
		{Pattern: `(\d+)-(\d+)`, Repl: `\1/\2`},
	}

	tn := NewTextNormalizer(cfg, zap.NewNop())

	diags := tn.Diagnostics()
	require.Len(t, diags, 1)
	assert.Equal(t, RuleRegex, diags[0].Kind)
	assert.Equal(t, "(unclosed", diags[0].Source)

	assert.Equal(t, "no 12/3", tn.Normalize("No 12-3"))
}

func TestTextNormalizer_AbbreviationSpellings(t *testing.T) {
	testCases := []struct {
		name     string
		fold     bool
		input    string
		expected string
	}{
		{"bul with dot", false, "Atatürk Bul. No 5", "atatürk bulvar no 5"},
		{"bulv", false, "Gazi Bulv 12", "gazi bulvar 12"},
		{"bul not inside word", false, "Bulut Sok.", "bulut sokak"},
		{"ilçesi", false, "Bornova İlçesi", "bornova ilçe"},
		{"ilçesi folded", true, "Bornova İlçesi", "bornova ilce"},
		{"bulvarı folded", true, "Atatürk Bulvarı", "ataturk bulvar"},
		{"apartmanı folded", true, "Gül Apartmanı", "gul apartman"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.FoldDiacritics = tc.fold
			tn := NewTextNormalizer(cfg, zap.NewNop())
			assert.Equal(t, tc.expected, tn.Normalize(tc.input))
		})
	}
}

func TestTextNormalizer_Options(t *testing.T) {
	t.Run("turkish fold before abbreviations", func(t *testing.T) {
		cfg := config.Default()
		cfg.FoldDiacritics = true
		tn := NewTextNormalizer(cfg, nil)
		assert.Equal(t, "cigdem sokak", tn.Normalize("Çiğdem Sokağı"))
	})

	t.Run("ascii fold", func(t *testing.T) {
		cfg := config.Default()
		cfg.FoldChars = "ascii"
		tn := NewTextNormalizer(cfg, nil)
		assert.Equal(t, "sisli", tn.Normalize("Şişli"))
	})

	t.Run("strip punctuation", func(t *testing.T) {
		cfg := config.Default()
		cfg.StripPunctuation = true
		tn := NewTextNormalizer(cfg, nil)
		assert.Equal(t, "bornova izmir", tn.Normalize("Bornova/İzmir"))
	})

	t.Run("literal replace in order", func(t *testing.T) {
		cfg := config.Default()
		cfg.Replace = config.OrderedMap{{Key: "ist", Value: "istanbul"}, {Key: "istanbulanbul", Value: "x"}}
		tn := NewTextNormalizer(cfg, nil)
		assert.Equal(t, "x", tn.Normalize("istanbul"))
	})

	t.Run("no whitespace collapse", func(t *testing.T) {
		cfg := config.Default()
		cfg.StripExtraSpaces = false
		cfg.Regex = nil
		tn := NewTextNormalizer(cfg, nil)
		assert.Equal(t, "a  b", tn.Normalize("A  B"))
	})
}

func TestReplaceWholeWord(t *testing.T) {
	testCases := []struct {
		in, word, repl, expected string
	}{
		{"mah mahçe mah", "mah", "mahalle", "mahalle mahçe mahalle"},
		{"mahmah", "mah", "mahalle", "mahmah"},
		{"sk.", "sk", "sokak", "sokak."},
		{"ısk sk", "sk", "sokak", "ısk sokak"},
		{"", "sk", "sokak", ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ReplaceWholeWord(tc.in, tc.word, tc.repl), tc.in)
	}
}

func TestFixMojibake(t *testing.T) {
	assert.Equal(t, "Göztepe", FixMojibake("GÃ¶ztepe"))
	assert.Equal(t, "Kadıköy", FixMojibake("KadÄ±kÃ¶y"))
	assert.Equal(t, "Kadıköy", FixMojibake("Kadıköy"))
}

func TestFoldTurkish(t *testing.T) {
	assert.Equal(t, "cgisousi", FoldTurkish("çğışöüŞİ"))
}
