package scoring

import (
	"testing"

	"github.com/address-matcher/app/config"
	"github.com/stretchr/testify/assert"
)

func ptr(v float64) *float64 { return &v }

func TestDigitsScore(t *testing.T) {
	testCases := []struct {
		name        string
		left, right string
		expected    float64
	}{
		{"shared door number", "lale sokak no 15 kat 2", "no 15 lale sk", 100},
		{"disjoint", "no 15", "no 16", 0},
		{"left without digits", "lale sokak", "no 15", 0},
		{"both empty", "", "", 0},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DigitsScore(tc.left, tc.right))
		})
	}
}

func TestGeo(t *testing.T) {
	assert.Equal(t, 0.0, HaversineKm(38.4237, 27.1428, 38.4237, 27.1428))
	assert.InDelta(t, 111.195, HaversineKm(0, 0, 1, 0), 0.01)

	assert.Equal(t, 100.0, GeoScoreKm(ptr(0), 1.5))
	assert.Equal(t, 0.0, GeoScoreKm(ptr(1.5), 1.5))
	assert.InDelta(t, 50.0, GeoScoreKm(ptr(0.75), 1.5), 1e-9)
	assert.Equal(t, 0.0, GeoScoreKm(ptr(7), 1.5))
	assert.Equal(t, 100.0, GeoScoreKm(ptr(-1), 1.5))
	assert.Equal(t, 0.0, GeoScoreKm(nil, 1.5))
}

func TestCombineScores(t *testing.T) {
	w := config.Weights{Text: 0.8, Digits: 0.2, Geo: 0.2}

	assert.Equal(t, 80.0, CombineScores(80, nil, nil, w))
	assert.Equal(t, 84.0, CombineScores(80, ptr(100), nil, w))
	assert.Equal(t, 78.33, CombineScores(80, ptr(100), ptr(50), w))
	assert.Equal(t, 91.23, CombineScores(91.234, nil, nil, config.Weights{}))
}

func TestScorers(t *testing.T) {
	assert.Equal(t, 100.0, Ratio("lale sokak", "lale sokak"))
	assert.Equal(t, 0.0, Ratio("", "lale"))
	assert.InDelta(t, 57.142857, Ratio("kitten", "sitting"), 1e-4)

	assert.Equal(t, 100.0, PartialRatio("lale", "lale sokak no 5"))
	assert.Equal(t, 100.0, TokenSortRatio("sokak lale", "lale sokak"))

	assert.Equal(t, 100.0, TokenSetRatio("lale sokak no 5", "no 5 lale sokak izmir"))
	assert.InDelta(t, 33.33, TokenSetRatio("a b", "c d"), 0.01)
	assert.Equal(t, 0.0, TokenSetRatio("", "lale"))

	assert.InDelta(t, 100.0, JaroWinkler("lale", "lale"), 1e-9)
	assert.Less(t, JaroWinkler("lale", "kavak"), 80.0)
}

func TestScorerByName(t *testing.T) {
	for _, name := range ScorerNames() {
		_, ok := ScorerByName(name)
		assert.True(t, ok, name)
	}

	s, ok := ScorerByName("RATIO")
	assert.True(t, ok)
	assert.Equal(t, 100.0, s("x", "x"))

	s, ok = ScorerByName("cosine")
	assert.False(t, ok)
	assert.Equal(t, 100.0, s("b a", "a b"))
}
