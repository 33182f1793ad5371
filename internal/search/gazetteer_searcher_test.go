package search

import (
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/address-matcher/internal/gazetteer"
	"github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUnitsFromGazetteer(t *testing.T) {
	g, err := gazetteer.Load([]byte(`
provinces: [İzmir, Şanlıurfa]
aliases: {urfa: şanlıurfa}
districts:
  izmir: [Bornova, Karşıyaka]
  şanlıurfa: [Siverek]
`))
	require.NoError(t, err)

	units := AdminUnitsFromGazetteer(g)
	byID := map[string]models.AdminUnit{}
	for _, u := range units {
		byID[u.ID] = u
	}
	require.Len(t, units, 5)

	urfa := byID["p-sanliurfa"]
	assert.Equal(t, "şanlıurfa", urfa.Name)
	assert.Equal(t, models.AdminLevelProvince, urfa.Level)
	assert.Equal(t, []string{"urfa"}, urfa.Aliases)

	ksk := byID["d-izmir-karsiyaka"]
	assert.Equal(t, "karşıyaka", ksk.Name)
	assert.Equal(t, "karsiyaka", ksk.NameFolded)
	assert.Equal(t, "izmir", ksk.Province)
	assert.Equal(t, "district", ksk.AdminSubtype)
}

func TestTailQueries(t *testing.T) {
	toks := []string{"atatürk", "mahalle", "lale", "sokak", "no", "5", "bornva/izmr"}
	assert.Equal(t, []string{"bornva", "izmr", "lale"}, tailQueries(toks))
	assert.Empty(t, tailQueries(nil))
}

func TestParseHits(t *testing.T) {
	res := &meilisearch.SearchResponse{Hits: []interface{}{
		map[string]interface{}{
			"id": "d-izmir-bornova", "name": "bornova", "level": float64(2),
			"province": "izmir", "aliases": []interface{}{"brnv"},
		},
		"garbage",
	}}
	units := parseHits(res)
	require.Len(t, units, 1)
	assert.Equal(t, models.AdminUnit{
		ID: "d-izmir-bornova", Name: "bornova", Level: 2, Province: "izmir", Aliases: []string{"brnv"},
	}, units[0])
}

func TestFilters(t *testing.T) {
	assert.Equal(t, "level = 1", FilterLevel(1))
	assert.Equal(t, `level = 2 AND province = "izmir"`, FilterLevelProvince(2, "izmir"))
	assert.Equal(t, "level = 2", FilterLevelProvince(2, ""))
}
