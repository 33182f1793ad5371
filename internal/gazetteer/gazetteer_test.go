package gazetteer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	g := Default()

	provinces, districts := g.Stats()
	assert.Equal(t, 81, provinces)
	assert.Greater(t, districts, 100)

	testCases := []struct {
		token    string
		province string
	}{
		{"izmir", "izmir"},
		{"muğla", "muğla"},
		{"mugla", "muğla"},
		{"şanlıurfa", "şanlıurfa"},
		{"sanliurfa", "şanlıurfa"},
		{"urfa", "şanlıurfa"},
		{"antep", "gaziantep"},
		{"ığdır", "ığdır"},
		{"igdir", "ığdır"},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			p, ok := g.Province(tc.token)
			require.True(t, ok)
			assert.Equal(t, tc.province, p)
		})
	}

	assert.False(t, g.IsProvince("bornova"))
	assert.False(t, g.IsProvince("mahalle"))
}

func TestDistricts(t *testing.T) {
	g := Default()

	assert.True(t, g.IsDistrict("bornova"))
	assert.True(t, g.IsDistrict("kadikoy"))

	p, ok := g.ProvinceOfDistrict("kadıköy")
	require.True(t, ok)
	assert.Equal(t, "istanbul", p)

	// yenişehir exists in several provinces
	assert.True(t, g.IsDistrict("yenişehir"))
	_, ok = g.ProvinceOfDistrict("yenişehir")
	assert.False(t, ok)
}

func TestScan(t *testing.T) {
	g := Default()
	mentions := g.Scan([]string{"lale", "sokak", "bornova", "izmir"})
	require.Len(t, mentions, 2)

	assert.Equal(t, Mention{Index: 2, Token: "bornova", Kind: KindDistrict, Province: "izmir"}, mentions[0])
	assert.Equal(t, Mention{Index: 3, Token: "izmir", Kind: KindProvince, Province: "izmir"}, mentions[1])
}

func TestLoad_Alternate(t *testing.T) {
	g, err := Load([]byte(`
provinces: [Testİl]
districts:
  testil: [merkez]
`))
	require.NoError(t, err)
	assert.True(t, g.IsProvince("testil"))
	assert.True(t, g.IsDistrict("merkez"))
	assert.False(t, g.IsProvince("izmir"))

	_, err = Load([]byte(`aliases: {}`))
	assert.Error(t, err)
}
