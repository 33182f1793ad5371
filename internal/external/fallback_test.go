package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLP_Fields(t *testing.T) {
	testCases := []struct {
		name     string
		lp       LP
		expected map[string]string
	}{
		{
			name:     "state and city",
			lp:       LP{House: " 12 ", City: "bornova", State: "izmir"},
			expected: map[string]string{"no": "12", "il": "izmir", "ilce": "bornova"},
		},
		{
			name:     "city only",
			lp:       LP{City: "ankara", Suburb: "kızılay"},
			expected: map[string]string{"il": "ankara", "mahalle": "kızılay"},
		},
		{
			name:     "explicit district wins over city",
			lp:       LP{CityDistrict: "kadıköy", City: "moda", State: "istanbul", Unit: "3", Level: "2"},
			expected: map[string]string{"il": "istanbul", "ilce": "kadıköy", "daire": "3", "kat": "2"},
		},
		{
			name:     "empty",
			lp:       LP{},
			expected: map[string]string{},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.lp.Fields())
		})
	}
}

func TestFromComponents(t *testing.T) {
	lp := FromComponents("lale sokak 12 bornova izmir türkiye", []Component{
		{Label: "road", Value: "lale sokak"},
		{Label: "house_number", Value: "12"},
		{Label: "city", Value: "bornova"},
		{Label: "state", Value: "izmir"},
		{Label: "country", Value: "türkiye"},
	})
	assert.Equal(t, LP{Road: "lale sokak", House: "12", City: "bornova", State: "izmir", Coverage: 1}, lp)
	assert.Equal(t, map[string]string{"no": "12", "il": "izmir", "ilce": "bornova"}, lp.Fields())

	lp = FromComponents("a b c d", []Component{{Label: "house_number", Value: "a"}})
	assert.Equal(t, 0.25, lp.Coverage)

	assert.Equal(t, LP{}, FromComponents("", nil))
}

func TestNewLibpostalParser(t *testing.T) {
	p := NewLibpostalParser(0.5, nil)
	if !Available {
		assert.Nil(t, p)
		return
	}
	assert.NotNil(t, p)
}
