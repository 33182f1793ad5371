package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressParts_String(t *testing.T) {
	p := AddressParts{}
	p.Set(FieldDaire, "3")
	p.Set(FieldNo, "12")
	p.Set(FieldIl, "izmir")
	p.Set(FieldMahalle, "atatürk")
	p.Set(FieldKat, "  ")

	assert.False(t, p.Has(FieldKat))
	assert.Equal(t, "il:izmir | mahalle:atatürk | no:12 | daire:3", p.String())
	assert.Equal(t, "", AddressParts{}.String())
}

func TestAddressParts_Public(t *testing.T) {
	p := AddressParts{"no": "5", "_confidence": "0.22"}
	assert.Equal(t, AddressParts{"no": "5"}, p.Public())
}

func TestCacheKey(t *testing.T) {
	a := NewCacheKey([]byte("Lale Sok. No:5"), "v1")
	b := NewCacheKey([]byte("Lale Sok. No:5"), "v2")
	c := NewCacheKey([]byte("Lale Sok. No:6"), "v1")

	assert.Len(t, a.ContentHash, 64)
	assert.Equal(t, a.ContentHash, b.ContentHash)
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	parsed, err := ParseFingerprint(a.Fingerprint())
	require.NoError(t, err)
	assert.Equal(t, a, parsed)

	_, err = ParseFingerprint("md5:abc@v1")
	assert.Error(t, err)
	_, err = ParseFingerprint("sha256:abc")
	assert.Error(t, err)
}

func TestRecord_Float(t *testing.T) {
	r := Record{ID: "1", Fields: map[string]string{"lat": "38.46", "lon": "x"}}
	lat, ok := r.Float("lat")
	require.True(t, ok)
	assert.InDelta(t, 38.46, lat, 1e-9)

	_, ok = r.Float("lon")
	assert.False(t, ok)
	_, ok = Record{}.Float("lat")
	assert.False(t, ok)
}
