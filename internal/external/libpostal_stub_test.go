//go:build !libpostal

package external

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLibpostalDisabledByDefault(t *testing.T) {
	assert.False(t, Available)
	assert.Equal(t, LP{}, ExtractWithLibpostal("Lale Sokak No 5 Bornova İzmir", []string{"tr"}))
	assert.Nil(t, NewLibpostalParser(0.5, nil))
}
