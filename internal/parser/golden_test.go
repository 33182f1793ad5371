package parser

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type goldenCase struct {
	Raw    string `json:"raw"`
	Expect struct {
		Status     string              `json:"status"`
		Confidence float64             `json:"confidence"`
		Parts      models.AddressParts `json:"parts"`
	} `json:"expect"`
}

func TestGolden(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("testdata", "golden", "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	ap := NewAddressParser(nil, nil, nil)
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			data, err := os.ReadFile(file)
			require.NoError(t, err)
			var gc goldenCase
			require.NoError(t, json.Unmarshal(data, &gc))

			res := ap.Parse(context.Background(), gc.Raw)
			assert.Equal(t, gc.Expect.Status, res.Status)
			assert.Equal(t, gc.Expect.Confidence, res.Confidence)
			if len(gc.Expect.Parts) == 0 {
				assert.Empty(t, res.Parts)
				return
			}
			assert.Equal(t, gc.Expect.Parts, res.Parts)
		})
	}
}
