package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/address-matcher/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_DryRunExport(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	dir := t.TempDir()
	out := filepath.Join(dir, "units.json")

	cmd := newRootCmd()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--dry-run", "--export", out})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "validation passed")

	b, err := os.ReadFile(out)
	require.NoError(t, err)
	var units []models.AdminUnit
	require.NoError(t, json.Unmarshal(b, &units))
	assert.Greater(t, len(units), 81)
}

func TestSeed_BadGazetteer(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--dry-run", "--gazetteer", filepath.Join(t.TempDir(), "nope.yaml")})
	assert.Error(t, cmd.Execute())
}
