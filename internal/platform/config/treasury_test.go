package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTreasuryDefault(t *testing.T) {
	cfg, err := LoadTreasury("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.Platforms, 7)
}

func TestLoadTreasuryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treasury.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
operating_ratio: "0.80"
reserve_ratio: "0.20"
minimum_contribution: "5000"
platforms:
  - name: alpha
    weight: "0.50"
  - name: beta
    weight: "0.50"
`), 0o600))

	cfg, err := LoadTreasury(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.ReserveRatio.Equal(decimal.RequireFromString("0.20")))
	assert.True(t, cfg.MinimumContribution.Equal(decimal.NewFromInt(5000)))
	require.Len(t, cfg.Platforms, 2)
	assert.Equal(t, "alpha", cfg.Platforms[0].Name)
}

func TestLoadTreasuryBadDecimal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "treasury.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
operating_ratio: "ninety percent"
reserve_ratio: "0.10"
minimum_contribution: "10000"
platforms: []
`), 0o600))

	_, err := LoadTreasury(path)
	assert.ErrorContains(t, err, "operating_ratio")
}

func TestLoadTreasuryMissingFile(t *testing.T) {
	_, err := LoadTreasury("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestValidateServer(t *testing.T) {
	cfg := FromEnv()
	assert.NoError(t, cfg.Validate())

	cfg.RequestSigningSecret = ""
	assert.Error(t, cfg.Validate())

	cfg = FromEnv()
	cfg.ReplayWindow = 0
	assert.Error(t, cfg.Validate())
}
