package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"seedfund/internal/treasury"
)

// treasuryFile is the YAML shape of an allocation table override. Amounts are
// strings so they parse through exact decimal arithmetic, never float64.
type treasuryFile struct {
	OperatingRatio      string `yaml:"operating_ratio"`
	ReserveRatio        string `yaml:"reserve_ratio"`
	MinimumContribution string `yaml:"minimum_contribution"`
	Platforms           []struct {
		Name   string `yaml:"name"`
		Weight string `yaml:"weight"`
	} `yaml:"platforms"`
}

// LoadTreasury returns the allocation table: the file at path when set, the
// compiled-in default otherwise. The caller still runs Validate before
// serving traffic.
func LoadTreasury(path string) (treasury.Config, error) {
	if path == "" {
		return treasury.DefaultConfig(), nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return treasury.Config{}, fmt.Errorf("read treasury table: %w", err)
	}

	var file treasuryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return treasury.Config{}, fmt.Errorf("parse treasury table: %w", err)
	}

	cfg := treasury.Config{}
	if cfg.OperatingRatio, err = decimal.NewFromString(file.OperatingRatio); err != nil {
		return treasury.Config{}, fmt.Errorf("operating_ratio: %w", err)
	}
	if cfg.ReserveRatio, err = decimal.NewFromString(file.ReserveRatio); err != nil {
		return treasury.Config{}, fmt.Errorf("reserve_ratio: %w", err)
	}
	if cfg.MinimumContribution, err = decimal.NewFromString(file.MinimumContribution); err != nil {
		return treasury.Config{}, fmt.Errorf("minimum_contribution: %w", err)
	}
	for _, p := range file.Platforms {
		weight, err := decimal.NewFromString(p.Weight)
		if err != nil {
			return treasury.Config{}, fmt.Errorf("platform %q weight: %w", p.Name, err)
		}
		cfg.Platforms = append(cfg.Platforms, treasury.PlatformWeight{Name: p.Name, Weight: weight})
	}
	return cfg, nil
}
