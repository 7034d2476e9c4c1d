// Package config loads the lending module's governance-controlled
// parameters from a TOML file, mirroring the host chain's config/config.go
// Load/createDefault pattern.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// RateCurve is the TOML-serializable form of interest.Config, expressed as
// plain integers in PRECISION units rather than *big.Int so it round-trips
// cleanly through TOML.
type RateCurve struct {
	Uopt    uint64 `toml:"Uopt"`
	Ucrit   uint64 `toml:"Ucrit"`
	Rb      uint64 `toml:"Rb"`
	Rslope1 uint64 `toml:"Rslope1"`
	Rslope2 uint64 `toml:"Rslope2"`
}

// CoinRisk is the TOML-serializable form of risk.Factors for one coin key.
type CoinRisk struct {
	CoinKey        string `toml:"CoinKey"`
	LTV            uint64 `toml:"LTV"`
	LT             uint64 `toml:"LT"`
	EntryFee       uint64 `toml:"EntryFee"`
	ShareFee       uint64 `toml:"ShareFee"`
	LiquidationFee uint64 `toml:"LiquidationFee"`
	RateCurve      RateCurve `toml:"rate_curve"`
}

// Config is the top-level lending module configuration file.
type Config struct {
	ShadowLT uint64     `toml:"ShadowLT"`
	Coins    []CoinRisk `toml:"coin"`
}

// Load reads a TOML configuration file from path, creating a conservative
// default file when none exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ShadowLT: 1_000_000_000, // 100%
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
