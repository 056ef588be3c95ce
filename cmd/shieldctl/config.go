// config.go - Configuration for the shieldctl operator tool.
package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/veilpay/shieldpool/internal/chain"
	"github.com/veilpay/shieldpool/internal/rlwe"
)

// Config is the on-disk configuration. The RLWE block must match the audit
// circuit exactly; changing it invalidates existing keys and ciphertexts.
type Config struct {
	// RLWE audit parameters
	RingDegree   int    `json:"ring_degree"`
	Modulus      uint64 `json:"modulus"`
	PlainModulus uint64 `json:"plain_modulus"`
	NoiseBound   int64  `json:"noise_bound"`

	// File locations
	KeyDir string `json:"key_dir"`

	// Roots within this many inserts of ring eviction are flagged.
	ExpiryThreshold int `json:"expiry_threshold"`

	// Logging
	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	params := rlwe.DefaultParams()
	return &Config{
		RingDegree:      params.N,
		Modulus:         params.Q,
		PlainModulus:    params.T,
		NoiseBound:      params.NoiseBound,
		KeyDir:          "keys",
		ExpiryThreshold: chain.DefaultExpiryThreshold,
		LogLevel:        "info",
	}
}

// LoadConfig loads the configuration from path, creating a default file if
// none exists yet.
func LoadConfig(path string) (*Config, error) {
	if _, err := os.Stat(path); err == nil {
		file, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrap(err, "open config file")
		}
		defer file.Close()

		var cfg Config
		if err := json.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, errors.Wrap(err, "decode config file")
		}
		return &cfg, nil
	}

	cfg := DefaultConfig()
	if err := SaveConfig(cfg, path); err != nil {
		return nil, errors.Wrap(err, "save default config")
	}
	return cfg, nil
}

// SaveConfig writes the configuration to path, creating directories as
// needed.
func SaveConfig(cfg *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create config directory")
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create config file")
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(cfg), "encode config")
}

// Params assembles the RLWE parameter set from the config.
func (c *Config) Params() rlwe.Params {
	return rlwe.Params{
		N:          c.RingDegree,
		Q:          c.Modulus,
		T:          c.PlainModulus,
		NoiseBound: c.NoiseBound,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.ExpiryThreshold < 1 || c.ExpiryThreshold >= chain.RootRingSize {
		return errors.Errorf("expiry_threshold %d out of range [1,%d)", c.ExpiryThreshold, chain.RootRingSize)
	}
	if c.KeyDir == "" {
		return errors.New("key_dir must be set")
	}
	return nil
}
