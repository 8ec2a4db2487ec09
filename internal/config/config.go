// Package config loads the daemon configuration file.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"

	"YakNS/internal/logger"
	"YakNS/internal/namehash"
)

// Config holds the daemon settings. Zero fields take the defaults below.
type Config struct {
	// DataPath is the directory for persistent storage.
	DataPath string `toml:"data"`

	// HTTPAddress is the HTTP API listen address.
	HTTPAddress string `toml:"http"`

	// Authority is the hex address owning the root.
	Authority string `toml:"authority"`

	// TLD is the label handed to the first-come-first-served registrar.
	TLD string `toml:"tld"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// SeedPath is an optional YAML manifest of names registered after bootstrap.
	SeedPath string `toml:"seed"`

	// SnapshotInterval is how often the served snapshot is refreshed, e.g. "30s".
	SnapshotInterval time.Duration `toml:"snapshot_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DataPath:    "./data",
		HTTPAddress: ":8080",
		TLD:         "yak",
		LogLevel:    "info",

		SnapshotInterval: 10 * time.Second,
	}
}

// Load reads a TOML file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg, err := Read(path, Default())
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Read decodes a TOML file over base without validating.
// Keys absent from the file keep their base values.
func Read(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s):\n%w", path, err)
	}

	if _, err := toml.Decode(string(data), &base); err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s):\n%w", path, err)
	}

	return base, nil
}

// Validate checks required fields and formats.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return fmt.Errorf("config missing data path")
	}

	if strings.TrimSpace(c.HTTPAddress) == "" {
		return fmt.Errorf("config missing http address")
	}

	if _, err := c.AuthorityAddress(); err != nil {
		return err
	}

	if err := namehash.ValidLabel(c.TLD); err != nil {
		return fmt.Errorf("config tld:\n%w", err)
	}

	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("config snapshot_interval must be positive")
	}

	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return fmt.Errorf("config log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	return nil
}

// AuthorityAddress parses the authority as a non-zero hex address.
func (c Config) AuthorityAddress() (common.Address, error) {
	if !common.IsHexAddress(c.Authority) {
		return common.Address{}, fmt.Errorf("config authority %q is not a hex address", c.Authority)
	}

	addr := common.HexToAddress(c.Authority)
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("config authority must not be the zero address")
	}

	return addr, nil
}
