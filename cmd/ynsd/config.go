package main

import (
	"flag"
	"fmt"

	"YakNS/internal/config"
)

// parseFlags builds the daemon configuration.
// Defaults are overlaid by the -config TOML file, then by flags given explicitly.
func parseFlags(args []string) (config.Config, error) {
	def := config.Default()

	fs := flag.NewFlagSet("ynsd", flag.ContinueOnError)

	path := fs.String("config", "", "TOML configuration file")
	data := fs.String("data", def.DataPath, "Data directory path")
	httpAddr := fs.String("http", def.HTTPAddress, "HTTP API address")
	authority := fs.String("authority", def.Authority, "Hex address owning the root")
	tld := fs.String("tld", def.TLD, "Top-level label served first-come-first-served")
	level := fs.String("log-level", def.LogLevel, "Log level (debug, info, warn, error)")
	seed := fs.String("seed", def.SeedPath, "YAML manifest of names to register after bootstrap")
	interval := fs.Duration("snapshot-interval", def.SnapshotInterval, "Snapshot refresh interval")

	if err := fs.Parse(args); err != nil {
		return config.Config{}, err
	}

	cfg := def

	if *path != "" {
		var err error
		if cfg, err = config.Read(*path, def); err != nil {
			return config.Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "data":
			cfg.DataPath = *data
		case "http":
			cfg.HTTPAddress = *httpAddr
		case "authority":
			cfg.Authority = *authority
		case "tld":
			cfg.TLD = *tld
		case "log-level":
			cfg.LogLevel = *level
		case "seed":
			cfg.SeedPath = *seed
		case "snapshot-interval":
			cfg.SnapshotInterval = *interval
		}
	})

	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}

	return cfg, nil
}
