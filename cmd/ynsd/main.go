package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"YakNS/internal/config"
	"YakNS/internal/logger"
)

func main() {
	logger.Init()

	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point with error handling.
func run(args []string) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	logger.SetLevel(level)

	printStartupInfo(cfg)

	d, err := NewDaemon(cfg)
	if err != nil {
		return fmt.Errorf("create daemon:\n%w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

// printStartupInfo displays the daemon configuration at startup.
func printStartupInfo(cfg config.Config) {
	logger.Info("starting ynsd",
		"authority", cfg.Authority,
		"tld", cfg.TLD,
		"http", cfg.HTTPAddress,
		"data", cfg.DataPath,
		"seed", cfg.SeedPath,
	)
}
