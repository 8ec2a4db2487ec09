package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"YakNS/internal/api"
	"YakNS/internal/bootstrap"
	"YakNS/internal/config"
	"YakNS/internal/logger"
	"YakNS/internal/seed"
	"YakNS/internal/snapshot"
	"YakNS/internal/storage"
)

// Daemon holds the components of a running name service.
type Daemon struct {
	cfg       config.Config
	storage   *storage.Storage
	sys       *bootstrap.System
	snapshots *snapshot.Manager
	api       *api.Server
}

// NewDaemon opens storage, completes the bootstrap and applies the seed manifest.
func NewDaemon(cfg config.Config) (*Daemon, error) {
	d := &Daemon{cfg: cfg}

	if err := d.initStorage(); err != nil {
		return nil, err
	}

	if err := d.initSystem(); err != nil {
		d.Close()
		return nil, err
	}

	if err := d.applySeed(); err != nil {
		d.Close()
		return nil, err
	}

	d.snapshots = snapshot.NewManager(d.storage, d.sys.Registry, cfg.SnapshotInterval)
	d.api = api.New(cfg.HTTPAddress, d.sys, d.latestSnapshot)

	return d, nil
}

// initStorage initializes the Pebble storage.
func (d *Daemon) initStorage() error {
	if err := os.MkdirAll(d.cfg.DataPath, 0755); err != nil {
		return fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(filepath.Join(d.cfg.DataPath, "db"))
	if err != nil {
		return fmt.Errorf("init storage:\n%w", err)
	}

	d.storage = db

	return nil
}

// initSystem runs or resumes the bootstrap.
func (d *Daemon) initSystem() error {
	authority, err := d.cfg.AuthorityAddress()
	if err != nil {
		return err
	}

	b, err := bootstrap.New(bootstrap.Config{Authority: authority, TLD: d.cfg.TLD}, d.storage)
	if err != nil {
		return fmt.Errorf("init bootstrap:\n%w", err)
	}

	sys, err := b.Run()
	if err != nil {
		return fmt.Errorf("bootstrap:\n%w", err)
	}

	d.sys = sys

	return nil
}

// applySeed registers the manifest names, if a manifest is configured.
func (d *Daemon) applySeed() error {
	if d.cfg.SeedPath == "" {
		return nil
	}

	m, err := seed.Load(d.cfg.SeedPath)
	if err != nil {
		return err
	}

	if _, err := seed.Apply(d.sys, m); err != nil {
		return fmt.Errorf("apply seed:\n%w", err)
	}

	return nil
}

// latestSnapshot serves the snapshot manager's current snapshot.
func (d *Daemon) latestSnapshot() ([]byte, error) {
	data, _, err := d.snapshots.Latest()
	return data, err
}

// Run serves the API until ctx is cancelled or the server fails, then closes the daemon.
func (d *Daemon) Run(ctx context.Context) error {
	d.snapshots.Start()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(d.api.ListenAndServe)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")

		return d.api.Stop()
	})

	err := g.Wait()

	if cerr := d.Close(); err == nil {
		err = cerr
	}

	return err
}

// Close releases storage and stops background work.
func (d *Daemon) Close() error {
	if d.snapshots != nil {
		d.snapshots.Stop()
		d.snapshots = nil
	}

	if d.storage != nil {
		err := d.storage.Close()
		d.storage = nil

		return err
	}

	return nil
}
