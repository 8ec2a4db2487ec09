package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"YakNS/client"
	"YakNS/internal/bootstrap"
	"YakNS/internal/snapshot"
	"YakNS/internal/storage"
)

// openStore opens the database inside a ynsd data directory.
func openStore(dataPath string) (*storage.Storage, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("create data directory:\n%w", err)
	}

	db, err := storage.New(filepath.Join(dataPath, "db"))
	if err != nil {
		return nil, fmt.Errorf("open storage:\n%w", err)
	}

	return db, nil
}

func newBootstrapCmd() *cobra.Command {
	var dataPath, authority, tld string

	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run or resume the bootstrap in a local data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(authority) {
				return fmt.Errorf("authority %q is not a hex address", authority)
			}

			db, err := openStore(dataPath)
			if err != nil {
				return err
			}
			defer db.Close()

			b, err := bootstrap.New(bootstrap.Config{Authority: common.HexToAddress(authority), TLD: tld}, db)
			if err != nil {
				return err
			}

			sys, err := b.Run()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "tld:               %s\n", sys.TLD)
			fmt.Fprintf(out, "registry:          %s\n", sys.Addresses.Registry.Hex())
			fmt.Fprintf(out, "resolver:          %s\n", sys.Addresses.Resolver.Hex())
			fmt.Fprintf(out, "registrar:         %s\n", sys.Addresses.Registrar.Hex())
			fmt.Fprintf(out, "reverse registrar: %s\n", sys.Addresses.ReverseRegistrar.Hex())

			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "./data", "data directory")
	cmd.Flags().StringVar(&authority, "authority", "", "hex address owning the root")
	cmd.Flags().StringVar(&tld, "tld", "yak", "top-level label")
	cmd.MarkFlagRequired("authority")

	return cmd
}

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export, import, fetch and inspect store snapshots",
	}

	cmd.AddCommand(
		newSnapshotExportCmd(),
		newSnapshotImportCmd(),
		newSnapshotFetchCmd(opts),
		newSnapshotInfoCmd(),
	)

	return cmd
}

func newSnapshotExportCmd() *cobra.Command {
	var dataPath, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a snapshot of a local data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openStore(dataPath)
			if err != nil {
				return err
			}
			defer db.Close()

			data, info, err := snapshot.Create(db)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s:\n%w", output, err)
			}

			printSnapshotInfo(cmd, info)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "./data", "data directory")
	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newSnapshotImportCmd() *cobra.Command {
	var dataPath, input string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a snapshot into an empty local data directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s:\n%w", input, err)
			}

			db, err := openStore(dataPath)
			if err != nil {
				return err
			}
			defer db.Close()

			info, err := snapshot.Restore(db, data)
			if err != nil {
				return err
			}

			printSnapshotInfo(cmd, info)
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "./data", "data directory")
	cmd.Flags().StringVarP(&input, "input", "i", "", "snapshot file")
	cmd.MarkFlagRequired("input")

	return cmd
}

func newSnapshotFetchCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the current snapshot from a running ynsd",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			data, err := c.Snapshot()
			if err != nil {
				return err
			}

			// Verify before writing so a corrupt download never lands on disk.
			_, info, err := snapshot.Decode(data)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s:\n%w", output, err)
			}

			printSnapshotInfo(cmd, info)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "snapshot file")
	cmd.MarkFlagRequired("output")

	return cmd
}

func newSnapshotInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Verify a snapshot file and print its summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s:\n%w", args[0], err)
			}

			_, info, err := snapshot.Decode(data)
			if err != nil {
				return err
			}

			printSnapshotInfo(cmd, info)
			return nil
		},
	}
}

// printSnapshotInfo prints the entry count and checksum.
func printSnapshotInfo(cmd *cobra.Command, info snapshot.Info) {
	fmt.Fprintf(cmd.OutOrStdout(), "entries:  %d\nchecksum: %s\n", info.Entries, hex.EncodeToString(info.Checksum[:]))
}
