package main

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"YakNS/client"
	"YakNS/internal/resolver"
)

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show bootstrap state and component addresses of a running ynsd",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			status, err := c.Status()
			if err != nil {
				return err
			}

			return printJSON(cmd, status)
		},
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Show the registry record of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			info, err := c.Lookup(args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd, info)
		},
	}
}

func newResolveCmd(opts *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "resolve <name> [addr|name|contenthash|text]",
		Short: "Resolve a record of a name (addr by default)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := resolver.KindAddr
			if len(args) == 2 {
				var err error
				if kind, err = resolver.ParseKind(args[1]); err != nil {
					return err
				}
			}

			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			rec, err := c.Record(args[0], kind, key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), rec.Value)
			return nil
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "text record key")

	return cmd
}

func newReverseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <address>",
		Short: "Show the name published for an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("%q is not a hex address", args[0])
			}

			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			name, err := c.Reverse(common.HexToAddress(args[0]))
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func newEventsCmd(opts *rootOptions) *cobra.Command {
	var from, limit uint64

	cmd := &cobra.Command{
		Use:   "events",
		Short: "List registry journal entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := client.NewClient(opts.node)
			if err != nil {
				return err
			}

			events, err := c.Events(from, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, ev := range events {
				fmt.Fprintf(out, "%6d %-18s %s", ev.Seq, ev.Kind, ev.Node)
				if ev.Label != "" {
					fmt.Fprintf(out, " label=%s", ev.Label)
				}
				if ev.Addr != "" {
					fmt.Fprintf(out, " addr=%s", ev.Addr)
				}
				if ev.Kind == "NewTTL" {
					fmt.Fprintf(out, " ttl=%d", ev.TTL)
				}
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().Uint64Var(&from, "from", 0, "first sequence number")
	cmd.Flags().Uint64Var(&limit, "limit", 100, "maximum entries")

	return cmd
}
