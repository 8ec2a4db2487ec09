package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"YakNS/internal/namehash"
)

func newNamehashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "namehash <name>",
		Short: "Print the namehash of a dotted name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), namehash.Namehash(args[0]).Hex())
			return nil
		},
	}
}

func newLabelhashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labelhash <label>",
		Short: "Print the hash of a single label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := namehash.ValidLabel(args[0]); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), namehash.LabelHash(args[0]).Hex())
			return nil
		},
	}
}
