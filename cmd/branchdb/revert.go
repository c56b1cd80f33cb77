package main

import (
	"fmt"

	"branchdb/pkg/hash"

	"github.com/spf13/cobra"
)

var revertCmd = &cobra.Command{
	Use:   "revert <hex>",
	Short: "Record a forward-moving commit reverting to a past state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := hash.FromHex(args[0])
		if err != nil {
			return reportErr(cmd, fmt.Errorf("revert: parsing hash: %w", err))
		}

		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.Revert(target)
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(revertCmd)
}
