package main

import (
	"fmt"

	"branchdb/pkg/hash"

	"github.com/spf13/cobra"
)

var showTableCommitHex string

var showTableCmd = &cobra.Command{
	Use:   "show-table <table>",
	Short: "Print a table's materialized state at a commit (defaults to HEAD)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var at hash.Hash
		if showTableCommitHex != "" {
			h, err := hash.FromHex(showTableCommitHex)
			if err != nil {
				return reportErr(cmd, fmt.Errorf("show-table: parsing --commit-hash: %w", err))
			}
			at = h
		}

		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		result, err := r.ShowTable(args[0], at)
		if err != nil {
			return reportErr(cmd, err)
		}

		if result.Raw {
			fmt.Fprintln(cmd.OutOrStdout(), "(raw, unmaterialized)")
			for _, kv := range result.RawScan {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kv[0], kv[1])
			}
			return nil
		}
		printRows(cmd, result.Rows)
		return nil
	},
}

func init() {
	showTableCmd.Flags().StringVar(&showTableCommitHex, "commit-hash", "", "commit hash to materialize at (defaults to HEAD)")
	rootCmd.AddCommand(showTableCmd)
}
