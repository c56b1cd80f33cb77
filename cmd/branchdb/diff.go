package main

import (
	"fmt"

	"branchdb/pkg/hash"
	"branchdb/pkg/model"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <from-hex> <to-hex>",
	Short: "Print the changes needed to turn from's state into to's",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := hash.FromHex(args[0])
		if err != nil {
			return reportErr(cmd, fmt.Errorf("diff: parsing from hash: %w", err))
		}
		to, err := hash.FromHex(args[1])
		if err != nil {
			return reportErr(cmd, fmt.Errorf("diff: parsing to hash: %w", err))
		}

		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		changes, err := r.Diff(from, to)
		if err != nil {
			return reportErr(cmd, err)
		}
		for _, c := range changes {
			printChange(cmd, c)
		}
		return nil
	},
}

func printChange(cmd *cobra.Command, c model.Change) {
	out := cmd.OutOrStdout()
	switch c.Kind {
	case model.ChangeInsert:
		fmt.Fprintf(out, "+ %s:%s\n", c.Table, c.ID)
	case model.ChangeUpdate:
		fmt.Fprintf(out, "~ %s:%s\n", c.Table, c.ID)
	case model.ChangeDelete:
		fmt.Fprintf(out, "- %s:%s\n", c.Table, c.ID)
	}
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
