package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit <message>",
	Short: "Record a commit with no row changes on top of HEAD (sql and import-csv commit their own changes)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.Commit(args[0], nil)
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}
