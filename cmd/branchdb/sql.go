package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <statement>",
	Short: "Run a CREATE TABLE / INSERT INTO / UPDATE / ALTER TABLE statement",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.RunSQL(args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sqlCmd)
}
