package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var importCSVCmd = &cobra.Command{
	Use:   "import-csv <file> <table>",
	Short: "Import a CSV file's rows into a table",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.ImportCSV(args[0], args[1])
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCSVCmd)
}
