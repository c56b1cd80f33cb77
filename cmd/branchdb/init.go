package main

import (
	"fmt"

	"branchdb/pkg/repo"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init <path>",
	Short: "Create a new branchdb repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := repo.Init(args[0], logger)
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "initialized repository at %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
