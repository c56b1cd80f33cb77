package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout <target>",
	Short: "Move HEAD to a branch name or commit hash",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.Checkout(args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "HEAD is now at %s\n", h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
