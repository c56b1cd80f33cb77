package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge <branch>",
	Short: "Fold a branch's state into HEAD via CRDT merge",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		h, err := r.Merge(args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), h.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
