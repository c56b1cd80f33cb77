package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteBranch bool

var branchCmd = &cobra.Command{
	Use:   "branch <name>",
	Short: "Create or delete a branch ref",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		if deleteBranch {
			if err := r.DeleteBranch(args[0]); err != nil {
				return reportErr(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted branch %s\n", args[0])
			return nil
		}

		if err := r.CreateBranch(args[0]); err != nil {
			return reportErr(cmd, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created branch %s\n", args[0])
		return nil
	},
}

var branchListVerbose bool

var branchListCmd = &cobra.Command{
	Use:   "branch-list",
	Short: "List every branch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		branches, err := r.ListBranches()
		if err != nil {
			return reportErr(cmd, err)
		}
		current, hasCurrent, err := r.CurrentBranch()
		if err != nil {
			return reportErr(cmd, err)
		}

		for _, name := range branches {
			marker := " "
			if hasCurrent && name == current {
				marker = "*"
			}
			if branchListVerbose {
				head, err := r.BranchHead(name)
				if err != nil {
					return reportErr(cmd, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", marker, name, head.String())
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, name)
		}
		return nil
	},
}

func init() {
	branchCmd.Flags().BoolVar(&deleteBranch, "delete", false, "delete the named branch")
	branchListCmd.Flags().BoolVarP(&branchListVerbose, "verbose", "v", false, "show each branch's head commit hash")
	rootCmd.AddCommand(branchCmd)
	rootCmd.AddCommand(branchListCmd)
}
