package main

import (
	"fmt"
	"time"

	"branchdb/pkg/repo"

	"github.com/spf13/cobra"
)

var logVerbose bool

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Print the primary-parent ancestry of HEAD, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		entries, err := r.Log(0)
		if err != nil {
			return reportErr(cmd, err)
		}
		for _, e := range entries {
			if logVerbose {
				printVerboseEntry(cmd, e)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", e.Hash.String()[:12], e.Commit.Message)
		}
		return nil
	},
}

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the N most recent commits with full detail",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		entries, err := r.Log(historyLimit)
		if err != nil {
			return reportErr(cmd, err)
		}
		for _, e := range entries {
			printVerboseEntry(cmd, e)
		}
		return nil
	},
}

func printVerboseEntry(cmd *cobra.Command, e repo.LogEntry) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "commit %s\n", e.Hash.String())
	fmt.Fprintf(out, "    %s\n", e.Commit.Message)
	fmt.Fprintf(out, "    date: %s\n", time.Unix(e.Commit.Timestamp, 0).UTC().Format(time.RFC3339))
	if len(e.Commit.Parents) > 0 {
		fmt.Fprintf(out, "    parents:")
		for _, p := range e.Commit.Parents {
			fmt.Fprintf(out, " %s", p.String())
		}
		fmt.Fprintln(out)
	}
	if len(e.Commit.Tree) > 0 {
		fmt.Fprintf(out, "    tables:")
		for t := range e.Commit.Tree {
			fmt.Fprintf(out, " %s", t)
		}
		fmt.Fprintln(out)
	}
}

func init() {
	logCmd.Flags().BoolVarP(&logVerbose, "verbose", "v", false, "print full commit detail")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "number of commits to print")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(historyCmd)
}
