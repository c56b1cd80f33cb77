package main

import (
	"fmt"

	"branchdb/internal/errkind"
	"branchdb/pkg/repo"

	"github.com/spf13/cobra"
)

var repoPath string

var rootCmd = &cobra.Command{
	Use:           "branchdb",
	Short:         "Embedded, version-controlled tabular data store",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", ".", "path to the branchdb repository")
	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return err
	})
}

// openRepo opens the repository at repoPath, logging at the level
// configured in branchdb.toml.
func openRepo() (*repo.Repo, error) {
	return repo.Open(repoPath, logger)
}

// reportErr maps err to its errkind.Kind and prints a one-line message to
// stderr via the command's own error return, matching spec.md §7's
// propagation rule: errors bubble unchanged, classified only where useful.
func reportErr(cmd *cobra.Command, err error) error {
	kind := errkind.Classify(err)
	if kind == errkind.Unknown {
		return err
	}
	return fmt.Errorf("%s: %w", kind, err)
}
