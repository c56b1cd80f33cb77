// Command branchdb is the CLI surface (spec.md §6's external collaborator)
// over the embedded versioned table store in pkg/repo.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
