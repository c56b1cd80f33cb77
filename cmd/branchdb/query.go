package main

import (
	"fmt"
	"sort"

	"branchdb/pkg/model"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query <SELECT * FROM t WITH hex>",
	Short: "Run a SELECT ... FROM table WITH <commit-hash> query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openRepo()
		if err != nil {
			return reportErr(cmd, err)
		}
		defer r.Close()

		rows, err := r.RunQuery(args[0])
		if err != nil {
			return reportErr(cmd, err)
		}
		printRows(cmd, rows)
		return nil
	},
}

func printRows(cmd *cobra.Command, rows map[string]model.CrdtValue) {
	ids := make([]string, 0, len(rows))
	for id := range rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, formatCrdtValue(rows[id]))
	}
}

func formatCrdtValue(v model.CrdtValue) string {
	switch v.Kind {
	case model.KindCounter:
		return fmt.Sprintf("%d", v.Counter)
	case model.KindRegister:
		return string(v.Register)
	default:
		return "<unknown>"
	}
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
