package ingest

import (
	"fmt"
	"strings"

	"branchdb/pkg/hash"
	"branchdb/pkg/model"
	"branchdb/pkg/view"
)

// ParsedQuery is the result of recognizing the fixed `SELECT * FROM <table>
// WITH <hex>` shape (spec.md §6 names the `query` subcommand; the grammar
// itself is a supplemented feature from original_source's
// QueryProcessor::execute, see SPEC_FULL.md §4).
type ParsedQuery struct {
	Table  string
	Commit hash.Hash
}

// ParseQuery recognizes `SELECT * FROM <ident> WITH <hex>` and rejects
// anything else as unsupported; it is not a general SQL parser.
func ParseQuery(stmt string) (ParsedQuery, error) {
	fields := strings.Fields(stmt)
	if len(fields) != 6 {
		return ParsedQuery{}, fmt.Errorf("%w: expected SELECT * FROM <table> WITH <hex>, got %q", ErrUnsupported, stmt)
	}
	if strings.ToUpper(fields[0]) != "SELECT" || fields[1] != "*" || strings.ToUpper(fields[2]) != "FROM" || strings.ToUpper(fields[4]) != "WITH" {
		return ParsedQuery{}, fmt.Errorf("%w: expected SELECT * FROM <table> WITH <hex>, got %q", ErrUnsupported, stmt)
	}
	table := fields[3]
	h, err := hash.FromHex(fields[5])
	if err != nil {
		return ParsedQuery{}, fmt.Errorf("%w: invalid commit hash in %q: %v", ErrUnsupported, stmt, err)
	}
	return ParsedQuery{Table: table, Commit: h}, nil
}

// RunQuery materializes the parsed query's table at its commit via the
// Versioned View and returns its id->CrdtValue map; the CLI prints each
// pair as `id: value`.
func RunQuery(v *view.View, q ParsedQuery) (map[string]model.CrdtValue, error) {
	return v.Materialize(q.Table, q.Commit)
}
