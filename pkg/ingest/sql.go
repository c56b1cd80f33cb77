// Package ingest implements the SQL Shim + Ingest adapter (C9): a tiny
// ad-hoc tokenizer turning CREATE/INSERT/UPDATE/ALTER statements and CSV
// rows into Change records, plus a parser for the fixed
// `SELECT * FROM t WITH <hex>` query grammar. It never touches the KV store directly; its only contract with
// the core is producing Changes for the caller to pass to
// commitstore.CreateCommit (spec.md §4.9).
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"branchdb/pkg/codec"
	"branchdb/pkg/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrUnsupported is returned for SQL this shim cannot parse.
var ErrUnsupported = errors.New("ingest: unsupported statement")

// schemaID is the reserved row id for a table's schema document (spec.md §3).
const schemaID = "!schema"

// ExecuteSQL tokenizes a single CREATE TABLE / INSERT INTO / UPDATE / ALTER
// TABLE statement and returns the Change(s) it implies. It is not a real
// SQL parser: each statement shape is recognized by its leading keyword and
// a handful of fixed substrings, mirroring original_source's
// `handle_sql` (the distillation's C9 collaborator is thin by design).
func ExecuteSQL(stmt string) ([]model.Change, error) {
	trimmed := strings.TrimSpace(stmt)
	upper := strings.ToUpper(trimmed)

	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return createTable(trimmed)
	case strings.HasPrefix(upper, "INSERT INTO"):
		return insertInto(trimmed)
	case strings.HasPrefix(upper, "UPDATE"):
		return update(trimmed)
	case strings.HasPrefix(upper, "ALTER TABLE"):
		return alterTable(trimmed)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, stmt)
	}
}

func createTable(stmt string) ([]model.Change, error) {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: missing table name in %q", ErrUnsupported, stmt)
	}
	table := fields[2]
	encoded, err := codec.EncodeCrdtValue(model.NewRegister([]byte("{}")))
	if err != nil {
		return nil, err
	}
	return []model.Change{model.NewInsert(table, schemaID, encoded)}, nil
}

func insertInto(stmt string) ([]model.Change, error) {
	fields := strings.Fields(stmt)
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: missing table name in %q", ErrUnsupported, stmt)
	}
	table := fields[2]

	idx := strings.Index(strings.ToUpper(stmt), "VALUES")
	if idx < 0 {
		return nil, fmt.Errorf("%w: missing VALUES clause in %q", ErrUnsupported, stmt)
	}
	values := parseValueList(stmt[idx+len("VALUES"):])
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: empty VALUES list in %q", ErrUnsupported, stmt)
	}

	row := encodeRowJSON(values)
	encoded, err := codec.EncodeCrdtValue(model.NewRegister([]byte(row)))
	if err != nil {
		return nil, err
	}
	return []model.Change{model.NewInsert(table, values[0], encoded)}, nil
}

func update(stmt string) ([]model.Change, error) {
	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: missing table name in %q", ErrUnsupported, stmt)
	}
	table := fields[1]

	upper := strings.ToUpper(stmt)
	setIdx := strings.Index(upper, "SET")
	whereIdx := strings.Index(upper, "WHERE")
	if setIdx < 0 || whereIdx < 0 || whereIdx < setIdx {
		return nil, fmt.Errorf("%w: missing SET/WHERE clause in %q", ErrUnsupported, stmt)
	}

	setClause := strings.TrimSpace(stmt[setIdx+len("SET") : whereIdx])
	whereClause := strings.TrimSpace(stmt[whereIdx+len("WHERE"):])

	id, err := extractWhereID(whereClause)
	if err != nil {
		return nil, err
	}

	assignments := parseAssignments(setClause)
	row := encodeAssignmentsJSON(assignments)
	encoded, err := codec.EncodeCrdtValue(model.NewRegister([]byte(row)))
	if err != nil {
		return nil, err
	}
	return []model.Change{model.NewUpdate(table, id, encoded)}, nil
}

// alterTable handles `ALTER TABLE t ADD COLUMN c`: spec.md names ALTER
// among C9's inputs without describing its shape; SPEC_FULL treats it as a
// schema-document Update recording the added column name, in the same
// Register-wrapped-JSON form CREATE TABLE uses.
func alterTable(stmt string) ([]model.Change, error) {
	fields := strings.Fields(stmt)
	if len(fields) < 6 || strings.ToUpper(fields[3]) != "ADD" || strings.ToUpper(fields[4]) != "COLUMN" {
		return nil, fmt.Errorf("%w: expected ALTER TABLE t ADD COLUMN c, got %q", ErrUnsupported, stmt)
	}
	table := fields[2]
	column := fields[5]
	body := fmt.Sprintf(`{"added_column":"%s"}`, column)
	encoded, err := codec.EncodeCrdtValue(model.NewRegister([]byte(body)))
	if err != nil {
		return nil, err
	}
	return []model.Change{model.NewUpdate(table, schemaID, encoded)}, nil
}

// parseValueList parses `('a', 'b', 'c')`-shaped tuples, stripping quotes,
// adapted from original_source's hand-rolled char-by-char scanner.
func parseValueList(s string) []string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")

	var values []string
	var current strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '\'':
			inQuotes = !inQuotes
			if !inQuotes {
				values = append(values, strings.TrimSpace(current.String()))
				current.Reset()
			}
		case r == ',' && !inQuotes:
			// separator; nothing to accumulate
		case r == ')' && !inQuotes:
			goto done
		default:
			if inQuotes || !isSpaceOrComma(r) {
				current.WriteRune(r)
			}
		}
	}
done:
	return values
}

func isSpaceOrComma(r rune) bool {
	return r == ' ' || r == ','
}

func parseAssignments(setClause string) [][2]string {
	var out [][2]string
	for _, pair := range strings.Split(setClause, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), "'")
		out = append(out, [2]string{key, val})
	}
	return out
}

func extractWhereID(whereClause string) (string, error) {
	parts := strings.SplitN(whereClause, "=", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed WHERE clause %q", ErrUnsupported, whereClause)
	}
	id := strings.Trim(strings.TrimSpace(parts[1]), "'")
	if id == "" {
		return "", fmt.Errorf("%w: empty id in WHERE clause %q", ErrUnsupported, whereClause)
	}
	return id, nil
}

func encodeRowJSON(values []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", fmt.Sprintf("col%d", i), v)
	}
	b.WriteByte('}')
	return b.String()
}

func encodeAssignmentsJSON(assignments [][2]string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, a := range assignments {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", a[0], a[1])
	}
	b.WriteByte('}')
	return b.String()
}

// ImportCSV reads a header row plus data rows from r and turns each row
// into an Insert Change for table. Column 0 is the row id; if it is blank
// or repeats a prior row's id, a fresh id is synthesized with uuid and a
// warning is logged (spec.md §6 names the header-column-as-id rule;
// SPEC_FULL supplements the no-usable-id-column edge case).
func ImportCSV(r io.Reader, table string, log zerolog.Logger) ([]model.Change, error) {
	reader := csv.NewReader(r)
	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("ingest: reading CSV header: %w", err)
	}

	var changes []model.Change
	seen := make(map[string]bool)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading CSV row: %w", err)
		}
		if len(record) == 0 {
			continue
		}

		id := record[0]
		if id == "" || seen[id] {
			synthesized := uuid.NewString()
			log.Warn().Str("table", table).Str("original_id", id).Str("synthesized_id", synthesized).
				Msg("CSV row had no usable id column, synthesizing one")
			id = synthesized
		}
		seen[id] = true

		body := csvRowJSON(headers, record)
		encoded, err := codec.EncodeCrdtValue(model.NewRegister([]byte(body)))
		if err != nil {
			return nil, err
		}
		changes = append(changes, model.NewInsert(table, id, encoded))
	}
	return changes, nil
}

func csvRowJSON(headers, record []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, field := range record {
		name := fmt.Sprintf("col%d", i)
		if i < len(headers) {
			name = headers[i]
		}
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%q", name, field)
	}
	b.WriteByte('}')
	return b.String()
}
