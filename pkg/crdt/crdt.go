// Package crdt implements the CRDT State Engine (C4): an in-memory
// table -> id -> CrdtValue map built by replaying Changes, with typed merge
// rules that let two divergent engines converge deterministically without
// manual conflict resolution.
package crdt

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"branchdb/pkg/codec"
	"branchdb/pkg/model"
)

// ErrTypeMismatch is returned when a merge is attempted between a Counter
// and a Register stored under the same (table,id).
var ErrTypeMismatch = errors.New("crdt: type mismatch on merge")

// Engine holds table -> id -> CrdtValue. Apply order determines observable
// state: replay in commit order, and within a commit in change-sequence
// order (spec.md §4.4).
type Engine struct {
	state map[string]map[string]model.CrdtValue
}

// New returns an empty Engine.
func New() *Engine {
	return &Engine{state: make(map[string]map[string]model.CrdtValue)}
}

// Apply applies a single Change. Insert and Update decode Value and
// replace whatever was in the (table,id) slot; they are semantically
// indistinguishable at replay time (last-writer-by-replay-order wins
// within a commit). Delete removes the slot; deleting an absent slot is a
// no-op.
func (e *Engine) Apply(c model.Change) error {
	switch c.Kind {
	case model.ChangeInsert, model.ChangeUpdate:
		v, err := codec.DecodeCrdtValue(c.Value)
		if err != nil {
			return fmt.Errorf("crdt: decoding value for %s:%s: %w", c.Table, c.ID, err)
		}
		rows, ok := e.state[c.Table]
		if !ok {
			rows = make(map[string]model.CrdtValue)
			e.state[c.Table] = rows
		}
		rows[c.ID] = v
		return nil
	case model.ChangeDelete:
		if rows, ok := e.state[c.Table]; ok {
			delete(rows, c.ID)
		}
		return nil
	default:
		return fmt.Errorf("crdt: unknown change kind %d", c.Kind)
	}
}

// ApplyAll applies changes in order, stopping at the first error.
func (e *Engine) ApplyAll(changes []model.Change) error {
	for _, c := range changes {
		if err := e.Apply(c); err != nil {
			return err
		}
	}
	return nil
}

// Merge folds other into e: for every (table,id) in other's state, combine
// with e's slot under the Counter/Register rule; an absent local slot is
// simply cloned in. A type mismatch anywhere is a fatal error surfaced to
// the caller (spec.md §3, §4.4).
func (e *Engine) Merge(other *Engine) error {
	for table, rows := range other.state {
		localRows, ok := e.state[table]
		if !ok {
			localRows = make(map[string]model.CrdtValue)
			e.state[table] = localRows
		}
		for id, v := range rows {
			local, ok := localRows[id]
			if !ok {
				localRows[id] = v
				continue
			}
			merged, err := MergeValues(local, v)
			if err != nil {
				return fmt.Errorf("crdt: merging %s:%s: %w", table, id, err)
			}
			localRows[id] = merged
		}
	}
	return nil
}

// MergeValues combines two CrdtValues under their typed rule: Counter
// merges by max, Register merges by byte-lexicographic max. Merging a
// Counter with a Register is a type mismatch.
func MergeValues(a, b model.CrdtValue) (model.CrdtValue, error) {
	if a.Kind != b.Kind {
		return model.CrdtValue{}, fmt.Errorf("%w: %v vs %v", ErrTypeMismatch, a.Kind, b.Kind)
	}
	switch a.Kind {
	case model.KindCounter:
		if b.Counter > a.Counter {
			return b, nil
		}
		return a, nil
	case model.KindRegister:
		if bytes.Compare(b.Register, a.Register) > 0 {
			return b, nil
		}
		return a, nil
	default:
		return model.CrdtValue{}, fmt.Errorf("crdt: unknown CrdtValue kind %d", a.Kind)
	}
}

// Get returns the value at (table,id) and whether it is present.
func (e *Engine) Get(table, id string) (model.CrdtValue, bool) {
	rows, ok := e.state[table]
	if !ok {
		return model.CrdtValue{}, false
	}
	v, ok := rows[id]
	return v, ok
}

// Table returns a copy of the materialized id->CrdtValue map for table.
// Absent tables yield an empty, non-nil map.
func (e *Engine) Table(table string) map[string]model.CrdtValue {
	rows, ok := e.state[table]
	out := make(map[string]model.CrdtValue, len(rows))
	if !ok {
		return out
	}
	for id, v := range rows {
		out[id] = v
	}
	return out
}

// IntoTables returns a deep copy of the full table -> id -> CrdtValue map.
func (e *Engine) IntoTables() map[string]map[string]model.CrdtValue {
	out := make(map[string]map[string]model.CrdtValue, len(e.state))
	for table, rows := range e.state {
		rowsCopy := make(map[string]model.CrdtValue, len(rows))
		for id, v := range rows {
			rowsCopy[id] = v
		}
		out[table] = rowsCopy
	}
	return out
}

// Tables returns the sorted list of table names with at least one row.
func (e *Engine) Tables() []string {
	names := make([]string, 0, len(e.state))
	for name, rows := range e.state {
		if len(rows) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
