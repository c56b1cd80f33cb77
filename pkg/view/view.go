// Package view implements the Versioned View (C7): materializing a table's
// state at a given commit by replaying ancestry-filtered changes, and
// diffing two commits' materialized state. It sits above pkg/commitstore
// (for ancestry and commit lookup) and pkg/crdt (for replay), and is in
// turn the foundation pkg/mergeplan replays both branch tips through.
package view

import (
	"fmt"

	"branchdb/pkg/codec"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/crdt"
	"branchdb/pkg/hash"
	"branchdb/pkg/model"
)

// View materializes table state from a Commit Store.
type View struct {
	commits *commitstore.Store
}

// New wraps a commit store as a versioned view.
func New(commits *commitstore.Store) *View {
	return &View{commits: commits}
}

// HeadHash exposes the commit store's HEAD for callers that need it without
// importing pkg/commitstore directly.
func (v *View) HeadHash() (hash.Hash, error) {
	return v.commits.Head()
}

// Materialize replays commit's primary-parent ancestry oldest-first into a
// fresh CRDT engine and returns the resulting table's id->CrdtValue map
// (spec.md §4.7).
func (v *View) Materialize(table string, commit hash.Hash) (map[string]model.CrdtValue, error) {
	engine, err := v.replayEngine(commit)
	if err != nil {
		return nil, err
	}
	return engine.Table(table), nil
}

// MaterializeAll is Materialize for every table touched along the chain,
// used by the Merge Planner which needs the full engine rather than one table.
func (v *View) MaterializeAll(commit hash.Hash) (*crdt.Engine, error) {
	return v.replayEngine(commit)
}

func (v *View) replayEngine(commit hash.Hash) (*crdt.Engine, error) {
	_, commits, err := v.commits.Chain(commit)
	if err != nil {
		return nil, err
	}
	engine := crdt.New()
	for _, c := range commits {
		if err := engine.ApplyAll(c.Changes); err != nil {
			return nil, fmt.Errorf("view: replaying ancestry of %s: %w", commit, err)
		}
	}
	return engine, nil
}

// Diff compares the commits at from and to by table content hash and
// returns the Changes needed to turn materialize(*, from) into
// materialize(*, to) (spec.md §4.5 diff / §4.7). A table present in to's
// tree but absent from from's tree yields a schema placeholder Insert
// before its row-level diff.
func (v *View) Diff(from, to hash.Hash) ([]model.Change, error) {
	fromCommit, err := v.commits.GetCommit(from)
	if err != nil {
		return nil, err
	}
	toCommit, err := v.commits.GetCommit(to)
	if err != nil {
		return nil, err
	}

	tables := make([]string, 0, len(toCommit.Tree))
	for table := range toCommit.Tree {
		tables = append(tables, table)
	}

	var changes []model.Change
	for _, table := range tables {
		fromHash, known := fromCommit.Tree[table]
		if !known {
			schema, err := schemaPlaceholder(table)
			if err != nil {
				return nil, err
			}
			changes = append(changes, schema)
		}
		if known && fromHash == toCommit.Tree[table] {
			continue
		}
		tableChanges, err := v.TableDiff(table, from, to)
		if err != nil {
			return nil, err
		}
		changes = append(changes, tableChanges...)
	}
	return changes, nil
}

// schemaPlaceholder synthesizes the Insert announcing a newly-seen table in
// a diff, mirroring how CREATE TABLE records its schema document (spec.md
// §4.9): an empty Register under the reserved "!schema" id.
func schemaPlaceholder(table string) (model.Change, error) {
	encoded, err := codec.EncodeCrdtValue(model.NewRegister(nil))
	if err != nil {
		return model.Change{}, fmt.Errorf("view: encoding schema placeholder for %q: %w", table, err)
	}
	return model.NewInsert(table, "!schema", encoded), nil
}

// TableDiff materializes table at from and to and emits Insert for ids only
// in to, Delete for ids only in from, Update for ids in both with unequal
// CrdtValues (spec.md §4.5 table_diff).
func (v *View) TableDiff(table string, from, to hash.Hash) ([]model.Change, error) {
	fromState, err := v.Materialize(table, from)
	if err != nil {
		return nil, err
	}
	toState, err := v.Materialize(table, to)
	if err != nil {
		return nil, err
	}

	var changes []model.Change
	for id, toVal := range toState {
		fromVal, present := fromState[id]
		if !present {
			encoded, err := codec.EncodeCrdtValue(toVal)
			if err != nil {
				return nil, err
			}
			changes = append(changes, model.NewInsert(table, id, encoded))
			continue
		}
		if !fromVal.Equal(toVal) {
			encoded, err := codec.EncodeCrdtValue(toVal)
			if err != nil {
				return nil, err
			}
			changes = append(changes, model.NewUpdate(table, id, encoded))
		}
	}
	for id := range fromState {
		if _, present := toState[id]; !present {
			changes = append(changes, model.NewDelete(table, id))
		}
	}
	return changes, nil
}
