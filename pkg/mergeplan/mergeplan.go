// Package mergeplan implements the Merge Planner (C8): folds two branch
// states through CRDT merge rules and emits the minimal change set for a
// merge commit. Per spec.md §9 Open Question 2, it replays each branch's
// full history from its tip rather than finding a least common ancestor;
// under CRDT commutativity the merged state is the same either way, and the
// changeset still holds only rows whose merged value differs from HEAD's.
package mergeplan

import (
	"errors"
	"fmt"

	"branchdb/pkg/branch"
	"branchdb/pkg/codec"
	"branchdb/pkg/commitstore"
	"branchdb/pkg/crdt"
	"branchdb/pkg/hash"
	"branchdb/pkg/model"
	"branchdb/pkg/view"
)

// ErrUpToDate is returned when the branch has nothing new to merge.
var ErrUpToDate = errors.New("mergeplan: already up to date")

// Planner merges a named branch into HEAD.
type Planner struct {
	commits  *commitstore.Store
	branches *branch.Manager
	view     *view.View
}

// New wires the Merge Planner from its collaborators.
func New(commits *commitstore.Store, branches *branch.Manager, v *view.View) *Planner {
	return &Planner{commits: commits, branches: branches, view: v}
}

// MergeBranch merges name into the current HEAD, returning the new merge
// commit's hash. Returns ErrUpToDate (not an error condition the caller
// need treat as failure) when the branch tip equals HEAD or the computed
// changeset is empty (spec.md §4.8).
func (p *Planner) MergeBranch(name string) (hash.Hash, error) {
	branchHead, err := p.branches.HeadOf(name)
	if err != nil {
		return hash.Zero, fmt.Errorf("mergeplan: branch %q: %w", name, err)
	}
	currentHead, err := p.commits.Head()
	if err != nil {
		return hash.Zero, err
	}
	if currentHead.IsZero() {
		return hash.Zero, fmt.Errorf("mergeplan: HEAD is unset, nothing to merge into")
	}
	if currentHead == branchHead {
		return hash.Zero, ErrUpToDate
	}

	left, err := p.view.MaterializeAll(currentHead)
	if err != nil {
		return hash.Zero, fmt.Errorf("mergeplan: replaying current HEAD: %w", err)
	}
	right, err := p.view.MaterializeAll(branchHead)
	if err != nil {
		return hash.Zero, fmt.Errorf("mergeplan: replaying branch %q: %w", name, err)
	}

	changes, err := planChangeset(left, right)
	if err != nil {
		return hash.Zero, err
	}
	if len(changes) == 0 {
		return hash.Zero, ErrUpToDate
	}

	return p.commits.CreateMergeCommit(fmt.Sprintf("Merge branch '%s'", name), changes, branchHead)
}

// planChangeset compares right against left table by table: absent in
// left -> Insert; present and unequal after typed merge -> Update with the
// merged value; equal -> no change. Rows present only in left (including
// ones deleted on the right) are left untouched — deletions are not
// tombstoned and are not propagated by this planner (spec.md §9 Open
// Question 5).
func planChangeset(left, right *crdt.Engine) ([]model.Change, error) {
	var changes []model.Change
	for _, table := range right.Tables() {
		rightRows := right.Table(table)
		for id, rightVal := range rightRows {
			leftVal, present := left.Get(table, id)
			if !present {
				encoded, err := codec.EncodeCrdtValue(rightVal)
				if err != nil {
					return nil, fmt.Errorf("mergeplan: encoding %s:%s: %w", table, id, err)
				}
				changes = append(changes, model.NewInsert(table, id, encoded))
				continue
			}
			merged, err := crdt.MergeValues(leftVal, rightVal)
			if err != nil {
				return nil, fmt.Errorf("mergeplan: merging %s:%s: %w", table, id, err)
			}
			if merged.Equal(leftVal) {
				continue
			}
			encoded, err := codec.EncodeCrdtValue(merged)
			if err != nil {
				return nil, fmt.Errorf("mergeplan: encoding %s:%s: %w", table, id, err)
			}
			changes = append(changes, model.NewUpdate(table, id, encoded))
		}
	}
	return changes, nil
}
