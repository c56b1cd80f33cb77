// Package commitstore implements the Commit Store (C5): writing and reading
// content-addressed commits, advancing HEAD, walking the primary-parent
// ancestry chain, and reverting to an earlier commit. It owns the KV
// handle's `<hash>` and `HEAD` key ranges and the `<table>:<id>` materialized
// row range; the Branch Manager (pkg/branch) owns `branch:<name>` alongside
// the same handle.
package commitstore

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"time"

	"branchdb/pkg/codec"
	"branchdb/pkg/crdt"
	"branchdb/pkg/hash"
	"branchdb/pkg/kv"
	"branchdb/pkg/model"
)

// headKey is the literal 4-byte ASCII HEAD key (spec.md §6).
var headKey = []byte("HEAD")

var (
	// ErrEmptyMessage rejects a commit with an empty message.
	ErrEmptyMessage = errors.New("commitstore: commit message must not be empty")
	// ErrCommitNotFound is returned by GetCommit for an absent hash.
	ErrCommitNotFound = errors.New("commitstore: commit not found")
	// ErrCorruptHead is returned when the HEAD value is not exactly 32 bytes.
	ErrCorruptHead = errors.New("commitstore: HEAD has invalid length")
)

// Store is the Commit Store. It holds no state of its own beyond the
// underlying KV handle, matching the teacher's pattern of a thin manager
// wrapping a shared storage handle (see pkg/store/commit.go's CommitManager).
type Store struct {
	kv kv.Store
}

// New wraps kv as a commit store.
func New(store kv.Store) *Store {
	return &Store{kv: store}
}

func rowKey(table, id string) []byte {
	return []byte(table + ":" + id)
}

func rowPrefix(table string) []byte {
	return []byte(table + ":")
}

// Head returns the current HEAD commit hash, or the zero hash if no commit
// has been made yet (spec.md §4.5 step 1: "may be absent -> root commit").
func (s *Store) Head() (hash.Hash, error) {
	v, err := s.kv.Get(headKey)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return hash.Zero, nil
	}
	if err != nil {
		return hash.Zero, fmt.Errorf("commitstore: reading HEAD: %w", err)
	}
	h, err := hash.FromBytes(v)
	if err != nil {
		return hash.Zero, fmt.Errorf("%w: %v", ErrCorruptHead, err)
	}
	return h, nil
}

// SetHead moves HEAD to h directly, used by checkout.
func (s *Store) SetHead(h hash.Hash) error {
	return s.kv.Put(headKey, h.Bytes())
}

// GetCommit fetches and decodes the commit stored at h.
func (s *Store) GetCommit(h hash.Hash) (model.Commit, error) {
	v, err := s.kv.Get(h.Bytes())
	if errors.Is(err, kv.ErrKeyNotFound) {
		return model.Commit{}, fmt.Errorf("%w: %s", ErrCommitNotFound, h)
	}
	if err != nil {
		return model.Commit{}, fmt.Errorf("commitstore: reading commit %s: %w", h, err)
	}
	c, err := codec.DecodeCommit(v)
	if err != nil {
		return model.Commit{}, fmt.Errorf("commitstore: decoding commit %s: %w", h, err)
	}
	return c, nil
}

// CreateCommit builds, hashes, and durably records a new commit touching
// changes, advancing HEAD to it. It is the sole write path for commits
// (spec.md §4.5 create_commit).
func (s *Store) CreateCommit(message string, changes []model.Change) (hash.Hash, error) {
	if message == "" {
		return hash.Zero, ErrEmptyMessage
	}

	head, err := s.Head()
	if err != nil {
		return hash.Zero, err
	}

	var parents []hash.Hash
	parentTree := map[string]hash.Hash{}
	if !head.IsZero() {
		parents = []hash.Hash{head}
		parentCommit, err := s.GetCommit(head)
		if err != nil {
			return hash.Zero, err
		}
		for table, h := range parentCommit.Tree {
			parentTree[table] = h
		}
	}

	rowOps, tree, err := s.applyChangesAndRehash(changes, parentTree)
	if err != nil {
		return hash.Zero, err
	}

	return s.writeCommit(parents, message, changes, tree, rowOps)
}

// CreateMergeCommit is CreateCommit with an explicit secondary parent,
// used by the Merge Planner to record a merge commit whose parents are
// [current_head, branch_head] (spec.md §4.8 step 5).
func (s *Store) CreateMergeCommit(message string, changes []model.Change, secondParent hash.Hash) (hash.Hash, error) {
	if message == "" {
		return hash.Zero, ErrEmptyMessage
	}

	head, err := s.Head()
	if err != nil {
		return hash.Zero, err
	}
	if head.IsZero() {
		return hash.Zero, fmt.Errorf("commitstore: cannot record a merge commit with no HEAD")
	}

	parentCommit, err := s.GetCommit(head)
	if err != nil {
		return hash.Zero, err
	}
	parentTree := map[string]hash.Hash{}
	for table, h := range parentCommit.Tree {
		parentTree[table] = h
	}

	rowOps, tree, err := s.applyChangesAndRehash(changes, parentTree)
	if err != nil {
		return hash.Zero, err
	}

	return s.writeCommit([]hash.Hash{head, secondParent}, message, changes, tree, rowOps)
}

// applyChangesAndRehash computes the row-level KV ops needed to apply
// changes and the resulting per-touched-table content hashes, carrying
// forward baseTree for tables the changes don't touch.
func (s *Store) applyChangesAndRehash(changes []model.Change, baseTree map[string]hash.Hash) ([]kv.Op, map[string]hash.Hash, error) {
	touched := make([]string, 0)
	seen := make(map[string]bool)
	byTable := make(map[string][]model.Change)
	for _, c := range changes {
		if !seen[c.Table] {
			seen[c.Table] = true
			touched = append(touched, c.Table)
		}
		byTable[c.Table] = append(byTable[c.Table], c)
	}
	sort.Strings(touched)

	var rowOps []kv.Op
	tree := make(map[string]hash.Hash, len(baseTree))
	for table, h := range baseTree {
		tree[table] = h
	}

	for _, table := range touched {
		rows, err := kv.CollectPrefix(s.kv, rowPrefix(table))
		if err != nil {
			return nil, nil, fmt.Errorf("commitstore: scanning table %q: %w", table, err)
		}
		state := make(map[string][]byte, len(rows))
		for _, kvPair := range rows {
			state[string(kvPair[0])] = kvPair[1]
		}

		for _, c := range byTable[table] {
			key := rowKey(c.Table, c.ID)
			switch c.Kind {
			case model.ChangeInsert, model.ChangeUpdate:
				state[string(key)] = c.Value
				rowOps = append(rowOps, kv.PutOp(key, c.Value))
			case model.ChangeDelete:
				delete(state, string(key))
				rowOps = append(rowOps, kv.DeleteOp(key))
			default:
				return nil, nil, fmt.Errorf("commitstore: unknown change kind %d", c.Kind)
			}
		}

		tree[table] = hashTableState(state)
	}

	return rowOps, tree, nil
}

// hashTableState folds the sorted (key,value) pairs of a table's
// materialized rows through the Hasher, as spec.md §3's tree invariant
// requires.
func hashTableState(state map[string][]byte) hash.Hash {
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	hasher := hash.New()
	for _, k := range keys {
		hasher.Update([]byte(k))
		hasher.Update(state[k])
	}
	return hasher.Finalize()
}

// writeCommit encodes, hashes, and atomically persists a commit alongside
// any row-level mutations and the HEAD advance.
func (s *Store) writeCommit(parents []hash.Hash, message string, changes []model.Change, tree map[string]hash.Hash, rowOps []kv.Op) (hash.Hash, error) {
	commit := model.Commit{
		Parents:   parents,
		Message:   message,
		Timestamp: time.Now().Unix(),
		Changes:   changes,
		Tree:      tree,
	}

	encoded, err := codec.EncodeCommit(commit)
	if err != nil {
		return hash.Zero, fmt.Errorf("commitstore: encoding commit: %w", err)
	}
	commitHash := hash.Sum(encoded)

	ops := make([]kv.Op, 0, len(rowOps)+2)
	ops = append(ops, rowOps...)
	ops = append(ops, kv.PutOp(commitHash.Bytes(), encoded))
	ops = append(ops, kv.PutOp(headKey, commitHash.Bytes()))

	if err := s.kv.WriteBatch(ops); err != nil {
		return hash.Zero, fmt.Errorf("commitstore: writing commit batch: %w", err)
	}
	return commitHash, nil
}

// WalkAncestry visits the primary-parent chain starting at from, oldest
// commit last (newest first), until visit returns false, an error occurs,
// or the chain runs out. A zero `from` visits nothing.
func (s *Store) WalkAncestry(from hash.Hash, visit func(hash.Hash, model.Commit) (bool, error)) error {
	current := from
	for !current.IsZero() {
		c, err := s.GetCommit(current)
		if err != nil {
			return err
		}
		cont, err := visit(current, c)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		current = c.PrimaryParent()
	}
	return nil
}

// Chain returns from's primary-parent ancestry as hashes and commits,
// oldest first, a convenience built on WalkAncestry for callers (like
// pkg/view and RevertTo) that want chronological replay order.
func (s *Store) Chain(from hash.Hash) ([]hash.Hash, []model.Commit, error) {
	var hashes []hash.Hash
	var commits []model.Commit
	err := s.WalkAncestry(from, func(h hash.Hash, c model.Commit) (bool, error) {
		hashes = append(hashes, h)
		commits = append(commits, c)
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	for i, j := 0, len(hashes)-1; i < j; i, j = i+1, j-1 {
		hashes[i], hashes[j] = hashes[j], hashes[i]
		commits[i], commits[j] = commits[j], commits[i]
	}
	return hashes, commits, nil
}

// RevertTo replays the chain up to target, rewrites every `<table>:` row to
// match target's materialized state, and records a new forward-moving
// commit whose parent is the current HEAD (spec.md §4.5 revert_to).
func (s *Store) RevertTo(target hash.Hash) (hash.Hash, error) {
	targetCommit, err := s.GetCommit(target)
	if err != nil {
		return hash.Zero, err
	}

	_, commits, err := s.Chain(target)
	if err != nil {
		return hash.Zero, err
	}

	engine := crdt.New()
	for _, c := range commits {
		if err := engine.ApplyAll(c.Changes); err != nil {
			return hash.Zero, fmt.Errorf("commitstore: replaying to %s: %w", target, err)
		}
	}

	head, err := s.Head()
	if err != nil {
		return hash.Zero, err
	}

	var rowOps []kv.Op
	for table := range targetCommit.Tree {
		existing, err := kv.CollectPrefix(s.kv, rowPrefix(table))
		if err != nil {
			return hash.Zero, fmt.Errorf("commitstore: scanning table %q: %w", table, err)
		}
		for _, pair := range existing {
			rowOps = append(rowOps, kv.DeleteOp(pair[0]))
		}
	}
	for table, rows := range engine.IntoTables() {
		for id, v := range rows {
			encoded, err := codec.EncodeCrdtValue(v)
			if err != nil {
				return hash.Zero, fmt.Errorf("commitstore: encoding reverted row %s:%s: %w", table, id, err)
			}
			rowOps = append(rowOps, kv.PutOp(rowKey(table, id), encoded))
		}
	}

	revertChanges := make([]model.Change, 0, len(targetCommit.Changes))
	for _, c := range targetCommit.Changes {
		if c.Kind == model.ChangeInsert {
			revertChanges = append(revertChanges, model.NewDelete(c.Table, c.ID))
			continue
		}
		revertChanges = append(revertChanges, c)
	}

	var parents []hash.Hash
	if !head.IsZero() {
		parents = []hash.Hash{head}
	}

	return s.writeCommit(parents, fmt.Sprintf("Revert to %s", target), revertChanges, cloneTree(targetCommit.Tree), rowOps)
}

func cloneTree(tree map[string]hash.Hash) map[string]hash.Hash {
	out := make(map[string]hash.Hash, len(tree))
	for k, v := range tree {
		out[k] = v
	}
	return out
}

// GetRow reads the raw materialized value for (table,id); an absent row
// returns kv.ErrKeyNotFound as the KV store reports it, unwrapped.
func (s *Store) GetRow(table, id string) ([]byte, error) {
	return s.kv.Get(rowKey(table, id))
}

// ScanTable returns every materialized (id,value) pair in table, sorted by id.
func (s *Store) ScanTable(table string) ([][2]string, error) {
	pairs, err := kv.CollectPrefix(s.kv, rowPrefix(table))
	if err != nil {
		return nil, err
	}
	prefix := rowPrefix(table)
	out := make([][2]string, 0, len(pairs))
	for _, p := range pairs {
		id := bytes.TrimPrefix(p[0], prefix)
		out = append(out, [2]string{string(id), string(p[1])})
	}
	return out, nil
}
