// Package branch implements the Branch Manager (C6): named refs
// `branch:<name> -> commit-hash` layered over the same KV handle the
// Commit Store uses. Branch tips do not auto-advance on commit (spec.md §9
// Open Question 1) — only Create, Delete and SetHeadOf move them; checkout
// and merge leave them in place.
package branch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"branchdb/pkg/hash"
	"branchdb/pkg/kv"
)

const refPrefix = "branch:"

var (
	// ErrInvalidName rejects a malformed branch name.
	ErrInvalidName = errors.New("branch: invalid name")
	// ErrExists is returned when creating a branch that already exists.
	ErrExists = errors.New("branch: already exists")
	// ErrNotFound is returned when a branch name has no ref.
	ErrNotFound = errors.New("branch: not found")
	// ErrNoHead is returned by Create when HEAD is unset.
	ErrNoHead = errors.New("branch: HEAD is unset, nothing to branch from")
)

// invalidChars mirrors the teacher's ref-name rules (pkg/branch/validate.go),
// adapted to branchdb's flat `branch:<name>` namespace, which has no path
// segments to conflict over.
var invalidChars = []rune{' ', '~', '^', ':', '?', '*', '[', '\\'}

// ValidateName rejects empty names, the reserved name HEAD, and characters
// that would be awkward in the CLI or confusable with the ref-key grammar.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidName)
	}
	if name == "HEAD" {
		return fmt.Errorf("%w: HEAD is reserved", ErrInvalidName)
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: must not start with '-' or '.'", ErrInvalidName)
	}
	if strings.Contains(name, "..") {
		return fmt.Errorf("%w: must not contain '..'", ErrInvalidName)
	}
	for _, c := range invalidChars {
		if strings.ContainsRune(name, c) {
			return fmt.Errorf("%w: must not contain %q", ErrInvalidName, c)
		}
	}
	return nil
}

// Manager is the Branch Manager.
type Manager struct {
	kv kv.Store
}

// New wraps store as a branch manager.
func New(store kv.Store) *Manager {
	return &Manager{kv: store}
}

func refKey(name string) []byte {
	return []byte(refPrefix + name)
}

// Create points a new branch at the given HEAD hash. Fails if the name is
// invalid, already taken, or head is the zero hash (spec.md §4.6).
func (m *Manager) Create(name string, head hash.Hash) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if head.IsZero() {
		return ErrNoHead
	}
	if _, err := m.kv.Get(refKey(name)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, name)
	} else if !errors.Is(err, kv.ErrKeyNotFound) {
		return fmt.Errorf("branch: checking %s: %w", name, err)
	}
	return m.kv.Put(refKey(name), head.Bytes())
}

// Delete removes a branch ref. Fails if the branch does not exist.
func (m *Manager) Delete(name string) error {
	if _, err := m.kv.Get(refKey(name)); errors.Is(err, kv.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	} else if err != nil {
		return fmt.Errorf("branch: checking %s: %w", name, err)
	}
	return m.kv.Delete(refKey(name))
}

// HeadOf returns the commit hash a branch points to.
func (m *Manager) HeadOf(name string) (hash.Hash, error) {
	v, err := m.kv.Get(refKey(name))
	if errors.Is(err, kv.ErrKeyNotFound) {
		return hash.Zero, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return hash.Zero, fmt.Errorf("branch: reading %s: %w", name, err)
	}
	return hash.FromBytes(v)
}

// SetHeadOf repoints an existing branch to head. Neither checkout nor merge
// calls it: a branch tip moves only when a caller repoints it explicitly.
func (m *Manager) SetHeadOf(name string, head hash.Hash) error {
	if _, err := m.HeadOf(name); err != nil {
		return err
	}
	return m.kv.Put(refKey(name), head.Bytes())
}

// List returns every branch name, sorted ascending (prefix-scan order).
func (m *Manager) List() ([]string, error) {
	pairs, err := kv.CollectPrefix(m.kv, []byte(refPrefix))
	if err != nil {
		return nil, fmt.Errorf("branch: listing: %w", err)
	}
	names := make([]string, 0, len(pairs))
	for _, p := range pairs {
		names = append(names, strings.TrimPrefix(string(p[0]), refPrefix))
	}
	return names, nil
}

// Current returns the name of the branch whose tip equals head, and
// whether one was found (spec.md §4.6: linear scan, byte-equality).
func (m *Manager) Current(head hash.Hash) (string, bool, error) {
	if head.IsZero() {
		return "", false, nil
	}
	var found string
	var ok bool
	err := m.kv.PrefixScan([]byte(refPrefix), func(k, v []byte) (bool, error) {
		if bytes.Equal(v, head.Bytes()) {
			found = strings.TrimPrefix(string(k), refPrefix)
			ok = true
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return "", false, fmt.Errorf("branch: scanning for current: %w", err)
	}
	return found, ok, nil
}
