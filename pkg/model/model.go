// Package model holds the plain data types shared across branchdb's core
// subsystems: the tagged Change and CrdtValue variants, and the Commit
// record. It has no storage or hashing dependencies of its own so that the
// codec, CRDT engine, commit store, and merge planner can all depend on it
// without import cycles.
package model

import "branchdb/pkg/hash"

// CrdtKind tags the variant of a CrdtValue.
type CrdtKind uint8

const (
	// KindCounter is a monotone u64 G-Counter; merge rule is max.
	KindCounter CrdtKind = iota + 1
	// KindRegister is a byte-valued LWW register; merge rule is byte-lexicographic max.
	KindRegister
)

// CrdtValue is a tagged variant: Counter(u64) or Register(bytes).
// Exactly one of the two fields is meaningful, selected by Kind.
type CrdtValue struct {
	Kind     CrdtKind
	Counter  uint64
	Register []byte
}

// NewCounter builds a Counter CrdtValue.
func NewCounter(v uint64) CrdtValue {
	return CrdtValue{Kind: KindCounter, Counter: v}
}

// NewRegister builds a Register CrdtValue. The byte slice is retained, not copied.
func NewRegister(v []byte) CrdtValue {
	return CrdtValue{Kind: KindRegister, Register: v}
}

// Equal reports whether two CrdtValues have the same kind and payload.
func (v CrdtValue) Equal(other CrdtValue) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindCounter:
		return v.Counter == other.Counter
	case KindRegister:
		if len(v.Register) != len(other.Register) {
			return false
		}
		for i := range v.Register {
			if v.Register[i] != other.Register[i] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// ChangeKind tags the variant of a Change.
type ChangeKind uint8

const (
	// ChangeInsert adds or overwrites a (table,id) slot.
	ChangeInsert ChangeKind = iota + 1
	// ChangeUpdate is semantically indistinguishable from Insert at replay time.
	ChangeUpdate
	// ChangeDelete removes a (table,id) slot.
	ChangeDelete
)

// Change is a tagged variant over Insert, Update, and Delete. Table and ID
// are always non-empty; Value is only meaningful for Insert/Update and holds
// an encoded CrdtValue.
type Change struct {
	Kind  ChangeKind
	Table string
	ID    string
	Value []byte // encoded CrdtValue; unused for ChangeDelete
}

// NewInsert builds an Insert Change carrying an already-encoded CrdtValue.
func NewInsert(table, id string, encodedValue []byte) Change {
	return Change{Kind: ChangeInsert, Table: table, ID: id, Value: encodedValue}
}

// NewUpdate builds an Update Change carrying an already-encoded CrdtValue.
func NewUpdate(table, id string, encodedValue []byte) Change {
	return Change{Kind: ChangeUpdate, Table: table, ID: id, Value: encodedValue}
}

// NewDelete builds a Delete Change.
func NewDelete(table, id string) Change {
	return Change{Kind: ChangeDelete, Table: table, ID: id}
}

// TableName is the uniform accessor for a Change's table, used by callers
// that only need to partition changes without a type switch.
func (c Change) TableName() string {
	return c.Table
}

// Commit is an immutable, content-addressed record of a set of changes.
type Commit struct {
	// Parents is ordered: 0 entries for the root, 1 for linear history, 2
	// for a merge ([primary, secondary]).
	Parents []hash.Hash
	Message string
	// Timestamp is seconds since the Unix epoch.
	Timestamp int64
	// Changes replay in stored order.
	Changes []Change
	// Tree maps table name to a content hash of that table's materialized
	// state at commit time.
	Tree map[string]hash.Hash
}

// PrimaryParent returns the commit's first parent, or the zero hash if it
// has none (the root commit).
func (c Commit) PrimaryParent() hash.Hash {
	if len(c.Parents) == 0 {
		return hash.Zero
	}
	return c.Parents[0]
}

// IsMerge reports whether the commit has two parents.
func (c Commit) IsMerge() bool {
	return len(c.Parents) == 2
}
