// Package kv implements the thin facade over an embedded ordered
// byte-keyed store (C3): point get/put/delete, prefix and full iteration,
// and atomic multi-write batches. The backing engine is go.etcd.io/bbolt,
// an embedded ordered B+tree store whose single-writer transaction model
// matches the concurrency assumptions spec.md §5 makes of "the KV engine"
// that the rest of branchdb treats as a black box.
package kv

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"go.etcd.io/bbolt"
)

// ErrKeyNotFound is returned by Get when the key is absent.
var ErrKeyNotFound = errors.New("kv: key not found")

// bucketName is the single bbolt bucket branchdb stores everything in; the
// key namespace itself (HEAD, branch:, <hash>, <table>:<id>) is what spec.md
// §6 fixes, not the bucket layout, so one bucket is sufficient.
var bucketName = []byte("branchdb")

// Store is the ordered KV Adapter. All methods are safe for concurrent use,
// though branchdb's design assumes a single writer (spec.md §5).
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	// PrefixScan visits every (key,value) pair whose key has the given
	// prefix, in ascending key order, until fn returns false or an error.
	PrefixScan(prefix []byte, fn func(key, value []byte) (bool, error)) error
	// FullScan visits every (key,value) pair in ascending key order.
	FullScan(fn func(key, value []byte) (bool, error)) error
	WriteBatch(ops []Op) error
	Close() error
}

// OpKind tags a WriteBatch operation.
type OpKind uint8

const (
	OpPut OpKind = iota + 1
	OpDelete
)

// Op is one operation within an atomic WriteBatch.
type Op struct {
	Kind  OpKind
	Key   []byte
	Value []byte // unused for OpDelete
}

// PutOp builds a put operation.
func PutOp(key, value []byte) Op { return Op{Kind: OpPut, Key: key, Value: value} }

// DeleteOp builds a delete operation.
func DeleteOp(key []byte) Op { return Op{Kind: OpDelete, Key: key} }

// BoltStore is the bbolt-backed KV Adapter.
type BoltStore struct {
	db *bbolt.DB
}

// Open opens (creating if necessary) a bbolt-backed store at path.
func Open(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("kv: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: init bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

// Get returns a copy of the value stored at key, or ErrKeyNotFound.
func (s *BoltStore) Get(key []byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketName).Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put stores value at key, durable on return.
func (s *BoltStore) Put(key, value []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put(key, value)
	})
}

// Delete removes key. Deleting an absent key is a no-op, matching bbolt's
// own semantics and the idempotence branchdb's revert/checkout paths rely on.
func (s *BoltStore) Delete(key []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete(key)
	})
}

// PrefixScan visits every key with the given prefix in ascending order.
func (s *BoltStore) PrefixScan(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			cont, err := fn(k, v)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		return nil
	})
}

// FullScan visits every key in the store in ascending order.
func (s *BoltStore) FullScan(fn func(key, value []byte) (bool, error)) error {
	return s.PrefixScan(nil, fn)
}

// WriteBatch applies every op atomically: either all apply or none do.
func (s *BoltStore) WriteBatch(ops []Op) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		for _, op := range ops {
			switch op.Kind {
			case OpPut:
				if err := b.Put(op.Key, op.Value); err != nil {
					return err
				}
			case OpDelete:
				if err := b.Delete(op.Key); err != nil {
					return err
				}
			default:
				return fmt.Errorf("kv: unknown op kind %d", op.Kind)
			}
		}
		return nil
	})
}

// Close releases the underlying database handle.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// CollectPrefix is a convenience wrapper around PrefixScan that gathers all
// matching pairs into a slice, for callers that don't need a lazy cursor.
func CollectPrefix(s Store, prefix []byte) ([][2][]byte, error) {
	var out [][2][]byte
	err := s.PrefixScan(prefix, func(k, v []byte) (bool, error) {
		out = append(out, [2][]byte{append([]byte(nil), k...), append([]byte(nil), v...)})
		return true, nil
	})
	return out, err
}

// TrackingStore wraps a Store to count operations, mirroring the teacher's
// TrackingCAS: useful in tests that assert a batch touched the minimal
// number of keys (e.g. the Merge Planner's changeset).
type TrackingStore struct {
	inner Store
	mu    sync.Mutex
	stats Stats
}

// Stats summarizes operations observed by a TrackingStore.
type Stats struct {
	Gets          int
	Puts          int
	Deletes       int
	BatchOps      int
	BatchesCalled int
}

// NewTrackingStore wraps inner.
func NewTrackingStore(inner Store) *TrackingStore {
	return &TrackingStore{inner: inner}
}

func (t *TrackingStore) Get(key []byte) ([]byte, error) {
	t.mu.Lock()
	t.stats.Gets++
	t.mu.Unlock()
	return t.inner.Get(key)
}

func (t *TrackingStore) Put(key, value []byte) error {
	t.mu.Lock()
	t.stats.Puts++
	t.mu.Unlock()
	return t.inner.Put(key, value)
}

func (t *TrackingStore) Delete(key []byte) error {
	t.mu.Lock()
	t.stats.Deletes++
	t.mu.Unlock()
	return t.inner.Delete(key)
}

func (t *TrackingStore) PrefixScan(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	return t.inner.PrefixScan(prefix, fn)
}

func (t *TrackingStore) FullScan(fn func(key, value []byte) (bool, error)) error {
	return t.inner.FullScan(fn)
}

func (t *TrackingStore) WriteBatch(ops []Op) error {
	t.mu.Lock()
	t.stats.BatchesCalled++
	t.stats.BatchOps += len(ops)
	t.mu.Unlock()
	return t.inner.WriteBatch(ops)
}

func (t *TrackingStore) Close() error {
	return t.inner.Close()
}

// Stats returns a copy of the operations observed so far.
func (t *TrackingStore) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}
