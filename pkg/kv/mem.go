package kv

import (
	"sort"
	"sync"
)

// MemStore is an in-memory Store used by unit tests for the layers above
// C3 (CRDT engine, commit store, branch manager, versioned view, merge
// planner) so those tests don't each need a bbolt temp file. It honors the
// same ordering and atomic-batch contract as BoltStore.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore returns an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemStore) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
	return nil
}

func (m *MemStore) Delete(key []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
	return nil
}

func (m *MemStore) sortedKeys(prefix []byte) []string {
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if len(prefix) == 0 || (len(k) >= len(prefix) && k[:len(prefix)] == string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

func (m *MemStore) PrefixScan(prefix []byte, fn func(key, value []byte) (bool, error)) error {
	m.mu.RLock()
	keys := m.sortedKeys(prefix)
	pairs := make([][2][]byte, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, [2][]byte{[]byte(k), m.data[k]})
	}
	m.mu.RUnlock()

	for _, p := range pairs {
		cont, err := fn(p[0], p[1])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

func (m *MemStore) FullScan(fn func(key, value []byte) (bool, error)) error {
	return m.PrefixScan(nil, fn)
}

func (m *MemStore) WriteBatch(ops []Op) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		switch op.Kind {
		case OpPut:
			m.data[string(op.Key)] = append([]byte(nil), op.Value...)
		case OpDelete:
			delete(m.data, string(op.Key))
		}
	}
	return nil
}

func (m *MemStore) Close() error { return nil }
