package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps every namespace in process memory. It honours the same
// transaction semantics as the durable backends but does not survive a
// restart; it backs tests and throwaway demo instances.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[Namespace]map[uint64][]byte
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[Namespace]map[uint64][]byte)}
}

// View runs fn under a shared lock.
func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return fn(&memoryTx{store: s, readOnly: true})
}

// Update runs fn under the exclusive lock and undoes its writes on error.
func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	tx := &memoryTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

// Close marks the store closed and drops its contents.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

type undoEntry struct {
	ns      Namespace
	key     uint64
	prev    []byte
	existed bool
}

type memoryTx struct {
	store    *MemoryStore
	readOnly bool
	undo     []undoEntry
}

func (tx *memoryTx) Get(ns Namespace, key uint64) ([]byte, bool, error) {
	v, ok := tx.store.data[ns][key]
	return cloneBytes(v), ok, nil
}

func (tx *memoryTx) Put(ns Namespace, key uint64, value []byte) ([]byte, bool, error) {
	if tx.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	m := tx.store.data[ns]
	if m == nil {
		m = make(map[uint64][]byte)
		tx.store.data[ns] = m
	}
	prev, existed := m[key]
	tx.undo = append(tx.undo, undoEntry{ns: ns, key: key, prev: prev, existed: existed})
	m[key] = cloneBytes(value)
	return cloneBytes(prev), existed, nil
}

func (tx *memoryTx) Delete(ns Namespace, key uint64) ([]byte, bool, error) {
	if tx.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	m := tx.store.data[ns]
	prev, existed := m[key]
	if !existed {
		return nil, false, nil
	}
	tx.undo = append(tx.undo, undoEntry{ns: ns, key: key, prev: prev, existed: true})
	delete(m, key)
	return cloneBytes(prev), true, nil
}

func (tx *memoryTx) Scan(ns Namespace, fn func(key uint64, value []byte) (bool, error)) error {
	m := tx.store.data[ns]
	keys := make([]uint64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	for _, k := range keys {
		cont, err := fn(k, cloneBytes(m[k]))
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}

// rollback replays the undo log newest-first.
func (tx *memoryTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		u := tx.undo[i]
		m := tx.store.data[u.ns]
		if u.existed {
			m[u.key] = u.prev
		} else {
			delete(m, u.key)
		}
	}
	tx.undo = nil
}
