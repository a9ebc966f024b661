package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
)

// BadgerStore implements Store on a Badger LSM directory. Keys are the
// namespace name, a slash, and the 8-byte big-endian record key.
type BadgerStore struct {
	db *badger.DB
	mu sync.Mutex // Serializes Update so optimistic conflicts never surface
}

// NewBadgerStore opens or creates a Badger database in dir.
func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open badger: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// View runs fn in a Badger read transaction.
func (s *BadgerStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn, readOnly: true})
	})
	return backendError("view", err)
}

// Update runs fn in a Badger read-write transaction.
func (s *BadgerStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(&badgerTx{txn: txn})
	})
	return backendError("update", err)
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

type badgerTx struct {
	txn      *badger.Txn
	readOnly bool
}

func namespacePrefix(ns Namespace) []byte {
	return append([]byte(ns), '/')
}

func badgerKey(ns Namespace, key uint64) []byte {
	return append(namespacePrefix(ns), encodeKey(key)...)
}

func (t *badgerTx) Get(ns Namespace, key uint64) ([]byte, bool, error) {
	item, err := t.txn.Get(badgerKey(ns, key))
	if err == badger.ErrKeyNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendError("get", err)
	}
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, false, backendError("get value", err)
	}
	return value, true, nil
}

func (t *badgerTx) Put(ns Namespace, key uint64, value []byte) ([]byte, bool, error) {
	if t.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	prev, existed, err := t.Get(ns, key)
	if err != nil {
		return nil, false, err
	}
	// Badger holds on to the slice until commit.
	if err := t.txn.Set(badgerKey(ns, key), cloneBytes(value)); err != nil {
		return nil, false, backendError("put", err)
	}
	return prev, existed, nil
}

func (t *badgerTx) Delete(ns Namespace, key uint64) ([]byte, bool, error) {
	if t.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	prev, existed, err := t.Get(ns, key)
	if err != nil || !existed {
		return nil, false, err
	}
	if err := t.txn.Delete(badgerKey(ns, key)); err != nil {
		return nil, false, backendError("delete", err)
	}
	return prev, true, nil
}

func (t *badgerTx) Scan(ns Namespace, fn func(key uint64, value []byte) (bool, error)) error {
	prefix := namespacePrefix(ns)
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		rawKey := item.Key()[len(prefix):]
		if len(rawKey) != 8 {
			return backendError("scan", fmt.Errorf("malformed key of %d bytes in %s", len(rawKey), ns))
		}
		value, err := item.ValueCopy(nil)
		if err != nil {
			return backendError("scan value", err)
		}
		cont, err := fn(decodeKey(rawKey), value)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return nil
}
