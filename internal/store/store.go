// Package store provides the persistent map store: durable mappings from
// unsigned 64-bit keys to encoded records, grouped into namespaces.
//
// All reads and writes happen inside a transaction. Update transactions are
// serialized by every backend, so a read-check-write sequence executed in a
// single Update cannot interleave with any other mutation. View
// transactions may run concurrently with each other.
package store

import (
	"context"
	"encoding/binary"
	"errors"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// Namespace names an independent keyspace inside a store.
type Namespace string

const (
	NamespaceEvents   Namespace = "events"
	NamespaceTickets  Namespace = "tickets"
	NamespaceUsers    Namespace = "users"
	NamespaceCounters Namespace = "counters"
)

// Namespaces lists every namespace the system persists, counters included.
func Namespaces() []Namespace {
	return []Namespace{NamespaceEvents, NamespaceTickets, NamespaceUsers, NamespaceCounters}
}

// Backend types accepted by Open.
const (
	TypeSQLite = "sqlite"
	TypeBadger = "badger"
	TypeMemory = "memory"
)

var (
	// ErrReadOnlyTx is returned when a View transaction attempts a write.
	ErrReadOnlyTx = errors.New("store: write in read-only transaction")

	// ErrClosed is returned for operations on a closed store.
	ErrClosed = errors.New("store: closed")
)

// Tx is a transaction over the store. Values returned by a Tx are owned
// by the caller; values passed to Put are copied before the call returns.
type Tx interface {
	// Get returns the value stored under key, and whether it exists.
	Get(ns Namespace, key uint64) ([]byte, bool, error)

	// Put stores value under key and returns the value it replaced, if any.
	Put(ns Namespace, key uint64, value []byte) (prev []byte, replaced bool, err error)

	// Delete removes key and returns the value it held, if any.
	Delete(ns Namespace, key uint64) (prev []byte, removed bool, err error)

	// Scan visits every entry of ns in ascending key order until fn
	// returns false or an error. Each call starts from the lowest key.
	// fn must not write through the same Tx while the scan is running.
	Scan(ns Namespace, fn func(key uint64, value []byte) (bool, error)) error
}

// Store is a durable family of namespaced maps.
type Store interface {
	// View runs fn in a read-only transaction.
	View(ctx context.Context, fn func(Tx) error) error

	// Update runs fn in a read-write transaction. Updates are serialized;
	// if fn returns an error none of its writes become visible, otherwise
	// all of them are durable when Update returns.
	Update(ctx context.Context, fn func(Tx) error) error

	// Close releases the store's resources.
	Close() error
}

// encodeKey renders key big-endian so byte order matches numeric order.
func encodeKey(key uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], key)
	return b[:]
}

func decodeKey(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	return cp
}

// backendError wraps a driver failure into the storage error category.
// Errors that already carry a category, such as those returned by a
// transaction callback, pass through untouched.
func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.GetCategory(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewStorageError(apperrors.CodeBackend, op, err)
}
