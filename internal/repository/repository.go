// Package repository provides typed access to the events, users and
// tickets namespaces of the store. Every call takes the store transaction
// it runs in; the caller decides the transaction boundary.
package repository

import (
	"github.com/eventsphere/eventsphere/internal/store"
)

// table holds the operations shared by every repository.
type table[T any] struct {
	m     *store.Map[T]
	keyOf func(T) uint64
}

func newTable[T any](ns store.Namespace, maxRecordSize int, keyOf func(T) uint64) table[T] {
	return table[T]{m: store.NewMap[T](ns, maxRecordSize), keyOf: keyOf}
}

// Put stores rec under its own identifier and returns the record it replaced.
func (t table[T]) Put(tx store.Tx, rec T) (*T, error) {
	return t.m.Insert(tx, t.keyOf(rec), rec)
}

// Get returns the record with id, or nil when absent.
func (t table[T]) Get(tx store.Tx, id uint64) (*T, error) {
	return t.m.Get(tx, id)
}

// Remove deletes the record with id, returning it, or nil when absent.
func (t table[T]) Remove(tx store.Tx, id uint64) (*T, error) {
	return t.m.Remove(tx, id)
}

// FindAll returns every record in identifier order.
func (t table[T]) FindAll(tx store.Tx) ([]T, error) {
	return t.FindBy(tx, func(T) bool { return true })
}

// FindBy returns the records matching pred, in identifier order.
func (t table[T]) FindBy(tx store.Tx, pred func(T) bool) ([]T, error) {
	var out []T
	err := t.m.Scan(tx, func(_ uint64, rec T) bool {
		if pred(rec) {
			out = append(out, rec)
		}
		return true
	})
	return out, err
}

// findFirst returns the lowest-keyed record matching pred, or nil.
func (t table[T]) findFirst(tx store.Tx, pred func(T) bool) (*T, error) {
	var found *T
	err := t.m.Scan(tx, func(_ uint64, rec T) bool {
		if pred(rec) {
			r := rec
			found = &r
			return false
		}
		return true
	})
	return found, err
}
