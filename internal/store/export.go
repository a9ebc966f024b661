package store

import (
	"context"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// Entry is one raw record as held by a store.
type Entry struct {
	Namespace Namespace `cbor:"1,keyasint"`
	Key       uint64    `cbor:"2,keyasint"`
	Value     []byte    `cbor:"3,keyasint"`
}

// ExportAll returns every entry of every namespace, in namespace then key
// order, from one consistent read transaction.
func ExportAll(ctx context.Context, s Store) ([]Entry, error) {
	var entries []Entry
	err := s.View(ctx, func(tx Tx) error {
		for _, ns := range Namespaces() {
			err := tx.Scan(ns, func(key uint64, value []byte) (bool, error) {
				entries = append(entries, Entry{Namespace: ns, Key: key, Value: value})
				return true, nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ImportAll writes entries in a single Update. The target must be empty;
// otherwise nothing is written and CONFLICT:STORE_NOT_EMPTY is returned.
// An entry for a namespace this build does not know is treated as corruption.
func ImportAll(ctx context.Context, s Store, entries []Entry) error {
	known := make(map[Namespace]bool)
	for _, ns := range Namespaces() {
		known[ns] = true
	}
	return s.Update(ctx, func(tx Tx) error {
		empty, err := isEmpty(tx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrNotEmpty()
		}
		for _, e := range entries {
			if !known[e.Namespace] {
				return apperrors.NewStorageError(apperrors.CodeCorruption,
					"unknown namespace "+string(e.Namespace), nil)
			}
			if _, _, err := tx.Put(e.Namespace, e.Key, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
}

// ErrNotEmpty is the CONFLICT:STORE_NOT_EMPTY error returned when an import
// target already holds data.
func ErrNotEmpty() error {
	return apperrors.NewConflictError(apperrors.CodeStoreNotEmpty, "import target already holds data")
}

// IsEmpty reports whether no namespace holds any entry.
func IsEmpty(ctx context.Context, s Store) (bool, error) {
	var empty bool
	err := s.View(ctx, func(tx Tx) error {
		var err error
		empty, err = isEmpty(tx)
		return err
	})
	return empty, err
}

func isEmpty(tx Tx) (bool, error) {
	for _, ns := range Namespaces() {
		found := false
		err := tx.Scan(ns, func(uint64, []byte) (bool, error) {
			found = true
			return false, nil
		})
		if err != nil || found {
			return false, err
		}
	}
	return true, nil
}
