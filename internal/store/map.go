package store

import (
	"fmt"

	"github.com/eventsphere/eventsphere/internal/codec"
	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// DefaultMaxRecordSize bounds the encoded size of one record.
const DefaultMaxRecordSize = 1 << 20

// Map is a typed view of one namespace. Records are encoded with the CBOR
// codec; an encoded record larger than the configured bound is refused
// rather than truncated.
type Map[T any] struct {
	ns      Namespace
	maxSize int
}

// NewMap returns a typed map over ns. A non-positive maxRecordSize selects
// DefaultMaxRecordSize.
func NewMap[T any](ns Namespace, maxRecordSize int) *Map[T] {
	if maxRecordSize <= 0 {
		maxRecordSize = DefaultMaxRecordSize
	}
	return &Map[T]{ns: ns, maxSize: maxRecordSize}
}

// Get returns the record under key, or nil when absent.
func (m *Map[T]) Get(tx Tx, key uint64) (*T, error) {
	data, ok, err := tx.Get(m.ns, key)
	if err != nil || !ok {
		return nil, err
	}
	return m.decode(key, data)
}

// Insert stores rec under key, returning the record it replaced, if any.
func (m *Map[T]) Insert(tx Tx, key uint64, rec T) (*T, error) {
	data, err := m.encode(key, rec)
	if err != nil {
		return nil, err
	}
	prev, replaced, err := tx.Put(m.ns, key, data)
	if err != nil || !replaced {
		return nil, err
	}
	return m.decode(key, prev)
}

// Remove deletes the record under key, returning it, or nil when absent.
func (m *Map[T]) Remove(tx Tx, key uint64) (*T, error) {
	prev, removed, err := tx.Delete(m.ns, key)
	if err != nil || !removed {
		return nil, err
	}
	return m.decode(key, prev)
}

// Scan visits records in ascending key order until fn returns false.
func (m *Map[T]) Scan(tx Tx, fn func(key uint64, rec T) bool) error {
	return tx.Scan(m.ns, func(key uint64, data []byte) (bool, error) {
		rec, err := m.decode(key, data)
		if err != nil {
			return false, err
		}
		return fn(key, *rec), nil
	})
}

func (m *Map[T]) encode(key uint64, rec T) ([]byte, error) {
	data, err := codec.Marshal(rec)
	if err != nil {
		return nil, apperrors.NewStorageError(apperrors.CodeSerialization,
			fmt.Sprintf("failed to encode %s/%d", m.ns, key), err)
	}
	if len(data) > m.maxSize {
		return nil, apperrors.NewStorageError(apperrors.CodeSerialization,
			fmt.Sprintf("record %s/%d is %d bytes, limit is %d", m.ns, key, len(data), m.maxSize), nil).
			WithDetails(map[string]interface{}{"size": len(data), "limit": m.maxSize})
	}
	return data, nil
}

func (m *Map[T]) decode(key uint64, data []byte) (*T, error) {
	var rec T
	if err := codec.Unmarshal(data, &rec); err != nil {
		return nil, apperrors.NewStorageError(apperrors.CodeSerialization,
			fmt.Sprintf("failed to decode %s/%d", m.ns, key), err)
	}
	return &rec, nil
}
