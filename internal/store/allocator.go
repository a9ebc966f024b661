package store

import (
	"encoding/binary"
	"fmt"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// CounterID selects one durable counter in the counters namespace.
type CounterID uint64

const (
	// CounterEntities numbers events, and tickets too when the shared
	// counter layout is enabled.
	CounterEntities CounterID = 0
	CounterUsers    CounterID = 1
	CounterTickets  CounterID = 2
)

// Allocator issues strictly increasing identifiers from a durable counter.
// The first identifier is 0. Identifiers are never reused, even after the
// record that held one is deleted. The counter advances inside the
// caller's transaction, so an identifier drawn in a rolled-back Update is
// handed out again by the next successful one; it was never visible to
// anyone in between.
type Allocator struct {
	counter CounterID
}

// NewAllocator returns an allocator over counter.
func NewAllocator(counter CounterID) *Allocator {
	return &Allocator{counter: counter}
}

// Next returns the current counter value and advances it by one.
func (a *Allocator) Next(tx Tx) (uint64, error) {
	current, err := a.Peek(tx)
	if err != nil {
		return 0, err
	}

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], current+1)
	if _, _, err := tx.Put(NamespaceCounters, uint64(a.counter), b[:]); err != nil {
		return 0, err
	}
	return current, nil
}

// Peek returns the identifier the next call to Next would issue.
func (a *Allocator) Peek(tx Tx) (uint64, error) {
	raw, ok, err := tx.Get(NamespaceCounters, uint64(a.counter))
	if err != nil || !ok {
		return 0, err
	}
	if len(raw) != 8 {
		return 0, apperrors.NewStorageError(apperrors.CodeCorruption,
			fmt.Sprintf("counter %d holds %d bytes", a.counter, len(raw)), nil)
	}
	return binary.BigEndian.Uint64(raw), nil
}
