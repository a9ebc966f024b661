package store

import (
	"encoding/binary"
	"fmt"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
)

// counterLayoutKey is the counters-namespace key that records which counter
// a store issues ticket identifiers from. It is not a counter itself.
const counterLayoutKey CounterID = 3

// Layout selects the counter ticket identifiers are drawn from.
type Layout uint64

const (
	// LayoutSeparate gives tickets their own counter.
	LayoutSeparate Layout = 1
	// LayoutShared draws tickets from the events counter.
	LayoutShared Layout = 2
)

func (l Layout) String() string {
	switch l {
	case LayoutSeparate:
		return "separate"
	case LayoutShared:
		return "shared"
	default:
		return fmt.Sprintf("layout(%d)", uint64(l))
	}
}

// TicketCounter returns the counter tickets are numbered from.
func (l Layout) TicketCounter() CounterID {
	if l == LayoutShared {
		return CounterEntities
	}
	return CounterTickets
}

// detectLayout reports the layout the store's tickets were numbered with,
// or 0 when the store never issued a ticket identifier. Stores written
// before the layout was recorded are recognised by their counters: only the
// separate layout ever advances the tickets counter.
func detectLayout(tx Tx) (Layout, error) {
	l, ok, err := recordedLayout(tx)
	if err != nil || ok {
		return l, err
	}

	if _, ok, err := tx.Get(NamespaceCounters, uint64(CounterTickets)); err != nil {
		return 0, err
	} else if ok {
		return LayoutSeparate, nil
	}

	found := false
	err = tx.Scan(NamespaceTickets, func(uint64, []byte) (bool, error) {
		found = true
		return false, nil
	})
	if err != nil || !found {
		return 0, err
	}
	return LayoutShared, nil
}

// CheckLayout fails with STORAGE:COUNTER_LAYOUT_MISMATCH when the store was
// written with a layout other than want.
func CheckLayout(tx Tx, want Layout) error {
	have, err := detectLayout(tx)
	if err != nil {
		return err
	}
	if have != 0 && have != want {
		return layoutMismatch(have, want)
	}
	return nil
}

// EnsureLayout checks the store against want and records want when the
// store has no layout yet. Call it in the transaction that issues ticket
// identifiers.
func EnsureLayout(tx Tx, want Layout) error {
	if err := CheckLayout(tx, want); err != nil {
		return err
	}
	if _, ok, err := recordedLayout(tx); err != nil || ok {
		return err
	}

	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(want))
	_, _, err := tx.Put(NamespaceCounters, uint64(counterLayoutKey), b[:])
	return err
}

func recordedLayout(tx Tx) (Layout, bool, error) {
	raw, ok, err := tx.Get(NamespaceCounters, uint64(counterLayoutKey))
	if err != nil || !ok {
		return 0, false, err
	}
	if len(raw) != 8 {
		return 0, false, apperrors.NewStorageError(apperrors.CodeCorruption,
			fmt.Sprintf("counter layout holds %d bytes", len(raw)), nil)
	}
	l := Layout(binary.BigEndian.Uint64(raw))
	if l != LayoutSeparate && l != LayoutShared {
		return 0, false, apperrors.NewStorageError(apperrors.CodeCorruption,
			fmt.Sprintf("unknown counter layout %d", uint64(l)), nil)
	}
	return l, true, nil
}

func layoutMismatch(have, want Layout) error {
	return apperrors.NewStorageError(apperrors.CodeLayoutMismatch,
		fmt.Sprintf("store numbers tickets with the %s counter layout, configured %s", have, want), nil).
		WithDetails(map[string]interface{}{"stored": have.String(), "configured": want.String()})
}
