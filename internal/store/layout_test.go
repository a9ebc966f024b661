package store

import (
	"context"
	"testing"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureLayout_RecordsOnFirstUse(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		l, err := detectLayout(tx)
		require.NoError(t, err)
		assert.Zero(t, l)
		return EnsureLayout(tx, LayoutShared)
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		l, err := detectLayout(tx)
		require.NoError(t, err)
		assert.Equal(t, LayoutShared, l)

		assert.NoError(t, CheckLayout(tx, LayoutShared))
		err = CheckLayout(tx, LayoutSeparate)
		assert.Equal(t, apperrors.CodeLayoutMismatch, apperrors.GetCode(err))
		return nil
	}))

	err := s.Update(ctx, func(tx Tx) error { return EnsureLayout(tx, LayoutSeparate) })
	assert.Equal(t, apperrors.CodeLayoutMismatch, apperrors.GetCode(err))
}

func TestDetectLayout_StoresWithoutMarker(t *testing.T) {
	ctx := context.Background()

	separate := NewMemoryStore()
	require.NoError(t, separate.Update(ctx, func(tx Tx) error {
		_, err := NewAllocator(LayoutSeparate.TicketCounter()).Next(tx)
		return err
	}))

	shared := NewMemoryStore()
	require.NoError(t, shared.Update(ctx, func(tx Tx) error {
		id, err := NewAllocator(LayoutShared.TicketCounter()).Next(tx)
		if err != nil {
			return err
		}
		_, _, err = tx.Put(NamespaceTickets, id, []byte("seat"))
		return err
	}))

	for want, s := range map[Layout]Store{LayoutSeparate: separate, LayoutShared: shared} {
		require.NoError(t, s.View(ctx, func(tx Tx) error {
			l, err := detectLayout(tx)
			require.NoError(t, err)
			assert.Equal(t, want, l)
			return nil
		}))
		err := s.Update(ctx, func(tx Tx) error {
			other := LayoutShared
			if want == LayoutShared {
				other = LayoutSeparate
			}
			return EnsureLayout(tx, other)
		})
		assert.Equal(t, apperrors.CodeLayoutMismatch, apperrors.GetCode(err), want.String())
		assert.NoError(t, s.Update(ctx, func(tx Tx) error { return EnsureLayout(tx, want) }))
	}
}

func TestDetectLayout_CorruptMarker(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for _, raw := range [][]byte{{1}, {0, 0, 0, 0, 0, 0, 0, 9}} {
		require.NoError(t, s.Update(ctx, func(tx Tx) error {
			_, _, err := tx.Put(NamespaceCounters, uint64(counterLayoutKey), raw)
			return err
		}))
		err := s.View(ctx, func(tx Tx) error { return CheckLayout(tx, LayoutSeparate) })
		assert.Equal(t, apperrors.CodeCorruption, apperrors.GetCode(err))
	}
}

func TestLayout_TicketCounter(t *testing.T) {
	assert.Equal(t, CounterTickets, LayoutSeparate.TicketCounter())
	assert.Equal(t, CounterEntities, LayoutShared.TicketCounter())
	assert.Equal(t, "layout(7)", Layout(7).String())
}
