package store

import (
	"context"
	"strings"
	"testing"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `cbor:"1,keyasint"`
	Count uint32 `cbor:"2,keyasint"`
}

func TestMap_InsertGetRemove(t *testing.T) {
	s := NewMemoryStore()
	m := NewMap[sample](NamespaceEvents, 0)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		prev, err := m.Insert(tx, 1, sample{Name: "a", Count: 1})
		require.NoError(t, err)
		assert.Nil(t, prev)

		prev, err = m.Insert(tx, 1, sample{Name: "b", Count: 2})
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, sample{Name: "a", Count: 1}, *prev)
		return nil
	}))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		got, err := m.Get(tx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "b", got.Name)

		missing, err := m.Get(tx, 2)
		require.NoError(t, err)
		assert.Nil(t, missing)
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		removed, err := m.Remove(tx, 1)
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, uint32(2), removed.Count)

		removed, err = m.Remove(tx, 1)
		require.NoError(t, err)
		assert.Nil(t, removed)
		return nil
	}))
}

func TestMap_Scan(t *testing.T) {
	s := NewMemoryStore()
	m := NewMap[sample](NamespaceTickets, 0)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		for _, k := range []uint64{5, 3, 9} {
			if _, err := m.Insert(tx, k, sample{Count: uint32(k)}); err != nil {
				return err
			}
		}
		return nil
	}))

	var keys []uint64
	require.NoError(t, s.View(ctx, func(tx Tx) error {
		return m.Scan(tx, func(key uint64, rec sample) bool {
			assert.Equal(t, uint32(key), rec.Count)
			keys = append(keys, key)
			return true
		})
	}))
	assert.Equal(t, []uint64{3, 5, 9}, keys)
}

func TestMap_OversizeRecordRejected(t *testing.T) {
	s := NewMemoryStore()
	m := NewMap[sample](NamespaceEvents, 64)
	ctx := context.Background()

	err := s.Update(ctx, func(tx Tx) error {
		_, err := m.Insert(tx, 1, sample{Name: strings.Repeat("x", 128)})
		return err
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsSerialization(err))

	require.NoError(t, s.View(ctx, func(tx Tx) error {
		got, err := m.Get(tx, 1)
		require.NoError(t, err)
		assert.Nil(t, got)
		return nil
	}))
}

func TestMap_CorruptRecord(t *testing.T) {
	s := NewMemoryStore()
	m := NewMap[sample](NamespaceEvents, 0)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, func(tx Tx) error {
		_, _, err := tx.Put(NamespaceEvents, 1, []byte{0xff, 0x00, 0x13})
		return err
	}))

	err := s.View(ctx, func(tx Tx) error {
		_, err := m.Get(tx, 1)
		return err
	})
	assert.True(t, apperrors.IsSerialization(err))
}
