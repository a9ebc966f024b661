package repository

import (
	"context"
	"testing"

	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, s store.Store, fn func(tx store.Tx)) {
	t.Helper()
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		fn(tx)
		return nil
	}))
}

func TestEvents_FindByName(t *testing.T) {
	s := store.NewMemoryStore()
	events := NewEvents(0)

	update(t, s, func(tx store.Tx) {
		for i, name := range []string{"Jazz Night", "STRASSE fest", "jazz night"} {
			_, err := events.Put(tx, types.Event{ID: uint64(i), Name: name})
			require.NoError(t, err)
		}

		got, err := events.FindByName(tx, "JAZZ NIGHT")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(0), got.ID)

		got, err = events.FindByName(tx, "strasse FEST")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(1), got.ID)

		got, err = events.FindByName(tx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}

func TestEvents_PutReplaces(t *testing.T) {
	s := store.NewMemoryStore()
	events := NewEvents(0)

	update(t, s, func(tx store.Tx) {
		prev, err := events.Put(tx, types.Event{ID: 3, Name: "old"})
		require.NoError(t, err)
		assert.Nil(t, prev)

		prev, err = events.Put(tx, types.Event{ID: 3, Name: "new"})
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, "old", prev.Name)

		all, err := events.FindAll(tx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestUsers_FindByUsername(t *testing.T) {
	s := store.NewMemoryStore()
	users := NewUsers(0)

	update(t, s, func(tx store.Tx) {
		_, err := users.Put(tx, types.User{ID: 1, Username: "alice"})
		require.NoError(t, err)
		_, err = users.Put(tx, types.User{ID: 2, Username: "Alice"})
		require.NoError(t, err)

		got, err := users.FindByUsername(tx, "Alice")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(2), got.ID)

		got, err = users.FindByUsername(tx, "bob")
		require.NoError(t, err)
		assert.Nil(t, got)

		removed, err := users.Remove(tx, 1)
		require.NoError(t, err)
		require.NotNil(t, removed)
		assert.Equal(t, "alice", removed.Username)
	})
}

func TestTickets_Queries(t *testing.T) {
	s := store.NewMemoryStore()
	tickets := NewTickets(0)

	batches := []types.Ticket{
		{ID: 10, EventID: 1, Type: types.TicketVIP, Price: 50, NumTickets: 2},
		{ID: 4, EventID: 1, Type: types.TicketVIP, Price: 60, NumTickets: 1},
		{ID: 5, EventID: 1, Type: types.TicketRegular, Price: 10, NumTickets: 3},
		{ID: 6, EventID: 2, Type: types.TicketVIP, Price: 70, NumTickets: 4},
	}

	update(t, s, func(tx store.Tx) {
		for _, b := range batches {
			_, err := tickets.Put(tx, b)
			require.NoError(t, err)
		}

		first, err := tickets.FindFirst(tx, 1, types.TicketVIP)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.Equal(t, uint64(4), first.ID)

		none, err := tickets.FindFirst(tx, 1, types.TicketDiscount)
		require.NoError(t, err)
		assert.Nil(t, none)

		byEvent, err := tickets.FindByEvent(tx, 1)
		require.NoError(t, err)
		assert.Len(t, byEvent, 3)

		byType, err := tickets.FindByType(tx, 1, types.TicketVIP)
		require.NoError(t, err)
		require.Len(t, byType, 2)
		assert.Equal(t, uint64(4), byType[0].ID)
		assert.Equal(t, uint64(10), byType[1].ID)

		sum, err := tickets.SumAvailable(tx, 1, types.TicketVIP)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), sum)

		sum, err = tickets.SumAvailable(tx, 3, types.TicketVIP)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), sum)
	})
}
