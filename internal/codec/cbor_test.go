package codec

import (
	"bytes"
	"testing"

	"github.com/eventsphere/eventsphere/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_Deterministic(t *testing.T) {
	ev := types.Event{
		ID:        9,
		Name:      "Launch",
		Details:   "Product launch",
		Location:  "Hall A",
		StartDate: types.Date{Day: 1, Month: 2, Year: 2027},
		EndDate:   types.Date{Day: 2, Month: 2, Year: 2027},
		CreatedAt: 1700000000,
		Attendees: []types.Attendee{{Name: "Ann"}},
	}

	a, err := Marshal(ev)
	require.NoError(t, err)
	b, err := Marshal(ev)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(a, b))

	var back types.Event
	require.NoError(t, Unmarshal(a, &back))
	assert.Equal(t, ev, back)
}

func TestUnmarshal_IgnoresUnknownFields(t *testing.T) {
	data, err := Marshal(map[int]any{1: uint64(3), 99: "future field"})
	require.NoError(t, err)

	var tk types.Ticket
	require.NoError(t, Unmarshal(data, &tk))
	assert.Equal(t, uint64(3), tk.ID)
}

func TestUnmarshal_Garbage(t *testing.T) {
	var tk types.Ticket
	assert.Error(t, Unmarshal([]byte{0xff, 0x00, 0x13}, &tk))
}
