package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketType(t *testing.T) {
	for _, tt := range TicketTypes() {
		parsed, err := ParseTicketType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, parsed)
	}

	parsed, err := ParseTicketType("vvip")
	require.NoError(t, err)
	assert.Equal(t, TicketVVIP, parsed)

	_, err = ParseTicketType("Backstage")
	assert.True(t, errors.Is(err, ErrUnknownTicketType))
}

func TestTicketType_JSON(t *testing.T) {
	data, err := json.Marshal(Ticket{ID: 3, EventID: 1, Type: TicketDiscount, Price: 50, NumTickets: 1})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ticket_type":"Discount"`)

	var back Ticket
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, TicketDiscount, back.Type)

	_, err = json.Marshal(TicketType(9))
	assert.Error(t, err)
}

func TestTicket_Matches(t *testing.T) {
	tk := Ticket{EventID: 4, Type: TicketVIP}
	assert.True(t, tk.Matches(4, TicketVIP))
	assert.False(t, tk.Matches(4, TicketVVIP))
	assert.False(t, tk.Matches(5, TicketVIP))
}

func TestRole_Satisfies(t *testing.T) {
	assert.True(t, RoleAdmin.Satisfies(RoleAdmin))
	assert.True(t, RoleAdmin.Satisfies(RoleUser))
	assert.True(t, RoleUser.Satisfies(RoleUser))
	assert.False(t, RoleUser.Satisfies(RoleAdmin))
	assert.False(t, Role(7).Satisfies(RoleUser))
}

func TestUser_JSONOmitsPasswordHash(t *testing.T) {
	data, err := json.Marshal(User{ID: 1, Username: "alice", PasswordHash: "secret-hash", Role: RoleUser})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.Contains(t, string(data), `"role":"User"`)
}

func TestEvent_HasNameIgnoresCase(t *testing.T) {
	e := Event{ID: 1, Name: "Gig"}
	assert.True(t, e.HasName("GIG"))
	assert.False(t, e.HasName("Gigs"))
}
