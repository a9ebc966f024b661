package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// TicketType is the closed set of ticket classes an event can sell.
type TicketType uint8

const (
	TicketRegular TicketType = iota
	TicketVIP
	TicketVVIP
	TicketDiscount
)

var ticketTypeLabels = [...]string{
	TicketRegular:  "Regular",
	TicketVIP:      "VIP",
	TicketVVIP:     "VVIP",
	TicketDiscount: "Discount",
}

// TicketTypes lists every valid ticket type.
func TicketTypes() []TicketType {
	return []TicketType{TicketRegular, TicketVIP, TicketVVIP, TicketDiscount}
}

// Valid reports whether t is one of the known ticket types.
func (t TicketType) Valid() bool {
	return int(t) < len(ticketTypeLabels)
}

func (t TicketType) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TicketType(%d)", uint8(t))
	}
	return ticketTypeLabels[t]
}

// ParseTicketType maps a label to its ticket type, ignoring case.
func ParseTicketType(s string) (TicketType, error) {
	for i, label := range ticketTypeLabels {
		if strings.EqualFold(label, s) {
			return TicketType(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTicketType, s)
}

// MarshalJSON encodes the type as its label.
func (t TicketType) MarshalJSON() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTicketType, uint8(t))
	}
	return json.Marshal(t.String())
}

// UnmarshalJSON accepts the label form produced by MarshalJSON.
func (t *TicketType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTicketType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Ticket is a batch record: NumTickets interchangeable seats of one type
// for one event. A live batch always holds at least one seat.
type Ticket struct {
	ID         uint64     `cbor:"1,keyasint" json:"ticket_id"`
	EventID    uint64     `cbor:"2,keyasint" json:"event_id"`
	Type       TicketType `cbor:"3,keyasint" json:"ticket_type"`
	Price      uint64     `cbor:"4,keyasint" json:"ticket_price"`
	NumTickets uint32     `cbor:"5,keyasint" json:"num_tickets"`
}

// Matches reports whether the batch sells tickets of type tt for eventID.
func (t *Ticket) Matches(eventID uint64, tt TicketType) bool {
	return t.EventID == eventID && t.Type == tt
}
