// Package types defines the records persisted by EventSphere.
package types

import "strings"

// Attendee is a name attached to an event. Attendees have no identity of
// their own and are never removed once added.
type Attendee struct {
	Name string `cbor:"1,keyasint" json:"attendee_name"`
}

// Event is an organised occasion that tickets are sold for.
type Event struct {
	ID        uint64     `cbor:"1,keyasint" json:"id"`
	Name      string     `cbor:"2,keyasint" json:"event_name"`
	Details   string     `cbor:"3,keyasint" json:"details"`
	Location  string     `cbor:"4,keyasint" json:"location"`
	StartDate Date       `cbor:"5,keyasint" json:"start_date"`
	EndDate   Date       `cbor:"6,keyasint" json:"end_date"`
	CreatedAt int64      `cbor:"7,keyasint" json:"timestamp"` // unix nanoseconds
	Attendees []Attendee `cbor:"8,keyasint,omitempty" json:"attendees"`
}

// HasName reports whether the event's name matches name, ignoring case.
func (e *Event) HasName(name string) bool {
	return strings.EqualFold(e.Name, name)
}
