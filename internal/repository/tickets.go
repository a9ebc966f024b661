package repository

import (
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// Tickets is the repository of ticket batch records.
type Tickets struct {
	table[types.Ticket]
}

// NewTickets returns the tickets repository.
func NewTickets(maxRecordSize int) *Tickets {
	return &Tickets{newTable(store.NamespaceTickets, maxRecordSize, func(t types.Ticket) uint64 { return t.ID })}
}

// FindFirst returns the lowest-identifier batch for the event and type.
func (r *Tickets) FindFirst(tx store.Tx, eventID uint64, tt types.TicketType) (*types.Ticket, error) {
	return r.findFirst(tx, func(t types.Ticket) bool { return t.Matches(eventID, tt) })
}

// FindByEvent returns every batch of the event.
func (r *Tickets) FindByEvent(tx store.Tx, eventID uint64) ([]types.Ticket, error) {
	return r.FindBy(tx, func(t types.Ticket) bool { return t.EventID == eventID })
}

// FindByType returns every batch of the event with the given type.
func (r *Tickets) FindByType(tx store.Tx, eventID uint64, tt types.TicketType) ([]types.Ticket, error) {
	return r.FindBy(tx, func(t types.Ticket) bool { return t.Matches(eventID, tt) })
}

// SumAvailable totals NumTickets over the matching batches.
func (r *Tickets) SumAvailable(tx store.Tx, eventID uint64, tt types.TicketType) (uint64, error) {
	var total uint64
	err := r.m.Scan(tx, func(_ uint64, t types.Ticket) bool {
		if t.Matches(eventID, tt) {
			total += uint64(t.NumTickets)
		}
		return true
	})
	return total, err
}
