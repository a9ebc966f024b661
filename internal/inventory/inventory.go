// Package inventory implements ticket generation, availability and
// purchase over the tickets repository.
//
// Every method runs inside the caller's store transaction. Purchase relies
// on the transaction being a store Update: the availability check and the
// decrements happen in one serialized critical section, and any error
// rolls back every write made so far.
package inventory

import (
	"fmt"
	"math/bits"

	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/repository"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// DefaultMaxGenerate caps the seats one Generate call creates.
const DefaultMaxGenerate = 10000

// Config configures a Manager. Zero values select defaults.
type Config struct {
	// Layout selects the counter ticket identifiers are drawn from
	// (default: store.LayoutSeparate).
	Layout store.Layout

	// MaxGenerate caps the seats one Generate call creates (default:
	// DefaultMaxGenerate).
	MaxGenerate uint32
}

// Manager owns the ticket inventory.
type Manager struct {
	events      *repository.Events
	tickets     *repository.Tickets
	layout      store.Layout
	ids         *store.Allocator
	maxGenerate uint32
}

// NewManager creates an inventory manager.
func NewManager(events *repository.Events, tickets *repository.Tickets, cfg Config) *Manager {
	if cfg.Layout == 0 {
		cfg.Layout = store.LayoutSeparate
	}
	if cfg.MaxGenerate == 0 {
		cfg.MaxGenerate = DefaultMaxGenerate
	}
	return &Manager{
		events:      events,
		tickets:     tickets,
		layout:      cfg.Layout,
		ids:         store.NewAllocator(cfg.Layout.TicketCounter()),
		maxGenerate: cfg.MaxGenerate,
	}
}

// PurchaseRequest describes a purchase of Count tickets of one type.
type PurchaseRequest struct {
	EventID      uint64
	Type         types.TicketType
	AttendeeName string
	Count        uint32
}

// PurchaseResult lists the consumed tickets and what they cost in total.
type PurchaseResult struct {
	Tickets   []types.Ticket `json:"tickets"`
	TotalCost uint64         `json:"total_cost"`
}

// Generate creates count single-seat batches for the event, each with its
// own identifier, and returns them in identifier order. The store must have
// been numbered with the manager's counter layout, and every identifier
// drawn must be free; a clash is a consistency fault and rolls back.
func (m *Manager) Generate(tx store.Tx, eventID uint64, tt types.TicketType, price uint64, count uint32) ([]types.Ticket, error) {
	if !tt.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidTicket, "unknown ticket type")
	}
	if count == 0 {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidCount, "count must be at least 1")
	}
	if count > m.maxGenerate {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidCount,
			fmt.Sprintf("count must be at most %d", m.maxGenerate)).
			WithDetails(map[string]interface{}{"requested": count, "limit": m.maxGenerate})
	}
	if err := m.requireEvent(tx, eventID); err != nil {
		return nil, err
	}
	if err := store.EnsureLayout(tx, m.layout); err != nil {
		return nil, err
	}

	var out []types.Ticket
	for i := uint32(0); i < count; i++ {
		id, err := m.ids.Next(tx)
		if err != nil {
			return nil, err
		}
		t := types.Ticket{ID: id, EventID: eventID, Type: tt, Price: price, NumTickets: 1}
		prev, err := m.tickets.Put(tx, t)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return nil, apperrors.NewConsistencyError(
				fmt.Sprintf("ticket id %d issued while batch for event %d still holds it", id, prev.EventID))
		}
		out = append(out, t)
	}
	return out, nil
}

// CheckLayout fails when the store's tickets were numbered with another
// counter layout than the manager's.
func (m *Manager) CheckLayout(tx store.Tx) error {
	return store.CheckLayout(tx, m.layout)
}

// AvailableCount sums the remaining seats of the event and type. It is
// recomputed on every call and is zero when nothing matches.
func (m *Manager) AvailableCount(tx store.Tx, eventID uint64, tt types.TicketType) (uint64, error) {
	return m.tickets.SumAvailable(tx, eventID, tt)
}

// Purchase consumes req.Count seats from the lowest-identifier batches of
// the requested type and records the buyer as an attendee of the event.
func (m *Manager) Purchase(tx store.Tx, req PurchaseRequest) (*PurchaseResult, error) {
	if req.Count == 0 {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidCount, "count must be at least 1")
	}
	if req.AttendeeName == "" {
		return nil, apperrors.NewValidationError(apperrors.CodeEmptyField, "attendee name must not be empty")
	}
	if !req.Type.Valid() {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidTicket, "unknown ticket type")
	}

	event, err := m.events.Get(tx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, eventNotFound(req.EventID)
	}

	available, err := m.tickets.SumAvailable(tx, req.EventID, req.Type)
	if err != nil {
		return nil, err
	}
	if available < uint64(req.Count) {
		return nil, apperrors.NewInventoryError("not enough tickets available").
			WithDetails(map[string]interface{}{"available": available, "requested": req.Count})
	}

	first, err := m.tickets.FindFirst(tx, req.EventID, req.Type)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, apperrors.NewConsistencyError("available tickets counted but no batch found")
	}
	price := first.Price

	hi, total := bits.Mul64(price, uint64(req.Count))
	if hi != 0 {
		return nil, apperrors.NewValidationError(apperrors.CodeInvalidCount, "total cost overflows")
	}

	result := &PurchaseResult{Tickets: make([]types.Ticket, 0, req.Count), TotalCost: total}
	for i := uint32(0); i < req.Count; i++ {
		batch, err := m.tickets.FindFirst(tx, req.EventID, req.Type)
		if err != nil {
			return nil, err
		}
		if batch == nil {
			return nil, apperrors.NewConsistencyError(
				fmt.Sprintf("ticket batch vanished after %d of %d seats", i, req.Count))
		}

		seat := *batch
		seat.NumTickets = 1
		result.Tickets = append(result.Tickets, seat)

		batch.NumTickets--
		if batch.NumTickets == 0 {
			_, err = m.tickets.Remove(tx, batch.ID)
		} else {
			_, err = m.tickets.Put(tx, *batch)
		}
		if err != nil {
			return nil, err
		}
	}

	event.Attendees = append(event.Attendees, types.Attendee{Name: req.AttendeeName})
	if _, err := m.events.Put(tx, *event); err != nil {
		return nil, err
	}
	return result, nil
}

// Remove deletes one ticket batch.
func (m *Manager) Remove(tx store.Tx, ticketID uint64) (*types.Ticket, error) {
	t, err := m.tickets.Remove(tx, ticketID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperrors.NewNotFoundError(apperrors.CodeTicketNotFound,
			fmt.Sprintf("ticket %d not found", ticketID))
	}
	return t, nil
}

// ForEvent returns every batch of the event, or NOT_FOUND when there are
// none.
func (m *Manager) ForEvent(tx store.Tx, eventID uint64) ([]types.Ticket, error) {
	ts, err := m.tickets.FindByEvent(tx, eventID)
	if err != nil {
		return nil, err
	}
	if len(ts) == 0 {
		return nil, apperrors.NewNotFoundError(apperrors.CodeTicketNotFound,
			fmt.Sprintf("no tickets for event %d", eventID))
	}
	return ts, nil
}

// RemoveForEvent deletes every batch of the event and returns how many
// were removed.
func (m *Manager) RemoveForEvent(tx store.Tx, eventID uint64) (int, error) {
	ts, err := m.tickets.FindByEvent(tx, eventID)
	if err != nil {
		return 0, err
	}
	for _, t := range ts {
		if _, err := m.tickets.Remove(tx, t.ID); err != nil {
			return 0, err
		}
	}
	return len(ts), nil
}

func (m *Manager) requireEvent(tx store.Tx, eventID uint64) error {
	e, err := m.events.Get(tx, eventID)
	if err != nil {
		return err
	}
	if e == nil {
		return eventNotFound(eventID)
	}
	return nil
}

func eventNotFound(id uint64) error {
	return apperrors.NewNotFoundError(apperrors.CodeEventNotFound, fmt.Sprintf("event %d not found", id))
}
