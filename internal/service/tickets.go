package service

import (
	"context"

	"github.com/eventsphere/eventsphere/internal/auth"
	"github.com/eventsphere/eventsphere/internal/inventory"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// GenerateTicketsInput describes Count new seats of one type and price.
type GenerateTicketsInput struct {
	EventID uint64
	Type    types.TicketType
	Price   uint64
	Count   uint32
}

// PurchaseInput describes a purchase of Count seats.
type PurchaseInput = inventory.PurchaseRequest

// PurchaseResult lists the consumed seats and their total cost.
type PurchaseResult = inventory.PurchaseResult

// GenerateTickets creates Count single-seat batches. Requires Admin.
func (s *Service) GenerateTickets(ctx context.Context, in GenerateTicketsInput, creds auth.Credentials) ([]types.Ticket, error) {
	var tickets []types.Ticket
	err := s.update(ctx, "generate_tickets", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleAdmin); err != nil {
			return err
		}
		var err error
		tickets, err = s.inventory.Generate(tx, in.EventID, in.Type, in.Price, in.Count)
		return err
	}, "event_id", in.EventID, "ticket_type", in.Type, "count", in.Count)
	return tickets, err
}

// GetTickets returns every batch of the event.
func (s *Service) GetTickets(ctx context.Context, eventID uint64) ([]types.Ticket, error) {
	var tickets []types.Ticket
	err := s.view(ctx, "get_tickets", func(tx store.Tx) error {
		var err error
		tickets, err = s.inventory.ForEvent(tx, eventID)
		return err
	}, "event_id", eventID)
	return tickets, err
}

// DeleteTicket removes one batch. Requires Admin.
func (s *Service) DeleteTicket(ctx context.Context, id uint64, creds auth.Credentials) (*types.Ticket, error) {
	var ticket *types.Ticket
	err := s.update(ctx, "delete_ticket", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleAdmin); err != nil {
			return err
		}
		var err error
		ticket, err = s.inventory.Remove(tx, id)
		return err
	}, "ticket_id", id)
	return ticket, err
}

// GetAvailableTicketsCount returns the unsold seats of the event and
// type; zero when there are none. Only storage faults are errors.
func (s *Service) GetAvailableTicketsCount(ctx context.Context, eventID uint64, tt types.TicketType) (uint64, error) {
	var n uint64
	err := s.view(ctx, "get_available_tickets_count", func(tx store.Tx) error {
		var err error
		n, err = s.inventory.AvailableCount(tx, eventID, tt)
		return err
	}, "event_id", eventID, "ticket_type", tt)
	return n, err
}

// PurchaseTicket buys in.Count seats for in.AttendeeName. Requires User.
func (s *Service) PurchaseTicket(ctx context.Context, in PurchaseInput, creds auth.Credentials) (*PurchaseResult, error) {
	var result *PurchaseResult
	err := s.update(ctx, "purchase_ticket", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleUser); err != nil {
			return err
		}
		var err error
		result, err = s.inventory.Purchase(tx, in)
		return err
	}, "event_id", in.EventID, "ticket_type", in.Type, "count", in.Count)
	return result, err
}
