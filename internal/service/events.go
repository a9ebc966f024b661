package service

import (
	"context"
	"fmt"

	"github.com/eventsphere/eventsphere/internal/auth"
	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// EventInput holds the organiser-supplied fields of an event. Dates use
// the DD-MM-YYYY layout.
type EventInput struct {
	Name      string
	Details   string
	Location  string
	StartDate string
	EndDate   string
}

// parse validates in and returns its dates. It allocates nothing, so a
// rejected input never consumes an identifier.
func (in EventInput) parse() (start, end types.Date, err error) {
	err = requireFields(
		"event name", in.Name,
		"details", in.Details,
		"location", in.Location,
		"start date", in.StartDate,
		"end date", in.EndDate,
	)
	if err != nil {
		return
	}
	if start, err = types.ParseDate(in.StartDate); err != nil {
		err = apperrors.Wrap(apperrors.ErrCategoryValidation, apperrors.CodeInvalidDate, "invalid start date", err)
		return
	}
	if end, err = types.ParseDate(in.EndDate); err != nil {
		err = apperrors.Wrap(apperrors.ErrCategoryValidation, apperrors.CodeInvalidDate, "invalid end date", err)
	}
	return
}

// AddEvent creates an event. Requires Admin.
func (s *Service) AddEvent(ctx context.Context, in EventInput, creds auth.Credentials) (*types.Event, error) {
	var event types.Event
	err := s.update(ctx, "add_event", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleAdmin); err != nil {
			return err
		}
		start, end, err := in.parse()
		if err != nil {
			return err
		}
		id, err := s.eventIDs.Next(tx)
		if err != nil {
			return err
		}
		event = types.Event{
			ID:        id,
			Name:      in.Name,
			Details:   in.Details,
			Location:  in.Location,
			StartDate: start,
			EndDate:   end,
			CreatedAt: s.clock.Now().UnixNano(),
		}
		_, err = s.events.Put(tx, event)
		return err
	}, "event_name", in.Name)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// UpdateEvent replaces the descriptive fields and dates of event id,
// keeping its identifier, creation time and attendees. Requires Admin.
func (s *Service) UpdateEvent(ctx context.Context, id uint64, in EventInput, creds auth.Credentials) (*types.Event, error) {
	var event *types.Event
	err := s.update(ctx, "update_event", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleAdmin); err != nil {
			return err
		}
		start, end, err := in.parse()
		if err != nil {
			return err
		}
		if event, err = s.requireEvent(tx, id); err != nil {
			return err
		}
		event.Name = in.Name
		event.Details = in.Details
		event.Location = in.Location
		event.StartDate = start
		event.EndDate = end
		_, err = s.events.Put(tx, *event)
		return err
	}, "event_id", id)
	if err != nil {
		return nil, err
	}
	return event, nil
}

// DeleteEvent removes event id together with all of its ticket batches.
// Requires Admin.
func (s *Service) DeleteEvent(ctx context.Context, id uint64, creds auth.Credentials) (*types.Event, error) {
	var removed *types.Event
	var batches int
	err := s.update(ctx, "delete_event", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleAdmin); err != nil {
			return err
		}
		var err error
		if removed, err = s.events.Remove(tx, id); err != nil {
			return err
		}
		if removed == nil {
			return eventNotFound(id)
		}
		batches, err = s.inventory.RemoveForEvent(tx, id)
		return err
	}, "event_id", id)
	if err != nil {
		return nil, err
	}
	if batches > 0 {
		s.logger.InfoContext(ctx, "removed ticket batches of deleted event", "event_id", id, "batches", batches)
	}
	return removed, nil
}

// GetEvent returns event id.
func (s *Service) GetEvent(ctx context.Context, id uint64) (*types.Event, error) {
	var event *types.Event
	err := s.view(ctx, "get_event", func(tx store.Tx) error {
		var err error
		event, err = s.requireEvent(tx, id)
		return err
	}, "event_id", id)
	return event, err
}

// GetEventByName returns the first event whose name matches name
// case-insensitively.
func (s *Service) GetEventByName(ctx context.Context, name string) (*types.Event, error) {
	var event *types.Event
	err := s.view(ctx, "get_event_by_name", func(tx store.Tx) error {
		if err := requireFields("event name", name); err != nil {
			return err
		}
		var err error
		if event, err = s.events.FindByName(tx, name); err != nil {
			return err
		}
		if event == nil {
			return apperrors.NewNotFoundError(apperrors.CodeEventNotFound,
				fmt.Sprintf("event named %q not found", name))
		}
		return nil
	}, "event_name", name)
	return event, err
}

// GetEvents returns every event in identifier order.
func (s *Service) GetEvents(ctx context.Context) ([]types.Event, error) {
	return s.listEvents(ctx, "get_events", "no events available", func(types.Event) bool { return true })
}

// GetUpcomingEvents returns the events whose end date is today or later.
func (s *Service) GetUpcomingEvents(ctx context.Context) ([]types.Event, error) {
	today := types.DateOf(s.clock.Now().UTC())
	return s.listEvents(ctx, "get_upcoming_events", "no upcoming events available", func(e types.Event) bool {
		return e.EndDate.Compare(today) >= 0
	})
}

// GetPastEvents returns the events whose end date is before today.
func (s *Service) GetPastEvents(ctx context.Context) ([]types.Event, error) {
	today := types.DateOf(s.clock.Now().UTC())
	return s.listEvents(ctx, "get_past_events", "no past events available", func(e types.Event) bool {
		return e.EndDate.Compare(today) < 0
	})
}

func (s *Service) listEvents(ctx context.Context, op, empty string, pred func(types.Event) bool) ([]types.Event, error) {
	var events []types.Event
	err := s.view(ctx, op, func(tx store.Tx) error {
		var err error
		if events, err = s.events.FindBy(tx, pred); err != nil {
			return err
		}
		if len(events) == 0 {
			return apperrors.NewNotFoundError(apperrors.CodeEventNotFound, empty)
		}
		return nil
	})
	return events, err
}

// AddAttendee appends name to the attendees of event id. Requires User.
func (s *Service) AddAttendee(ctx context.Context, id uint64, name string, creds auth.Credentials) error {
	return s.update(ctx, "add_attendee", func(tx store.Tx) error {
		if _, err := s.auth.Authenticate(tx, creds, types.RoleUser); err != nil {
			return err
		}
		if err := requireFields("attendee name", name); err != nil {
			return err
		}
		event, err := s.requireEvent(tx, id)
		if err != nil {
			return err
		}
		event.Attendees = append(event.Attendees, types.Attendee{Name: name})
		_, err = s.events.Put(tx, *event)
		return err
	}, "event_id", id)
}

// GetAttendees returns the attendees of event id in the order they were
// added.
func (s *Service) GetAttendees(ctx context.Context, id uint64) ([]types.Attendee, error) {
	var attendees []types.Attendee
	err := s.view(ctx, "get_attendees", func(tx store.Tx) error {
		event, err := s.requireEvent(tx, id)
		if err != nil {
			return err
		}
		attendees = event.Attendees
		return nil
	}, "event_id", id)
	if err != nil {
		return nil, err
	}
	if attendees == nil {
		attendees = []types.Attendee{}
	}
	return attendees, nil
}

func (s *Service) requireEvent(tx store.Tx, id uint64) (*types.Event, error) {
	e, err := s.events.Get(tx, id)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, eventNotFound(id)
	}
	return e, nil
}

func eventNotFound(id uint64) error {
	return apperrors.NewNotFoundError(apperrors.CodeEventNotFound, fmt.Sprintf("event %d not found", id))
}
