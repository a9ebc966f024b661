package types

import "errors"

// Parsing errors for records supplied by callers.
var (
	// ErrInvalidDate is returned when a date string is not three
	// dash-separated non-negative integers (DD-MM-YYYY).
	ErrInvalidDate = errors.New("invalid date format")

	// ErrUnknownTicketType is returned for a label outside the closed
	// set of ticket types.
	ErrUnknownTicketType = errors.New("unknown ticket type")

	// ErrUnknownRole is returned for a label that is neither Admin nor User.
	ErrUnknownRole = errors.New("unknown role")
)
