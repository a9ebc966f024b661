package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a calendar day as supplied by event organisers.
// Only well-formedness is checked: day, month and year must all be present
// as non-negative integers. Start and end dates are not cross-validated.
type Date struct {
	Day   uint32 `cbor:"1,keyasint" json:"day"`
	Month uint32 `cbor:"2,keyasint" json:"month"`
	Year  uint32 `cbor:"3,keyasint" json:"year"`
}

// ParseDate parses a DD-MM-YYYY string.
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	var fields [3]uint32
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
		}
		fields[i] = uint32(v)
	}

	return Date{Day: fields[0], Month: fields[1], Year: fields[2]}, nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Day: uint32(d), Month: uint32(m), Year: uint32(y)}
}

// Compare orders dates by year, then month, then day.
// Returns -1 if d < other, 0 if equal, 1 if d > other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmp3(d.Year, other.Year)
	case d.Month != other.Month:
		return cmp3(d.Month, other.Month)
	default:
		return cmp3(d.Day, other.Day)
	}
}

// String renders the date in the same DD-MM-YYYY layout ParseDate accepts.
func (d Date) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, d.Month, d.Year)
}

func cmp3(a, b uint32) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
