package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Role is the privilege level of a registered user.
type Role uint8

const (
	RoleAdmin Role = iota
	RoleUser
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleUser:
		return "User"
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Satisfies reports whether a user holding r may perform an operation
// that requires at least min. Admin satisfies every requirement.
func (r Role) Satisfies(min Role) bool {
	switch min {
	case RoleAdmin:
		return r == RoleAdmin
	case RoleUser:
		return r == RoleAdmin || r == RoleUser
	default:
		return false
	}
}

// ParseRole maps "Admin" or "User" (any case) to a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// MarshalJSON encodes the role as its label.
func (r Role) MarshalJSON() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return json.Marshal(r.String())
}

// UnmarshalJSON accepts the label form produced by MarshalJSON.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is a registered account. PasswordHash never holds plaintext and is
// never rendered to JSON.
type User struct {
	ID           uint64 `cbor:"1,keyasint" json:"id"`
	Username     string `cbor:"2,keyasint" json:"username"`
	Email        string `cbor:"3,keyasint" json:"email"`
	PasswordHash string `cbor:"4,keyasint" json:"-"`
	Role         Role   `cbor:"5,keyasint" json:"role"`
	CreatedAt    int64  `cbor:"6,keyasint" json:"created_at"`
	UpdatedAt    *int64 `cbor:"7,keyasint,omitempty" json:"updated_at,omitempty"`
}
