package repository

import (
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// Users is the repository of user records.
type Users struct {
	table[types.User]
}

// NewUsers returns the users repository.
func NewUsers(maxRecordSize int) *Users {
	return &Users{newTable(store.NamespaceUsers, maxRecordSize, func(u types.User) uint64 { return u.ID })}
}

// FindByUsername returns the first user, in identifier order, whose
// username matches exactly.
func (r *Users) FindByUsername(tx store.Tx, username string) (*types.User, error) {
	return r.findFirst(tx, func(u types.User) bool { return u.Username == username })
}
