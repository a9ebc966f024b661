package repository

import (
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/eventsphere/eventsphere/pkg/types"
)

// Events is the repository of event records.
type Events struct {
	table[types.Event]
}

// NewEvents returns the events repository.
func NewEvents(maxRecordSize int) *Events {
	return &Events{newTable(store.NamespaceEvents, maxRecordSize, func(e types.Event) uint64 { return e.ID })}
}

// FindByName returns the first event, in identifier order, whose name
// equals name under Unicode case folding.
func (r *Events) FindByName(tx store.Tx, name string) (*types.Event, error) {
	return r.findFirst(tx, func(e types.Event) bool { return e.HasName(name) })
}
