// Package service implements the EventSphere command surface: one method
// per operation, each running in a single store transaction.
//
// Mutations run inside one Store.Update, so authentication, validation,
// identifier allocation and every write of an operation commit together or
// not at all. Queries run inside one Store.View.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventsphere/eventsphere/internal/auth"
	"github.com/eventsphere/eventsphere/internal/clock"
	apperrors "github.com/eventsphere/eventsphere/internal/errors"
	"github.com/eventsphere/eventsphere/internal/inventory"
	"github.com/eventsphere/eventsphere/internal/observability"
	"github.com/eventsphere/eventsphere/internal/repository"
	"github.com/eventsphere/eventsphere/internal/store"
)

// Options configures a Service. Zero values select defaults.
type Options struct {
	// MaxRecordSize bounds one encoded record. Defaults to
	// store.DefaultMaxRecordSize.
	MaxRecordSize int

	// SharedEntityCounter draws event and ticket identifiers from one
	// counter instead of one counter each. A store keeps the layout it
	// first issued tickets with; see CheckLayout.
	SharedEntityCounter bool

	// MaxGenerate caps the seats one GenerateTickets call creates.
	// Defaults to inventory.DefaultMaxGenerate.
	MaxGenerate uint32

	// Hasher hashes new passwords and verifies presented ones.
	Hasher auth.Hasher

	Clock  clock.Clock
	Stats  *observability.OpStats
	Logger *slog.Logger
}

// Service is the command surface over one store.
type Service struct {
	store     store.Store
	events    *repository.Events
	users     *repository.Users
	tickets   *repository.Tickets
	auth      *auth.Authenticator
	inventory *inventory.Manager
	eventIDs  *store.Allocator
	userIDs   *store.Allocator

	clock  clock.Clock
	stats  *observability.OpStats
	logger *slog.Logger
}

// New wires a Service over s.
func New(s store.Store, opts Options) *Service {
	if opts.Hasher == nil {
		opts.Hasher = &auth.Argon2Hasher{Params: auth.DefaultArgon2Params()}
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Stats == nil {
		opts.Stats = observability.NewOpStats(time.Hour, opts.Clock)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	layout := store.LayoutSeparate
	if opts.SharedEntityCounter {
		layout = store.LayoutShared
	}

	events := repository.NewEvents(opts.MaxRecordSize)
	users := repository.NewUsers(opts.MaxRecordSize)
	tickets := repository.NewTickets(opts.MaxRecordSize)

	return &Service{
		store:     s,
		events:    events,
		users:     users,
		tickets:   tickets,
		auth:      auth.NewAuthenticator(users, opts.Hasher),
		inventory: inventory.NewManager(events, tickets, inventory.Config{Layout: layout, MaxGenerate: opts.MaxGenerate}),
		eventIDs:  store.NewAllocator(store.CounterEntities),
		userIDs:   store.NewAllocator(store.CounterUsers),
		clock:     opts.Clock,
		stats:     opts.Stats,
		logger:    opts.Logger.With("component", "service"),
	}
}

// Stats returns the per-operation statistics.
func (s *Service) Stats() *observability.OpStats {
	return s.stats
}

// CheckLayout fails with STORAGE:COUNTER_LAYOUT_MISMATCH when the store's
// tickets were numbered with the other counter layout. Switching layouts on
// a populated store would hand out identifiers that live batches hold.
func (s *Service) CheckLayout(ctx context.Context) error {
	return s.store.View(ctx, s.inventory.CheckLayout)
}

// update runs fn as operation op in one read-write transaction.
func (s *Service) update(ctx context.Context, op string, fn func(tx store.Tx) error, attrs ...any) error {
	start := time.Now()
	err := s.store.Update(ctx, fn)
	s.observe(ctx, op, true, start, err, attrs)
	return err
}

// view runs fn as operation op in one read-only transaction.
func (s *Service) view(ctx context.Context, op string, fn func(tx store.Tx) error, attrs ...any) error {
	start := time.Now()
	err := s.store.View(ctx, fn)
	s.observe(ctx, op, false, start, err, attrs)
	return err
}

func (s *Service) observe(ctx context.Context, op string, mutation bool, start time.Time, err error, attrs []any) {
	elapsed := time.Since(start)
	outcome := observability.OutcomeOK
	if err != nil {
		outcome = apperrors.GetCode(err)
		if outcome == "" {
			outcome = apperrors.CodeUnexpected
		}
	}
	s.stats.Record(op, outcome, elapsed)

	attrs = append(attrs, "op", op, "duration", elapsed)
	switch {
	case err == nil && mutation:
		s.logger.InfoContext(ctx, "operation completed", attrs...)
	case err == nil:
		s.logger.DebugContext(ctx, "operation completed", attrs...)
	case apperrors.IsConsistency(err):
		s.logger.WarnContext(ctx, "operation hit an inventory inconsistency", append(attrs, "error", err)...)
	case isServerFault(err):
		s.logger.ErrorContext(ctx, "operation failed", append(attrs, "error", err)...)
	default:
		s.logger.DebugContext(ctx, "operation rejected", append(attrs, "error", err)...)
	}
}

func isServerFault(err error) bool {
	switch apperrors.GetCategory(err) {
	case apperrors.ErrCategoryStorage, apperrors.ErrCategoryInternal, "":
		return true
	default:
		return false
	}
}

func requireFields(fields ...string) error {
	for i := 0; i < len(fields); i += 2 {
		if fields[i+1] == "" {
			return apperrors.NewValidationError(apperrors.CodeEmptyField,
				fmt.Sprintf("%s must not be empty", fields[i]))
		}
	}
	return nil
}
