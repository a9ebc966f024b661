// Package observability tracks per-operation call statistics for the
// command surface.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/eventsphere/eventsphere/internal/clock"
)

// OutcomeOK is the outcome recorded for a successful call.
const OutcomeOK = "OK"

// OpStats tracks call counts, outcomes and latency per operation.
type OpStats struct {
	mu     sync.RWMutex
	ops    map[string]*OperationStats
	window time.Duration
	clock  clock.Clock
}

// OperationStats holds statistics for one operation.
type OperationStats struct {
	Operation     string         `json:"operation"`
	Calls         int64          `json:"calls"`
	Errors        int64          `json:"errors"`
	TotalDuration time.Duration  `json:"total_duration_ns"`
	LastSeen      time.Time      `json:"last_seen"`
	Outcomes      map[string]int `json:"outcomes"` // error code or OK → count
}

// NewOpStats creates an operation statistics tracker.
// window: entries idle for longer than this are dropped by Prune.
func NewOpStats(window time.Duration, c clock.Clock) *OpStats {
	if c == nil {
		c = clock.System{}
	}
	return &OpStats{
		ops:    make(map[string]*OperationStats),
		window: window,
		clock:  c,
	}
}

// Record adds one call of op. outcome is OutcomeOK or the error code the
// call failed with. This method is O(1) and thread-safe.
func (s *OpStats) Record(op, outcome string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, exists := s.ops[op]
	if !exists {
		stats = &OperationStats{
			Operation: op,
			Outcomes:  make(map[string]int),
		}
		s.ops[op] = stats
	}

	stats.Calls++
	if outcome != OutcomeOK {
		stats.Errors++
	}
	stats.TotalDuration += d
	stats.LastSeen = s.clock.Now()
	stats.Outcomes[outcome]++
}

// Get returns a copy of the statistics for op.
func (s *OpStats) Get(op string) (OperationStats, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats, ok := s.ops[op]
	if !ok {
		return OperationStats{}, false
	}
	return stats.copy(), true
}

// Top returns the n most-called operations, most called first.
func (s *OpStats) Top(n int) []OperationStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.ops) == 0 {
		return []OperationStats{}
	}

	out := make([]OperationStats, 0, len(s.ops))
	for _, st := range s.ops {
		out = append(out, st.copy())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].Operation < out[j].Operation
	})

	if n > len(out) {
		n = len(out)
	}
	return out[:n]
}

// Snapshot returns every operation's statistics, most called first.
func (s *OpStats) Snapshot() []OperationStats {
	s.mu.RLock()
	n := len(s.ops)
	s.mu.RUnlock()
	return s.Top(n)
}

// Prune removes operations not seen within the window.
func (s *OpStats) Prune() {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := s.clock.Now().Add(-s.window)
	for op, st := range s.ops {
		if st.LastSeen.Before(threshold) {
			delete(s.ops, op)
		}
	}
}

func (st *OperationStats) copy() OperationStats {
	c := *st
	c.Outcomes = make(map[string]int, len(st.Outcomes))
	for k, v := range st.Outcomes {
		c.Outcomes[k] = v
	}
	return c
}
