package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eventsphere/eventsphere/internal/clock"
	"github.com/eventsphere/eventsphere/internal/storage"
	"github.com/eventsphere/eventsphere/internal/store"
)

const (
	// SnapshotPrefix is the object prefix every snapshot is written under.
	SnapshotPrefix = "snapshots/"
	snapshotExt    = ".esnp"
)

// Config holds configuration for the snapshot manager.
type Config struct {
	// Interval is how often the daemon takes a snapshot (default: 1h).
	Interval time.Duration

	// Retain is how many of the newest snapshots are kept (default: 24).
	Retain int

	// WorkDir holds snapshot files while they are uploaded or downloaded.
	WorkDir string
}

// DefaultConfig returns the default snapshot configuration.
func DefaultConfig() Config {
	return Config{
		Interval: time.Hour,
		Retain:   24,
		WorkDir:  os.TempDir(),
	}
}

// Snapshot describes an uploaded snapshot.
type Snapshot struct {
	Object string
	Taken  time.Time
	ETag   string
	Info
}

// Manager takes snapshots of a store into object storage, prunes old ones
// and restores them. A Manager can also run as a daemon.
type Manager struct {
	config  Config
	store   store.Store
	objects storage.ObjectStorage
	clock   clock.Clock
	logger  *slog.Logger

	// serializes Snapshot and Restore
	opMu sync.Mutex
	// name stamp of the newest snapshot this manager wrote
	lastStamp int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager creates a snapshot manager. A nil clock uses the system clock
// and a nil logger uses slog.Default().
func NewManager(config Config, s store.Store, objects storage.ObjectStorage, clk clock.Clock, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Retain <= 0 {
		config.Retain = def.Retain
	}
	if config.WorkDir == "" {
		config.WorkDir = def.WorkDir
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		config:  config,
		store:   s,
		objects: objects,
		clock:   clk,
		logger:  logger.With("component", "backup"),
	}
}

// Snapshot exports the store, uploads it as snapshots/<unix-nanos>.esnp and
// prunes snapshots beyond the retention count. Names taken by one manager
// strictly increase, even when the clock stalls or steps back.
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	taken := m.clock.Now().UTC()
	stamp := taken.UnixNano()
	if stamp <= m.lastStamp {
		stamp = m.lastStamp + 1
	}
	object := objectName(stamp)

	if err := os.MkdirAll(m.config.WorkDir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create work dir: %w", err)
	}
	f, err := os.CreateTemp(m.config.WorkDir, "snapshot-*"+snapshotExt)
	if err != nil {
		return nil, fmt.Errorf("backup: create temp file: %w", err)
	}
	tmpPath := f.Name()
	defer os.Remove(tmpPath)

	info, err := Export(ctx, m.store, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("backup: close temp file: %w", cerr)
	}
	if err != nil {
		return nil, err
	}

	etag, err := m.objects.UploadMultipart(ctx, tmpPath, object)
	if err != nil {
		return nil, fmt.Errorf("backup: upload %s: %w", object, err)
	}

	m.lastStamp = stamp

	snap := &Snapshot{Object: object, Taken: taken, ETag: etag, Info: info}
	m.logger.Info("snapshot written",
		"object", object,
		"entries", info.Entries,
		"bytes", info.Bytes,
	)

	if _, err := m.prune(ctx); err != nil {
		// The snapshot itself is durable; retention catches up next run.
		m.logger.Warn("snapshot retention failed", "error", err)
	}
	return snap, nil
}

// List returns the snapshot object names, oldest first.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	objects, err := m.objects.ListObjects(ctx, SnapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("backup: list snapshots: %w", err)
	}

	type named struct {
		name string
		ts   int64
	}
	var snaps []named
	for _, obj := range objects {
		ts, ok := parseObjectName(obj)
		if !ok {
			continue
		}
		snaps = append(snaps, named{obj, ts})
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ts < snaps[j].ts })

	names := make([]string, len(snaps))
	for i, s := range snaps {
		names[i] = s.name
	}
	return names, nil
}

// Latest returns the newest snapshot object, or storage.ErrObjectNotFound
// when there is none.
func (m *Manager) Latest(ctx context.Context) (string, error) {
	names, err := m.List(ctx)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", storage.ErrObjectNotFound
	}
	return names[len(names)-1], nil
}

// Restore downloads object and imports it into the manager's store, which
// must be empty. An empty object name restores the latest snapshot.
func (m *Manager) Restore(ctx context.Context, object string) (Info, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	empty, err := store.IsEmpty(ctx, m.store)
	if err != nil {
		return Info{}, err
	}
	if !empty {
		return Info{}, store.ErrNotEmpty()
	}

	if object == "" {
		latest, err := m.Latest(ctx)
		if err != nil {
			return Info{}, err
		}
		object = latest
	}

	if err := os.MkdirAll(m.config.WorkDir, 0755); err != nil {
		return Info{}, fmt.Errorf("backup: create work dir: %w", err)
	}
	localPath := filepath.Join(m.config.WorkDir, "restore-"+path.Base(object))
	defer os.Remove(localPath)

	if err := m.objects.Download(ctx, object, localPath); err != nil {
		return Info{}, err
	}
	f, err := os.Open(localPath)
	if err != nil {
		return Info{}, fmt.Errorf("backup: open %s: %w", localPath, err)
	}
	defer f.Close()

	info, err := Import(ctx, m.store, f)
	if err != nil {
		return Info{}, err
	}
	m.logger.Info("snapshot restored", "object", object, "entries", info.Entries)
	return info, nil
}

// Prune deletes all but the newest Retain snapshots and returns the deleted
// object names.
func (m *Manager) Prune(ctx context.Context) ([]string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.prune(ctx)
}

func (m *Manager) prune(ctx context.Context) ([]string, error) {
	names, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) <= m.config.Retain {
		return nil, nil
	}

	expired := names[:len(names)-m.config.Retain]
	var deleted []string
	for _, name := range expired {
		if err := m.objects.Delete(ctx, name); err != nil {
			return deleted, fmt.Errorf("backup: delete %s: %w", name, err)
		}
		deleted = append(deleted, name)
	}
	if len(deleted) > 0 {
		m.logger.Debug("pruned snapshots", "count", len(deleted))
	}
	return deleted, nil
}

// Start begins the snapshot loop. It runs until the context is cancelled
// or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("backup: daemon is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.done = make(chan struct{})
	m.mu.Unlock()

	go m.run(ctx)
	return nil
}

// Stop halts the daemon and waits for an in-flight snapshot to finish.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return nil
	}

	m.cancel()
	<-m.done
	m.running = false
	return nil
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Snapshot(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("snapshot failed", "error", err)
			}
		}
	}
}

func objectName(stamp int64) string {
	return SnapshotPrefix + strconv.FormatInt(stamp, 10) + snapshotExt
}

func parseObjectName(object string) (int64, bool) {
	if !strings.HasPrefix(object, SnapshotPrefix) || !strings.HasSuffix(object, snapshotExt) {
		return 0, false
	}
	stem := strings.TrimSuffix(strings.TrimPrefix(object, SnapshotPrefix), snapshotExt)
	ts, err := strconv.ParseInt(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return ts, true
}
