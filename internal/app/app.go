// Package app wires the store, the service and its transports into one
// process and manages their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	grpcapi "github.com/eventsphere/eventsphere/internal/api/grpc"
	httpapi "github.com/eventsphere/eventsphere/internal/api/http"
	"github.com/eventsphere/eventsphere/internal/auth"
	"github.com/eventsphere/eventsphere/internal/backup"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/server"
	"github.com/eventsphere/eventsphere/internal/service"
	"github.com/eventsphere/eventsphere/internal/storage"
	"github.com/eventsphere/eventsphere/internal/store"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// App owns every long-lived component of an eventsphere process.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	store    store.Store
	svc      *service.Service
	backups  *backup.Manager
	shutdown *server.ShutdownManager

	httpServer   *http.Server
	httpListener net.Listener
	grpcServer   *grpc.Server
	grpcHealth   *health.Server
	grpcListener net.Listener

	mu      sync.Mutex
	running bool
	wg      sync.WaitGroup
}

// New resolves and validates cfg and prepares the data directories.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &App{cfg: cfg, logger: logger}, nil
}

// Start opens the store and starts the transports and the backup daemon.
// Listeners are bound before Start returns.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig(), a.logger)

	if err := a.initService(ctx); err != nil {
		a.abort()
		return err
	}
	if a.cfg.Backup.Enabled {
		if err := a.startBackups(ctx); err != nil {
			a.abort()
			return fmt.Errorf("failed to start backups: %w", err)
		}
	}
	if a.cfg.GRPC.Enabled {
		if err := a.startGRPC(); err != nil {
			a.abort()
			return fmt.Errorf("failed to start gRPC server: %w", err)
		}
	}
	if err := a.startHTTP(); err != nil {
		a.abort()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	a.logger.Info("eventsphere started",
		"store", a.cfg.Store.Type,
		"http", a.HTTPAddr(),
		"grpc", a.GRPCAddr(),
		"backup", a.cfg.Backup.Enabled,
	)
	return nil
}

func (a *App) initService(ctx context.Context) error {
	s, err := OpenStore(a.cfg)
	if err != nil {
		return err
	}
	a.store = s
	a.shutdown.RegisterCloser("store", s)

	hasher, err := auth.NewHasher(a.cfg.Auth.Hasher, auth.Argon2Params{
		Time:      a.cfg.Auth.Argon2.Time,
		MemoryKiB: a.cfg.Auth.Argon2.MemoryKiB,
		Threads:   a.cfg.Auth.Argon2.Threads,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize hasher: %w", err)
	}

	a.svc = service.New(s, service.Options{
		MaxRecordSize:       a.cfg.Store.MaxRecordBytes,
		SharedEntityCounter: a.cfg.Store.SharedEntityCounter,
		MaxGenerate:         uint32(a.cfg.Tickets.MaxGenerate),
		Hasher:              hasher,
		Logger:              a.logger,
	})
	if err := a.svc.CheckLayout(ctx); err != nil {
		return fmt.Errorf("store.shared_entity_counter does not match the store: %w", err)
	}
	return nil
}

func (a *App) startBackups(ctx context.Context) error {
	m, err := NewBackupManager(ctx, a.cfg, a.store, a.logger)
	if err != nil {
		return err
	}
	if err := m.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	a.backups = m

	// Runs after the transports have drained, so the final snapshot
	// holds every acknowledged write.
	a.shutdown.RegisterCloser("backup", server.CloserFunc(func() error {
		if err := m.Stop(); err != nil {
			return err
		}
		snapCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, err := m.Snapshot(snapCtx)
		return err
	}))
	return nil
}

func (a *App) startGRPC() error {
	lis, err := net.Listen("tcp", a.cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC address: %w", err)
	}
	a.grpcListener = lis
	a.grpcServer, a.grpcHealth = grpcapi.NewServer(a.svc, a.logger,
		grpc.ChainUnaryInterceptor(server.UnaryShutdownInterceptor(a.shutdown)))

	a.shutdown.RegisterCloser("grpc", server.CloserFunc(func() error {
		a.grpcHealth.Shutdown()
		a.grpcServer.GracefulStop()
		return nil
	}))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("gRPC server listening", "addr", lis.Addr().String())
		if err := a.grpcServer.Serve(lis); err != nil {
			a.logger.Error("gRPC server error", "error", err)
		}
	}()
	return nil
}

func (a *App) startHTTP() error {
	lis, err := net.Listen("tcp", a.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on HTTP address: %w", err)
	}
	a.httpListener = lis

	handler := httpapi.NewHandler(a.svc, a.logger)
	a.httpServer = &http.Server{
		Handler:      server.ShutdownMiddleware(a.shutdown)(handler.Router()),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.RegisterCloser("http", server.HTTPServerCloser(a.httpServer, 10*time.Second))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("HTTP server listening", "addr", lis.Addr().String())
		if err := a.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("HTTP server error", "error", err)
		}
	}()
	return nil
}

// abort releases whatever a failed Start managed to acquire.
func (a *App) abort() {
	_ = a.shutdown.Shutdown(context.Background(), "startup failed")
	a.wg.Wait()
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// Wait blocks until a termination signal arrives or ctx is done, then
// shuts the app down.
func (a *App) Wait(ctx context.Context) error {
	err := a.shutdown.ListenForSignals(ctx)
	a.wg.Wait()
	return err
}

// Stop shuts the app down: in-flight calls drain, the transports stop,
// a final snapshot is taken when backups are enabled, and the store closes.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	err := a.shutdown.Shutdown(ctx, "stop requested")
	a.wg.Wait()
	return err
}

// Service returns the command surface, for embedding and tests.
func (a *App) Service() *service.Service {
	return a.svc
}

// HTTPAddr returns the bound HTTP address.
func (a *App) HTTPAddr() string {
	if a.httpListener == nil {
		return ""
	}
	return a.httpListener.Addr().String()
}

// GRPCAddr returns the bound gRPC address, or "" when gRPC is disabled.
func (a *App) GRPCAddr() string {
	if a.grpcListener == nil {
		return ""
	}
	return a.grpcListener.Addr().String()
}

// SetServing flips the gRPC health status, for maintenance windows.
func (a *App) SetServing(serving bool) {
	if a.grpcHealth == nil {
		return
	}
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		st = healthpb.HealthCheckResponse_SERVING
	}
	a.grpcHealth.SetServingStatus(grpcapi.ServiceName, st)
	a.grpcHealth.SetServingStatus("", st)
}

// OpenStore opens the store selected by cfg.
func OpenStore(cfg *config.Config) (store.Store, error) {
	s, err := store.Open(store.Options{Type: cfg.Store.Type, Path: cfg.Store.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Type, err)
	}
	return s, nil
}

// NewBackupManager builds a snapshot manager over s using the backup
// storage described by cfg.
func NewBackupManager(ctx context.Context, cfg *config.Config, s store.Store, logger *slog.Logger) (*backup.Manager, error) {
	s3Cfg := storage.DefaultS3Config()
	if cfg.Backup.Storage.S3.Region != "" {
		s3Cfg.Region = cfg.Backup.Storage.S3.Region
	}
	if cfg.Backup.Storage.S3.Endpoint != "" {
		s3Cfg.Endpoint = cfg.Backup.Storage.S3.Endpoint
		s3Cfg.UsePathStyle = true
	}

	objects, err := storage.Open(ctx, storage.Options{
		Type:   cfg.Backup.Storage.Type,
		Path:   cfg.Backup.Storage.Path,
		Bucket: cfg.Backup.Storage.S3.Bucket,
		S3:     s3Cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize backup storage: %w", err)
	}

	return backup.NewManager(backup.Config{
		Interval: cfg.Backup.Interval,
		Retain:   cfg.Backup.Retain,
		WorkDir:  cfg.WorkDir(),
	}, s, objects, nil, logger), nil
}
