package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	grpcapi "github.com/eventsphere/eventsphere/internal/api/grpc"
	"github.com/eventsphere/eventsphere/internal/config"
	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	cfg.Auth.Hasher = "sha256"
	return cfg
}

func startApp(t *testing.T, cfg *config.Config) *App {
	t.Helper()
	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))
	t.Cleanup(func() { _ = a.Stop(context.Background()) })
	return a
}

func TestApp_ServesHTTPAndGRPC(t *testing.T) {
	cfg := testConfig(t)
	a := startApp(t, cfg)

	resp, err := http.Get("http://" + a.HTTPAddr() + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, _ := json.Marshal(map[string]string{
		"username": "root", "email": "root@example.com", "password": "pw", "role": "Admin",
	})
	resp, err = http.Post("http://"+a.HTTPAddr()+"/v1/users", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	conn, err := grpc.NewClient(a.GRPCAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	_, err = grpcapi.NewTicketsClient(conn).GetEvent(ctx, &grpcapi.GetEventRequest{EventID: 42})
	assert.Equal(t, codes.NotFound, status.Code(err))

	a.SetServing(false)
	hc, err = healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcapi.ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, hc.Status)
}

func TestApp_StartTwice(t *testing.T) {
	a := startApp(t, testConfig(t))
	assert.Error(t, a.Start(context.Background()))
}

func TestApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Type = "postgres"
	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestApp_GRPCDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.GRPC.Enabled = false
	a := startApp(t, cfg)
	assert.Empty(t, a.GRPCAddr())
	assert.NotEmpty(t, a.HTTPAddr())
}

func TestApp_StopTakesFinalSnapshotAndPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Type = "sqlite"
	cfg.Backup.Enabled = true
	cfg.Backup.Interval = time.Hour

	a, err := New(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, a.Start(context.Background()))

	body, _ := json.Marshal(map[string]string{
		"username": "root", "email": "root@example.com", "password": "pw", "role": "Admin",
	})
	resp, err := http.Post("http://"+a.HTTPAddr()+"/v1/users", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, a.Stop(context.Background()))
	require.NoError(t, a.Stop(context.Background()))

	snaps, err := filepath.Glob(filepath.Join(cfg.Backup.Storage.Path, "snapshots", "*.esnp"))
	require.NoError(t, err)
	assert.Len(t, snaps, 1)

	// The snapshot restores into a fresh store.
	fresh := store.NewMemoryStore()
	m, err := NewBackupManager(context.Background(), cfg, fresh, nil)
	require.NoError(t, err)
	info, err := m.Restore(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, info.Entries) // the user and the users counter

	_, err = os.Stat(cfg.Store.Path)
	assert.NoError(t, err)
}

func TestApp_RefusesStoreWrittenWithOtherCounterLayout(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Type = "sqlite"
	cfg.GRPC.Enabled = false

	a, err := New(cfg, nil)
	require.NoError(t, err)

	s, err := OpenStore(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		return store.EnsureLayout(tx, store.LayoutShared)
	}))
	require.NoError(t, s.Close())

	err = a.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared_entity_counter")

	cfg.Store.SharedEntityCounter = true
	a = startApp(t, cfg)
	assert.NotEmpty(t, a.HTTPAddr())
}
