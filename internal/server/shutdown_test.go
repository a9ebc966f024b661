package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func newManager() *ShutdownManager {
	return NewShutdownManager(ShutdownConfig{
		ShutdownTimeout: time.Second,
		DrainTimeout:    200 * time.Millisecond,
	}, nil)
}

func TestShutdown_ClosesInReverseOrder(t *testing.T) {
	sm := newManager()
	var order []string
	for _, name := range []string{"store", "grpc", "http"} {
		name := name
		sm.RegisterCloser(name, CloserFunc(func() error {
			order = append(order, name)
			return nil
		}))
	}

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	assert.Equal(t, []string{"http", "grpc", "store"}, order)
	assert.True(t, sm.IsShuttingDown())

	select {
	case <-sm.ShutdownCh():
	default:
		t.Fatal("shutdown channel not closed")
	}

	// Idempotent.
	require.NoError(t, sm.Shutdown(context.Background(), "again"))
	assert.Len(t, order, 3)
}

func TestShutdown_ReportsCloseError(t *testing.T) {
	sm := newManager()
	boom := errors.New("boom")
	sm.RegisterCloser("store", CloserFunc(func() error { return boom }))

	err := sm.Shutdown(context.Background(), "test")
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, sm.Shutdown(context.Background(), "again"), boom)
}

func TestShutdown_DrainTimeout(t *testing.T) {
	sm := newManager()
	require.True(t, sm.TrackRequest())
	assert.Equal(t, int64(1), sm.InFlightCount())

	err := sm.Shutdown(context.Background(), "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 in-flight")

	assert.False(t, sm.TrackRequest())
	sm.UntrackRequest()
	assert.Zero(t, sm.InFlightCount())
}

func TestShutdownMiddleware(t *testing.T) {
	sm := newManager()
	h := ShutdownMiddleware(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, int64(1), sm.InFlightCount())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, sm.InFlightCount())

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUnaryShutdownInterceptor(t *testing.T) {
	sm := newManager()
	intercept := UnaryShutdownInterceptor(sm)
	handler := func(ctx context.Context, req any) (any, error) { return "ok", nil }
	info := &grpc.UnaryServerInfo{FullMethod: "/x/y"}

	resp, err := intercept(context.Background(), nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp)

	require.NoError(t, sm.Shutdown(context.Background(), "test"))
	_, err = intercept(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestListenForSignals_ContextCancel(t *testing.T) {
	sm := newManager()
	closed := false
	sm.RegisterCloser("x", CloserFunc(func() error { closed = true; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sm.ListenForSignals(ctx))
	assert.True(t, closed)
}
