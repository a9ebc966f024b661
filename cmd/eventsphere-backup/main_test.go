package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/eventsphere/eventsphere/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSQLite(t *testing.T, path string) {
	t.Helper()
	s, err := store.Open(store.Options{Type: store.TypeSQLite, Path: path})
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Update(context.Background(), func(tx store.Tx) error {
		for k := uint64(0); k < 3; k++ {
			if _, _, err := tx.Put(store.NamespaceEvents, k, []byte("event")); err != nil {
				return err
			}
		}
		_, _, err := tx.Put(store.NamespaceUsers, 0, []byte("user"))
		return err
	}))
}

func TestExportInspectRestore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srcDB := filepath.Join(dir, "src.db")
	dstDB := filepath.Join(dir, "dst.db")
	snap := filepath.Join(dir, "snap.esnp")
	seedSQLite(t, srcDB)

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"export", "--data-dir", dir, "--store-path", srcDB, "--out", snap}, &out))
	assert.Contains(t, out.String(), "4 entries")

	out.Reset()
	require.NoError(t, run(ctx, []string{"inspect", "--in", snap}, &out))
	assert.Contains(t, out.String(), "events")
	assert.Contains(t, out.String(), "users")

	out.Reset()
	require.NoError(t, run(ctx, []string{"restore", "--data-dir", dir, "--store-path", dstDB, "--in", snap}, &out))
	assert.Contains(t, out.String(), "restored 4 entries")

	// Restoring twice is refused because the target is no longer empty.
	err := run(ctx, []string{"restore", "--data-dir", dir, "--store-path", dstDB, "--in", snap}, &out)
	assert.Error(t, err)
}

func TestSnapshotToBackupStorage(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	srcDB := filepath.Join(dir, "src.db")
	seedSQLite(t, srcDB)

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"export", "--data-dir", dir, "--store-path", srcDB}, &out))
	assert.Contains(t, out.String(), "uploaded snapshots/")

	out.Reset()
	require.NoError(t, run(ctx, []string{"list", "--data-dir", dir}, &out))
	assert.Contains(t, out.String(), ".esnp")

	out.Reset()
	dstDB := filepath.Join(dir, "dst.db")
	require.NoError(t, run(ctx, []string{"restore", "--data-dir", dir, "--store-path", dstDB}, &out))
	assert.Contains(t, out.String(), "restored 4 entries")
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run(context.Background(), nil, &out))
	assert.Error(t, run(context.Background(), []string{"frobnicate"}, &out))
	require.NoError(t, run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "Commands:")
	assert.Error(t, run(context.Background(), []string{"inspect"}, &out))
	assert.Error(t, run(context.Background(), []string{"restore", "--in", "a", "--object", "b"}, &out))
}
