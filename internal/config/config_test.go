package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, filepath.Join(cfg.DataDir, "eventsphere.db"), cfg.Store.Path)
	assert.Equal(t, filepath.Join(cfg.DataDir, "backups"), cfg.Backup.Storage.Path)
}

func TestResolve_StorePathPerBackend(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/srv/es"
	cfg.Store.Type = "badger"
	cfg.Resolve()
	assert.Equal(t, filepath.Join("/srv/es", "badger"), cfg.Store.Path)

	cfg = DefaultConfig()
	cfg.Store.Type = "memory"
	cfg.Resolve()
	assert.Empty(t, cfg.Store.Path)

	cfg = DefaultConfig()
	cfg.Store.Path = "/elsewhere/x.db"
	cfg.Resolve()
	assert.Equal(t, "/elsewhere/x.db", cfg.Store.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"unknown store", func(c *Config) { c.Store.Type = "postgres" }},
		{"negative record bound", func(c *Config) { c.Store.MaxRecordBytes = -1 }},
		{"zero generate cap", func(c *Config) { c.Tickets.MaxGenerate = 0 }},
		{"generate cap beyond uint32", func(c *Config) { c.Tickets.MaxGenerate = 1 << 32 }},
		{"unknown hasher", func(c *Config) { c.Auth.Hasher = "md5" }},
		{"zero argon2 memory", func(c *Config) { c.Auth.Argon2.MemoryKiB = 0 }},
		{"backup zero retain", func(c *Config) { c.Backup.Enabled = true; c.Backup.Retain = 0 }},
		{"backup zero interval", func(c *Config) { c.Backup.Enabled = true; c.Backup.Interval = 0 }},
		{"backup of memory store", func(c *Config) { c.Backup.Enabled = true; c.Store.Type = "memory" }},
		{"unknown backup storage", func(c *Config) { c.Backup.Storage.Type = "gcs" }},
		{"s3 without bucket", func(c *Config) { c.Backup.Storage.Type = "s3" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.Auth.Hasher = "bcrypt"
	cfg.Auth.Argon2 = Argon2Config{}
	assert.NoError(t, cfg.Validate())
}

func TestLoadFromFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventsphere.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/eventsphere
http:
  addr: ":8181"
store:
  type: badger
  shared_entity_counter: true
backup:
  enabled: true
  interval: 30m
  retain: 3
  storage:
    type: s3
    s3:
      bucket: snaps
log:
  level: debug
  format: json
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/eventsphere", cfg.DataDir)
	assert.Equal(t, ":8181", cfg.HTTP.Addr)
	assert.Equal(t, ":9090", cfg.GRPC.Addr, "unset keys keep their defaults")
	assert.Equal(t, "badger", cfg.Store.Type)
	assert.True(t, cfg.Store.SharedEntityCounter)
	assert.Equal(t, 30*time.Minute, cfg.Backup.Interval)
	assert.Equal(t, 3, cfg.Backup.Retain)
	assert.Equal(t, "snaps", cfg.Backup.Storage.S3.Bucket)
	assert.Equal(t, "json", cfg.Log.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventsphere.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store":{"type":"memory"},"auth":{"hasher":"sha256"}}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, "sha256", cfg.Auth.Hasher)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "eventsphere.toml")
	require.NoError(t, os.WriteFile(path, []byte("x = 1"), 0644))
	_, err = LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EVENTSPHERE_DATA_DIR", "/tmp/es")
	t.Setenv("EVENTSPHERE_STORE_TYPE", "memory")
	t.Setenv("EVENTSPHERE_STORE_MAX_RECORD_BYTES", "4096")
	t.Setenv("EVENTSPHERE_TICKETS_MAX_GENERATE", "500")
	t.Setenv("EVENTSPHERE_GRPC_ENABLED", "false")
	t.Setenv("EVENTSPHERE_BACKUP_INTERVAL", "15m")
	t.Setenv("EVENTSPHERE_S3_REGION", "eu-west-1")

	cfg := DefaultConfig()
	require.NoError(t, LoadFromEnv(cfg))
	assert.Equal(t, "/tmp/es", cfg.DataDir)
	assert.Equal(t, "memory", cfg.Store.Type)
	assert.Equal(t, 4096, cfg.Store.MaxRecordBytes)
	assert.Equal(t, 500, cfg.Tickets.MaxGenerate)
	assert.False(t, cfg.GRPC.Enabled)
	assert.Equal(t, 15*time.Minute, cfg.Backup.Interval)
	assert.Equal(t, "eu-west-1", cfg.Backup.Storage.S3.Region)
}

func TestLoadFromEnv_Malformed(t *testing.T) {
	t.Setenv("EVENTSPHERE_BACKUP_RETAIN", "many")
	err := LoadFromEnv(DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "EVENTSPHERE_BACKUP_RETAIN")
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.Backup.Enabled = true
	cfg.Resolve()
	require.NoError(t, cfg.EnsureDirectories())

	for _, dir := range []string{cfg.DataDir, cfg.WorkDir(), cfg.Backup.Storage.Path} {
		info, err := os.Stat(dir)
		require.NoError(t, err, dir)
		assert.True(t, info.IsDir())
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventsphere.yml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  addr: \":1111\"\n"), 0644))
	t.Setenv("EVENTSPHERE_HTTP_ADDR", ":2222")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.HTTP.Addr)

	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, ":2222", cfg.HTTP.Addr)
}
