// Package config provides the configuration of the eventsphere server and
// its tools.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "EVENTSPHERE_"

// Config holds the configuration of an eventsphere process.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	GRPC    GRPCConfig    `json:"grpc" yaml:"grpc"`
	Store   StoreConfig   `json:"store" yaml:"store"`
	Tickets TicketsConfig `json:"tickets" yaml:"tickets"`
	Auth    AuthConfig    `json:"auth" yaml:"auth"`
	Backup  BackupConfig  `json:"backup" yaml:"backup"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// GRPCConfig holds gRPC server configuration.
type GRPCConfig struct {
	Addr    string `json:"addr" yaml:"addr"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	// Type is the backend: sqlite, badger or memory
	Type string `json:"type" yaml:"type"`

	// Path is the sqlite file or badger directory. Defaults under DataDir.
	Path string `json:"path" yaml:"path"`

	// MaxRecordBytes bounds the encoded size of a single record.
	MaxRecordBytes int `json:"max_record_bytes" yaml:"max_record_bytes"`

	// SharedEntityCounter makes events and tickets draw ids from one counter.
	// It must match the layout the store was first written with.
	SharedEntityCounter bool `json:"shared_entity_counter" yaml:"shared_entity_counter"`
}

// TicketsConfig bounds ticket operations.
type TicketsConfig struct {
	// MaxGenerate caps the seats one generate_tickets call creates.
	MaxGenerate int `json:"max_generate" yaml:"max_generate"`
}

// AuthConfig selects the password hasher.
type AuthConfig struct {
	// Hasher is argon2id, bcrypt or sha256
	Hasher string       `json:"hasher" yaml:"hasher"`
	Argon2 Argon2Config `json:"argon2" yaml:"argon2"`
}

// Argon2Config holds argon2id cost parameters.
type Argon2Config struct {
	Time      uint32 `json:"time" yaml:"time"`
	MemoryKiB uint32 `json:"memory_kib" yaml:"memory_kib"`
	Threads   uint8  `json:"threads" yaml:"threads"`
}

// BackupConfig holds snapshot daemon configuration.
type BackupConfig struct {
	Enabled  bool          `json:"enabled" yaml:"enabled"`
	Interval time.Duration `json:"interval" yaml:"interval"`

	// Retain is how many snapshots are kept
	Retain int `json:"retain" yaml:"retain"`

	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// StorageConfig holds snapshot object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `json:"level" yaml:"level"`

	// Format is text or json
	Format string `json:"format" yaml:"format"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/eventsphere",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		GRPC: GRPCConfig{
			Addr:    ":9090",
			Enabled: true,
		},
		Store: StoreConfig{
			Type:           "sqlite",
			MaxRecordBytes: 1 << 20,
		},
		Tickets: TicketsConfig{
			MaxGenerate: 10000,
		},
		Auth: AuthConfig{
			Hasher: "argon2id",
			Argon2: Argon2Config{
				Time:      3,
				MemoryKiB: 64 * 1024,
				Threads:   4,
			},
		},
		Backup: BackupConfig{
			Enabled:  false,
			Interval: time.Hour,
			Retain:   24,
			Storage: StorageConfig{
				Type: "local",
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Resolve fills paths left empty with locations under DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/eventsphere"
	}

	if c.Store.Path == "" {
		switch c.Store.Type {
		case "badger":
			c.Store.Path = filepath.Join(c.DataDir, "badger")
		case "memory":
		default:
			c.Store.Path = filepath.Join(c.DataDir, "eventsphere.db")
		}
	}

	if c.Backup.Storage.Type == "local" && c.Backup.Storage.Path == "" {
		c.Backup.Storage.Path = filepath.Join(c.DataDir, "backups")
	}
}

// WorkDir is where snapshot files are staged.
func (c *Config) WorkDir() string {
	return filepath.Join(c.DataDir, "tmp")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	switch c.Store.Type {
	case "sqlite", "badger", "memory":
	default:
		return fmt.Errorf("invalid store type: %s (must be sqlite, badger or memory)", c.Store.Type)
	}
	if c.Store.MaxRecordBytes < 0 {
		return fmt.Errorf("store.max_record_bytes must not be negative, got %d", c.Store.MaxRecordBytes)
	}

	if c.Tickets.MaxGenerate < 1 || int64(c.Tickets.MaxGenerate) > math.MaxUint32 {
		return fmt.Errorf("tickets.max_generate must be between 1 and %d, got %d", uint32(math.MaxUint32), c.Tickets.MaxGenerate)
	}

	switch c.Auth.Hasher {
	case "argon2id", "bcrypt", "sha256":
	default:
		return fmt.Errorf("invalid auth hasher: %s (must be argon2id, bcrypt or sha256)", c.Auth.Hasher)
	}
	if c.Auth.Hasher == "argon2id" && (c.Auth.Argon2.Time == 0 || c.Auth.Argon2.MemoryKiB == 0 || c.Auth.Argon2.Threads == 0) {
		return fmt.Errorf("auth.argon2 time, memory_kib and threads must be positive")
	}

	if c.Backup.Enabled {
		if c.Backup.Interval <= 0 {
			return fmt.Errorf("backup.interval must be positive")
		}
		if c.Backup.Retain < 1 {
			return fmt.Errorf("backup.retain must be at least 1, got %d", c.Backup.Retain)
		}
		if c.Store.Type == "memory" {
			return fmt.Errorf("backup requires a persistent store")
		}
	}
	if c.Backup.Storage.Type != "local" && c.Backup.Storage.Type != "s3" {
		return fmt.Errorf("invalid backup storage type: %s (must be local or s3)", c.Backup.Storage.Type)
	}
	if c.Backup.Storage.Type == "s3" && c.Backup.Storage.S3.Bucket == "" {
		return fmt.Errorf("backup.storage.s3.bucket is required when storage type is s3")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be text or json)", c.Log.Format)
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv overrides cfg with EVENTSPHERE_* environment variables.
// Malformed numeric, boolean or duration values are reported.
func LoadFromEnv(cfg *Config) error {
	e := envReader{}

	e.str("DATA_DIR", &cfg.DataDir)

	e.str("HTTP_ADDR", &cfg.HTTP.Addr)
	e.str("GRPC_ADDR", &cfg.GRPC.Addr)
	e.boolean("GRPC_ENABLED", &cfg.GRPC.Enabled)

	e.str("STORE_TYPE", &cfg.Store.Type)
	e.str("STORE_PATH", &cfg.Store.Path)
	e.integer("STORE_MAX_RECORD_BYTES", &cfg.Store.MaxRecordBytes)
	e.boolean("STORE_SHARED_ENTITY_COUNTER", &cfg.Store.SharedEntityCounter)
	e.integer("TICKETS_MAX_GENERATE", &cfg.Tickets.MaxGenerate)

	e.str("AUTH_HASHER", &cfg.Auth.Hasher)

	e.boolean("BACKUP_ENABLED", &cfg.Backup.Enabled)
	e.duration("BACKUP_INTERVAL", &cfg.Backup.Interval)
	e.integer("BACKUP_RETAIN", &cfg.Backup.Retain)
	e.str("BACKUP_STORAGE_TYPE", &cfg.Backup.Storage.Type)
	e.str("BACKUP_STORAGE_PATH", &cfg.Backup.Storage.Path)
	e.str("S3_BUCKET", &cfg.Backup.Storage.S3.Bucket)
	e.str("S3_REGION", &cfg.Backup.Storage.S3.Region)
	e.str("S3_ENDPOINT", &cfg.Backup.Storage.S3.Endpoint)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	return e.err
}

type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	if e.err != nil {
		return "", false
	}
	v := os.Getenv(EnvPrefix + key)
	return v, v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.err = fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
			return
		}
		*dst = d
	}
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.WorkDir()}
	if c.Store.Type == "badger" {
		dirs = append(dirs, c.Store.Path)
	} else if c.Store.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Store.Path))
	}
	if c.Backup.Enabled && c.Backup.Storage.Type == "local" {
		dirs = append(dirs, c.Backup.Storage.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Load returns the defaults overlaid with path (when non-empty) and then
// with the environment.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFromFile(path); err != nil {
			return nil, err
		}
	}
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
