package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single SQLite database file.
type SQLiteStore struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	path   string
	mu     sync.Mutex // Serializes Update; reads don't need it
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Write connection: single writer with WAL mode
	db, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=FULL")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, path: path}

	// Schema must exist before the read-only pool can open the file.
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to initialize schema: %w", err)
	}

	// Read pool: concurrent readers. Writes through it are refused by
	// sqliteTx, so the pool does not need mode=ro.
	readDB, err := sql.Open("sqlite3", "file:"+path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)
	s.readDB = readDB

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// View runs fn in a transaction on the read pool.
func (s *SQLiteStore) View(ctx context.Context, fn func(Tx) error) error {
	tx, err := s.readDB.BeginTx(ctx, nil)
	if err != nil {
		return backendError("begin read transaction", err)
	}
	defer tx.Rollback()

	return fn(&sqliteTx{ctx: ctx, tx: tx, readOnly: true})
}

// Update runs fn in a write transaction on the single writer connection.
func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return backendError("begin write transaction", err)
	}
	defer tx.Rollback()

	if err := fn(&sqliteTx{ctx: ctx, tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return backendError("commit", err)
	}
	return nil
}

// Close closes both connection pools.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.readDB != nil {
		if err := s.readDB.Close(); err != nil {
			firstErr = err
		}
	}
	if err := s.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

type sqliteTx struct {
	ctx      context.Context
	tx       *sql.Tx
	readOnly bool
}

func (t *sqliteTx) Get(ns Namespace, key uint64) ([]byte, bool, error) {
	var value []byte
	err := t.tx.QueryRowContext(t.ctx, selectRecordSQL, string(ns), encodeKey(key)).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendError("get", err)
	}
	return value, true, nil
}

func (t *sqliteTx) Put(ns Namespace, key uint64, value []byte) ([]byte, bool, error) {
	if t.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	prev, existed, err := t.Get(ns, key)
	if err != nil {
		return nil, false, err
	}
	if _, err := t.tx.ExecContext(t.ctx, upsertRecordSQL, string(ns), encodeKey(key), cloneBytes(value)); err != nil {
		return nil, false, backendError("put", err)
	}
	return prev, existed, nil
}

func (t *sqliteTx) Delete(ns Namespace, key uint64) ([]byte, bool, error) {
	if t.readOnly {
		return nil, false, ErrReadOnlyTx
	}
	prev, existed, err := t.Get(ns, key)
	if err != nil || !existed {
		return nil, false, err
	}
	if _, err := t.tx.ExecContext(t.ctx, deleteRecordSQL, string(ns), encodeKey(key)); err != nil {
		return nil, false, backendError("delete", err)
	}
	return prev, true, nil
}

func (t *sqliteTx) Scan(ns Namespace, fn func(key uint64, value []byte) (bool, error)) error {
	rows, err := t.tx.QueryContext(t.ctx, scanRecordsSQL, string(ns))
	if err != nil {
		return backendError("scan", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawKey, value []byte
		if err := rows.Scan(&rawKey, &value); err != nil {
			return backendError("scan row", err)
		}
		if len(rawKey) != 8 {
			return backendError("scan row", fmt.Errorf("malformed key of %d bytes in %s", len(rawKey), ns))
		}
		cont, err := fn(decodeKey(rawKey), value)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
	return backendError("scan", rows.Err())
}
