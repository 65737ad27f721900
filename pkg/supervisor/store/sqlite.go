package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteBackend implements Backend on a SQLite file.
//
// The database runs in WAL mode with a single connection; writes are
// serialized by the backend.
type SQLiteBackend struct {
	db        *sql.DB
	path      string
	mu        sync.RWMutex
	closeOnce sync.Once

	saveStmt   *sql.Stmt
	loadStmt   *sql.Stmt
	deleteStmt *sql.Stmt
	listStmt   *sql.Stmt
}

// SQLiteBackendConfig configures the SQLite backend.
type SQLiteBackendConfig struct {
	// Path is the database file.
	Path string

	// BusyTimeout is how long to wait for a lock before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewSQLiteBackend opens (creating if needed) the database at path.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	return NewSQLiteBackendWithConfig(SQLiteBackendConfig{Path: path})
}

// NewSQLiteBackendWithConfig opens a SQLite backend with custom settings.
func NewSQLiteBackendWithConfig(cfg SQLiteBackendConfig) (*SQLiteBackend, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	backend := &SQLiteBackend{db: db, path: cfg.Path}

	if err := backend.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := backend.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return backend, nil
}

func (s *SQLiteBackend) initSchema() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS supervisor_states (
		identity TEXT NOT NULL,
		supervisor TEXT NOT NULL,
		state TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (identity, supervisor)
	);
	`)
	return err
}

func (s *SQLiteBackend) prepareStatements() error {
	var err error

	s.saveStmt, err = s.db.Prepare(`
		INSERT INTO supervisor_states (identity, supervisor, state, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (identity, supervisor) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.loadStmt, err = s.db.Prepare(`
		SELECT state, updated_at FROM supervisor_states
		WHERE identity = ? AND supervisor = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare load statement: %w", err)
	}

	s.deleteStmt, err = s.db.Prepare(`
		DELETE FROM supervisor_states WHERE identity = ? AND supervisor = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listStmt, err = s.db.Prepare(`
		SELECT identity, supervisor, state, updated_at FROM supervisor_states
		ORDER BY identity, supervisor
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// Save inserts or replaces a record.
func (s *SQLiteBackend) Save(ctx context.Context, rec *Record) error {
	if err := validate(rec); err != nil {
		return err
	}

	state := rec.State
	if state == nil {
		state = map[string]any{}
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.saveStmt.ExecContext(ctx, rec.Identity, rec.Supervisor, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Load returns the stored record, or nil.
func (s *SQLiteBackend) Load(ctx context.Context, identity, supervisor string) (*Record, error) {
	if identity == "" {
		return nil, errEmptyIdentity
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		data      string
		updatedAt int64
	)
	err := s.loadStmt.QueryRowContext(ctx, identity, supervisor).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	return decode(identity, supervisor, data, updatedAt)
}

// Delete removes a record.
func (s *SQLiteBackend) Delete(ctx context.Context, identity, supervisor string) error {
	if identity == "" {
		return errEmptyIdentity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deleteStmt.ExecContext(ctx, identity, supervisor); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// List returns every record.
func (s *SQLiteBackend) List(ctx context.Context) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list states: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			identity, supervisor, data string
			updatedAt                  int64
		)
		if err := rows.Scan(&identity, &supervisor, &data, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec, err := decode(identity, supervisor, data, updatedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Ping checks the database connection.
func (s *SQLiteBackend) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close checkpoints the WAL and closes the database. It is idempotent.
func (s *SQLiteBackend) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.saveStmt, s.loadStmt, s.deleteStmt, s.listStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		closeErr = s.db.Close()
	})

	return closeErr
}

func decode(identity, supervisor, data string, updatedAt int64) (*Record, error) {
	rec := &Record{
		Identity:   identity,
		Supervisor: supervisor,
		UpdatedAt:  time.Unix(updatedAt, 0),
	}
	if err := json.Unmarshal([]byte(data), &rec.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state for %s/%s: %w", identity, supervisor, err)
	}
	if rec.State == nil {
		rec.State = map[string]any{}
	}
	return rec, nil
}
