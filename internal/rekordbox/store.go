// internal/rekordbox/store.go

// Package rekordbox provides access to the encrypted Rekordbox 6 database
// (master.db) through the SQLCipher driver. It exposes the handful of track,
// playlist and tag operations the batch jobs need; everything runs on one
// shared connection with at most one transaction at a time.
package rekordbox

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// The database key is passed through ldflags at build time and never
// committed to the repository.
var dbKey string

func getDBKey() string {
	return dbKey
}

// Sentinel errors for callers that need to branch on failure class.
var (
	// ErrNotFound reports that an expected row does not exist.
	ErrNotFound = errors.New("rekordbox: record not found")
	// ErrNotConnected reports use of a store before Connect or after Close.
	ErrNotConnected = errors.New("rekordbox: database not connected")
	// ErrDatabaseBusy reports evidence of a concurrent external writer,
	// typically the Rekordbox application itself still running.
	ErrDatabaseBusy = errors.New("rekordbox: database appears to be in use by another process")
)

// timestampFormat is the format Rekordbox uses for created_at/updated_at.
const timestampFormat = "2006-01-02 15:04:05.000 +00:00"

func now() string {
	return time.Now().UTC().Format(timestampFormat)
}

// Store is the single shared handle over the Rekordbox database. It is
// opened once per run and must be closed on every exit path.
type Store struct {
	db        *sql.DB
	path      string
	connected bool
	tx        *sql.Tx
	log       zerolog.Logger
}

// NewStore creates a store for the database at path. No connection is made
// until Connect.
func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Path returns the configured database file path.
func (s *Store) Path() string {
	return s.path
}

// Connect opens the encrypted database and verifies it is usable. It checks
// that the file exists and is non-empty, refuses to open a database that
// another process holds open (a non-empty WAL sidecar), applies the cipher
// parameters Rekordbox 6 uses, and switches journaling to DELETE so no
// sidecar files are left behind.
func (s *Store) Connect() error {
	if s.connected {
		return nil
	}
	if s.path == "" {
		return fmt.Errorf("rekordbox: no database path configured")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		return fmt.Errorf("rekordbox: database file %s: %w", s.path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("rekordbox: database file %s is zero length", s.path)
	}
	if wal, err := os.Stat(s.path + "-wal"); err == nil && wal.Size() > 0 {
		return fmt.Errorf("%w: close Rekordbox before running (%s-wal is not empty)", ErrDatabaseBusy, s.path)
	}

	connStr := fmt.Sprintf("file:%s?_pragma_key=%s&_pragma_cipher_compatibility=3&_pragma_cipher_page_size=4096", s.path, getDBKey())
	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return fmt.Errorf("rekordbox: open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "file is not a database") {
			return fmt.Errorf("rekordbox: %s is not a valid encrypted database (wrong key or corrupt file): %w", s.path, err)
		}
		return fmt.Errorf("rekordbox: connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=DELETE"); err != nil {
		db.Close()
		return fmt.Errorf("rekordbox: set journal mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA synchronous=FULL"); err != nil {
		db.Close()
		return fmt.Errorf("rekordbox: set synchronous mode: %w", err)
	}

	s.db = db
	s.connected = true
	s.log.Debug().Str("path", s.path).Msg("connected to Rekordbox database")
	return nil
}

// Close finalizes the connection. It is safe to call more than once and on
// a store that never connected. Open transactions are rolled back.
func (s *Store) Close() error {
	if !s.connected || s.db == nil {
		return nil
	}
	if s.tx != nil {
		s.tx.Rollback()
		s.tx = nil
	}
	// Clean up any leftover WAL state before handing the file back.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(FULL)"); err != nil {
		s.log.Debug().Err(err).Msg("wal checkpoint before close failed")
	}
	if _, err := s.db.Exec("PRAGMA optimize"); err != nil {
		s.log.Debug().Err(err).Msg("optimize before close failed")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("rekordbox: close database: %w", err)
	}
	s.connected = false
	s.log.Debug().Str("path", s.path).Msg("database connection closed")
	return nil
}

// Begin starts the run's transaction. Only one may be active at a time.
func (s *Store) Begin() error {
	if !s.connected {
		return ErrNotConnected
	}
	if s.tx != nil {
		return fmt.Errorf("rekordbox: a transaction is already active")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("rekordbox: begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// Commit commits the active transaction.
func (s *Store) Commit() error {
	if s.tx == nil {
		return fmt.Errorf("rekordbox: no active transaction")
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rekordbox: commit transaction: %w", err)
	}
	return nil
}

// Rollback aborts the active transaction.
func (s *Store) Rollback() error {
	if s.tx == nil {
		return fmt.Errorf("rekordbox: no active transaction")
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("rekordbox: rollback transaction: %w", err)
	}
	return nil
}

// execute runs a mutating statement, inside the active transaction when one
// exists so a batch commits or rolls back as a whole.
func (s *Store) execute(query string, args ...interface{}) error {
	if !s.connected {
		return ErrNotConnected
	}
	var err error
	if s.tx != nil {
		_, err = s.tx.Exec(query, args...)
	} else {
		_, err = s.db.Exec(query, args...)
	}
	if err != nil {
		return fmt.Errorf("rekordbox: execute statement: %w", err)
	}
	return nil
}

// query runs a SELECT returning multiple rows.
func (s *Store) query(query string, args ...interface{}) (*sql.Rows, error) {
	if !s.connected {
		return nil, ErrNotConnected
	}
	if s.tx != nil {
		return s.tx.Query(query, args...)
	}
	return s.db.Query(query, args...)
}

// queryRow runs a SELECT expected to return at most one row.
func (s *Store) queryRow(query string, args ...interface{}) *sql.Row {
	if s.tx != nil {
		return s.tx.QueryRow(query, args...)
	}
	return s.db.QueryRow(query, args...)
}

// NextID returns the next free row ID for a Rekordbox table. Rekordbox
// stores IDs as numeric strings.
func (s *Store) NextID(table string) (string, error) {
	var maxID int64
	row := s.queryRow(fmt.Sprintf("SELECT COALESCE(MAX(CAST(ID AS INTEGER)), 0) FROM %s", table))
	if err := row.Scan(&maxID); err != nil {
		return "", fmt.Errorf("rekordbox: next id for %s: %w", table, err)
	}
	return fmt.Sprintf("%d", maxID+1), nil
}

// NextUSN increments and returns the local update sequence number from
// agentRegistry, keeping inserted rows consistent with Rekordbox's own.
func (s *Store) NextUSN() (int64, error) {
	err := s.execute(`
		UPDATE agentRegistry
		SET int_1 = int_1 + 1
		WHERE registry_id = 'localUpdateCount'
	`)
	if err != nil {
		return 0, err
	}
	var usn int64
	row := s.queryRow(`
		SELECT int_1
		FROM agentRegistry
		WHERE registry_id = 'localUpdateCount'
	`)
	if err := row.Scan(&usn); err != nil {
		return 0, fmt.Errorf("rekordbox: read update sequence number: %w", err)
	}
	return usn, nil
}
