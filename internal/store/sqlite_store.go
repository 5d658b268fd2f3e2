package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed note store.
// Thread-safe: the popup, the CLI and page contexts may share one.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema keeps every version of every note; (address, version) is the key.
const schema = `
CREATE TABLE IF NOT EXISTS notes (
    address TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    blob BLOB NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    valid_from INTEGER NOT NULL,
    valid_to INTEGER,
    is_current INTEGER DEFAULT 1,
    PRIMARY KEY (address, version)
);

CREATE INDEX IF NOT EXISTS idx_notes_current ON notes(address) WHERE is_current = 1;
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// an in-memory database lives and dies with its connection
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutNote closes the current version, if any, and inserts the next one.
func (s *SQLiteStore) PutNote(note *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	note.Address = normalize(note.Address)
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var currentVersion int
	var createdAt int64
	err = tx.QueryRow(`
		SELECT version, created_at FROM notes
		WHERE address = ? AND is_current = 1
	`, note.Address).Scan(&currentVersion, &createdAt)
	switch {
	case err == sql.ErrNoRows:
		currentVersion = 0
		createdAt = note.UpdatedAt
	case err != nil:
		return err
	default:
		if _, err := tx.Exec(`
			UPDATE notes SET valid_to = ?, is_current = 0
			WHERE address = ? AND is_current = 1
		`, note.UpdatedAt, note.Address); err != nil {
			return err
		}
	}

	note.Version = currentVersion + 1
	note.CreatedAt = createdAt
	note.ValidFrom = note.UpdatedAt
	note.ValidTo = nil
	note.IsCurrent = true

	if _, err := tx.Exec(`
		INSERT INTO notes (address, version, blob, created_at, updated_at, valid_from, valid_to, is_current)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, note.Address, note.Version, note.Blob, note.CreatedAt, note.UpdatedAt,
		note.ValidFrom, note.ValidTo, boolToInt(note.IsCurrent)); err != nil {
		return err
	}
	return tx.Commit()
}

const noteColumns = `address, version, blob, created_at, updated_at, valid_from, valid_to, is_current`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(row scanner) (*Note, error) {
	var note Note
	var validTo sql.NullInt64
	var isCurrent int
	if err := row.Scan(&note.Address, &note.Version, &note.Blob, &note.CreatedAt, &note.UpdatedAt,
		&note.ValidFrom, &validTo, &isCurrent); err != nil {
		return nil, err
	}
	note.IsCurrent = isCurrent != 0
	if validTo.Valid {
		note.ValidTo = &validTo.Int64
	}
	return &note, nil
}

// GetNote retrieves the current version of a note.
func (s *SQLiteStore) GetNote(address string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE address = ? AND is_current = 1`, normalize(address))
	note, err := scanNote(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return note, err
}

// DeleteNote removes all versions of a note.
func (s *SQLiteStore) DeleteNote(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM notes WHERE address = ?`, normalize(address))
	return err
}

// ListNotes returns the current versions ordered by address.
func (s *SQLiteStore) ListNotes() ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(`SELECT ` + noteColumns + ` FROM notes WHERE is_current = 1 ORDER BY address`)
}

// ListNoteVersions returns the history of one note, oldest first.
func (s *SQLiteStore) ListNoteVersions(address string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.query(`SELECT `+noteColumns+` FROM notes WHERE address = ? ORDER BY version`, normalize(address))
}

// CountNotes returns the number of notes (current versions only).
func (s *SQLiteStore) CountNotes() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM notes WHERE is_current = 1`).Scan(&count)
	return count, err
}

func (s *SQLiteStore) query(q string, args ...any) ([]*Note, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
