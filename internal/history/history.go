package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const (
	HistoryFileName = "history.db"
	schemaVersion   = "1"
)

var errMetadataNotFound = errors.New("metadata key not found")

// Entry represents a single ask-sh invocation
type Entry struct {
	ID        int64
	Timestamp time.Time
	Request   string
	Provider  string
	Model     string
	Commands  []string
	Chosen    string // command the user picked, if any
	Executed  bool
}

// Store is a persistent history backed by SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// GetHistoryPath returns the path to the history database inside configDir
func GetHistoryPath(configDir string) string {
	return filepath.Join(configDir, HistoryFileName)
}

// Open opens the history database, creating it if needed
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	if err := store.checkVersion(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		created_at INTEGER NOT NULL,
		request TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		commands_json TEXT NOT NULL,
		chosen TEXT NOT NULL DEFAULT '',
		executed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_created_at ON entries(created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// checkVersion stamps a new database with schemaVersion and rejects one
// written with a different schema
func (s *Store) checkVersion() error {
	version, err := s.getMetadata("version")
	if err == errMetadataNotFound {
		return s.setMetadata("version", schemaVersion)
	}
	if err != nil {
		return fmt.Errorf("failed to read history schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("history database %s has schema version %s, expected %s", s.dbPath, version, schemaVersion)
	}
	return nil
}

// Add records an entry and returns its ID. A zero Timestamp means now.
func (s *Store) Add(ctx context.Context, e Entry) (int64, error) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	if e.Commands == nil {
		e.Commands = []string{}
	}

	commandsJSON, err := json.Marshal(e.Commands)
	if err != nil {
		return 0, fmt.Errorf("failed to encode commands: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (created_at, request, provider, model, commands_json, chosen, executed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Timestamp.UnixNano(), e.Request, e.Provider, e.Model, string(commandsJSON), e.Chosen, e.Executed)
	if err != nil {
		return 0, fmt.Errorf("failed to insert history entry: %w", err)
	}

	return res.LastInsertId()
}

// MarkChosen records which command the user picked for an entry
func (s *Store) MarkChosen(ctx context.Context, id int64, command string, executed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE entries SET chosen = ?, executed = ? WHERE id = ?`, command, executed, id)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("history entry not found: %d", id)
	}
	return nil
}

// Recent returns up to limit entries, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, request, provider, model, commands_json, chosen, executed
		FROM entries
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var createdAt int64
		var commandsJSON string

		if err := rows.Scan(&e.ID, &createdAt, &e.Request, &e.Provider, &e.Model, &commandsJSON, &e.Chosen, &e.Executed); err != nil {
			return nil, fmt.Errorf("failed to read history entry: %w", err)
		}
		e.Timestamp = time.Unix(0, createdAt)
		if err := json.Unmarshal([]byte(commandsJSON), &e.Commands); err != nil {
			return nil, fmt.Errorf("failed to decode commands for entry %d: %w", e.ID, err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Clear removes all entries
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM entries`)
	return err
}

// Count returns the number of stored entries
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count); err != nil {
		return 0
	}
	return count
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) getMetadata(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", errMetadataNotFound
	}
	return value, err
}

func (s *Store) setMetadata(key, value string) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO metadata (key, value)
		VALUES (?, ?)
	`, key, value)
	return err
}
