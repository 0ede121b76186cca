// Package persistence provides SQLite-backed storage for workflow thread state.
package persistence

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"starlit/pkg/logx"
	"starlit/pkg/story"
)

// CurrentSchemaVersion defines the current schema version for migration support.
const CurrentSchemaVersion = 1

// Store implements state.Store on top of SQLite.
type Store struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if necessary) the thread database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_foreign_keys=ON&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	logger := logx.NewLogger("persistence")
	logger.Info("Thread database initialized: %s", dbPath)

	return &Store{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// initializeSchema ensures the database schema is at the current version.
func initializeSchema(db *sql.DB) error {
	currentVersion, err := getSchemaVersion(db)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	if currentVersion == 0 {
		return createSchema(db)
	}
	if currentVersion == CurrentSchemaVersion {
		return nil
	}

	return fmt.Errorf("unsupported schema version %d (current is %d)", currentVersion, CurrentSchemaVersion)
}

func createSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS threads (
			thread_id TEXT PRIMARY KEY,
			state TEXT NOT NULL,
			turn_count INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_updated_at ON threads(updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO schema_version (version) VALUES (?)`, CurrentSchemaVersion); err != nil {
		return fmt.Errorf("failed to set schema version: %w", err)
	}
	return nil
}

func getSchemaVersion(db *sql.DB) (int, error) {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	)`)
	if err != nil {
		return 0, fmt.Errorf("failed to create schema_version table: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query schema version: %w", err)
	}
	return version, nil
}

// Load implements state.Store.
func (s *Store) Load(threadID string) (*story.State, bool, error) {
	if threadID == "" {
		return nil, false, fmt.Errorf("threadID cannot be empty")
	}

	var raw string
	err := s.db.QueryRow("SELECT state FROM threads WHERE thread_id = ?", threadID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load thread %s: %w", threadID, err)
	}

	var st story.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal state for thread %s: %w", threadID, err)
	}
	return &st, true, nil
}

// Save implements state.Store.
func (s *Store) Save(threadID string, st *story.State) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	if st == nil {
		return fmt.Errorf("state cannot be nil")
	}

	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state for thread %s: %w", threadID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO threads (thread_id, state, turn_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			state = excluded.state,
			turn_count = excluded.turn_count,
			updated_at = excluded.updated_at`,
		threadID, string(raw), st.TurnCount, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save thread %s: %w", threadID, err)
	}
	return nil
}

// Delete implements state.Store.
func (s *Store) Delete(threadID string) error {
	if threadID == "" {
		return fmt.Errorf("threadID cannot be empty")
	}
	if _, err := s.db.Exec("DELETE FROM threads WHERE thread_id = ?", threadID); err != nil {
		return fmt.Errorf("failed to delete thread %s: %w", threadID, err)
	}
	return nil
}

// ListThreads implements state.Store.
func (s *Store) ListThreads() ([]string, error) {
	rows, err := s.db.Query("SELECT thread_id FROM threads ORDER BY updated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan thread row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("thread row iteration failed: %w", err)
	}
	return ids, nil
}
