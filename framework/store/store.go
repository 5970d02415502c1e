// Package store persists projects, tests, artifacts, reports and diagnostic
// events in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Sentinel errors
var (
	ErrProjectNotFound         = errors.New("project not found")
	ErrTestNotFound            = errors.New("test not found")
	ErrArtifactNotFound        = errors.New("artifact not found")
	ErrReportNotFound          = errors.New("report not found")
	ErrInvalidStatusTransition = errors.New("invalid test status transition")
	ErrStatusConflict          = errors.New("test status changed concurrently")
)

// Store is a SQLite-backed repository. It is safe for concurrent use.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and creates missing tables
func Open(path string) (*Store, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := path + "?_foreign_keys=on"
	if path != MemoryPath {
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
			}
		}
		dsn += "&_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db at %s: %w", path, err)
	}
	if path == MemoryPath {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db at %s: %w", path, err)
	}
	return db, nil
}

func (s *Store) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			version TEXT,
			llm_type TEXT NOT NULL DEFAULT 'ollama',
			llm_model TEXT,
			llm_api_key TEXT,
			llm_base_url TEXT,
			grafana_sources TEXT,
			k8s_config TEXT,
			created_at INTEGER NOT NULL DEFAULT (unixepoch()),
			updated_at INTEGER NOT NULL DEFAULT (unixepoch())
		);

		CREATE TABLE IF NOT EXISTS tests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			test_type TEXT NOT NULL,
			started_at INTEGER,
			ended_at INTEGER,
			system_prompt TEXT,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_tests_project_id ON tests(project_id);

		CREATE TABLE IF NOT EXISTS artifacts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			test_id INTEGER NOT NULL REFERENCES tests(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			display_name TEXT,
			file_path TEXT,
			metadata TEXT,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);
		CREATE INDEX IF NOT EXISTS idx_artifacts_test_id ON artifacts(test_id, id);

		CREATE TABLE IF NOT EXISTS reports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			test_id INTEGER NOT NULL UNIQUE REFERENCES tests(id) ON DELETE CASCADE,
			report_text TEXT NOT NULL,
			text_path TEXT,
			pdf_path TEXT,
			artifacts_used TEXT,
			created_at INTEGER NOT NULL DEFAULT (unixepoch())
		);

		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL DEFAULT (unixepoch()),
			test_id INTEGER,
			event_type TEXT NOT NULL,
			payload TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_events_test_id ON events(test_id);
	`)
	return err
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Event is a persisted diagnostic event
type Event struct {
	ID        int64
	Timestamp time.Time
	TestID    int64
	Type      string
	Payload   map[string]any
}

// LogEvent stores a diagnostic event. A zero testID stores a global event.
func (s *Store) LogEvent(ctx context.Context, testID int64, eventType string, payload map[string]any) (int64, error) {
	var payloadStr sql.NullString
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal event payload: %w", err)
		}
		payloadStr = sql.NullString{String: string(data), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO events (test_id, event_type, payload) VALUES (?, ?, ?)`,
		nullIfZero(testID), eventType, payloadStr,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListEvents returns the events of a test in insertion order
func (s *Store) ListEvents(ctx context.Context, testID int64) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, event_type, payload FROM events WHERE test_id = ? ORDER BY id`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Event
	for rows.Next() {
		var (
			e       Event
			ts      int64
			payload sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &e.Type, &payload); err != nil {
			return nil, err
		}
		e.TestID = testID
		e.Timestamp = time.Unix(ts, 0).UTC()
		if payload.Valid {
			if err := json.Unmarshal([]byte(payload.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("failed to decode event %d payload: %w", e.ID, err)
			}
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

func nullTime(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	if string(data) == "null" {
		return sql.NullString{}, nil
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalJSON(s sql.NullString, v any) error {
	if !s.Valid || s.String == "" {
		return nil
	}
	return json.Unmarshal([]byte(s.String), v)
}
