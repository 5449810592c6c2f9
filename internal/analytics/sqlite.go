package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps events in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the database and runs migrations.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if logger != nil {
		logger.Info("analytics store opened", "component", "analytics", "path", dbPath)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			project     TEXT,
			event       TEXT NOT NULL,
			visitor_id  TEXT,
			session_id  TEXT,
			referrer    TEXT,
			pathname    TEXT,
			properties  TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_ts ON events(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_events_event ON events(event)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:30], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Send(ctx context.Context, e Event) error {
	props, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshal properties: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `INSERT INTO events
		(timestamp, project, event, visitor_id, session_id, referrer, pathname, properties)
		VALUES (?,?,?,?,?,?,?,?)`,
		e.Timestamp.Unix(), e.Project, e.Event, e.VisitorID, e.SessionID,
		e.Referrer, e.Pathname, string(props),
	)
	return err
}

// Counts returns the number of events per name.
func (s *SQLiteStore) Counts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT event, COUNT(*) FROM events GROUP BY event`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		out[name] = n
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
