package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/bfscompany/portfoliobot/internal/events"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	language TEXT,
	rate_limited INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversation_messages_session
	ON conversation_messages (session_id);
`

// Store is the append-only message archive. A Store with no backing
// database is valid: every write silently reports false and health reports
// disabled. Callers must never treat a false return as fatal.
type Store struct {
	db     *sql.DB
	logger *events.Logger
}

// Health describes the archive backend's availability.
type Health struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New opens the archive database and creates the schema idempotently. Any
// failure degrades to the disabled store; archiving is never a reason to
// refuse startup.
func New(databaseURL string, logger *events.Logger) *Store {
	if databaseURL == "" {
		logger.Event("message_store_disabled", "reason", "missing_database_url")
		return &Store{logger: logger}
	}

	db, err := sql.Open("sqlite3", dsn(databaseURL))
	if err == nil {
		err = db.Ping()
	}
	if err == nil {
		_, err = db.Exec(schema)
	}
	if err != nil {
		logger.Event("message_store_error", "error", err.Error())
		if db != nil {
			db.Close()
		}
		return &Store{logger: logger}
	}

	logger.Event("message_store_ready", "backend", "sqlite")
	return &Store{db: db, logger: logger}
}

// dsn strips an optional scheme so both plain paths and sqlite URLs work.
func dsn(databaseURL string) string {
	for _, prefix := range []string{"sqlite3://", "sqlite://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

// Store inserts one immutable message row. It reports whether the row was
// written; failures are logged and absorbed here.
func (s *Store) Store(ctx context.Context, sessionID, role, content, language string, rateLimited bool) bool {
	if s.db == nil {
		return false
	}

	var lang any
	if language != "" {
		lang = language
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (id, session_id, role, content, language, rate_limited, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, content, lang, rateLimited, time.Now().UTC(),
	)
	if err != nil {
		s.logger.Event("message_store_write_failed", "error", err.Error())
		return false
	}
	return true
}

// Health probes the backing database.
func (s *Store) Health(ctx context.Context) Health {
	if s.db == nil {
		return Health{Status: "disabled"}
	}
	if err := s.db.QueryRowContext(ctx, "SELECT 1").Scan(new(int)); err != nil {
		s.logger.Event("message_store_health_error", "error", err.Error())
		return Health{Status: "error", Backend: "sqlite", Error: err.Error()}
	}
	return Health{Status: "ok", Backend: "sqlite"}
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}
	return nil
}
