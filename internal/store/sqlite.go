// ABOUTME: SQLite persistence for the OAuth token record and auth event log
// ABOUTME: using modernc.org/sqlite with automatic schema creation.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lexops/lawmatics-mcp/internal/oauth"
)

// SQLiteStore persists the single current token record and an append-only
// log of auth lifecycle events. It satisfies oauth.TokenStore and
// oauth.EventRecorder.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// AuthEvent is one entry in the auth event log.
type AuthEvent struct {
	ID        string
	Event     string
	Detail    string
	Timestamp time.Time
}

// NewSQLiteStore opens (or creates) the database at the given path.
// Parent directories are created if needed and the schema is applied
// automatically.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS oauth_token (
			id            INTEGER PRIMARY KEY CHECK (id = 1),
			access_token  TEXT NOT NULL,
			token_type    TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			scope         TEXT NOT NULL,
			issued_at     TEXT NOT NULL,
			expires_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS auth_events (
			event_id TEXT PRIMARY KEY,
			event    TEXT NOT NULL,
			detail   TEXT,
			ts       TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_auth_events_ts ON auth_events(ts DESC);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// LoadToken returns the stored token record, or (nil, nil) when none exists.
func (s *SQLiteStore) LoadToken(ctx context.Context) (*oauth.Token, error) {
	query := `
		SELECT access_token, token_type, refresh_token, scope, issued_at, expires_at
		FROM oauth_token WHERE id = 1
	`
	var t oauth.Token
	var issuedStr, expiresStr string
	err := s.db.QueryRowContext(ctx, query).Scan(
		&t.AccessToken,
		&t.TokenType,
		&t.RefreshToken,
		&t.Scope,
		&issuedStr,
		&expiresStr,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading token record: %w", err)
	}

	if t.IssuedAt, err = time.Parse(time.RFC3339, issuedStr); err != nil {
		return nil, fmt.Errorf("parsing issued_at: %w", err)
	}
	if t.ExpiresAt, err = time.Parse(time.RFC3339, expiresStr); err != nil {
		return nil, fmt.Errorf("parsing expires_at: %w", err)
	}
	return &t, nil
}

// SaveToken replaces the stored record wholesale.
func (s *SQLiteStore) SaveToken(ctx context.Context, token *oauth.Token) error {
	if token == nil {
		return s.ClearToken(ctx)
	}

	query := `
		INSERT INTO oauth_token (id, access_token, token_type, refresh_token, scope, issued_at, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token  = excluded.access_token,
			token_type    = excluded.token_type,
			refresh_token = excluded.refresh_token,
			scope         = excluded.scope,
			issued_at     = excluded.issued_at,
			expires_at    = excluded.expires_at,
			updated_at    = excluded.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		token.AccessToken,
		token.TokenType,
		token.RefreshToken,
		token.Scope,
		token.IssuedAt.UTC().Format(time.RFC3339),
		token.ExpiresAt.UTC().Format(time.RFC3339),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving token record: %w", err)
	}

	s.logger.Debug("saved token record", "expires_at", token.ExpiresAt)
	return nil
}

// ClearToken removes the stored record. Clearing an empty store is a no-op.
func (s *SQLiteStore) ClearToken(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM oauth_token WHERE id = 1`); err != nil {
		return fmt.Errorf("clearing token record: %w", err)
	}
	s.logger.Debug("cleared token record")
	return nil
}

// RecordAuthEvent appends an auth lifecycle event to the log.
func (s *SQLiteStore) RecordAuthEvent(ctx context.Context, event, detail string) error {
	query := `INSERT INTO auth_events (event_id, event, detail, ts) VALUES (?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.New().String(),
		event,
		detail,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording auth event: %w", err)
	}
	return nil
}

// ListAuthEvents returns the most recent events, newest first.
// A limit <= 0 defaults to 100.
func (s *SQLiteStore) ListAuthEvents(ctx context.Context, limit int) ([]AuthEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT event_id, event, detail, ts
		FROM auth_events
		ORDER BY ts DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying auth events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []AuthEvent
	for rows.Next() {
		var e AuthEvent
		var detail sql.NullString
		var tsStr string
		if err := rows.Scan(&e.ID, &e.Event, &detail, &tsStr); err != nil {
			return nil, fmt.Errorf("scanning auth event: %w", err)
		}
		e.Detail = detail.String
		if e.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return nil, fmt.Errorf("parsing event timestamp: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating auth events: %w", err)
	}

	if events == nil {
		events = []AuthEvent{}
	}
	return events, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
