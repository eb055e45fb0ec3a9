package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/nestling/nestling/internal/core/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements HistoryStore and Pruner on a local SQLite database.
// It ignores the caller token: local deployments are single-tenant and have
// no RLS to enforce.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// HistoryStore Implementation
// =============================================================================

// History returns the stored messages for a session in insertion order.
func (s *SQLiteStore) History(ctx context.Context, _ string, sessionID string) ([]domain.ChatMessage, error) {
	var rows []domain.ChatMessage
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, session_id, user_id, role, message_content, created_at
		   FROM chat_history
		  WHERE session_id = ?
		  ORDER BY created_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, NewStoreError("History", sessionID, err.Error(), err)
	}
	return rows, nil
}

// Append stores one message.
func (s *SQLiteStore) Append(ctx context.Context, _ string, msg domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return NewStoreError("Append", msg.SessionID, err.Error(), ErrInvalidMessage)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO chat_history (session_id, user_id, role, message_content, created_at)
		 VALUES (:session_id, :user_id, :role, :message_content, :created_at)`,
		&msg,
	)
	if err != nil {
		return NewStoreError("Append", msg.SessionID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Pruner Implementation
// =============================================================================

// PruneBefore deletes all messages created before cutoff.
func (s *SQLiteStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_history WHERE created_at < ?`,
		cutoff.UTC(),
	)
	if err != nil {
		return 0, NewStoreError("PruneBefore", "", err.Error(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStoreError("PruneBefore", "", err.Error(), err)
	}
	return n, nil
}

// =============================================================================
// Stats
// =============================================================================

// CountMessages returns the total number of stored messages. Used by the
// readiness endpoint to verify the database responds.
func (s *SQLiteStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM chat_history`); err != nil {
		return 0, NewStoreError("CountMessages", "", err.Error(), err)
	}
	return n, nil
}
