package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: sessions and audit log",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS sessions (
					session_id TEXT PRIMARY KEY,
					context TEXT NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,

				`CREATE TABLE IF NOT EXISTS audit_records (
					id TEXT PRIMARY KEY,
					session_id TEXT NOT NULL,
					turn INTEGER NOT NULL,
					input_text TEXT NOT NULL,
					intent_id TEXT,
					category TEXT,
					confidence REAL DEFAULT 0,
					classification TEXT NOT NULL,
					rules_applied TEXT,
					decision_state TEXT NOT NULL,
					outcome TEXT NOT NULL,
					execution_ref TEXT,
					failure_detail TEXT,
					timestamp DATETIME NOT NULL,
					UNIQUE(session_id, turn)
				)`,
				`CREATE INDEX idx_audit_session ON audit_records(session_id)`,
				`CREATE INDEX idx_audit_timestamp ON audit_records(timestamp)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Saved recipients with alias search",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS recipients (
					id TEXT PRIMARY KEY,
					display_name TEXT NOT NULL,
					aliases TEXT,
					attributes TEXT,
					verified INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_recipients_display_name ON recipients(display_name)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Enforce audit immutability at the schema level",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TRIGGER audit_no_update
					BEFORE UPDATE ON audit_records
					BEGIN
						SELECT RAISE(ABORT, 'audit records are immutable');
					END`,
				`CREATE TRIGGER audit_no_delete
					BEFORE DELETE ON audit_records
					BEGIN
						SELECT RAISE(ABORT, 'audit records are immutable');
					END`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
