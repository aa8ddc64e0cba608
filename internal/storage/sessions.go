package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/model"
)

// GetSession loads a session context by ID. A stored context that fails to
// decode or violates its own invariants is reported as corrupt, never
// silently repaired; the caller decides whether to start over.
func (s *SQLiteStorage) GetSession(ctx context.Context, sessionID string) (*model.SessionContext, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	var doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT context FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&doc)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", common.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session model.SessionContext
	if err := json.Unmarshal([]byte(doc), &session); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", common.ErrSessionCorrupt, sessionID, err)
	}
	if session.SessionID != sessionID {
		return nil, fmt.Errorf("%w: session %s stored under mismatched ID %s",
			common.ErrSessionCorrupt, sessionID, session.SessionID)
	}
	if err := session.Validate(); err != nil {
		return nil, fmt.Errorf("%w: session %s: %v", common.ErrSessionCorrupt, sessionID, err)
	}

	return &session, nil
}

// SaveSession writes the full session context document.
func (s *SQLiteStorage) SaveSession(ctx context.Context, session *model.SessionContext) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session", ErrNilParameter)
	}
	if err := session.Validate(); err != nil {
		return fmt.Errorf("refusing to save invalid session: %w", err)
	}

	session.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, context, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			context = excluded.context,
			updated_at = excluded.updated_at
	`, session.SessionID, string(doc), session.CreatedAt, session.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// DeleteSession removes a session context. The audit log for the session is
// untouched.
func (s *SQLiteStorage) DeleteSession(ctx context.Context, sessionID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
