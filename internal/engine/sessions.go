package engine

import (
	"context"
	"errors"
	"sync"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/model"
)

// sessionLocks serializes turns per session ID while letting unrelated
// sessions proceed concurrently. Locks are never removed; the set of live
// session IDs in one process is small.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *sessionLocks) lock(sessionID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[sessionID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[sessionID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// loadSession fetches the session context, creating a fresh one when none
// exists. A corrupt context is discarded and replaced; the session's audit
// trail is untouched and no other session is affected.
func (e *DecisionEngine) loadSession(ctx context.Context, sessionID string) (*model.SessionContext, error) {
	sess, err := e.storage.GetSession(ctx, sessionID)
	switch {
	case err == nil:
		return sess, nil

	case errors.Is(err, common.ErrNotFound):
		return model.NewSessionContext(sessionID), nil

	case errors.Is(err, common.ErrSessionCorrupt):
		e.logger.Warn("session context corrupt, starting fresh",
			"session_id", sessionID,
			"error", err)
		if delErr := e.storage.DeleteSession(ctx, sessionID); delErr != nil {
			e.logger.Error("failed to delete corrupt session",
				"session_id", sessionID,
				"error", delErr)
		}
		return model.NewSessionContext(sessionID), nil

	default:
		return nil, err
	}
}
