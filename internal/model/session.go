package model

import (
	"fmt"
	"time"
)

// TurnRecord is one entry in a session's append-only turn history.
type TurnRecord struct {
	Turn     int           `json:"turn"`
	Input    string        `json:"input"`
	State    DecisionState `json:"state"`
	Outcome  TurnOutcome   `json:"outcome"`
	IntentID string        `json:"intent_id,omitempty"`
	At       time.Time     `json:"at"`
}

// DisambiguationCandidate is one choice offered to the user when an entity or
// intent is ambiguous. Candidates are never auto-selected.
type DisambiguationCandidate struct {
	Index      int               `json:"index"`
	EntityType EntityType        `json:"entity_type,omitempty"` // empty for intent candidates
	IntentID   string            `json:"intent_id,omitempty"`
	Value      string            `json:"value"`
	Label      string            `json:"label"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Confidence float64           `json:"confidence"`
}

// PendingConfirmation holds a fully validated operation that exceeded the
// automation ceiling and is waiting for an explicit yes from the user.
type PendingConfirmation struct {
	IntentID    string    `json:"intent_id"`
	Entities    EntityMap `json:"entities"`
	Confidence  float64   `json:"confidence"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// SessionContext is the per-conversation memory. It is exclusively owned by
// its session: turns for one session ID are processed strictly sequentially,
// and the engine mutates it only after a turn's outcome is determined.
type SessionContext struct {
	SessionID                string                    `json:"session_id"`
	TurnHistory              []TurnRecord              `json:"turn_history,omitempty"`
	PendingIntent            string                    `json:"pending_intent,omitempty"`
	PendingEntities          EntityMap                 `json:"pending_entities,omitempty"`
	LastRecipient            *Entity                   `json:"last_recipient,omitempty"`
	LastAmount               *Entity                   `json:"last_amount,omitempty"`
	LastAccount              *Entity                   `json:"last_account,omitempty"`
	LastIntent               string                    `json:"last_intent,omitempty"`
	DisambiguationCandidates []DisambiguationCandidate `json:"disambiguation_candidates,omitempty"`
	PendingConfirmation      *PendingConfirmation      `json:"pending_confirmation,omitempty"`
	CreatedAt                time.Time                 `json:"created_at"`
	UpdatedAt                time.Time                 `json:"updated_at"`
}

// NewSessionContext creates an empty context for a session.
func NewSessionContext(sessionID string) *SessionContext {
	now := time.Now().UTC()
	return &SessionContext{
		SessionID: sessionID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NextTurn returns the 1-based index the next turn will occupy.
func (s *SessionContext) NextTurn() int {
	return len(s.TurnHistory) + 1
}

// Clone returns a deep copy. The engine stages all merges on a clone and
// swaps it in atomically once the turn outcome is known.
func (s *SessionContext) Clone() *SessionContext {
	out := *s
	out.TurnHistory = append([]TurnRecord(nil), s.TurnHistory...)
	out.PendingEntities = s.PendingEntities.Clone()
	out.DisambiguationCandidates = append([]DisambiguationCandidate(nil), s.DisambiguationCandidates...)
	if s.LastRecipient != nil {
		e := *s.LastRecipient
		out.LastRecipient = &e
	}
	if s.LastAmount != nil {
		e := *s.LastAmount
		out.LastAmount = &e
	}
	if s.LastAccount != nil {
		e := *s.LastAccount
		out.LastAccount = &e
	}
	if s.PendingConfirmation != nil {
		pc := *s.PendingConfirmation
		pc.Entities = s.PendingConfirmation.Entities.Clone()
		out.PendingConfirmation = &pc
	}
	return &out
}

// Validate checks the session's structural invariants. A failure here is
// treated as session corruption: the session is discarded and rebuilt.
func (s *SessionContext) Validate() error {
	if s.SessionID == "" {
		return fmt.Errorf("session has no ID")
	}
	for i, rec := range s.TurnHistory {
		if rec.Turn != i+1 {
			return fmt.Errorf("turn history out of order: position %d holds turn %d", i, rec.Turn)
		}
	}
	for t, e := range s.PendingEntities {
		if e.Type != t {
			return fmt.Errorf("pending entity keyed %q has type %q", t, e.Type)
		}
		if e.Confidence < 0 || e.Confidence > 1 {
			return fmt.Errorf("pending entity %q has confidence %f outside [0,1]", t, e.Confidence)
		}
	}
	for i, c := range s.DisambiguationCandidates {
		if c.Index != i {
			return fmt.Errorf("disambiguation candidate at position %d has index %d", i, c.Index)
		}
	}
	return nil
}
