package model

import "time"

// ClassificationResult is the snapshot of a turn's classification that gets
// written to the audit record.
type ClassificationResult struct {
	IntentID     string            `json:"intent_id"`
	Category     string            `json:"category,omitempty"`
	Confidence   float64           `json:"confidence"`
	Entities     EntityMap         `json:"entities,omitempty"`
	RiskLevel    RiskLevel         `json:"risk_level"`
	AuthRequired AuthLevel         `json:"auth_required,omitempty"`
	Candidates   []IntentCandidate `json:"candidates,omitempty"`
}

// AuditRecord is the immutable per-turn decision log entry. Exactly one is
// written for every turn regardless of outcome; no update or delete
// operation exists anywhere in the system.
type AuditRecord struct {
	ID             string               `json:"id"`
	SessionID      string               `json:"session_id"`
	Turn           int                  `json:"turn"`
	InputText      string               `json:"input_text"`
	Classification ClassificationResult `json:"classification"`
	RulesApplied   []RuleOutcome        `json:"rules_applied,omitempty"`
	DecisionState  DecisionState        `json:"decision_state"`
	Outcome        TurnOutcome          `json:"outcome"`
	ExecutionRef   string               `json:"execution_ref,omitempty"` // empty until executed
	FailureDetail  string               `json:"failure_detail,omitempty"`
	Timestamp      time.Time            `json:"timestamp"`
}

// TurnResponse is the turn-level surface consumed by whatever renders the
// conversation. UIHint selects the minimal field set the form layer should
// show for the resolved intent.
type TurnResponse struct {
	SessionID             string                    `json:"session_id"`
	DecisionState         DecisionState             `json:"decision_state"`
	Outcome               TurnOutcome               `json:"outcome"`
	Message               string                    `json:"message"`
	Confidence            float64                   `json:"confidence"`
	IntentID              string                    `json:"intent_id,omitempty"`
	MissingFields         []EntityType              `json:"required_fields_missing,omitempty"`
	DisambiguationOptions []DisambiguationCandidate `json:"disambiguation_options,omitempty"`
	UIHint                string                    `json:"ui_hint,omitempty"`
	ExecutionRef          string                    `json:"execution_ref,omitempty"`
}

// RecipientCandidate is one match from the read-only recipient/account index.
type RecipientCandidate struct {
	ID          string            `json:"id"`
	DisplayName string            `json:"display_name"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	Score       float64           `json:"score"`
}

// Account describes one account visible to the ledger collaborator.
type Account struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Mask             string  `json:"mask,omitempty"`
	OwnerID          string  `json:"owner_id,omitempty"`
	AvailableBalance float64 `json:"available_balance"`
	Currency         string  `json:"currency,omitempty"`
}

// ExecutionResult is what the execution collaborator returns.
type ExecutionResult struct {
	Success     bool   `json:"success"`
	ReferenceID string `json:"reference_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}
