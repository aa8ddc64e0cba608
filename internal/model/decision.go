package model

// DecisionState is the conversational state the confidence gate derives for a
// turn. It is recorded on the turn's audit record, never stored on its own.
type DecisionState string

// Decision state constants.
const (
	StateUncertain DecisionState = "UNCERTAIN"
	StateProbable  DecisionState = "PROBABLE"
	StateConfident DecisionState = "CONFIDENT"
	StateExecuted  DecisionState = "EXECUTED"
)

// TurnOutcome describes how a turn concluded.
type TurnOutcome string

// Turn outcome constants.
const (
	OutcomeClarify      TurnOutcome = "CLARIFY"
	OutcomeDisambiguate TurnOutcome = "DISAMBIGUATE"
	OutcomeConfirm      TurnOutcome = "CONFIRM"
	OutcomeExecuted     TurnOutcome = "EXECUTED"
	OutcomeRejected     TurnOutcome = "REJECTED"
	OutcomeFailed       TurnOutcome = "FAILED"
)

// RuleResult is the verdict of a single validation rule.
type RuleResult string

// Rule result constants.
const (
	RuleAccept RuleResult = "ACCEPT"
	RuleReject RuleResult = "REJECT"
)

// RuleOutcome records one validation rule's verdict for the audit trail. A
// rule may accept while still raising the stakes: EscalateRisk and
// UpgradeAuth carry the levels the hit demands.
type RuleOutcome struct {
	RuleName     string     `json:"rule_name"`
	Result       RuleResult `json:"result"`
	Detail       string     `json:"detail,omitempty"`
	EscalateRisk RiskLevel  `json:"escalate_risk,omitempty"`
	UpgradeAuth  AuthLevel  `json:"upgrade_auth,omitempty"`
}

// AllAccepted reports whether every outcome in the sequence is ACCEPT.
func AllAccepted(outcomes []RuleOutcome) bool {
	for _, o := range outcomes {
		if o.Result != RuleAccept {
			return false
		}
	}
	return true
}

// FirstReject returns the first rejecting outcome, if any.
func FirstReject(outcomes []RuleOutcome) (RuleOutcome, bool) {
	for _, o := range outcomes {
		if o.Result == RuleReject {
			return o, true
		}
	}
	return RuleOutcome{}, false
}

// EscalatedRisk folds every rule escalation into the base risk level.
func EscalatedRisk(base RiskLevel, outcomes []RuleOutcome) RiskLevel {
	for _, o := range outcomes {
		if o.EscalateRisk != "" {
			base = base.Escalate(o.EscalateRisk)
		}
	}
	return base
}

// UpgradedAuth folds every rule auth upgrade into the base auth level.
func UpgradedAuth(base AuthLevel, outcomes []RuleOutcome) AuthLevel {
	for _, o := range outcomes {
		if o.UpgradeAuth != "" {
			base = base.Upgrade(o.UpgradeAuth)
		}
	}
	return base
}
