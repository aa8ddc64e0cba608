// Package gate maps a turn's classification confidence to a decision state.
// The state decides how much the engine is allowed to do on its own: ask,
// confirm, or execute. Monetary amounts above the automation ceiling always
// require an explicit confirmation turn, no matter how confident the
// classification is.
package gate

import (
	"fmt"
	"log/slog"

	"github.com/ridgelinebank/teller/internal/model"
)

// Default thresholds.
const (
	DefaultUncertainBelow    = 0.60
	DefaultConfidentAt       = 0.85
	DefaultTieMargin         = 0.05
	DefaultAutomationCeiling = 10000
)

// Config holds the gate thresholds.
type Config struct {
	// UncertainBelow: confidence under this means we ask for clarification.
	UncertainBelow float64
	// ConfidentAt: confidence at or above this (with complete entities and no
	// intent tie) allows autonomous execution.
	ConfidentAt float64
	// TieMargin: two intent candidates closer than this are treated as a tie.
	TieMargin float64
	// AutomationCeiling: amounts above this always need explicit confirmation.
	AutomationCeiling float64
}

func (c Config) withDefaults() Config {
	if c.UncertainBelow <= 0 {
		c.UncertainBelow = DefaultUncertainBelow
	}
	if c.ConfidentAt <= 0 {
		c.ConfidentAt = DefaultConfidentAt
	}
	if c.TieMargin <= 0 {
		c.TieMargin = DefaultTieMargin
	}
	if c.AutomationCeiling <= 0 {
		c.AutomationCeiling = DefaultAutomationCeiling
	}
	return c
}

// Decision is the gate's verdict for one turn.
type Decision struct {
	State model.DecisionState
	// IntentTie is true when the top two intent candidates are too close to
	// choose between; the engine should disambiguate rather than clarify.
	IntentTie bool
	// NeedsConfirmation is true when the operation could otherwise execute but
	// the amount exceeds the automation ceiling.
	NeedsConfirmation bool
	// Reason is a short operator-facing explanation of the verdict.
	Reason string
}

// Gate applies the thresholds.
type Gate struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a gate. Zero-value config fields fall back to the defaults.
func New(cfg Config, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{cfg: cfg.withDefaults(), logger: logger.With("component", "gate")}
}

// Ceiling returns the configured automation ceiling.
func (g *Gate) Ceiling() float64 {
	return g.cfg.AutomationCeiling
}

// TieMargin returns the configured intent tie margin.
func (g *Gate) TieMargin() float64 {
	return g.cfg.TieMargin
}

// Assess decides the state for a turn. candidates must be sorted by
// confidence descending; complete says whether every required entity for the
// top intent is present.
func (g *Gate) Assess(candidates []model.IntentCandidate, complete bool, entities model.EntityMap) Decision {
	if len(candidates) == 0 {
		return Decision{
			State:  model.StateUncertain,
			Reason: "no intent candidates",
		}
	}

	top := candidates[0]

	if top.Confidence < g.cfg.UncertainBelow {
		return Decision{
			State:  model.StateUncertain,
			Reason: fmt.Sprintf("confidence %.2f below %.2f", top.Confidence, g.cfg.UncertainBelow),
		}
	}

	if len(candidates) > 1 && top.Confidence-candidates[1].Confidence < g.cfg.TieMargin {
		return Decision{
			State:     model.StateProbable,
			IntentTie: true,
			Reason: fmt.Sprintf("intents %s and %s within tie margin",
				top.IntentID, candidates[1].IntentID),
		}
	}

	if top.Confidence < g.cfg.ConfidentAt {
		return Decision{
			State:  model.StateProbable,
			Reason: fmt.Sprintf("confidence %.2f below %.2f", top.Confidence, g.cfg.ConfidentAt),
		}
	}

	if !complete {
		return Decision{
			State:  model.StateProbable,
			Reason: "required entities missing",
		}
	}

	decision := Decision{
		State:  model.StateConfident,
		Reason: fmt.Sprintf("confidence %.2f with complete entities", top.Confidence),
	}

	if amount, ok := entities[model.EntityAmount]; ok && amount.Number > g.cfg.AutomationCeiling {
		decision.NeedsConfirmation = true
		decision.Reason = fmt.Sprintf("amount %.2f exceeds automation ceiling %.2f",
			amount.Number, g.cfg.AutomationCeiling)
		g.logger.Info("amount above automation ceiling, requiring confirmation",
			"amount", amount.Number,
			"ceiling", g.cfg.AutomationCeiling)
	}

	return decision
}
