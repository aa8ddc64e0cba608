// Package rules validates a proposed operation before execution. Validation
// runs as a three-stage cascade: format checks, business checks, then risk
// checks. Every rule that runs is recorded for the audit trail, and a reject
// in one stage stops the later stages from running at all.
package rules

import (
	"context"
	"log/slog"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// Default limits.
const (
	DefaultVelocityLimit                  = 5
	DefaultVelocityWindow                 = time.Hour
	DefaultRecipientVerificationThreshold = 1000
	DefaultPaymentLimit                   = 25000
)

// verifiedRecipientConfidence is the confidence an index-verified recipient
// carries; anything below it counts as unverified.
const verifiedRecipientConfidence = 0.90

// Config holds the rule engine limits.
type Config struct {
	// PerOperationLimits caps the amount per intent ID. Entries override the
	// category-wide DefaultPaymentLimit.
	PerOperationLimits map[string]float64
	// RecipientVerificationThreshold: above this amount the recipient must be
	// a verified, index-backed match.
	RecipientVerificationThreshold float64
	// VelocityLimit is the maximum number of executed operations of the same
	// category per session within VelocityWindow.
	VelocityLimit  int
	VelocityWindow time.Duration
	// BlockedRecipients are recipient names that always reject.
	BlockedRecipients []string
	// BlockedPairs maps a recipient name to an amount known to be bad in
	// combination. A hit escalates risk and auth instead of blocking.
	BlockedPairs map[string]float64
}

func (c Config) withDefaults() Config {
	if c.RecipientVerificationThreshold <= 0 {
		c.RecipientVerificationThreshold = DefaultRecipientVerificationThreshold
	}
	if c.VelocityLimit <= 0 {
		c.VelocityLimit = DefaultVelocityLimit
	}
	if c.VelocityWindow <= 0 {
		c.VelocityWindow = DefaultVelocityWindow
	}
	return c
}

// Engine runs the validation cascade.
type Engine struct {
	ledger  service.Ledger
	storage service.Storage
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a rule engine. The ledger and storage are optional; rules that
// need an absent collaborator record why they could not fully verify instead
// of rejecting.
func New(ledger service.Ledger, storage service.Storage, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		ledger:  ledger,
		storage: storage,
		cfg:     cfg.withDefaults(),
		logger:  logger.With("component", "rules"),
		now:     time.Now,
	}
}

// Validate runs the cascade for one proposed operation and returns every rule
// outcome in the order the rules ran.
func (e *Engine) Validate(ctx context.Context, sess *model.SessionContext, intent model.Intent, entities model.EntityMap) []model.RuleOutcome {
	outcomes := e.formatStage(intent, entities)
	if _, rejected := model.FirstReject(outcomes); rejected {
		e.logReject(sess, intent, outcomes)
		return outcomes
	}

	outcomes = append(outcomes, e.businessStage(ctx, intent, entities)...)
	if _, rejected := model.FirstReject(outcomes); rejected {
		e.logReject(sess, intent, outcomes)
		return outcomes
	}

	outcomes = append(outcomes, e.riskStage(ctx, sess, intent, entities)...)
	if _, rejected := model.FirstReject(outcomes); rejected {
		e.logReject(sess, intent, outcomes)
	}
	return outcomes
}

func (e *Engine) logReject(sess *model.SessionContext, intent model.Intent, outcomes []model.RuleOutcome) {
	reject, _ := model.FirstReject(outcomes)
	e.logger.Info("validation rejected operation",
		"session_id", sess.SessionID,
		"intent_id", intent.ID,
		"rule", reject.RuleName,
		"detail", reject.Detail)
}

func accept(name string) model.RuleOutcome {
	return model.RuleOutcome{RuleName: name, Result: model.RuleAccept}
}

func acceptWith(name, detail string) model.RuleOutcome {
	return model.RuleOutcome{RuleName: name, Result: model.RuleAccept, Detail: detail}
}

func reject(name, detail string) model.RuleOutcome {
	return model.RuleOutcome{RuleName: name, Result: model.RuleReject, Detail: detail}
}

// escalate accepts but raises the operation's risk and auth demands.
func escalate(name, detail string, risk model.RiskLevel, auth model.AuthLevel) model.RuleOutcome {
	return model.RuleOutcome{
		RuleName:     name,
		Result:       model.RuleAccept,
		Detail:       detail,
		EscalateRisk: risk,
		UpgradeAuth:  auth,
	}
}
