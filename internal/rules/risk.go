package rules

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridgelinebank/teller/internal/model"
)

// riskStage applies the fraud-shaped checks. It only runs for operations that
// carry risk beyond LOW; inquiries skip it entirely. A risk hit that does not
// reject escalates the operation's risk level and auth demand instead.
func (e *Engine) riskStage(ctx context.Context, sess *model.SessionContext, intent model.Intent, entities model.EntityMap) []model.RuleOutcome {
	if intent.RiskLevel == model.RiskLow {
		return nil
	}

	var outcomes []model.RuleOutcome
	outcomes = append(outcomes, e.checkVelocity(ctx, sess, intent))

	recipient, hasRecipient := entities[model.EntityRecipient]
	if hasRecipient {
		outcomes = append(outcomes, e.checkBlocklist(recipient))
	}
	if amount, ok := entities[model.EntityAmount]; ok && hasRecipient {
		outcomes = append(outcomes, e.checkBlockedPair(recipient, amount))
	}

	return outcomes
}

// checkVelocity caps how many operations of the same category a session can
// execute inside the rolling window.
func (e *Engine) checkVelocity(ctx context.Context, sess *model.SessionContext, intent model.Intent) model.RuleOutcome {
	if e.storage == nil {
		return acceptWith("risk.velocity", "storage unavailable, velocity not checked")
	}

	since := e.now().Add(-e.cfg.VelocityWindow)
	count, err := e.storage.CountExecutionsSince(ctx, sess.SessionID, intent.Category, since)
	if err != nil {
		return reject("risk.velocity",
			fmt.Sprintf("could not check execution velocity: %v", err))
	}

	if count >= e.cfg.VelocityLimit {
		return reject("risk.velocity",
			fmt.Sprintf("%d %s operations in the last %s, limit is %d",
				count, intent.Category, e.cfg.VelocityWindow, e.cfg.VelocityLimit))
	}
	if count == e.cfg.VelocityLimit-1 {
		return escalate("risk.velocity",
			fmt.Sprintf("%d %s operations in the last %s, one below the limit of %d",
				count, intent.Category, e.cfg.VelocityWindow, e.cfg.VelocityLimit),
			model.RiskHigh, model.AuthChallenge)
	}
	return accept("risk.velocity")
}

func (e *Engine) checkBlocklist(recipient model.Entity) model.RuleOutcome {
	for _, blocked := range e.cfg.BlockedRecipients {
		if strings.EqualFold(blocked, recipient.Value) {
			return reject("risk.blocked_recipient",
				fmt.Sprintf("recipient %q is blocked", recipient.Value))
		}
	}
	return accept("risk.blocked_recipient")
}

// checkBlockedPair flags amount/recipient combinations seen in past fraud.
// The operation is not blocked; the hit demands critical handling instead.
func (e *Engine) checkBlockedPair(recipient, amount model.Entity) model.RuleOutcome {
	for name, badAmount := range e.cfg.BlockedPairs {
		if strings.EqualFold(name, recipient.Value) && amount.Number == badAmount {
			return escalate("risk.known_bad_pair",
				fmt.Sprintf("amount %.2f to %q matches a known-bad pair", amount.Number, recipient.Value),
				model.RiskCritical, model.AuthChallenge)
		}
	}
	return accept("risk.known_bad_pair")
}
