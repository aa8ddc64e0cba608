package rules

import (
	"context"
	"fmt"

	"github.com/ridgelinebank/teller/internal/model"
)

// businessStage checks the operation against the customer's accounts and the
// configured limits. Ledger lookups that fail reject rather than pass: an
// operation we cannot verify does not run.
func (e *Engine) businessStage(ctx context.Context, intent model.Intent, entities model.EntityMap) []model.RuleOutcome {
	var outcomes []model.RuleOutcome

	amount, hasAmount := entities[model.EntityAmount]

	if source, ok := entities[model.EntitySourceAccount]; ok {
		outcomes = append(outcomes, e.checkOwnership(ctx, "business.source_ownership", source, hasAmount, amount.Number)...)
	} else if hasAmount {
		outcomes = append(outcomes, e.checkDefaultBalance(ctx, amount.Number))
	}

	if target, ok := entities[model.EntityAccount]; ok && intent.Requires(model.EntityAccount) {
		outcomes = append(outcomes, e.checkOwnership(ctx, "business.target_ownership", target, false, 0)...)
	}

	if hasAmount {
		outcomes = append(outcomes, e.checkOperationLimit(intent, amount.Number))
	}

	if recipient, ok := entities[model.EntityRecipient]; ok && hasAmount {
		outcomes = append(outcomes, e.checkRecipientVerification(recipient, amount.Number))
	}

	return outcomes
}

// checkOwnership verifies the account belongs to the customer and, when an
// amount is at stake, that the balance covers it.
func (e *Engine) checkOwnership(ctx context.Context, ruleName string, account model.Entity, checkBalance bool, amount float64) []model.RuleOutcome {
	if e.ledger == nil {
		return []model.RuleOutcome{acceptWith(ruleName, "ledger unavailable, ownership not verified")}
	}

	acct, err := e.ledger.Account(ctx, account.Value)
	if err != nil {
		return []model.RuleOutcome{reject(ruleName,
			fmt.Sprintf("could not verify account %q: %v", account.Value, err))}
	}
	if acct == nil {
		return []model.RuleOutcome{reject(ruleName,
			fmt.Sprintf("account %q is not one of the customer's accounts", account.Value))}
	}

	outcomes := []model.RuleOutcome{accept(ruleName)}
	if checkBalance {
		outcomes = append(outcomes, e.balanceOutcome(acct, amount))
	}
	return outcomes
}

// checkDefaultBalance covers monetary operations that name no source account:
// they draw from the customer's default (first) account.
func (e *Engine) checkDefaultBalance(ctx context.Context, amount float64) model.RuleOutcome {
	if e.ledger == nil {
		return acceptWith("business.sufficient_balance", "ledger unavailable, balance not verified")
	}

	accounts, err := e.ledger.Accounts(ctx)
	if err != nil {
		return reject("business.sufficient_balance",
			fmt.Sprintf("could not read accounts: %v", err))
	}
	if len(accounts) == 0 {
		return reject("business.sufficient_balance", "customer has no accounts")
	}

	return e.balanceOutcome(&accounts[0], amount)
}

func (e *Engine) balanceOutcome(acct *model.Account, amount float64) model.RuleOutcome {
	if acct.AvailableBalance < amount {
		return reject("business.sufficient_balance",
			fmt.Sprintf("insufficient funds: %s has %.2f available, operation needs %.2f",
				acct.Name, acct.AvailableBalance, amount))
	}
	return accept("business.sufficient_balance")
}

func (e *Engine) checkOperationLimit(intent model.Intent, amount float64) model.RuleOutcome {
	limit, ok := e.cfg.PerOperationLimits[intent.ID]
	if !ok {
		limit, ok = e.cfg.PerOperationLimits[intent.Category]
	}
	if !ok && intent.Category == "payment" {
		limit = DefaultPaymentLimit
		ok = true
	}
	if !ok {
		return acceptWith("business.operation_limit", "no limit configured")
	}

	if amount > limit {
		return reject("business.operation_limit",
			fmt.Sprintf("amount %.2f exceeds the %.2f limit for %s", amount, limit, intent.ID))
	}
	return accept("business.operation_limit")
}

func (e *Engine) checkRecipientVerification(recipient model.Entity, amount float64) model.RuleOutcome {
	if amount <= e.cfg.RecipientVerificationThreshold {
		return accept("business.recipient_verified")
	}
	if recipient.Confidence < verifiedRecipientConfidence {
		return reject("business.recipient_verified",
			fmt.Sprintf("amounts above %.2f require a verified recipient; %q is unverified",
				e.cfg.RecipientVerificationThreshold, recipient.Value))
	}
	return accept("business.recipient_verified")
}
