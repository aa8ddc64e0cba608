package engine

import (
	"fmt"
	"strings"

	"github.com/ridgelinebank/teller/internal/model"
)

// User-facing message builders. The wording is deliberately plain; rendering
// concerns (forms, buttons) ride on TurnResponse.UIHint instead.

func msgUnknownIntent() string {
	return "I'm not sure what you'd like to do. You can check a balance, send money, pay a bill, list transactions, or block a card."
}

func msgMissingEntities(intent model.Intent, missing []model.EntityType) string {
	labels := make([]string, 0, len(missing))
	for _, t := range missing {
		labels = append(labels, entityLabel(t))
	}
	return fmt.Sprintf("To %s, I still need the %s.",
		strings.ToLower(intent.Description), strings.Join(labels, " and the "))
}

func msgRecipientChoice(options []model.DisambiguationCandidate) string {
	var b strings.Builder
	b.WriteString("I found more than one match. Which one did you mean?\n")
	writeOptions(&b, options)
	return b.String()
}

func msgIntentChoice(options []model.DisambiguationCandidate) string {
	var b strings.Builder
	b.WriteString("I can read that more than one way. Which did you mean?\n")
	writeOptions(&b, options)
	return b.String()
}

func writeOptions(b *strings.Builder, options []model.DisambiguationCandidate) {
	for _, opt := range options {
		fmt.Fprintf(b, "  %d. %s\n", opt.Index+1, opt.Label)
	}
}

func msgConfirm(intent model.Intent, entities model.EntityMap, reason string) string {
	summary := operationSummary(intent, entities)
	return fmt.Sprintf("Please confirm: %s (%s). Reply yes to proceed or no to cancel.", summary, reason)
}

func msgExecuted(intent model.Intent, referenceID string) string {
	if referenceID != "" {
		return fmt.Sprintf("Done. %s (reference %s).", intent.Description, referenceID)
	}
	return fmt.Sprintf("Done. %s.", intent.Description)
}

func msgRejected(outcome model.RuleOutcome) string {
	return fmt.Sprintf("I can't do that: %s.", outcome.Detail)
}

func msgDeclined(intent model.Intent) string {
	return fmt.Sprintf("Cancelled. I won't %s.", strings.ToLower(intent.Description))
}

func msgFailed(intent model.Intent) string {
	return fmt.Sprintf("Something went wrong while trying to %s. Nothing was changed; please try again.",
		strings.ToLower(intent.Description))
}

func operationSummary(intent model.Intent, entities model.EntityMap) string {
	parts := []string{strings.ToLower(intent.Description)}
	if amount, ok := entities[model.EntityAmount]; ok {
		parts = append(parts, fmt.Sprintf("amount %s", amount.Value))
	}
	if recipient, ok := entities[model.EntityRecipient]; ok {
		parts = append(parts, fmt.Sprintf("to %s", recipient.Value))
	}
	if source, ok := entities[model.EntitySourceAccount]; ok {
		parts = append(parts, fmt.Sprintf("from %s", source.Value))
	}
	return strings.Join(parts, ", ")
}

func entityLabel(t model.EntityType) string {
	switch t {
	case model.EntityAmount:
		return "amount"
	case model.EntityRecipient:
		return "recipient"
	case model.EntityAccount:
		return "target account"
	case model.EntitySourceAccount:
		return "source account"
	case model.EntityDate:
		return "date"
	case model.EntityCurrency:
		return "currency"
	case model.EntityMemo:
		return "memo"
	default:
		return string(t)
	}
}
