package rules

import (
	"fmt"
	"math"
	"regexp"

	"github.com/ridgelinebank/teller/internal/model"
)

var accountValueRe = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,64}$`)

// formatStage checks the shape of the entity values before any collaborator
// is consulted. It is pure and cheap.
func (e *Engine) formatStage(intent model.Intent, entities model.EntityMap) []model.RuleOutcome {
	var outcomes []model.RuleOutcome

	if amount, ok := entities[model.EntityAmount]; ok {
		if amount.Number > 0 {
			outcomes = append(outcomes, accept("format.amount_positive"))
		} else {
			outcomes = append(outcomes, reject("format.amount_positive",
				fmt.Sprintf("amount %.2f is not positive", amount.Number)))
		}

		if fractionCents(amount.Number) {
			outcomes = append(outcomes, accept("format.amount_precision"))
		} else {
			outcomes = append(outcomes, reject("format.amount_precision",
				fmt.Sprintf("amount %v has sub-cent precision", amount.Value)))
		}
	}

	for _, t := range []model.EntityType{model.EntityAccount, model.EntitySourceAccount} {
		account, ok := entities[t]
		if !ok {
			continue
		}
		name := fmt.Sprintf("format.%s", t)
		if accountValueRe.MatchString(account.Value) {
			outcomes = append(outcomes, accept(name))
		} else {
			outcomes = append(outcomes, reject(name,
				fmt.Sprintf("account reference %q is malformed", account.Value)))
		}
	}

	return outcomes
}

// fractionCents reports whether n has at most two fraction digits.
func fractionCents(n float64) bool {
	cents := n * 100
	return math.Abs(cents-math.Round(cents)) < 1e-6
}
