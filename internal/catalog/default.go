package catalog

import "github.com/ridgelinebank/teller/internal/model"

// DefaultVersion identifies the built-in catalog shipped with the binary.
const DefaultVersion = "builtin-1"

// Default returns the built-in intent catalog. Deployments normally override
// this with a YAML catalog via Load.
func Default() *Store {
	store, err := New(DefaultVersion, defaultIntents())
	if err != nil {
		// The built-in catalog is covered by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return store
}

func defaultIntents() []model.Intent {
	return []model.Intent{
		{
			ID:           "balance.check",
			Category:     "inquiry",
			Description:  "Check the balance of an account",
			RiskLevel:    model.RiskLow,
			AuthRequired: model.AuthBasic,
			OptionalEntities: []model.EntityType{
				model.EntityAccount,
			},
			Keywords: []string{"balance", "how much", "funds available"},
			Patterns: []string{`\bbalance\b`, `how much (money|do i have)`},
			UIHint:   "balance_card",
		},
		{
			ID:           "transfer.send",
			Category:     "payment",
			Description:  "Send money to another person",
			RiskLevel:    model.RiskHigh,
			AuthRequired: model.AuthChallenge,
			RequiredEntities: []model.EntityType{
				model.EntityAmount,
				model.EntityRecipient,
			},
			OptionalEntities: []model.EntityType{
				model.EntitySourceAccount,
				model.EntityCurrency,
				model.EntityMemo,
				model.EntityDate,
			},
			Keywords: []string{"send", "transfer", "pay", "wire", "money"},
			Patterns: []string{`\b(send|transfer|wire)\b.*\bto\b`, `\bpay\b\s+\S+`},
			UIHint:   "transfer_form",
		},
		{
			ID:           "transfer.internal",
			Category:     "payment",
			Description:  "Move money between the customer's own accounts",
			RiskLevel:    model.RiskMedium,
			AuthRequired: model.AuthFull,
			RequiredEntities: []model.EntityType{
				model.EntityAmount,
				model.EntitySourceAccount,
				model.EntityAccount,
			},
			Keywords: []string{"move", "between", "savings", "checking"},
			Patterns: []string{`\bmove\b.*\b(from|to)\b.*\b(savings|checking)\b`},
			UIHint:   "internal_transfer_form",
		},
		{
			ID:           "payment.bill",
			Category:     "payment",
			Description:  "Pay a bill to a registered biller",
			RiskLevel:    model.RiskHigh,
			AuthRequired: model.AuthChallenge,
			RequiredEntities: []model.EntityType{
				model.EntityAmount,
				model.EntityRecipient,
			},
			OptionalEntities: []model.EntityType{
				model.EntityDate,
				model.EntityMemo,
			},
			Keywords: []string{"bill", "invoice", "utility", "electricity", "rent"},
			Patterns: []string{`\bpay\b.*\bbill\b`},
			UIHint:   "bill_payment_form",
		},
		{
			ID:           "transactions.history",
			Category:     "inquiry",
			Description:  "List recent transactions",
			RiskLevel:    model.RiskLow,
			AuthRequired: model.AuthBasic,
			OptionalEntities: []model.EntityType{
				model.EntityAccount,
				model.EntityDate,
			},
			Keywords: []string{"transactions", "history", "statement", "spent", "activity"},
			Patterns: []string{`\b(recent|last)\b.*\btransactions\b`, `what (have i|did i) (spent|spend)`},
			UIHint:   "transaction_list",
		},
		{
			ID:           "card.block",
			Category:     "card",
			Description:  "Block a lost or stolen card",
			RiskLevel:    model.RiskHigh,
			AuthRequired: model.AuthFull,
			OptionalEntities: []model.EntityType{
				model.EntityAccount,
			},
			Keywords: []string{"block", "freeze", "lost", "stolen", "card"},
			Patterns: []string{`\b(block|freeze|cancel)\b.*\bcard\b`, `\bcard\b.*\b(lost|stolen)\b`},
			UIHint:   "card_action",
		},
	}
}
