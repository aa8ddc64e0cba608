// Package extract pulls typed entities out of utterance text, combining
// local parsers with entity spans from the understanding service. Extraction
// fails softly: one entity's parse failure never aborts the others, and
// missing required entities are left absent rather than defaulted.
package extract

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// Confidence for entities we could not corroborate locally.
const (
	unverifiedRecipientConfidence = 0.60
	indexedRecipientConfidence    = 0.90
	accountWordConfidence         = 0.75
	ledgerAccountConfidence       = 0.85
	memoConfidence                = 0.80
	dateConfidence                = 0.85
	currencyConfidence            = 0.90
)

// Result is the extractor's output for one turn.
type Result struct {
	Entities model.EntityMap
	// RecipientMatches holds every index hit when the recipient reference is
	// ambiguous (more than one match). The entity itself is left unset in
	// that case; the disambiguation engine takes over.
	RecipientMatches []model.RecipientCandidate
}

// Extractor runs the typed per-entity parsers.
type Extractor struct {
	recipients service.RecipientIndex
	ledger     service.Ledger
	logger     *slog.Logger
	now        func() time.Time
}

// New creates an extractor. The recipient index and ledger are optional;
// without them recipient and account references stay unverified.
func New(recipients service.RecipientIndex, ledger service.Ledger, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		recipients: recipients,
		ledger:     ledger,
		logger:     logger.With("component", "extract"),
		now:        time.Now,
	}
}

// Extract parses every entity type the intent accepts out of the utterance.
func (e *Extractor) Extract(ctx context.Context, text string, intent model.Intent, spans []service.EntitySpan) Result {
	result := Result{Entities: make(model.EntityMap)}

	spanByType := make(map[model.EntityType]service.EntitySpan, len(spans))
	for _, span := range spans {
		if existing, ok := spanByType[span.Type]; !ok || span.Confidence > existing.Confidence {
			spanByType[span.Type] = span
		}
	}

	targets := append(append([]model.EntityType(nil), intent.RequiredEntities...), intent.OptionalEntities...)
	accounts := parseAccounts(text)

	for _, target := range targets {
		if _, done := result.Entities[target]; done {
			continue
		}

		switch target {
		case model.EntityAmount:
			e.extractAmount(text, spanByType, result.Entities)
		case model.EntityCurrency:
			if code, raw, ok := parseCurrency(text); ok {
				result.Entities[model.EntityCurrency] = model.Entity{
					Type: model.EntityCurrency, Value: code, RawText: raw,
					Confidence: currencyConfidence, Source: model.SourceExtracted,
				}
			}
		case model.EntityDate:
			if value, raw, ok := parseDate(text, e.now()); ok {
				result.Entities[model.EntityDate] = model.Entity{
					Type: model.EntityDate, Value: value, RawText: raw,
					Confidence: dateConfidence, Source: model.SourceExtracted,
				}
			}
		case model.EntityMemo:
			if memo, ok := parseMemo(text); ok {
				result.Entities[model.EntityMemo] = model.Entity{
					Type: model.EntityMemo, Value: memo, RawText: memo,
					Confidence: memoConfidence, Source: model.SourceExtracted,
				}
			}
		case model.EntityRecipient:
			e.extractRecipient(ctx, text, spanByType, &result)
		case model.EntitySourceAccount:
			if accounts.source != "" {
				result.Entities[model.EntitySourceAccount] = e.accountEntity(ctx, model.EntitySourceAccount, accounts.source)
			}
		case model.EntityAccount:
			if accounts.target != "" {
				result.Entities[model.EntityAccount] = e.accountEntity(ctx, model.EntityAccount, accounts.target)
			}
		}
	}

	return result
}

func (e *Extractor) extractAmount(text string, spans map[model.EntityType]service.EntitySpan, entities model.EntityMap) {
	if parsed, ok := parseAmount(text); ok {
		entities[model.EntityAmount] = model.Entity{
			Type: model.EntityAmount, Value: parsed.value, Number: parsed.number,
			RawText: parsed.raw, Confidence: parsed.confidence, Source: model.SourceExtracted,
		}
		return
	}

	// Local parse failed; trust the service span if its value is numeric.
	span, ok := spans[model.EntityAmount]
	if !ok {
		return
	}
	n, ok := parseNumber(strings.TrimLeft(span.Value, "$€£ "))
	if !ok {
		e.logger.Debug("unparseable amount span, leaving amount absent", "raw", span.RawText)
		return
	}
	entities[model.EntityAmount] = model.Entity{
		Type: model.EntityAmount, Value: formatNumber(n), Number: n,
		RawText: span.RawText, Confidence: span.Confidence, Source: model.SourceExtracted,
	}
}

func (e *Extractor) extractRecipient(ctx context.Context, text string, spans map[model.EntityType]service.EntitySpan, result *Result) {
	name, ok := parseRecipientName(text)
	if !ok {
		if span, found := spans[model.EntityRecipient]; found {
			name = span.Value
			ok = name != ""
		}
	}
	if !ok || name == "" {
		return
	}

	matches := e.lookupRecipient(ctx, name)

	switch len(matches) {
	case 0:
		result.Entities[model.EntityRecipient] = model.Entity{
			Type: model.EntityRecipient, Value: name, RawText: name,
			Confidence: unverifiedRecipientConfidence, Source: model.SourceExtracted,
		}
	case 1:
		result.Entities[model.EntityRecipient] = model.Entity{
			Type: model.EntityRecipient, Value: matches[0].DisplayName, RawText: name,
			Confidence: indexedRecipientConfidence, Source: model.SourceExtracted,
		}
	default:
		// Ambiguous; never auto-select.
		result.RecipientMatches = matches
	}
}

func (e *Extractor) lookupRecipient(ctx context.Context, name string) []model.RecipientCandidate {
	if e.recipients == nil {
		return nil
	}
	matches, err := e.recipients.Lookup(ctx, name)
	if err != nil {
		e.logger.Warn("recipient index lookup failed", "name", name, "error", err)
		return nil
	}
	return matches
}

func (e *Extractor) accountEntity(ctx context.Context, entityType model.EntityType, word string) model.Entity {
	entity := model.Entity{
		Type: entityType, Value: word, RawText: word,
		Confidence: accountWordConfidence, Source: model.SourceExtracted,
	}

	if e.ledger == nil {
		return entity
	}

	account, err := e.ledger.Account(ctx, word)
	if err != nil || account == nil {
		return entity
	}

	entity.Value = account.ID
	entity.RawText = word
	entity.Confidence = ledgerAccountConfidence
	return entity
}
