// Package engine implements the per-turn decision orchestrator: classify,
// extract, resolve, gate, then clarify, disambiguate, confirm, or validate
// and execute. Session memory is mutated only after a turn's outcome is
// known, and exactly one audit record is written per turn no matter how the
// turn ends.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/classify"
	"github.com/ridgelinebank/teller/internal/disambig"
	"github.com/ridgelinebank/teller/internal/extract"
	"github.com/ridgelinebank/teller/internal/gate"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/resolve"
	"github.com/ridgelinebank/teller/internal/rules"
	"github.com/ridgelinebank/teller/internal/service"
)

// continuationConfidence stands in for a turn that carries no classifiable
// intent of its own but continues an established flow (a bare "750" after
// "send money to David", or a committed disambiguation choice).
const continuationConfidence = 0.90

// selectionConfidence is used when the user explicitly picked an intent from
// a disambiguation list.
const selectionConfidence = 1.0

var (
	affirmRe  = regexp.MustCompile(`(?i)^\s*(yes|yeah|yep|confirm|confirmed|sure|go ahead|do it|proceed)\b`)
	declineRe = regexp.MustCompile(`(?i)^\s*(no|nope|cancel|stop|abort|don't|do not)\b`)
)

// DecisionEngine orchestrates one conversation turn end to end.
type DecisionEngine struct {
	classifier *classify.Classifier
	extractor  *extract.Extractor
	resolver   *resolve.Resolver
	gate       *gate.Gate
	rules      *rules.Engine
	storage    service.Storage
	executor   service.Executor
	catalog    *catalog.Store
	logger     *slog.Logger
	locks      sessionLocks
	now        func() time.Time
	newID      func() string
}

// New creates a decision engine with the given pipeline stages and
// collaborators.
func New(
	classifier *classify.Classifier,
	extractor *extract.Extractor,
	resolver *resolve.Resolver,
	g *gate.Gate,
	ruleEngine *rules.Engine,
	storage service.Storage,
	executor service.Executor,
	store *catalog.Store,
	logger *slog.Logger,
) *DecisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &DecisionEngine{
		classifier: classifier,
		extractor:  extractor,
		resolver:   resolver,
		gate:       g,
		rules:      ruleEngine,
		storage:    storage,
		executor:   executor,
		catalog:    store,
		logger:     logger.With("component", "engine"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// ProcessTurn handles one utterance for one session. Turns for the same
// session ID are serialized; different sessions proceed concurrently.
func (e *DecisionEngine) ProcessTurn(ctx context.Context, sessionID, text string) (*model.TurnResponse, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("session ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("utterance is empty")
	}

	unlock := e.locks.lock(sessionID)
	defer unlock()

	sess, err := e.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// All mutations happen on a clone; the stored session changes only when
	// the whole turn commits below.
	staged := sess.Clone()
	turnNumber := staged.NextTurn()

	resp, record := e.dispatch(ctx, staged, text)

	now := e.now().UTC()
	record.ID = e.newID()
	record.SessionID = sessionID
	record.Turn = turnNumber
	record.InputText = text
	record.Timestamp = now
	resp.SessionID = sessionID

	staged.TurnHistory = append(staged.TurnHistory, model.TurnRecord{
		Turn:     turnNumber,
		Input:    text,
		State:    record.DecisionState,
		Outcome:  record.Outcome,
		IntentID: record.Classification.IntentID,
		At:       now,
	})

	if err := e.storage.AppendAuditRecord(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to audit turn: %w", err)
	}
	if err := e.storage.SaveSession(ctx, staged); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	e.logger.Info("turn processed",
		"session_id", sessionID,
		"turn", turnNumber,
		"intent_id", record.Classification.IntentID,
		"state", record.DecisionState,
		"outcome", record.Outcome)

	return resp, nil
}

// dispatch routes the turn: a pending confirmation or disambiguation list is
// consumed first; everything else is a fresh utterance.
func (e *DecisionEngine) dispatch(ctx context.Context, staged *model.SessionContext, text string) (*model.TurnResponse, *model.AuditRecord) {
	if staged.PendingConfirmation != nil {
		if resp, record := e.confirmationTurn(ctx, staged, text); resp != nil {
			return resp, record
		}
		// Not a yes or no: the confirmation lapses and the utterance stands
		// on its own.
		staged.PendingConfirmation = nil
	}

	if len(staged.DisambiguationCandidates) > 0 {
		if resp, record := e.selectionTurn(ctx, staged, text); resp != nil {
			return resp, record
		}
		staged.DisambiguationCandidates = nil
	}

	return e.utteranceTurn(ctx, staged, text)
}

// utteranceTurn runs the full pipeline on a fresh utterance.
func (e *DecisionEngine) utteranceTurn(ctx context.Context, staged *model.SessionContext, text string) (*model.TurnResponse, *model.AuditRecord) {
	cls := e.classifier.Classify(ctx, text, staged)
	top := cls.Top()

	// Extraction targets come from the most plausible intent: the classified
	// one, or the pending one when the turn only supplies entities.
	extractionIntentID := top.IntentID
	if extractionIntentID == model.UnknownIntentID && staged.PendingIntent != "" {
		extractionIntentID = staged.PendingIntent
	}

	extracted := extract.Result{Entities: model.EntityMap{}}
	if intent, known := e.catalog.Get(extractionIntentID); known {
		extracted = e.extractor.Extract(ctx, text, intent, cls.Spans)
	}

	resolved := e.resolver.Resolve(text, top.IntentID, extracted.Entities, staged)

	candidates := cls.Candidates
	if resolved.IntentID != top.IntentID {
		// Flow continuation or replay: the effective intent was established
		// on an earlier turn, not by this classification.
		candidates = []model.IntentCandidate{{
			IntentID:   resolved.IntentID,
			Confidence: continuationConfidence,
			Origin:     "pattern",
		}}
	}

	return e.decide(ctx, staged, candidates, resolved, extracted.RecipientMatches)
}

// decide runs the gate and the outcome branch shared by fresh utterances and
// committed disambiguation selections.
func (e *DecisionEngine) decide(
	ctx context.Context,
	staged *model.SessionContext,
	candidates []model.IntentCandidate,
	resolved resolve.Result,
	recipientMatches []model.RecipientCandidate,
) (*model.TurnResponse, *model.AuditRecord) {
	decision := e.gate.Assess(candidates, resolved.Complete, resolved.Entities)
	intent, intentKnown := e.catalog.Get(resolved.IntentID)

	record := &model.AuditRecord{
		Classification: model.ClassificationResult{
			IntentID:     resolved.IntentID,
			Category:     intent.Category,
			Confidence:   candidates[0].Confidence,
			Entities:     resolved.Entities,
			RiskLevel:    intent.RiskLevel,
			AuthRequired: intent.AuthRequired,
			Candidates:   candidates,
		},
		DecisionState: decision.State,
	}
	resp := &model.TurnResponse{
		DecisionState: decision.State,
		Confidence:    candidates[0].Confidence,
		IntentID:      resolved.IntentID,
		UIHint:        intent.UIHint,
	}

	switch {
	case decision.State == model.StateUncertain:
		record.Outcome = model.OutcomeClarify
		resp.Outcome = model.OutcomeClarify
		resp.Message = msgUnknownIntent()

	case decision.IntentTie:
		options := disambig.FromIntents(tiedCandidates(candidates, e.gate.TieMargin()), e.catalog)
		staged.DisambiguationCandidates = options
		staged.PendingEntities = resolved.Entities
		record.Outcome = model.OutcomeDisambiguate
		resp.Outcome = model.OutcomeDisambiguate
		resp.DisambiguationOptions = options
		resp.Message = msgIntentChoice(options)

	case len(recipientMatches) > 1 && intentKnown && intent.Accepts(model.EntityRecipient):
		options := disambig.FromRecipients(recipientMatches)
		staged.DisambiguationCandidates = options
		staged.PendingIntent = resolved.IntentID
		staged.PendingEntities = resolved.Entities
		record.Outcome = model.OutcomeDisambiguate
		resp.Outcome = model.OutcomeDisambiguate
		resp.DisambiguationOptions = options
		resp.Message = msgRecipientChoice(options)

	case !resolved.Complete:
		staged.PendingIntent = resolved.IntentID
		staged.PendingEntities = resolved.Entities
		record.Outcome = model.OutcomeClarify
		resp.Outcome = model.OutcomeClarify
		resp.MissingFields = resolved.Missing
		resp.Message = msgMissingEntities(intent, resolved.Missing)

	case decision.State == model.StateProbable:
		// Complete but not confident enough to act alone: confirm the
		// interpretation before executing.
		e.requestConfirmation(ctx, staged, intent, resolved, candidates[0].Confidence,
			"interpretation below execution threshold", record, resp)

	case decision.NeedsConfirmation:
		// Above the automation ceiling the stakes rise no matter what the
		// catalog says about the intent.
		record.Classification.RiskLevel = intent.RiskLevel.Escalate(model.RiskCritical)
		e.requestConfirmation(ctx, staged, intent, resolved, candidates[0].Confidence,
			decision.Reason, record, resp)

	default:
		e.validateAndExecute(ctx, staged, intent, resolved.Entities, candidates[0].Confidence, record, resp)
	}

	return resp, record
}

// requestConfirmation validates the operation and, if it survives, parks it
// behind an explicit yes.
func (e *DecisionEngine) requestConfirmation(
	ctx context.Context,
	staged *model.SessionContext,
	intent model.Intent,
	resolved resolve.Result,
	confidence float64,
	reason string,
	record *model.AuditRecord,
	resp *model.TurnResponse,
) {
	outcomes := e.rules.Validate(ctx, staged, intent, resolved.Entities)
	record.RulesApplied = outcomes
	record.Classification.RiskLevel = model.EscalatedRisk(record.Classification.RiskLevel, outcomes)
	record.Classification.AuthRequired = model.UpgradedAuth(record.Classification.AuthRequired, outcomes)

	if rejectOutcome, rejected := model.FirstReject(outcomes); rejected {
		e.reject(staged, rejectOutcome, record, resp)
		return
	}

	staged.PendingConfirmation = &model.PendingConfirmation{
		IntentID:    intent.ID,
		Entities:    resolved.Entities.Clone(),
		Confidence:  confidence,
		Reason:      reason,
		RequestedAt: e.now().UTC(),
	}
	staged.PendingIntent = intent.ID
	staged.PendingEntities = resolved.Entities

	record.Outcome = model.OutcomeConfirm
	resp.Outcome = model.OutcomeConfirm
	resp.Message = msgConfirm(intent, resolved.Entities, reason)
}

// validateAndExecute runs the rule cascade and, on full acceptance, the
// executor.
func (e *DecisionEngine) validateAndExecute(
	ctx context.Context,
	staged *model.SessionContext,
	intent model.Intent,
	entities model.EntityMap,
	confidence float64,
	record *model.AuditRecord,
	resp *model.TurnResponse,
) {
	record.Classification.Confidence = confidence
	resp.Confidence = confidence

	outcomes := e.rules.Validate(ctx, staged, intent, entities)
	record.RulesApplied = outcomes
	record.Classification.RiskLevel = model.EscalatedRisk(record.Classification.RiskLevel, outcomes)
	record.Classification.AuthRequired = model.UpgradedAuth(record.Classification.AuthRequired, outcomes)

	if rejectOutcome, rejected := model.FirstReject(outcomes); rejected {
		e.reject(staged, rejectOutcome, record, resp)
		return
	}

	result, err := e.executor.Execute(ctx, intent.ID, entities)
	if err != nil || result == nil || !result.Success {
		detail := "execution failed"
		if err != nil {
			detail = err.Error()
		} else if result != nil && result.Reason != "" {
			detail = result.Reason
		}
		e.logger.Error("execution failed",
			"session_id", staged.SessionID,
			"intent_id", intent.ID,
			"error", detail)

		// The operation stays pending so the user can retry without
		// restating everything.
		staged.PendingIntent = intent.ID
		staged.PendingEntities = entities.Clone()
		record.Outcome = model.OutcomeFailed
		record.FailureDetail = detail
		resp.Outcome = model.OutcomeFailed
		resp.Message = msgFailed(intent)
		return
	}

	record.Outcome = model.OutcomeExecuted
	record.DecisionState = model.StateExecuted
	record.ExecutionRef = result.ReferenceID
	resp.Outcome = model.OutcomeExecuted
	resp.DecisionState = model.StateExecuted
	resp.ExecutionRef = result.ReferenceID
	resp.Message = msgExecuted(intent, result.ReferenceID)

	e.commitExecution(staged, intent, entities)
}

// reject concludes the operation: the rejection is final and pending state
// is cleared.
func (e *DecisionEngine) reject(staged *model.SessionContext, rejectOutcome model.RuleOutcome, record *model.AuditRecord, resp *model.TurnResponse) {
	clearPending(staged)
	record.Outcome = model.OutcomeRejected
	record.FailureDetail = rejectOutcome.Detail
	resp.Outcome = model.OutcomeRejected
	resp.Message = msgRejected(rejectOutcome)
}

// commitExecution updates session memory after a successful execution: the
// executed entities become the referents for the next turn's anaphora.
func (e *DecisionEngine) commitExecution(staged *model.SessionContext, intent model.Intent, entities model.EntityMap) {
	staged.LastIntent = intent.ID
	if amount, ok := entities[model.EntityAmount]; ok {
		staged.LastAmount = &amount
	}
	if recipient, ok := entities[model.EntityRecipient]; ok {
		staged.LastRecipient = &recipient
	}
	if account, ok := entities[model.EntityAccount]; ok {
		staged.LastAccount = &account
	} else if source, ok := entities[model.EntitySourceAccount]; ok {
		staged.LastAccount = &source
	}
	clearPending(staged)
}

func clearPending(staged *model.SessionContext) {
	staged.PendingIntent = ""
	staged.PendingEntities = nil
	staged.DisambiguationCandidates = nil
	staged.PendingConfirmation = nil
}

// confirmationTurn consumes a pending confirmation. It returns nil when the
// utterance is neither a yes nor a no, in which case the turn is processed
// as a fresh utterance.
func (e *DecisionEngine) confirmationTurn(ctx context.Context, staged *model.SessionContext, text string) (*model.TurnResponse, *model.AuditRecord) {
	pending := staged.PendingConfirmation
	intent, known := e.catalog.Get(pending.IntentID)
	if !known {
		// The catalog changed underneath the session. Drop the confirmation.
		e.logger.Warn("pending confirmation references unknown intent, discarding",
			"session_id", staged.SessionID,
			"intent_id", pending.IntentID)
		return nil, nil
	}

	record := &model.AuditRecord{
		Classification: model.ClassificationResult{
			IntentID:     pending.IntentID,
			Category:     intent.Category,
			Confidence:   pending.Confidence,
			Entities:     pending.Entities,
			RiskLevel:    intent.RiskLevel,
			AuthRequired: intent.AuthRequired,
		},
		DecisionState: model.StateConfident,
	}
	resp := &model.TurnResponse{
		DecisionState: model.StateConfident,
		Confidence:    pending.Confidence,
		IntentID:      pending.IntentID,
		UIHint:        intent.UIHint,
	}

	switch {
	case affirmRe.MatchString(text):
		staged.PendingConfirmation = nil
		// Conditions can change between the confirmation request and the
		// yes; the cascade runs again. The explicit yes commits the parked
		// interpretation the same way a disambiguation choice commits an
		// option, so the turn proceeds at full confidence.
		e.validateAndExecute(ctx, staged, intent, pending.Entities, selectionConfidence, record, resp)
		return resp, record

	case declineRe.MatchString(text):
		clearPending(staged)
		record.Outcome = model.OutcomeRejected
		record.FailureDetail = "confirmation declined"
		resp.Outcome = model.OutcomeRejected
		resp.Message = msgDeclined(intent)
		return resp, record

	default:
		return nil, nil
	}
}

// selectionTurn consumes a pending disambiguation list. It returns nil when
// the utterance does not select anything.
func (e *DecisionEngine) selectionTurn(ctx context.Context, staged *model.SessionContext, text string) (*model.TurnResponse, *model.AuditRecord) {
	choice, ok := disambig.Match(text, staged.DisambiguationCandidates)
	if !ok {
		return nil, nil
	}
	staged.DisambiguationCandidates = nil

	confidence := continuationConfidence
	if choice.IntentID != "" && choice.EntityType == "" {
		// Intent selection: the user explicitly named the operation.
		staged.PendingIntent = choice.IntentID
		confidence = selectionConfidence
	} else {
		entity := disambig.Entity(choice)
		if staged.PendingEntities == nil {
			staged.PendingEntities = make(model.EntityMap)
		}
		staged.PendingEntities[entity.Type] = entity
	}

	resolved := e.resolver.Resolve("", staged.PendingIntent, nil, staged)
	candidates := []model.IntentCandidate{{
		IntentID:   resolved.IntentID,
		Confidence: confidence,
		Origin:     "service",
	}}

	return e.decide(ctx, staged, candidates, resolved, nil)
}

// tiedCandidates returns the leading candidates that sit inside the tie
// margin of the top one.
func tiedCandidates(candidates []model.IntentCandidate, margin float64) []model.IntentCandidate {
	if len(candidates) < 2 {
		return candidates
	}
	tied := []model.IntentCandidate{candidates[0]}
	for _, c := range candidates[1:] {
		if candidates[0].Confidence-c.Confidence >= margin {
			break
		}
		tied = append(tied, c)
	}
	return tied
}
