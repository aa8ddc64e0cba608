// Package resolve merges each turn's freshly extracted entities with session
// memory and resolves references to prior turns ("him", "same amount",
// "again"). The resolver never mutates the session it is given: it produces
// a merged view the engine commits only once the turn's outcome is known.
package resolve

import (
	"log/slog"
	"regexp"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
)

// Defaults for the resolver tunables.
const (
	// DefaultDecay discounts a contextual reference's confidence relative
	// to the entity it refers to.
	DefaultDecay = 0.9
	// DefaultAcceptanceFloor is the confidence below which an extracted
	// entity filling a required slot is demoted to inferred.
	DefaultAcceptanceFloor = 0.5
)

// Config holds resolver tunables.
type Config struct {
	Decay           float64
	AcceptanceFloor float64
}

// Reference patterns, in precedence order. The first rule that matches a
// still-empty slot wins.
var (
	pronounRe     = regexp.MustCompile(`(?i)\b(him|her|them)\b`)
	sameAmountRe  = regexp.MustCompile(`(?i)(\bsame amount\b|\bthat much\b|\bthe same\b)`)
	thatAccountRe = regexp.MustCompile(`(?i)(\bthere\b|\bthat account\b|\bsame account\b)`)
	replayRe      = regexp.MustCompile(`(?i)(\bagain\b|\banother\b|\bonce more\b)`)
)

// Result is the resolver's merged view of the turn.
type Result struct {
	// IntentID is the effective intent after considering the pending intent
	// and replay references. May be model.UnknownIntentID.
	IntentID string
	// Entities is the merged entity view: pending entities, contextual
	// references, and this turn's extractions (which override the rest).
	Entities model.EntityMap
	// Missing lists required entity types still absent after the merge.
	Missing []model.EntityType
	// Complete is true when the intent is known and nothing is missing.
	Complete bool
	// Replayed is true when the turn re-invoked the previous intent via
	// "again"/"another".
	Replayed bool
}

// Resolver resolves cross-turn references and merges partial entities.
type Resolver struct {
	catalog *catalog.Store
	logger  *slog.Logger
	decay   float64
	floor   float64
}

// New creates a resolver.
func New(store *catalog.Store, cfg Config, logger *slog.Logger) *Resolver {
	decay := cfg.Decay
	if decay <= 0 || decay > 1 {
		decay = DefaultDecay
	}
	floor := cfg.AcceptanceFloor
	if floor <= 0 {
		floor = DefaultAcceptanceFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		catalog: store,
		logger:  logger.With("component", "resolve"),
		decay:   decay,
		floor:   floor,
	}
}

// Resolve merges turnEntities into the session view for the classified
// intent. sess is read, never written.
func (r *Resolver) Resolve(text, classifiedIntent string, turnEntities model.EntityMap, sess *model.SessionContext) Result {
	replayed := replayRe.MatchString(text) && sess.LastIntent != ""

	intentID := r.effectiveIntent(classifiedIntent, sess, replayed)

	merged := make(model.EntityMap)

	// Base layer: pending entities carried across turns, but only while the
	// conversation is still about the pending intent.
	if sess.PendingIntent != "" && sess.PendingIntent == intentID {
		for t, e := range sess.PendingEntities {
			merged[t] = e
		}
	}

	// Contextual layer: anaphora and replay defaults.
	r.applyReferences(text, intentID, replayed, sess, merged, turnEntities)

	// Top layer: this turn's own extractions override everything.
	for t, e := range turnEntities {
		merged[t] = e
	}

	intent, known := r.catalog.Get(intentID)
	if known {
		r.enforceAcceptanceFloor(intent, merged)
	}

	result := Result{
		IntentID: intentID,
		Entities: merged,
		Replayed: replayed,
	}

	if known {
		result.Missing = merged.Missing(intent.RequiredEntities)
		result.Complete = len(result.Missing) == 0
	}

	return result
}

// effectiveIntent picks the intent the turn is actually about: a fresh
// classification wins, then the pending intent (progressive disclosure),
// then a replayed previous intent.
func (r *Resolver) effectiveIntent(classified string, sess *model.SessionContext, replayed bool) string {
	if classified != "" && classified != model.UnknownIntentID {
		return classified
	}
	if sess.PendingIntent != "" {
		return sess.PendingIntent
	}
	if replayed {
		return sess.LastIntent
	}
	return model.UnknownIntentID
}

// applyReferences fills still-empty slots from session memory. Precedence is
// fixed: pronoun, amount reference, account reference, then replay defaults.
// A slot already extracted this turn is never overwritten.
func (r *Resolver) applyReferences(text, intentID string, replayed bool, sess *model.SessionContext, merged, turnEntities model.EntityMap) {
	intent, known := r.catalog.Get(intentID)

	accepts := func(t model.EntityType) bool {
		if !known {
			return true
		}
		return intent.Accepts(t)
	}
	slotOpen := func(t model.EntityType) bool {
		if _, fresh := turnEntities[t]; fresh {
			return false
		}
		_, present := merged[t]
		return !present && accepts(t)
	}

	if pronounRe.MatchString(text) && sess.LastRecipient != nil && slotOpen(model.EntityRecipient) {
		merged[model.EntityRecipient] = r.contextual(*sess.LastRecipient)
	}
	if sameAmountRe.MatchString(text) && sess.LastAmount != nil && slotOpen(model.EntityAmount) {
		merged[model.EntityAmount] = r.contextual(*sess.LastAmount)
	}
	if thatAccountRe.MatchString(text) && sess.LastAccount != nil && slotOpen(model.EntityAccount) {
		merged[model.EntityAccount] = r.contextual(*sess.LastAccount)
	}

	if replayed {
		defaults := map[model.EntityType]*model.Entity{
			model.EntityRecipient: sess.LastRecipient,
			model.EntityAmount:    sess.LastAmount,
			model.EntityAccount:   sess.LastAccount,
		}
		for t, e := range defaults {
			if e != nil && slotOpen(t) {
				merged[t] = r.contextual(*e)
			}
		}
	}
}

// contextual tags a remembered entity as a cross-turn reference with decayed
// confidence.
func (r *Resolver) contextual(e model.Entity) model.Entity {
	e.Source = model.SourceContextual
	e.Confidence *= r.decay
	return e
}

// enforceAcceptanceFloor demotes low-confidence extracted entities that fill
// required slots to inferred, so session memory never carries them as firm.
func (r *Resolver) enforceAcceptanceFloor(intent model.Intent, merged model.EntityMap) {
	for _, t := range intent.RequiredEntities {
		e, ok := merged[t]
		if !ok {
			continue
		}
		if e.Source == model.SourceExtracted && e.Confidence < r.floor {
			e.Source = model.SourceInferred
			merged[t] = e
			r.logger.Debug("demoting low-confidence required entity to inferred",
				"entity_type", t,
				"confidence", e.Confidence)
		}
	}
}
