// Package classify implements the intent classifier: probabilistic
// understanding output merged with the catalog's deterministic pattern
// fallback into a single ranked candidate list.
package classify

import (
	"context"
	"log/slog"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// DefaultServiceFloor is the minimum confidence the understanding service's
// top candidate needs before it is preferred over the pattern fallback.
const DefaultServiceFloor = 0.5

// Config holds classifier tunables.
type Config struct {
	ServiceFloor float64
}

// Result is the classifier's output for one utterance. Candidates are ranked
// best-first and always non-empty: when nothing clears the floor the list
// holds the synthetic unknown intent at confidence zero.
type Result struct {
	Candidates         []model.IntentCandidate
	Spans              []service.EntitySpan
	ServiceUnavailable bool
}

// Top returns the best candidate.
func (r *Result) Top() model.IntentCandidate {
	return r.Candidates[0]
}

// Classifier ranks intent candidates for an utterance. It is a pure function
// over its inputs and the catalog; all state lives in the session the engine
// passes around.
type Classifier struct {
	understander service.Understander
	catalog      *catalog.Store
	logger       *slog.Logger
	floor        float64
}

// New creates a classifier. The understander may be nil, in which case every
// turn takes the deterministic path.
func New(understander service.Understander, store *catalog.Store, cfg Config, logger *slog.Logger) *Classifier {
	floor := cfg.ServiceFloor
	if floor <= 0 {
		floor = DefaultServiceFloor
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		understander: understander,
		catalog:      store,
		logger:       logger.With("component", "classify"),
		floor:        floor,
	}
}

// Classify produces the ranked candidate list for the utterance. A failure of
// the understanding service is recovered locally via the pattern fallback and
// never surfaces as an error.
func (c *Classifier) Classify(ctx context.Context, text string, sess *model.SessionContext) Result {
	patternCandidates := c.catalog.Match(text)

	serviceResult, unavailable := c.understand(ctx, text, sess)

	var merged []model.IntentCandidate
	switch {
	case serviceResult != nil && len(serviceResult.Candidates) > 0 && serviceResult.Candidates[0].Confidence >= c.floor:
		merged = c.mergeServiceFirst(serviceResult.Candidates, patternCandidates)
	case len(patternCandidates) > 0 && patternCandidates[0].Confidence >= c.floor:
		merged = patternCandidates
	default:
		merged = []model.IntentCandidate{{IntentID: model.UnknownIntentID, Confidence: 0, Origin: "pattern"}}
	}

	result := Result{
		Candidates:         merged,
		ServiceUnavailable: unavailable,
	}
	if serviceResult != nil {
		result.Spans = serviceResult.Entities
	}
	return result
}

func (c *Classifier) understand(ctx context.Context, text string, sess *model.SessionContext) (*service.UnderstandingResult, bool) {
	if c.understander == nil {
		return nil, false
	}

	hints := service.Hints{KnownIntents: c.catalog.IDs()}
	if sess != nil {
		hints.PendingIntent = sess.PendingIntent
		hints.LastIntent = sess.LastIntent
	}

	result, err := c.understander.ClassifyAndExtract(ctx, text, hints)
	if err != nil {
		// Recovered locally: the pattern path carries the turn.
		c.logger.Warn("understanding service unavailable, using pattern fallback", "error", err)
		return nil, true
	}

	// Drop candidates for intents the catalog does not know about.
	filtered := result.Candidates[:0]
	for _, cand := range result.Candidates {
		if _, ok := c.catalog.Get(cand.IntentID); ok {
			filtered = append(filtered, cand)
		} else {
			c.logger.Debug("dropping candidate for unknown intent", "intent_id", cand.IntentID)
		}
	}
	result.Candidates = filtered

	return result, false
}

// mergeServiceFirst keeps the service ranking and appends pattern candidates
// for intents the service did not mention, so the gate can see deterministic
// near-ties too.
func (c *Classifier) mergeServiceFirst(serviceCands, patternCands []model.IntentCandidate) []model.IntentCandidate {
	seen := make(map[string]bool, len(serviceCands))
	merged := make([]model.IntentCandidate, 0, len(serviceCands)+len(patternCands))

	for _, cand := range serviceCands {
		seen[cand.IntentID] = true
		merged = append(merged, cand)
	}
	for _, cand := range patternCands {
		if !seen[cand.IntentID] {
			merged = append(merged, cand)
		}
	}

	return merged
}
