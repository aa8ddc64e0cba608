// Package disambig builds and resolves disambiguation choices. When a
// recipient reference matches several saved recipients, or two intents tie,
// the engine presents a numbered list and the next turn is first interpreted
// as a selection. A turn that selects nothing is treated as a fresh utterance
// and the list is discarded.
package disambig

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
)

// FromRecipients turns ambiguous recipient matches into presentable choices.
// Candidate indexes are positional, matching the order the matches arrived in
// (the index sorts them by score upstream).
func FromRecipients(matches []model.RecipientCandidate) []model.DisambiguationCandidate {
	out := make([]model.DisambiguationCandidate, 0, len(matches))
	for i, m := range matches {
		label := m.DisplayName
		if len(m.Attributes) > 0 {
			label = fmt.Sprintf("%s (%s)", m.DisplayName, attributeSummary(m.Attributes))
		}
		out = append(out, model.DisambiguationCandidate{
			Index:      i,
			EntityType: model.EntityRecipient,
			Value:      m.DisplayName,
			Label:      label,
			Attributes: m.Attributes,
			Confidence: m.Score,
		})
	}
	return out
}

// FromIntents turns tied intent candidates into presentable choices.
func FromIntents(candidates []model.IntentCandidate, store *catalog.Store) []model.DisambiguationCandidate {
	out := make([]model.DisambiguationCandidate, 0, len(candidates))
	for i, c := range candidates {
		label := c.IntentID
		if intent, ok := store.Get(c.IntentID); ok && intent.Description != "" {
			label = intent.Description
		}
		out = append(out, model.DisambiguationCandidate{
			Index:      i,
			IntentID:   c.IntentID,
			Value:      c.IntentID,
			Label:      label,
			Confidence: c.Confidence,
		})
	}
	return out
}

var ordinals = map[string]int{
	"first":  0,
	"second": 1,
	"third":  2,
	"fourth": 3,
	"fifth":  4,
}

var numberRe = regexp.MustCompile(`\b(\d+)\b`)

// Match interprets an utterance as a selection from the presented candidates.
// It accepts a 1-based number ("2", "option 2"), an ordinal ("the first one"),
// or an unambiguous mention of a candidate's name or attribute ("the one at
// Chase"). It returns false when the utterance selects nothing, or when it
// would select more than one candidate.
func Match(input string, candidates []model.DisambiguationCandidate) (model.DisambiguationCandidate, bool) {
	if len(candidates) == 0 {
		return model.DisambiguationCandidate{}, false
	}

	lowered := strings.ToLower(strings.TrimSpace(input))

	if m := numberRe.FindStringSubmatch(lowered); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n >= 1 && n <= len(candidates) {
			return candidates[n-1], true
		}
	}

	for word, idx := range ordinals {
		if strings.Contains(lowered, word) && idx < len(candidates) {
			return candidates[idx], true
		}
	}
	if strings.Contains(lowered, "last") {
		return candidates[len(candidates)-1], true
	}

	var hits []model.DisambiguationCandidate
	for _, c := range candidates {
		if mentions(lowered, c) {
			hits = append(hits, c)
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}

	return model.DisambiguationCandidate{}, false
}

// Entity converts a committed selection into an entity. A selection is an
// explicit user choice, so its confidence is 1.0.
func Entity(c model.DisambiguationCandidate) model.Entity {
	return model.Entity{
		Type:       c.EntityType,
		Value:      c.Value,
		RawText:    c.Value,
		Confidence: 1.0,
		Source:     model.SourceExtracted,
	}
}

// mentions reports whether the utterance names this candidate, either by its
// value or by a distinguishing attribute.
func mentions(lowered string, c model.DisambiguationCandidate) bool {
	if v := strings.ToLower(c.Value); v != "" && strings.Contains(lowered, v) {
		return true
	}
	for _, attr := range c.Attributes {
		if a := strings.ToLower(attr); a != "" && strings.Contains(lowered, a) {
			return true
		}
	}
	return false
}

func attributeSummary(attrs map[string]string) string {
	parts := make([]string, 0, len(attrs))
	for _, key := range sortedKeys(attrs) {
		parts = append(parts, attrs[key])
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
