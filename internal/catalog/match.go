package catalog

import (
	"sort"
	"strings"

	"github.com/ridgelinebank/teller/internal/model"
)

// Scores assigned by the deterministic matcher. Pattern hits outrank keyword
// hits; additional keyword hits nudge the score up to a cap so pattern-backed
// candidates still win ties.
const (
	patternScore     = 0.80
	keywordBaseScore = 0.45
	keywordHitBonus  = 0.10
	keywordScoreCap  = 0.75
)

// Match evaluates the utterance against every intent's keywords and patterns
// and returns ranked candidates. Purely deterministic; used as the fallback
// when the understanding service is unavailable or unsure.
func (s *Store) Match(text string) []model.IntentCandidate {
	lowered := strings.ToLower(text)

	var candidates []model.IntentCandidate
	for _, intent := range s.ordered {
		score := s.scoreIntent(intent, lowered)
		if score <= 0 {
			continue
		}
		candidates = append(candidates, model.IntentCandidate{
			IntentID:   intent.ID,
			Confidence: score,
			Origin:     "pattern",
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	return candidates
}

func (s *Store) scoreIntent(intent model.Intent, lowered string) float64 {
	var best float64

	for _, re := range s.matchers[intent.ID] {
		if re.MatchString(lowered) {
			best = patternScore
			break
		}
	}

	hits := 0
	for _, kw := range intent.Keywords {
		if containsWord(lowered, strings.ToLower(kw)) {
			hits++
		}
	}
	if hits > 0 {
		score := keywordBaseScore + keywordHitBonus*float64(hits-1)
		if score > keywordScoreCap {
			score = keywordScoreCap
		}
		if score > best {
			best = score
		}
	}

	return best
}

// containsWord checks for a whole-word, case-folded occurrence. Multi-word
// keywords match as plain substrings.
func containsWord(text, word string) bool {
	if strings.Contains(word, " ") {
		return strings.Contains(text, word)
	}
	for _, field := range strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '\'')
	}) {
		if field == word {
			return true
		}
	}
	return false
}
