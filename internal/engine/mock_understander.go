package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

// MockUnderstander is a deterministic Understander for tests. It keys
// canned results off substrings of the utterance and records every call.
type MockUnderstander struct {
	mu      sync.Mutex
	results map[string]*service.UnderstandingResult
	err     error
	calls   []string
}

// NewMockUnderstander creates an empty mock.
func NewMockUnderstander() *MockUnderstander {
	return &MockUnderstander{results: make(map[string]*service.UnderstandingResult)}
}

// On registers a result returned whenever the utterance contains substring.
func (m *MockUnderstander) On(substring string, result *service.UnderstandingResult) *MockUnderstander {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[substring] = result
	return m
}

// FailWith makes every call return err.
func (m *MockUnderstander) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the utterances seen so far.
func (m *MockUnderstander) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ClassifyAndExtract implements service.Understander.
func (m *MockUnderstander) ClassifyAndExtract(_ context.Context, text string, _ service.Hints) (*service.UnderstandingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, text)
	if m.err != nil {
		return nil, m.err
	}
	for substring, result := range m.results {
		if strings.Contains(strings.ToLower(text), strings.ToLower(substring)) {
			return result, nil
		}
	}
	// Nothing registered: the service sees no intent.
	return &service.UnderstandingResult{
		Candidates: []model.IntentCandidate{},
	}, nil
}
