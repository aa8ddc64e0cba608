package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/ridgelinebank/teller/internal/model"
)

// MockRecipientIndex is a test implementation of the RecipientIndex
// interface backed by an in-memory recipient list with first-name matching.
type MockRecipientIndex struct {
	mu         sync.Mutex
	recipients []model.RecipientCandidate
	err        error
}

// NewMockRecipientIndex creates an index over the given recipients.
func NewMockRecipientIndex(recipients ...model.RecipientCandidate) *MockRecipientIndex {
	return &MockRecipientIndex{recipients: recipients}
}

// FailWith makes every lookup return err.
func (m *MockRecipientIndex) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Lookup implements service.RecipientIndex: case-insensitive substring match
// against the display name.
func (m *MockRecipientIndex) Lookup(_ context.Context, nameOrAlias string) ([]model.RecipientCandidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	needle := strings.ToLower(nameOrAlias)
	var matches []model.RecipientCandidate
	for _, r := range m.recipients {
		if strings.Contains(strings.ToLower(r.DisplayName), needle) {
			matches = append(matches, r)
		}
	}
	return matches, nil
}
