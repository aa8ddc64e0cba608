package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

type stubIndex struct {
	matches map[string][]model.RecipientCandidate
	err     error
}

func (s *stubIndex) Lookup(_ context.Context, name string) ([]model.RecipientCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.matches[name], nil
}

func transferIntent(t *testing.T) model.Intent {
	t.Helper()
	intent, ok := catalog.Default().Get("transfer.send")
	require.True(t, ok)
	return intent
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantNumber float64
		wantValue  string
		wantOK     bool
	}{
		{name: "dollar symbol", text: "send $100 to David", wantNumber: 100, wantValue: "100", wantOK: true},
		{name: "thousands separator", text: "transfer $1,234.56 please", wantNumber: 1234.56, wantValue: "1234.56", wantOK: true},
		{name: "currency word", text: "send 750 dollars to Carol", wantNumber: 750, wantValue: "750", wantOK: true},
		{name: "bare number", text: "750", wantNumber: 750, wantValue: "750", wantOK: true},
		{name: "no amount", text: "send money to David", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, ok := parseAmount(tt.text)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantNumber, parsed.number)
				assert.Equal(t, tt.wantValue, parsed.value)
				assert.Greater(t, parsed.confidence, 0.0)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "iso date", text: "pay rent on 2024-08-01", want: "2024-08-01"},
		{name: "tomorrow", text: "send it tomorrow", want: "2024-07-11"},
		{name: "today", text: "do it today", want: "2024-07-10"},
		{name: "next weekday", text: "pay on friday", want: "2024-07-12"},
		{name: "same weekday rolls a week", text: "next wednesday", want: "2024-07-17"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, _, ok := parseDate(tt.text, now)
			require.True(t, ok)
			assert.Equal(t, tt.want, value)
		})
	}

	_, _, ok := parseDate("no date here", now)
	assert.False(t, ok)
}

func TestParseRecipientName(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{name: "full name", text: "send $100 to David Brown", want: "David Brown", wantOK: true},
		{name: "single name", text: "Pay $1000 to John", want: "John", wantOK: true},
		{name: "account word is not a recipient", text: "move $50 to My Savings", wantOK: false},
		{name: "no proper noun", text: "send some money", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, ok := parseRecipientName(tt.text)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, name)
			}
		})
	}
}

func TestExtract_RecipientIndexSingleMatch(t *testing.T) {
	index := &stubIndex{matches: map[string][]model.RecipientCandidate{
		"David Brown": {{ID: "r1", DisplayName: "David Brown", Score: 0.97}},
	}}
	e := New(index, nil, nil)

	result := e.Extract(context.Background(), "send $100 to David Brown", transferIntent(t), nil)

	recipient, ok := result.Entities[model.EntityRecipient]
	require.True(t, ok)
	assert.Equal(t, "David Brown", recipient.Value)
	assert.Equal(t, model.SourceExtracted, recipient.Source)
	assert.Empty(t, result.RecipientMatches)

	amount, ok := result.Entities[model.EntityAmount]
	require.True(t, ok)
	assert.Equal(t, 100.0, amount.Number)
}

func TestExtract_AmbiguousRecipientYieldsMatches(t *testing.T) {
	index := &stubIndex{matches: map[string][]model.RecipientCandidate{
		"John": {
			{ID: "r1", DisplayName: "John Smith", Score: 0.9},
			{ID: "r2", DisplayName: "John Doe", Score: 0.85},
		},
	}}
	e := New(index, nil, nil)

	result := e.Extract(context.Background(), "Pay $1000 to John", transferIntent(t), nil)

	_, hasRecipient := result.Entities[model.EntityRecipient]
	assert.False(t, hasRecipient, "ambiguous recipients are never auto-selected")
	assert.Len(t, result.RecipientMatches, 2)
}

func TestExtract_UnknownRecipientStaysUnverified(t *testing.T) {
	e := New(&stubIndex{}, nil, nil)

	result := e.Extract(context.Background(), "send $20 to Zelda Quarry", transferIntent(t), nil)

	recipient, ok := result.Entities[model.EntityRecipient]
	require.True(t, ok)
	assert.Equal(t, "Zelda Quarry", recipient.Value)
	assert.Equal(t, unverifiedRecipientConfidence, recipient.Confidence)
}

func TestExtract_IndexFailureIsSoft(t *testing.T) {
	e := New(&stubIndex{err: errors.New("index down")}, nil, nil)

	result := e.Extract(context.Background(), "send $20 to David Brown", transferIntent(t), nil)

	// Lookup failure degrades to an unverified recipient; amount still parses.
	_, hasAmount := result.Entities[model.EntityAmount]
	assert.True(t, hasAmount)
	recipient, ok := result.Entities[model.EntityRecipient]
	require.True(t, ok)
	assert.Equal(t, unverifiedRecipientConfidence, recipient.Confidence)
}

func TestExtract_MissingRequiredEntitiesStayAbsent(t *testing.T) {
	e := New(&stubIndex{}, nil, nil)

	result := e.Extract(context.Background(), "I want to send money", transferIntent(t), nil)

	assert.NotContains(t, result.Entities, model.EntityAmount)
	assert.NotContains(t, result.Entities, model.EntityRecipient)
}

func TestExtract_UsesServiceSpanWhenLocalParseFails(t *testing.T) {
	e := New(&stubIndex{matches: map[string][]model.RecipientCandidate{
		"Alice": {{ID: "r9", DisplayName: "Alice Hart", Score: 0.92}},
	}}, nil, nil)

	spans := []service.EntitySpan{
		{Type: model.EntityRecipient, RawText: "alice", Value: "Alice", Confidence: 0.8},
	}
	result := e.Extract(context.Background(), "wire something over", transferIntent(t), spans)

	recipient, ok := result.Entities[model.EntityRecipient]
	require.True(t, ok)
	assert.Equal(t, "Alice Hart", recipient.Value)
}

func TestExtract_InternalTransferAccounts(t *testing.T) {
	intent, ok := catalog.Default().Get("transfer.internal")
	require.True(t, ok)

	e := New(nil, nil, nil)
	result := e.Extract(context.Background(), "move $200 from checking to savings", intent, nil)

	source, ok := result.Entities[model.EntitySourceAccount]
	require.True(t, ok)
	assert.Equal(t, "checking", source.Value)

	target, ok := result.Entities[model.EntityAccount]
	require.True(t, ok)
	assert.Equal(t, "savings", target.Value)
}
