package disambig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
)

func johnCandidates() []model.DisambiguationCandidate {
	return FromRecipients([]model.RecipientCandidate{
		{ID: "r1", DisplayName: "John Smith", Attributes: map[string]string{"bank": "Chase"}, Score: 0.9},
		{ID: "r2", DisplayName: "John Doe", Attributes: map[string]string{"bank": "Wells Fargo"}, Score: 0.85},
	})
}

func TestFromRecipients(t *testing.T) {
	candidates := johnCandidates()

	require.Len(t, candidates, 2)
	assert.Equal(t, 0, candidates[0].Index)
	assert.Equal(t, 1, candidates[1].Index)
	assert.Equal(t, model.EntityRecipient, candidates[0].EntityType)
	assert.Equal(t, "John Smith", candidates[0].Value)
	assert.Equal(t, "John Smith (Chase)", candidates[0].Label)
	assert.Equal(t, 0.9, candidates[0].Confidence)
}

func TestFromIntents(t *testing.T) {
	candidates := FromIntents([]model.IntentCandidate{
		{IntentID: "transfer.send", Confidence: 0.80},
		{IntentID: "payment.bill", Confidence: 0.78},
	}, catalog.Default())

	require.Len(t, candidates, 2)
	assert.Equal(t, "transfer.send", candidates[0].IntentID)
	assert.NotEqual(t, candidates[0].IntentID, candidates[0].Label, "label uses the catalog description")
}

func TestMatch(t *testing.T) {
	candidates := johnCandidates()

	tests := []struct {
		name      string
		input     string
		wantValue string
		wantOK    bool
	}{
		{name: "bare number", input: "2", wantValue: "John Doe", wantOK: true},
		{name: "number in phrase", input: "option 1 please", wantValue: "John Smith", wantOK: true},
		{name: "ordinal", input: "the first one", wantValue: "John Smith", wantOK: true},
		{name: "last", input: "the last one", wantValue: "John Doe", wantOK: true},
		{name: "by full name", input: "john doe", wantValue: "John Doe", wantOK: true},
		{name: "by attribute", input: "the one at chase", wantValue: "John Smith", wantOK: true},
		{name: "ambiguous mention selects nothing", input: "john", wantOK: false},
		{name: "out of range number", input: "7", wantOK: false},
		{name: "fresh utterance", input: "actually check my balance", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, ok := Match(tt.input, candidates)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantValue, c.Value)
			}
		})
	}
}

func TestEntityCommitsWithFullConfidence(t *testing.T) {
	c, ok := Match("1", johnCandidates())
	require.True(t, ok)

	entity := Entity(c)
	assert.Equal(t, model.EntityRecipient, entity.Type)
	assert.Equal(t, "John Smith", entity.Value)
	assert.Equal(t, 1.0, entity.Confidence)
}
