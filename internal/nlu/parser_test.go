package nlu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/model"
)

func TestParseUnderstanding(t *testing.T) {
	tests := []struct {
		name       string
		content    string
		wantIntent string
		wantErr    bool
	}{
		{
			name: "plain JSON",
			content: `{"candidates":[{"intent_id":"transfer.send","confidence":0.92}],
				"entities":[{"type":"amount","raw_text":"$100","value":"100","confidence":0.95}]}`,
			wantIntent: "transfer.send",
		},
		{
			name: "markdown fenced JSON",
			content: "```json\n" +
				`{"candidates":[{"intent_id":"balance.check","confidence":0.8}],"entities":[]}` +
				"\n```",
			wantIntent: "balance.check",
		},
		{
			name: "commentary around JSON",
			content: `Here is the result: {"candidates":[{"intent_id":"card.block","confidence":0.7}],
				"entities":[]} hope that helps`,
			wantIntent: "card.block",
		},
		{
			name:    "no candidates",
			content: `{"candidates":[],"entities":[]}`,
			wantErr: true,
		},
		{
			name:    "not JSON at all",
			content: `I could not classify that utterance.`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseUnderstanding(tt.content)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, result.Candidates)
			assert.Equal(t, tt.wantIntent, result.Candidates[0].IntentID)
			assert.Equal(t, "service", result.Candidates[0].Origin)
		})
	}
}

func TestParseUnderstanding_ClampsConfidence(t *testing.T) {
	result, err := parseUnderstanding(`{"candidates":[{"intent_id":"a.b","confidence":1.7}],
		"entities":[{"type":"amount","raw_text":"$5","value":"5","confidence":-0.2}]}`)
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Candidates[0].Confidence)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, 0.0, result.Entities[0].Confidence)
	assert.Equal(t, model.EntityAmount, result.Entities[0].Type)
}

func TestParseUnderstanding_FallsBackToRawText(t *testing.T) {
	result, err := parseUnderstanding(`{"candidates":[{"intent_id":"a.b","confidence":0.5}],
		"entities":[{"type":"recipient","raw_text":"David","confidence":0.6}]}`)
	require.NoError(t, err)

	require.Len(t, result.Entities, 1)
	assert.Equal(t, "David", result.Entities[0].Value)
}
