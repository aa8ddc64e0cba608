package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionContext_Clone(t *testing.T) {
	s := NewSessionContext("sess-1")
	s.PendingIntent = "transfer.internal"
	s.PendingEntities = EntityMap{
		EntityAmount: {Type: EntityAmount, Value: "750", Number: 750, Confidence: 0.9, Source: SourceExtracted},
	}
	s.LastRecipient = &Entity{Type: EntityRecipient, Value: "David Brown", Confidence: 0.95, Source: SourceExtracted}
	s.TurnHistory = []TurnRecord{{Turn: 1, Input: "send money", State: StateUncertain, Outcome: OutcomeClarify}}

	clone := s.Clone()
	clone.PendingEntities[EntityRecipient] = Entity{Type: EntityRecipient, Value: "Carol White"}
	clone.LastRecipient.Value = "Someone Else"
	clone.TurnHistory[0].Input = "mutated"

	assert.Len(t, s.PendingEntities, 1)
	assert.Equal(t, "David Brown", s.LastRecipient.Value)
	assert.Equal(t, "send money", s.TurnHistory[0].Input)
}

func TestSessionContext_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SessionContext)
		wantErr bool
	}{
		{
			name:   "fresh session is valid",
			mutate: func(_ *SessionContext) {},
		},
		{
			name: "turn history out of order",
			mutate: func(s *SessionContext) {
				s.TurnHistory = []TurnRecord{{Turn: 2, Input: "hi"}}
			},
			wantErr: true,
		},
		{
			name: "pending entity keyed under wrong type",
			mutate: func(s *SessionContext) {
				s.PendingEntities = EntityMap{
					EntityAmount: {Type: EntityRecipient, Value: "John"},
				}
			},
			wantErr: true,
		},
		{
			name: "confidence outside range",
			mutate: func(s *SessionContext) {
				s.PendingEntities = EntityMap{
					EntityAmount: {Type: EntityAmount, Value: "5", Confidence: 1.5},
				}
			},
			wantErr: true,
		},
		{
			name: "disambiguation indexes must be positional",
			mutate: func(s *SessionContext) {
				s.DisambiguationCandidates = []DisambiguationCandidate{{Index: 3, Value: "x"}}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSessionContext("sess-1")
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestRiskLevel_Escalate(t *testing.T) {
	assert.Equal(t, RiskHigh, RiskMedium.Escalate(RiskHigh))
	assert.Equal(t, RiskHigh, RiskHigh.Escalate(RiskLow))
	assert.Equal(t, RiskCritical, RiskCritical.Escalate(RiskCritical))
	assert.True(t, RiskCritical.AtLeast(RiskHigh))
	assert.False(t, RiskLow.AtLeast(RiskMedium))
}

func TestEntityMap_Missing(t *testing.T) {
	m := EntityMap{
		EntityAmount: {Type: EntityAmount, Value: "100"},
	}
	missing := m.Missing([]EntityType{EntityAmount, EntityRecipient})
	assert.Equal(t, []EntityType{EntityRecipient}, missing)
}
