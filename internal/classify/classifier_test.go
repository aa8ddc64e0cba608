package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
	"github.com/ridgelinebank/teller/internal/service"
)

type stubUnderstander struct {
	result *service.UnderstandingResult
	err    error
}

func (s *stubUnderstander) ClassifyAndExtract(_ context.Context, _ string, _ service.Hints) (*service.UnderstandingResult, error) {
	return s.result, s.err
}

func TestClassifier_PrefersServiceAboveFloor(t *testing.T) {
	stub := &stubUnderstander{
		result: &service.UnderstandingResult{
			Candidates: []model.IntentCandidate{
				{IntentID: "transfer.send", Confidence: 0.93, Origin: "service"},
				{IntentID: "payment.bill", Confidence: 0.41, Origin: "service"},
			},
			Entities: []service.EntitySpan{
				{Type: model.EntityAmount, RawText: "$100", Value: "100", Confidence: 0.9},
			},
		},
	}

	c := New(stub, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "send $100 to David", nil)

	assert.False(t, result.ServiceUnavailable)
	assert.Equal(t, "transfer.send", result.Top().IntentID)
	assert.Equal(t, "service", result.Top().Origin)
	assert.Len(t, result.Spans, 1)
}

func TestClassifier_FallsBackToPatternsOnServiceError(t *testing.T) {
	stub := &stubUnderstander{err: errors.New("timeout")}

	c := New(stub, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "send $100 to David", nil)

	assert.True(t, result.ServiceUnavailable)
	assert.Equal(t, "transfer.send", result.Top().IntentID)
	assert.Equal(t, "pattern", result.Top().Origin)
}

func TestClassifier_FallsBackWhenServiceBelowFloor(t *testing.T) {
	stub := &stubUnderstander{
		result: &service.UnderstandingResult{
			Candidates: []model.IntentCandidate{
				{IntentID: "payment.bill", Confidence: 0.3, Origin: "service"},
			},
		},
	}

	c := New(stub, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "please block my card", nil)

	assert.Equal(t, "card.block", result.Top().IntentID)
	assert.Equal(t, "pattern", result.Top().Origin)
}

func TestClassifier_UnknownWhenNothingClearsFloor(t *testing.T) {
	stub := &stubUnderstander{
		result: &service.UnderstandingResult{
			Candidates: []model.IntentCandidate{
				{IntentID: "transfer.send", Confidence: 0.2, Origin: "service"},
			},
		},
	}

	c := New(stub, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "tell me a story", nil)

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, model.UnknownIntentID, result.Top().IntentID)
	assert.Equal(t, 0.0, result.Top().Confidence)
}

func TestClassifier_DropsHallucinatedIntents(t *testing.T) {
	stub := &stubUnderstander{
		result: &service.UnderstandingResult{
			Candidates: []model.IntentCandidate{
				{IntentID: "crypto.buy", Confidence: 0.99, Origin: "service"},
				{IntentID: "balance.check", Confidence: 0.82, Origin: "service"},
			},
		},
	}

	c := New(stub, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "what's my balance", nil)

	assert.Equal(t, "balance.check", result.Top().IntentID)
	for _, cand := range result.Candidates {
		assert.NotEqual(t, "crypto.buy", cand.IntentID)
	}
}

func TestClassifier_MergeAppendsPatternCandidates(t *testing.T) {
	stub := &stubUnderstander{
		result: &service.UnderstandingResult{
			Candidates: []model.IntentCandidate{
				{IntentID: "transfer.send", Confidence: 0.9, Origin: "service"},
			},
		},
	}

	c := New(stub, catalog.Default(), Config{}, nil)
	// "pay my electricity bill" also pattern-matches payment.bill.
	result := c.Classify(context.Background(), "pay my electricity bill", nil)

	assert.Equal(t, "transfer.send", result.Top().IntentID)

	var foundBill bool
	for _, cand := range result.Candidates {
		if cand.IntentID == "payment.bill" {
			foundBill = true
			assert.Equal(t, "pattern", cand.Origin)
		}
	}
	assert.True(t, foundBill, "pattern candidates for unmentioned intents should be appended")
}

func TestClassifier_NilUnderstander(t *testing.T) {
	c := New(nil, catalog.Default(), Config{}, nil)
	result := c.Classify(context.Background(), "what's my balance", nil)

	assert.False(t, result.ServiceUnavailable)
	assert.Equal(t, "balance.check", result.Top().IntentID)
}
