package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/catalog"
	"github.com/ridgelinebank/teller/internal/model"
)

func newResolver(t *testing.T) *Resolver {
	t.Helper()
	return New(catalog.Default(), Config{}, nil)
}

func entity(typ model.EntityType, value string, number, confidence float64) model.Entity {
	return model.Entity{
		Type:       typ,
		Value:      value,
		Number:     number,
		RawText:    value,
		Confidence: confidence,
		Source:     model.SourceExtracted,
	}
}

func TestResolve_PronounResolvesToLastRecipient(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	last := entity(model.EntityRecipient, "David Brown", 0, 0.90)
	sess.LastRecipient = &last
	sess.LastIntent = "transfer.send"

	turn := model.EntityMap{
		model.EntityAmount: entity(model.EntityAmount, "100", 100, 0.95),
	}

	result := r.Resolve("send $100 to him", "transfer.send", turn, sess)

	recipient, ok := result.Entities[model.EntityRecipient]
	require.True(t, ok)
	assert.Equal(t, "David Brown", recipient.Value)
	assert.Equal(t, model.SourceContextual, recipient.Source)
	assert.InDelta(t, 0.81, recipient.Confidence, 1e-9)
	assert.True(t, result.Complete)
	assert.Empty(t, result.Missing)
}

func TestResolve_FreshEntityOverridesReference(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	last := entity(model.EntityRecipient, "David Brown", 0, 0.90)
	sess.LastRecipient = &last

	turn := model.EntityMap{
		model.EntityAmount:    entity(model.EntityAmount, "50", 50, 0.95),
		model.EntityRecipient: entity(model.EntityRecipient, "Carol Jones", 0, 0.90),
	}

	result := r.Resolve("send $50 to her", "transfer.send", turn, sess)

	recipient := result.Entities[model.EntityRecipient]
	assert.Equal(t, "Carol Jones", recipient.Value)
	assert.Equal(t, model.SourceExtracted, recipient.Source)
}

func TestResolve_SameAmountReference(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	last := entity(model.EntityAmount, "250", 250, 1.0)
	sess.LastAmount = &last

	turn := model.EntityMap{
		model.EntityRecipient: entity(model.EntityRecipient, "Carol Jones", 0, 0.90),
	}

	result := r.Resolve("send the same amount to Carol Jones", "transfer.send", turn, sess)

	amount, ok := result.Entities[model.EntityAmount]
	require.True(t, ok)
	assert.Equal(t, 250.0, amount.Number)
	assert.Equal(t, model.SourceContextual, amount.Source)
	assert.InDelta(t, 0.9, amount.Confidence, 1e-9)
}

func TestResolve_ReplayReusesLastIntentAndDefaults(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	sess.LastIntent = "transfer.send"
	lastRecipient := entity(model.EntityRecipient, "David Brown", 0, 1.0)
	lastAmount := entity(model.EntityAmount, "100", 100, 1.0)
	sess.LastRecipient = &lastRecipient
	sess.LastAmount = &lastAmount

	result := r.Resolve("do that again", model.UnknownIntentID, nil, sess)

	assert.True(t, result.Replayed)
	assert.Equal(t, "transfer.send", result.IntentID)
	assert.Equal(t, "David Brown", result.Entities[model.EntityRecipient].Value)
	assert.Equal(t, 100.0, result.Entities[model.EntityAmount].Number)
	assert.Equal(t, model.SourceContextual, result.Entities[model.EntityAmount].Source)
	assert.True(t, result.Complete)
}

func TestResolve_PendingIntentAbsorbsFollowUp(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	sess.PendingIntent = "transfer.send"
	sess.PendingEntities = model.EntityMap{
		model.EntityRecipient: entity(model.EntityRecipient, "David Brown", 0, 0.90),
	}

	turn := model.EntityMap{
		model.EntityAmount: entity(model.EntityAmount, "750", 750, 0.70),
	}

	// Bare "750" classifies as unknown; the pending transfer picks it up.
	result := r.Resolve("750", model.UnknownIntentID, turn, sess)

	assert.Equal(t, "transfer.send", result.IntentID)
	assert.Equal(t, "David Brown", result.Entities[model.EntityRecipient].Value)
	assert.Equal(t, 750.0, result.Entities[model.EntityAmount].Number)
	assert.True(t, result.Complete)
}

func TestResolve_IntentSwitchDropsPendingEntities(t *testing.T) {
	r := newResolver(t)

	sess := model.NewSessionContext("s1")
	sess.PendingIntent = "transfer.send"
	sess.PendingEntities = model.EntityMap{
		model.EntityAmount: entity(model.EntityAmount, "500", 500, 0.95),
	}

	result := r.Resolve("what's my balance", "balance.check", nil, sess)

	assert.Equal(t, "balance.check", result.IntentID)
	assert.NotContains(t, result.Entities, model.EntityAmount)
	assert.True(t, result.Complete)
}

func TestResolve_NothingToResolveStaysUnknown(t *testing.T) {
	r := newResolver(t)

	result := r.Resolve("hmm", model.UnknownIntentID, nil, model.NewSessionContext("s1"))

	assert.Equal(t, model.UnknownIntentID, result.IntentID)
	assert.False(t, result.Complete)
	assert.Empty(t, result.Entities)
}

func TestResolve_LowConfidenceRequiredEntityDemotedToInferred(t *testing.T) {
	r := newResolver(t)

	turn := model.EntityMap{
		model.EntityAmount:    entity(model.EntityAmount, "100", 100, 0.95),
		model.EntityRecipient: entity(model.EntityRecipient, "somebody", 0, 0.30),
	}

	result := r.Resolve("send $100 to somebody", "transfer.send", turn, model.NewSessionContext("s1"))

	recipient := result.Entities[model.EntityRecipient]
	assert.Equal(t, model.SourceInferred, recipient.Source)
	assert.Equal(t, model.SourceExtracted, result.Entities[model.EntityAmount].Source)
}
