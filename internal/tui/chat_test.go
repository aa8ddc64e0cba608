package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"

	"github.com/ridgelinebank/teller/internal/model"
)

func TestRenderResponseIncludesMessage(t *testing.T) {
	out := RenderResponse(&model.TurnResponse{
		Message: "Done! Transferred $500.00.",
		Outcome: model.OutcomeExecuted,
	})
	assert.Contains(t, out, "Done! Transferred $500.00.")
}

func TestRenderResponseNumbersDisambiguationOptions(t *testing.T) {
	out := RenderResponse(&model.TurnResponse{
		Message: "Which John did you mean?",
		Outcome: model.OutcomeDisambiguate,
		DisambiguationOptions: []model.DisambiguationCandidate{
			{Index: 0, Label: "John Smith (Chase)"},
			{Index: 1, Label: "John Doe (Wells Fargo)"},
		},
	})

	assert.Contains(t, out, "1. John Smith (Chase)")
	assert.Contains(t, out, "2. John Doe (Wells Fargo)")
	assert.Less(t, strings.Index(out, "John Smith"), strings.Index(out, "John Doe"))
}

func TestRenderResponseShowsExecutionRef(t *testing.T) {
	out := RenderResponse(&model.TurnResponse{
		Message:      "Done.",
		Outcome:      model.OutcomeExecuted,
		ExecutionRef: "exec-0001",
	})
	assert.Contains(t, out, "exec-0001")
}

func TestRenderResponseMarksRejection(t *testing.T) {
	out := RenderResponse(&model.TurnResponse{
		Message: "I can't do that: insufficient funds.",
		Outcome: model.OutcomeRejected,
	})
	assert.Contains(t, out, "REJECTED")
}

func TestRenderResponseListsMissingFields(t *testing.T) {
	out := RenderResponse(&model.TurnResponse{
		Message:       "How much would you like to send, and to whom?",
		Outcome:       model.OutcomeClarify,
		MissingFields: []model.EntityType{model.EntityAmount, model.EntityRecipient},
		UIHint:        "transfer_form",
	})
	assert.Contains(t, out, "still needed: amount, recipient")
	assert.Contains(t, out, "[transfer_form]")
}

func TestRenderResponseNilIsEmpty(t *testing.T) {
	assert.Empty(t, RenderResponse(nil))
}

func TestViewHeaderNamesSession(t *testing.T) {
	m := NewModel(context.Background(), Config{SessionID: "sess-42"})

	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	view := updated.(Model).View()

	assert.Contains(t, view, "teller - session sess-42")
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg.SessionID = "sess-1"
	assert.Error(t, cfg.Validate()) // still no engine
}
