package sheets

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/model"
)

func testExporter() *Exporter {
	return &Exporter{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
}

func TestPrepareRowsOrdersBySessionAndTurn(t *testing.T) {
	e := testExporter()

	records := []model.AuditRecord{
		{SessionID: "sess-b", Turn: 1, InputText: "pay rent"},
		{SessionID: "sess-a", Turn: 2, InputText: "yes"},
		{SessionID: "sess-a", Turn: 1, InputText: "send $500 to David"},
	}

	rows := e.prepareRows(records)
	require.Len(t, rows, 4) // header + 3 records

	assert.Equal(t, "Timestamp", rows[0][0])
	assert.Equal(t, "send $500 to David", rows[1][3])
	assert.Equal(t, "yes", rows[2][3])
	assert.Equal(t, "pay rent", rows[3][3])
}

func TestPrepareRowsRendersRecordFields(t *testing.T) {
	e := testExporter()

	ts := time.Date(2026, time.March, 10, 15, 4, 5, 0, time.UTC)
	records := []model.AuditRecord{
		{
			SessionID: "sess-1",
			Turn:      3,
			InputText: "transfer $500 to savings",
			Classification: model.ClassificationResult{
				IntentID:   "transfer.internal",
				Category:   "transfer",
				Confidence: 0.92,
			},
			RulesApplied: []model.RuleOutcome{
				{RuleName: "format.amount_positive", Result: model.RuleAccept},
				{RuleName: "business.sufficient_balance", Result: model.RuleReject, Detail: "insufficient funds"},
			},
			DecisionState: model.StateConfident,
			Outcome:       model.OutcomeRejected,
			FailureDetail: "insufficient funds",
			Timestamp:     ts,
		},
	}

	rows := e.prepareRows(records)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "2026-03-10T15:04:05Z", row[0])
	assert.Equal(t, "sess-1", row[1])
	assert.Equal(t, 3, row[2])
	assert.Equal(t, "transfer.internal", row[4])
	assert.Equal(t, "transfer", row[5])
	assert.Equal(t, "0.92", row[6])
	assert.Equal(t, "CONFIDENT", row[7])
	assert.Equal(t, "REJECTED", row[8])
	assert.Equal(t, "format.amount_positive=ACCEPT; business.sufficient_balance=REJECT (insufficient funds)", row[9])
	assert.Equal(t, "insufficient funds", row[11])
}

func TestPrepareRowsEmptyAuditLog(t *testing.T) {
	e := testExporter()

	rows := e.prepareRows(nil)
	require.Len(t, rows, 1) // header only
}

func TestRulesSummary(t *testing.T) {
	assert.Empty(t, rulesSummary(nil))
	assert.Equal(t, "risk.velocity=ACCEPT", rulesSummary([]model.RuleOutcome{
		{RuleName: "risk.velocity", Result: model.RuleAccept},
	}))
}

func TestMockSinkRecordsCalls(t *testing.T) {
	sink := NewMockSink()

	err := sink.WriteAudit(context.Background(), []model.AuditRecord{{SessionID: "s", Turn: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.WriteCallCount)
	assert.Len(t, sink.LastRecords, 1)

	sink.SetWriteError(assert.AnError)
	err = sink.WriteAudit(context.Background(), nil)
	assert.Error(t, err)
}
