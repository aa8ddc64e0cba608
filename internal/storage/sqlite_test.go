package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelinebank/teller/internal/common"
	"github.com/ridgelinebank/teller/internal/model"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))

	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testAuditRecord(sessionID string, turn int, outcome model.TurnOutcome, at time.Time) *model.AuditRecord {
	return &model.AuditRecord{
		ID:        sessionID + "-" + string(rune('0'+turn)),
		SessionID: sessionID,
		Turn:      turn,
		InputText: "send $100 to David",
		Classification: model.ClassificationResult{
			IntentID:   "transfer.send",
			Category:   "payment",
			Confidence: 0.92,
			RiskLevel:  model.RiskHigh,
		},
		RulesApplied: []model.RuleOutcome{
			{RuleName: "format.amount_positive", Result: model.RuleAccept},
		},
		DecisionState: model.StateConfident,
		Outcome:       outcome,
		Timestamp:     at,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session := model.NewSessionContext("sess-1")
	session.PendingIntent = "transfer.send"
	session.PendingEntities = model.EntityMap{
		model.EntityAmount: {
			Type: model.EntityAmount, Value: "100", Number: 100,
			Confidence: 0.95, Source: model.SourceExtracted,
		},
	}
	session.TurnHistory = []model.TurnRecord{
		{Turn: 1, Input: "send $100", State: model.StateProbable, Outcome: model.OutcomeClarify, At: time.Now().UTC()},
	}

	require.NoError(t, s.SaveSession(ctx, session))

	loaded, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "transfer.send", loaded.PendingIntent)
	assert.Equal(t, 100.0, loaded.PendingEntities[model.EntityAmount].Number)
	require.Len(t, loaded.TurnHistory, 1)
	assert.Equal(t, model.OutcomeClarify, loaded.TurnHistory[0].Outcome)
}

func TestSessionSaveOverwrites(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	session := model.NewSessionContext("sess-1")
	require.NoError(t, s.SaveSession(ctx, session))

	session.PendingIntent = "balance.check"
	require.NoError(t, s.SaveSession(ctx, session))

	loaded, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "balance.check", loaded.PendingIntent)
}

func TestGetSessionNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteSession(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, model.NewSessionContext("sess-1")))
	require.NoError(t, s.DeleteSession(ctx, "sess-1"))

	_, err := s.GetSession(ctx, "sess-1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetSessionCorruptDocument(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, context, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, "sess-bad", "{not json", now, now)
	require.NoError(t, err)

	_, err = s.GetSession(ctx, "sess-bad")
	assert.ErrorIs(t, err, common.ErrSessionCorrupt)
}

func TestAppendAuditRecordAndRead(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 1, model.OutcomeClarify, now)))
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 2, model.OutcomeExecuted, now.Add(time.Second))))

	records, err := s.GetAuditRecords(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0].Turn)
	assert.Equal(t, 2, records[1].Turn)
	assert.Equal(t, "transfer.send", records[0].Classification.IntentID)
	assert.Equal(t, model.RuleAccept, records[0].RulesApplied[0].Result)
}

func TestAuditRecordsAreImmutable(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	record := testAuditRecord("sess-1", 1, model.OutcomeExecuted, time.Now().UTC())
	require.NoError(t, s.AppendAuditRecord(ctx, record))

	_, err := s.db.ExecContext(ctx, `UPDATE audit_records SET outcome = 'REJECTED' WHERE id = ?`, record.ID)
	assert.Error(t, err, "updates must be rejected by the schema")

	_, err = s.db.ExecContext(ctx, `DELETE FROM audit_records WHERE id = ?`, record.ID)
	assert.Error(t, err, "deletes must be rejected by the schema")
}

func TestAppendAuditRecordDuplicateTurn(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 1, model.OutcomeClarify, now)))

	dup := testAuditRecord("sess-1", 1, model.OutcomeExecuted, now)
	dup.ID = "different-id"
	assert.Error(t, s.AppendAuditRecord(ctx, dup), "one audit record per session turn")
}

func TestGetAuditRecordsByDateRange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 1, model.OutcomeExecuted, base)))
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-2", 1, model.OutcomeExecuted, base.Add(48*time.Hour))))

	records, err := s.GetAuditRecordsByDateRange(ctx, base.Add(-time.Hour), base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "sess-1", records[0].SessionID)

	_, err = s.GetAuditRecordsByDateRange(ctx, base, base.Add(-time.Hour))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestCountExecutionsSince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 1, model.OutcomeExecuted, now.Add(-10*time.Minute))))
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 2, model.OutcomeExecuted, now.Add(-5*time.Minute))))
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-1", 3, model.OutcomeRejected, now.Add(-time.Minute))))
	require.NoError(t, s.AppendAuditRecord(ctx, testAuditRecord("sess-2", 1, model.OutcomeExecuted, now.Add(-time.Minute))))

	count, err := s.CountExecutionsSince(ctx, "sess-1", "payment", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count, "rejected turns and other sessions do not count")

	count, err = s.CountExecutionsSince(ctx, "sess-1", "payment", now.Add(-2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRecipientsSearch(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRecipient(ctx, &model.Recipient{
		ID: "r1", DisplayName: "John Smith",
		Aliases:    []string{"johnny"},
		Attributes: map[string]string{"bank": "Chase"},
		Verified:   true,
	}))
	require.NoError(t, s.UpsertRecipient(ctx, &model.Recipient{
		ID: "r2", DisplayName: "John Doe", Verified: true,
	}))
	require.NoError(t, s.UpsertRecipient(ctx, &model.Recipient{
		ID: "r3", DisplayName: "Carol Jones", Verified: false,
	}))

	// First name matches both Johns.
	candidates, err := s.SearchRecipients(ctx, "John")
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Exact full name outranks everything.
	candidates, err = s.SearchRecipients(ctx, "john smith")
	require.NoError(t, err)
	require.NotEmpty(t, candidates)
	assert.Equal(t, "John Smith", candidates[0].DisplayName)
	assert.Equal(t, scoreExactName, candidates[0].Score)

	// Alias match.
	candidates, err = s.SearchRecipients(ctx, "johnny")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "John Smith", candidates[0].DisplayName)

	// No match.
	candidates, err = s.SearchRecipients(ctx, "Zelda")
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestRecipientUpsertUpdates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertRecipient(ctx, &model.Recipient{ID: "r1", DisplayName: "John Smith"}))
	require.NoError(t, s.UpsertRecipient(ctx, &model.Recipient{ID: "r1", DisplayName: "John A. Smith", Verified: true}))

	recipients, err := s.ListRecipients(ctx)
	require.NoError(t, err)
	require.Len(t, recipients, 1)
	assert.Equal(t, "John A. Smith", recipients[0].DisplayName)
	assert.True(t, recipients[0].Verified)
}
