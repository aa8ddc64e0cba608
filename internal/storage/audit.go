package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
)

// AppendAuditRecord writes one immutable decision record. There is no update
// or delete counterpart, and schema triggers reject both.
func (s *SQLiteStorage) AppendAuditRecord(ctx context.Context, record *model.AuditRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateAuditRecord(record); err != nil {
		return err
	}

	classification, err := json.Marshal(record.Classification)
	if err != nil {
		return fmt.Errorf("failed to encode classification: %w", err)
	}

	var rules []byte
	if len(record.RulesApplied) > 0 {
		rules, err = json.Marshal(record.RulesApplied)
		if err != nil {
			return fmt.Errorf("failed to encode rule outcomes: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			id, session_id, turn, input_text,
			intent_id, category, confidence, classification, rules_applied,
			decision_state, outcome, execution_ref, failure_detail, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID, record.SessionID, record.Turn, record.InputText,
		record.Classification.IntentID, record.Classification.Category,
		record.Classification.Confidence, string(classification), nullable(rules),
		string(record.DecisionState), string(record.Outcome),
		record.ExecutionRef, record.FailureDetail, record.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	return nil
}

// GetAuditRecords returns every record for a session, oldest first.
func (s *SQLiteStorage) GetAuditRecords(ctx context.Context, sessionID string) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn, input_text, classification, rules_applied,
			decision_state, outcome, execution_ref, failure_detail, timestamp
		FROM audit_records
		WHERE session_id = ?
		ORDER BY turn ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAuditRecords(rows)
}

// GetAuditRecordsByDateRange returns every record in [start, end], oldest
// first, across all sessions.
func (s *SQLiteStorage) GetAuditRecordsByDateRange(ctx context.Context, start, end time.Time) ([]model.AuditRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(start, end); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, turn, input_text, classification, rules_applied,
			decision_state, outcome, execution_ref, failure_detail, timestamp
		FROM audit_records
		WHERE timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, session_id ASC, turn ASC
	`, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query audit records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanAuditRecords(rows)
}

// CountExecutionsSince counts executed operations of one category for a
// session inside the rolling window. The risk rules use it for velocity.
func (s *SQLiteStorage) CountExecutionsSince(ctx context.Context, sessionID, category string, since time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(sessionID, "sessionID"); err != nil {
		return 0, err
	}
	if err := validateString(category, "category"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM audit_records
		WHERE session_id = ?
			AND category = ?
			AND outcome = ?
			AND timestamp >= ?
	`, sessionID, category, string(model.OutcomeExecuted), since.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count executions: %w", err)
	}
	return count, nil
}

func scanAuditRecords(rows *sql.Rows) ([]model.AuditRecord, error) {
	var records []model.AuditRecord

	for rows.Next() {
		var (
			record         model.AuditRecord
			classification string
			rules          sql.NullString
			state, outcome string
			executionRef   sql.NullString
			failureDetail  sql.NullString
		)
		if err := rows.Scan(
			&record.ID, &record.SessionID, &record.Turn, &record.InputText,
			&classification, &rules, &state, &outcome,
			&executionRef, &failureDetail, &record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan audit record: %w", err)
		}

		if err := json.Unmarshal([]byte(classification), &record.Classification); err != nil {
			return nil, fmt.Errorf("failed to decode classification for record %s: %w", record.ID, err)
		}
		if rules.Valid && rules.String != "" {
			if err := json.Unmarshal([]byte(rules.String), &record.RulesApplied); err != nil {
				return nil, fmt.Errorf("failed to decode rule outcomes for record %s: %w", record.ID, err)
			}
		}

		record.DecisionState = model.DecisionState(state)
		record.Outcome = model.TurnOutcome(outcome)
		record.ExecutionRef = executionRef.String
		record.FailureDetail = failureDetail.String
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit records: %w", err)
	}
	return records, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
