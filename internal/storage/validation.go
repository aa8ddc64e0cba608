package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidDateRange = errors.New("start date must be before end date")
	ErrInvalidRecord    = errors.New("invalid audit record")
	ErrInvalidRecipient = errors.New("invalid recipient")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateAuditRecord checks a record before it enters the append-only log.
// Once written it can never be fixed, so everything load-bearing is checked
// up front.
func validateAuditRecord(record *model.AuditRecord) error {
	if record == nil {
		return fmt.Errorf("%w: record", ErrNilParameter)
	}
	if record.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRecord)
	}
	if record.SessionID == "" {
		return fmt.Errorf("%w: missing session ID", ErrInvalidRecord)
	}
	if record.Turn < 1 {
		return fmt.Errorf("%w: turn %d is not positive", ErrInvalidRecord, record.Turn)
	}
	if record.Outcome == "" {
		return fmt.Errorf("%w: missing outcome", ErrInvalidRecord)
	}
	if record.Timestamp.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrInvalidRecord)
	}
	return nil
}

func validateRecipient(recipient *model.Recipient) error {
	if recipient == nil {
		return fmt.Errorf("%w: recipient", ErrNilParameter)
	}
	if recipient.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRecipient)
	}
	if strings.TrimSpace(recipient.DisplayName) == "" {
		return fmt.Errorf("%w: missing display name", ErrInvalidRecipient)
	}
	return nil
}

func validateDateRange(start, end time.Time) error {
	if end.Before(start) {
		return fmt.Errorf("%w: end %v is before start %v", ErrInvalidDateRange, end, start)
	}
	return nil
}
