// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ridgelinebank/teller/internal/model"
)

// EntitySpan is one entity the understanding service found in the utterance.
type EntitySpan struct {
	Type       model.EntityType
	RawText    string
	Value      string
	Confidence float64
}

// UnderstandingResult is the combined output of the probabilistic
// text-understanding service for one utterance.
type UnderstandingResult struct {
	Candidates []model.IntentCandidate
	Entities   []EntitySpan
}

// Hints carries session context the understanding service may use.
type Hints struct {
	PendingIntent string
	LastIntent    string
	KnownIntents  []string
}

// Understander is the probabilistic text-understanding service. It may fail
// or time out; callers must tolerate the absence of a response and fall back
// to deterministic paths.
type Understander interface {
	ClassifyAndExtract(ctx context.Context, text string, hints Hints) (*UnderstandingResult, error)
}

// Executor performs the underlying banking operation once a turn has cleared
// validation. It is an external collaborator to the decision core.
type Executor interface {
	Execute(ctx context.Context, operationID string, entities model.EntityMap) (*model.ExecutionResult, error)
}

// RecipientIndex is the read-only known-recipient/alias lookup.
type RecipientIndex interface {
	Lookup(ctx context.Context, nameOrAlias string) ([]model.RecipientCandidate, error)
}

// Ledger exposes the account view the business rules need: ownership and
// available balance. Account and ledger data live outside this system.
type Ledger interface {
	Accounts(ctx context.Context) ([]model.Account, error)
	Account(ctx context.Context, idOrName string) (*model.Account, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Session operations. Sessions are single-writer: the engine serializes
	// turns per session ID before touching these.
	GetSession(ctx context.Context, sessionID string) (*model.SessionContext, error)
	SaveSession(ctx context.Context, session *model.SessionContext) error
	DeleteSession(ctx context.Context, sessionID string) error

	// Audit log. Append-only: there is no update or delete.
	AppendAuditRecord(ctx context.Context, record *model.AuditRecord) error
	GetAuditRecords(ctx context.Context, sessionID string) ([]model.AuditRecord, error)
	GetAuditRecordsByDateRange(ctx context.Context, start, end time.Time) ([]model.AuditRecord, error)
	CountExecutionsSince(ctx context.Context, sessionID, category string, since time.Time) (int, error)

	// Recipient index.
	UpsertRecipient(ctx context.Context, recipient *model.Recipient) error
	ListRecipients(ctx context.Context) ([]model.Recipient, error)
	SearchRecipients(ctx context.Context, query string) ([]model.RecipientCandidate, error)

	// Database management.
	Migrate(ctx context.Context) error
	Close() error
}

// AuditSink receives audit records for export to an external system, e.g.
// a compliance spreadsheet. Export is one-way; sinks never feed back into
// the decision path.
type AuditSink interface {
	WriteAudit(ctx context.Context, records []model.AuditRecord) error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
