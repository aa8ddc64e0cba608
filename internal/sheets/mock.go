package sheets

import (
	"context"
	"sync"

	"github.com/ridgelinebank/teller/internal/model"
)

// MockSink is a mock implementation of AuditSink for testing.
type MockSink struct {
	WriteFunc      func(ctx context.Context, records []model.AuditRecord) error
	LastRecords    []model.AuditRecord
	WriteCallCount int
	mu             sync.Mutex
}

// NewMockSink creates a new mock audit sink.
func NewMockSink() *MockSink {
	return &MockSink{}
}

// WriteAudit implements the AuditSink interface.
func (m *MockSink) WriteAudit(ctx context.Context, records []model.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastRecords = records

	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, records)
	}
	return nil
}

// Reset clears all recorded calls.
func (m *MockSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.LastRecords = nil
}

// SetWriteError configures the mock to return an error on every write.
func (m *MockSink) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(_ context.Context, _ []model.AuditRecord) error {
		return err
	}
}
