package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ridgelinebank/teller/internal/model"
)

// MockExecutor is a test implementation of the Executor interface. It
// succeeds with sequential reference IDs unless told to fail, and records
// every call.
type MockExecutor struct {
	mu    sync.Mutex
	calls []MockExecution
	err   error
	deny  string // non-empty: fail with this business reason
}

// MockExecution records one executor invocation.
type MockExecution struct {
	OperationID string
	Entities    model.EntityMap
}

// NewMockExecutor creates a mock executor that succeeds.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// FailWith makes every call return err.
func (m *MockExecutor) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// DenyWith makes every call return an unsuccessful result with reason.
func (m *MockExecutor) DenyWith(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deny = reason
}

// Calls returns the executions seen so far.
func (m *MockExecutor) Calls() []MockExecution {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockExecution(nil), m.calls...)
}

// Execute implements service.Executor.
func (m *MockExecutor) Execute(_ context.Context, operationID string, entities model.EntityMap) (*model.ExecutionResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockExecution{OperationID: operationID, Entities: entities.Clone()})
	if m.err != nil {
		return nil, m.err
	}
	if m.deny != "" {
		return &model.ExecutionResult{Success: false, Reason: m.deny}, nil
	}
	return &model.ExecutionResult{
		Success:     true,
		ReferenceID: fmt.Sprintf("exec-%04d", len(m.calls)),
	}, nil
}
