package sheets

import (
	"context"
	"sync"
)

// MockWriter is a mock implementation of ProjectionWriter for testing.
type MockWriter struct {
	WriteFunc      func(ctx context.Context, report *ProjectionReport) error
	LastReport     *ProjectionReport
	WriteCalls     []WriteCall
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to WriteProjection.
type WriteCall struct {
	Error  error
	Report *ProjectionReport
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// WriteProjection implements ProjectionWriter.
func (m *MockWriter) WriteProjection(ctx context.Context, report *ProjectionReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastReport = report

	var err error
	if m.WriteFunc != nil {
		err = m.WriteFunc(ctx, report)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{Report: report, Error: err})
	return err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.WriteCalls = make([]WriteCall, 0)
	m.LastReport = nil
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// AssertWriteCalled verifies that WriteProjection was called the expected number of times.
func (m *MockWriter) AssertWriteCalled(t interface{ Fatalf(string, ...any) }, expectedCalls int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteCallCount != expectedCalls {
		t.Fatalf("expected WriteProjection to be called %d times, but was called %d times", expectedCalls, m.WriteCallCount)
	}
}

// SetWriteError configures the mock to return err from every call.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteFunc = func(context.Context, *ProjectionReport) error {
		return err
	}
}

var _ ProjectionWriter = (*MockWriter)(nil)
