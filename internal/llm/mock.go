package llm

import (
	"context"
	"sync"
)

// MockReply is a canned reply for MockGenerator.
type MockReply struct {
	Text string
	Err  error
}

// MockGenerator returns canned replies in FIFO order and records every prompt.
// Match lets a test pick a reply by prompt content instead of call order.
type MockGenerator struct {
	mu      sync.Mutex
	replies []MockReply
	Match   func(prompt string) (MockReply, bool)
	Prompts []string
}

// NewMockGenerator creates a MockGenerator with the given canned replies.
func NewMockGenerator(replies ...MockReply) *MockGenerator {
	return &MockGenerator{replies: replies}
}

// Generate returns the next canned reply, or a ServiceError when none is left.
func (m *MockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.Match != nil {
		if r, ok := m.Match(prompt); ok {
			return r.Text, r.Err
		}
	}
	if len(m.replies) == 0 {
		return "", &ServiceError{Message: "mock: no replies queued"}
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r.Text, r.Err
}

// ModelID returns "mock".
func (m *MockGenerator) ModelID() string { return "mock" }

// CallCount returns the number of Generate calls made.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}
