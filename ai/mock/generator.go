package mock

import (
	"context"
	"strings"
)

// MockGenerator is a test double for ai.Generator.
// It allows custom behavior injection via function fields or a scripted
// response queue.
type MockGenerator struct {
	// GenerateFunc is called by Generate if set.
	// If nil, uses the Responses queue, then default behavior.
	GenerateFunc func(ctx context.Context, system, user string) (string, error)

	// Responses is a scripted queue of completions. Each Generate call
	// consumes one entry until the queue is empty.
	Responses []string

	callCount int
	prompts   []string
}

// NewMockGenerator creates a mock generator with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockGenerator().
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns the next scripted response, or a deterministic completion
// derived from the user prompt.
func (m *MockGenerator) Generate(ctx context.Context, system, user string) (string, error) {
	m.callCount++
	m.prompts = append(m.prompts, user)

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, system, user)
	}

	if len(m.Responses) > 0 {
		resp := m.Responses[0]
		m.Responses = m.Responses[1:]
		return resp, nil
	}

	// Default: echo a stable completion so tests can assert on it.
	first := user
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}
	if len(first) > 60 {
		first = first[:60]
	}
	return "mock completion: " + first, nil
}

// CallCount returns the number of times Generate was called.
func (m *MockGenerator) CallCount() int {
	return m.callCount
}

// Prompts returns the user prompts passed to Generate, in call order.
func (m *MockGenerator) Prompts() []string {
	return m.prompts
}

// Reset clears the call count, recorded prompts and custom behavior.
func (m *MockGenerator) Reset() {
	m.callCount = 0
	m.prompts = nil
	m.GenerateFunc = nil
	m.Responses = nil
}
