// Package testutil provides test utilities for the llm package.
// It includes deterministic substitutes for the model process at both
// levels of injection: MockClient replaces the whole gateway for component
// tests, and ScriptedRunner replaces only the process runner for gateway
// tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/c360studio/expense-tracker/llm"
)

// MockClient is a thread-safe scripted llm.Invoker for testing.
// It captures every prompt and returns configured responses in sequence.
//
// Usage:
//
//	// Single response mock
//	mock := &MockClient{
//	    Responses: []string{`{"category": "Food", "confidence": 0.9}`},
//	}
//
//	// Error injection
//	mock := &MockClient{
//	    Err: errors.New("model unavailable"),
//	}
type MockClient struct {
	mu            sync.Mutex
	Responses     []string // Responses to return in sequence (last one repeats)
	Err           error    // Error to return (takes precedence over Responses)
	Unavailable   bool     // Makes Available return false
	prompts       []string
	callCount     int
	responseIndex int
}

var _ llm.Invoker = (*MockClient)(nil)

// Run implements llm.Invoker. Returns the next scripted response verbatim.
func (m *MockClient) Run(_ context.Context, prompt string, _ llm.Format) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.callCount++

	if m.Err != nil {
		return "", m.Err
	}

	return m.nextResponse(), nil
}

// RunJSON implements llm.Invoker. The scripted response goes through the
// same normalization as production output, so fixtures may use envelopes
// and fenced blocks.
func (m *MockClient) RunJSON(_ context.Context, prompt string, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, prompt)
	m.callCount++

	if m.Err != nil {
		return m.Err
	}

	payload := llm.Normalize(m.nextResponse())
	if payload == "" {
		return fmt.Errorf("no JSON in scripted response")
	}
	return json.Unmarshal([]byte(payload), out)
}

// Available implements llm.Invoker.
func (m *MockClient) Available(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.Unavailable
}

// nextResponse returns the next scripted response; the last one repeats.
// Callers must hold m.mu.
func (m *MockClient) nextResponse() string {
	if len(m.Responses) == 0 {
		return ""
	}
	if m.responseIndex < len(m.Responses) {
		resp := m.Responses[m.responseIndex]
		m.responseIndex++
		return resp
	}
	return m.Responses[len(m.Responses)-1]
}

// Prompts returns a copy of all prompts seen so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// LastPrompt returns the most recent prompt, or "" when none were sent.
func (m *MockClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// CallCount returns the number of Run/RunJSON calls.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears captured prompts and rewinds the response sequence.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = nil
	m.callCount = 0
	m.responseIndex = 0
}

// ScriptedRunner is a scripted llm.Runner for gateway-level tests. Results
// are returned in sequence; the last one repeats. Err takes precedence and
// models a binary that could not be started.
type ScriptedRunner struct {
	mu      sync.Mutex
	Results []llm.RunResult
	Err     error
	calls   [][]string
	index   int
}

var _ llm.Runner = (*ScriptedRunner)(nil)

// Run implements llm.Runner.
func (r *ScriptedRunner) Run(_ context.Context, name string, args ...string) (llm.RunResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call := append([]string{name}, args...)
	r.calls = append(r.calls, call)

	if r.Err != nil {
		return llm.RunResult{}, r.Err
	}
	if len(r.Results) == 0 {
		return llm.RunResult{}, nil
	}
	if r.index < len(r.Results) {
		result := r.Results[r.index]
		r.index++
		return result, nil
	}
	return r.Results[len(r.Results)-1], nil
}

// Calls returns every recorded invocation, each as binary name plus args.
func (r *ScriptedRunner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	for i, call := range r.calls {
		out[i] = append([]string(nil), call...)
	}
	return out
}

// CallCount returns the number of recorded invocations.
func (r *ScriptedRunner) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
