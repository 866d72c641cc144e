package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/moviemesh/tool"
)

// Message is a single role-tagged text entry in a completion request.
// Role is one of "system", "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by the executor.
// Tools, when present, are advertised with automatic tool selection.
type Request struct {
	Messages []Message         `json:"messages"`
	Tools    []tool.Definition `json:"tools,omitempty"`
}

// Response is the final completion returned by a provider. ToolCalls is
// non-empty when the model requests tool invocations instead of (or in
// addition to) answering directly.
type Response struct {
	Content   string      `json:"content"`
	ToolCalls []tool.Call `json:"tool_calls,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the executor to drive generation.
// Implementations own sampling policy (temperature, output-length ceiling).
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples. It
// replays queued responses in order; once the queue is drained it echoes the
// last user message.
type MockModel struct {
	mu       sync.Mutex
	info     Info
	queue    []*Response
	err      error
	Requests []Request // recorded inputs, in call order
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
	}
}

// Enqueue appends a canned response to the replay queue.
func (m *MockModel) Enqueue(resp *Response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, resp)
}

// Fail makes every subsequent Complete call return err.
func (m *MockModel) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Complete implements Model.
func (m *MockModel) Complete(_ context.Context, req Request) (*Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		resp := m.queue[0]
		m.queue = m.queue[1:]
		return resp, nil
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("no messages provided")
	}
	last := req.Messages[len(req.Messages)-1]
	return &Response{Content: fmt.Sprintf("Mock response to: %s", last.Content)}, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
