package model

import (
	"context"
	"fmt"
	"sync"

	"github.com/planloop/planloop/core"
)

type scripted struct {
	resp *Response
	err  error
}

// Mock is a deterministic in-memory Model for tests and examples. Responses
// can be scripted in order (Enqueue) or keyed by the last message content
// (AddResponse); scripted entries win. Repeated calls with the same inputs
// yield the same outputs, which keeps scheduling and scoring properties
// verifiable without a real provider.
type Mock struct {
	info      Info
	mu        sync.Mutex
	script    []scripted
	responses map[string]*Response
	calls     int
}

// NewMock constructs an empty mock.
func NewMock() *Mock {
	return &Mock{
		info:      Info{Name: "mock", Provider: "mock"},
		responses: map[string]*Response{},
	}
}

// Enqueue appends a scripted response consumed in FIFO order.
func (m *Mock) Enqueue(resp *Response) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{resp: resp})
	return m
}

// EnqueueError appends a scripted failure consumed in FIFO order.
func (m *Mock) EnqueueError(err error) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
	return m
}

// EnqueueContent appends a plain-content scripted response.
func (m *Mock) EnqueueContent(content string) *Mock {
	return m.Enqueue(&Response{Content: content, FinishReason: "stop"})
}

// EnqueueToolCall appends a scripted response requesting a single tool call.
func (m *Mock) EnqueueToolCall(id, name, args string) *Mock {
	return m.Enqueue(&Response{
		ToolCalls:    []core.ToolCall{{ID: id, Name: name, Arguments: args}},
		FinishReason: "tool_calls",
	})
}

// AddResponse registers a canned completion for requests whose last message
// content equals prompt.
func (m *Mock) AddResponse(prompt string, resp *Response) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = resp
	return m
}

// Calls returns how many Complete calls the mock has served.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Complete implements Model.
func (m *Mock) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.script) > 0 {
		next := m.script[0]
		m.script = m.script[1:]
		if next.err != nil {
			return nil, next.err
		}
		return next.resp, nil
	}

	if len(req.Messages) > 0 {
		last := req.Messages[len(req.Messages)-1]
		if resp, ok := m.responses[last.Content]; ok {
			return resp, nil
		}
		return &Response{Content: fmt.Sprintf("Mock response to: %s", last.Content), FinishReason: "stop"}, nil
	}

	return nil, Fatal(fmt.Errorf("no messages provided"))
}

// Info implements Model.
func (m *Mock) Info() Info { return m.info }
