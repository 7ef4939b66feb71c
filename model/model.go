// Package model defines the completion capability consumed by the engines:
// a normalized request/response contract, a transient/fatal error taxonomy,
// a bounded-backoff retry decorator and a deterministic mock for tests.
// Provider adapters live in the model/openai and model/anthropic subpackages.
package model

import (
	"context"

	"github.com/planloop/planloop/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request captures the normalized model input produced by the engines.
type Request struct {
	Messages    []core.Message   `json:"messages"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	Temperature float64          `json:"temperature,omitempty"`
	MaxTokens   int64            `json:"max_tokens,omitempty"`
}

// Response is the outcome of one completion call. Exactly one of Content and
// ToolCalls is meaningful: a response carrying tool calls requests dispatch,
// a plain-content response closes the turn.
type Response struct {
	Content      string          `json:"content,omitempty"`
	ToolCalls    []core.ToolCall `json:"tool_calls,omitempty"`
	FinishReason string          `json:"finish_reason,omitempty"` // "stop", "length", "tool_calls", etc.
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the narrow oracle interface behind which all LLM-driven behavior
// (decomposition, tool selection, scoring) is abstracted. Complete blocks for
// the duration of the call; it is one of the two suspension points of a run.
type Model interface {
	Complete(ctx context.Context, req Request) (*Response, error)

	// Info returns information about the model implementation.
	Info() Info
}
