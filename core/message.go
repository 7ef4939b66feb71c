package core

import "time"

// ToolCall is a function call request surfaced by the completion capability.
// Unified across providers so downstream logic does not need per-provider
// branching.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"` // JSON string of arguments
}

// Message is one entry of the working-memory conversation log, mirroring the
// message shape consumed by the completion capability.
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // set on tool role messages
	Name       string     `json:"name,omitempty"`         // tool name on tool role messages
	Timestamp  time.Time  `json:"timestamp"`
}

// NewMessage constructs a message with a UTC timestamp.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

// NewToolMessage constructs a tool-role message carrying a serialized tool
// outcome, correlated to the originating call via callID.
func NewToolMessage(callID, name, content string) Message {
	m := NewMessage("tool", content)
	m.ToolCallID = callID
	m.Name = name
	return m
}

// MessageLog is the working-memory contract: an ordered, bounded message log
// exclusively owned by one in-flight run.
type MessageLog interface {
	Add(Message)
	Messages() []Message
	Clear()
	Len() int
}
