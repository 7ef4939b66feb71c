package core

import (
	"sync"
	"time"
)

// Role identifies the sender of an AgentMessage in a collaborative run.
type Role string

const (
	// RolePlanner is the planning role adapter.
	RolePlanner Role = "planner"
	// RoleExecutor is the execution role adapter.
	RoleExecutor Role = "executor"
	// RoleReviewer is the review role adapter.
	RoleReviewer Role = "reviewer"
	// RoleSystem marks orchestrator-authored control messages.
	RoleSystem Role = "system"
)

// AgentMessage is one entry of the collaboration transcript exchanged between
// role adapters. The transcript is append-only.
type AgentMessage struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Transcript is an append-only, concurrency-safe log of inter-role exchanges,
// kept independent of the stream bus for observability.
type Transcript struct {
	mu       sync.RWMutex
	messages []AgentMessage
}

// NewTranscript constructs an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records a message with a UTC timestamp.
func (t *Transcript) Append(from, to string, role Role, content string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, AgentMessage{
		From:      from,
		To:        to,
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// Messages returns a defensive copy of the transcript.
func (t *Transcript) Messages() []AgentMessage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]AgentMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of recorded messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}
