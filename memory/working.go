// Package memory provides the two memory tiers of a run: a bounded working
// memory holding the live conversation, and a long-term archive of finished
// runs. Both are in-memory implementations guarded by RW mutexes and safe for
// concurrent use.
package memory

import (
	"sync"

	"github.com/planloop/planloop/core"
)

// WorkingMemoryOptions configure a WorkingMemory.
type WorkingMemoryOptions struct {
	// MaxMessages bounds the log. When exceeded, the oldest non-system
	// messages are pruned first. Defaults to 100; zero or negative means
	// the default.
	MaxMessages int
}

// WorkingMemory is a bounded, ordered message log for the duration of a run.
// System messages are kept as long as possible during pruning so the agent
// does not lose its instructions mid-run.
type WorkingMemory struct {
	mu       sync.RWMutex
	messages []core.Message
	max      int
}

// NewWorkingMemory creates an empty working memory.
func NewWorkingMemory(optFns ...func(o *WorkingMemoryOptions)) *WorkingMemory {
	opts := WorkingMemoryOptions{MaxMessages: 100}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = 100
	}
	return &WorkingMemory{max: opts.MaxMessages}
}

// Add appends a message, pruning the oldest non-system entries once the
// bound is exceeded.
func (m *WorkingMemory) Add(msg core.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if len(m.messages) <= m.max {
		return
	}

	// Drop the oldest non-system message. If every message is a system
	// message the oldest one goes anyway to honor the bound.
	drop := 0
	for i, existing := range m.messages {
		if existing.Role != "system" {
			drop = i
			break
		}
	}
	m.messages = append(m.messages[:drop], m.messages[drop+1:]...)
}

// Messages returns a copy of the log in insertion order.
func (m *WorkingMemory) Messages() []core.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear removes all messages.
func (m *WorkingMemory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Len returns the number of stored messages.
func (m *WorkingMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

var _ core.MessageLog = (*WorkingMemory)(nil)
