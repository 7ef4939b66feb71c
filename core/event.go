package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType identifies the kind of a StreamEvent.
type EventType string

const (
	// EventStart opens a run.
	EventStart EventType = "START"
	// EventPlanning carries the decomposition produced by the planner.
	EventPlanning EventType = "PLANNING"
	// EventThinking carries a thought record.
	EventThinking EventType = "THINKING"
	// EventExecution reports subtask execution progress.
	EventExecution EventType = "EXECUTION"
	// EventToolCall reports a single tool invocation.
	EventToolCall EventType = "TOOL_CALL"
	// EventProgress reports coarse run progress.
	EventProgress EventType = "PROGRESS"
	// EventEvaluation carries a step or final evaluation.
	EventEvaluation EventType = "EVALUATION"
	// EventComplete closes a successful run.
	EventComplete EventType = "COMPLETE"
	// EventError reports a run-level failure.
	EventError EventType = "ERROR"
)

// StreamEvent is a typed, sequenced progress notification broadcast to
// observers. Events are immutable once emitted; Sequence is assigned by the
// bus and increases monotonically per run starting at 0.
type StreamEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
	Sequence  uint64         `json:"sequence"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewStreamEvent constructs an event with a fresh id and UTC timestamp. The
// sequence number is stamped by the bus at emission.
func NewStreamEvent(t EventType, data map[string]any) StreamEvent {
	return StreamEvent{
		ID:        uuid.NewString(),
		Type:      t,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// JSON renders the event as a single JSON object, the wire shape delivered to
// consumers over any push transport.
func (e StreamEvent) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// SSE renders the event as one Server-Sent Events frame.
func (e StreamEvent) SSE() (string, error) {
	b, err := e.JSON()
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}
	return fmt.Sprintf("data: %s\n\n", b), nil
}

// EventSink is the minimal emission contract the engines need. It is
// implemented by stream.Bus; injecting the interface keeps the engines free of
// a transport dependency and lets tests capture emissions.
type EventSink interface {
	// Emit constructs a StreamEvent with the next sequence number and
	// broadcasts it to every current subscriber, returning the stamped event.
	Emit(t EventType, data map[string]any) StreamEvent
}
