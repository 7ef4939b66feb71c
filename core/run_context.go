package core

import (
	"context"

	"github.com/planloop/planloop/logging"
)

// RunContext carries the per-run execution scope passed down to the engines.
// It replaces any global agent state with an explicit, run-scoped dependency
// object: identifiers, the goal, the event sink, working and long-term memory
// and a logger. One RunContext is constructed per run and discarded with it.
type RunContext struct {
	Context context.Context
	RunID   string
	Goal    string
	Sink    EventSink
	Memory  MessageLog
	Archive LongTermMemory

	*loggerAdapter
}

// NewRunContext constructs a run scope. Sink, memory and archive may be nil;
// emission and persistence become no-ops where they are.
func NewRunContext(
	ctx context.Context,
	runID, goal string,
	sink EventSink,
	mem MessageLog,
	archive LongTermMemory,
	logger logging.Logger,
) *RunContext {
	return &RunContext{
		Context:       ctx,
		RunID:         runID,
		Goal:          goal,
		Sink:          sink,
		Memory:        mem,
		Archive:       archive,
		loggerAdapter: newLoggerAdapter(logger),
	}
}

// Done returns a channel closed when the underlying context is cancelled.
func (rc *RunContext) Done() <-chan struct{} { return rc.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (rc *RunContext) Err() error { return rc.Context.Err() }

// Publish emits an event through the sink, if one is configured.
func (rc *RunContext) Publish(t EventType, data map[string]any) {
	if rc.Sink == nil {
		return
	}
	rc.Sink.Emit(t, data)
}
