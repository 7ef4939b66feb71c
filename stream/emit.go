package stream

import (
	"github.com/planloop/planloop/core"
)

// Typed emit helpers. These keep event payload keys consistent across the
// engines that publish them.

// EmitStart announces a new run.
func (b *Bus) EmitStart(runID, goal string) core.StreamEvent {
	return b.Emit(core.EventStart, map[string]any{
		"run_id": runID,
		"goal":   goal,
	})
}

// EmitPlanning reports planning activity such as a created or revised plan.
func (b *Bus) EmitPlanning(message string, data map[string]any) core.StreamEvent {
	return b.Emit(core.EventPlanning, withMessage(message, data))
}

// EmitThinking reports a reasoning step.
func (b *Bus) EmitThinking(thoughtType, content string) core.StreamEvent {
	return b.Emit(core.EventThinking, map[string]any{
		"thought_type": thoughtType,
		"content":      content,
	})
}

// EmitExecution reports subtask execution activity.
func (b *Bus) EmitExecution(message string, data map[string]any) core.StreamEvent {
	return b.Emit(core.EventExecution, withMessage(message, data))
}

// EmitToolCall reports a single tool invocation and its outcome.
func (b *Bus) EmitToolCall(toolName string, success bool, data map[string]any) core.StreamEvent {
	payload := map[string]any{
		"tool":    toolName,
		"success": success,
	}
	for k, v := range data {
		payload[k] = v
	}
	return b.Emit(core.EventToolCall, payload)
}

// EmitProgress reports completed versus total subtasks.
func (b *Bus) EmitProgress(completed, total int) core.StreamEvent {
	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}
	return b.Emit(core.EventProgress, map[string]any{
		"completed": completed,
		"total":     total,
		"percent":   percent,
	})
}

// EmitEvaluation reports a scoring result.
func (b *Bus) EmitEvaluation(message string, data map[string]any) core.StreamEvent {
	return b.Emit(core.EventEvaluation, withMessage(message, data))
}

// EmitComplete announces a finished run.
func (b *Bus) EmitComplete(runID string, success bool, data map[string]any) core.StreamEvent {
	payload := map[string]any{
		"run_id":  runID,
		"success": success,
	}
	for k, v := range data {
		payload[k] = v
	}
	return b.Emit(core.EventComplete, payload)
}

// EmitError announces a run-terminating failure.
func (b *Bus) EmitError(runID string, err error) core.StreamEvent {
	payload := map[string]any{"run_id": runID}
	if err != nil {
		payload["error"] = err.Error()
	}
	return b.Emit(core.EventError, payload)
}

func withMessage(message string, data map[string]any) map[string]any {
	payload := map[string]any{"message": message}
	for k, v := range data {
		payload[k] = v
	}
	return payload
}
