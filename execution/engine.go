// Package execution runs a single subtask to completion as an explicit state
// machine: request a completion, dispatch any requested tool calls in order,
// feed the outcomes back, repeat. The loop is bounded by an iteration budget
// and checks for cancellation before every model call. Tool failures of any
// kind (unknown tool, malformed arguments, execution errors, panics) are fed
// back into the conversation instead of aborting the run.
package execution

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/logging"
	"github.com/planloop/planloop/model"
	"github.com/planloop/planloop/tool"
)

// domainLogger is the richer diagnostic surface a run logger may provide.
// When the run's logger implements it, model and tool calls are logged with
// their timing; otherwise they fall back to plain debug lines.
type domainLogger interface {
	LogToolCall(tool string, dur time.Duration, success bool, err error)
	LogModelCall(model string, dur time.Duration, success bool, err error)
}

var _ domainLogger = (*logging.RunLogger)(nil)

// State names a position in the task execution machine.
type State string

const (
	// StateAwaitingModel means the next step is a model completion.
	StateAwaitingModel State = "awaiting_model"
	// StateDispatchingTools means the model requested tool calls that are
	// being executed in order.
	StateDispatchingTools State = "dispatching_tools"
	// StateSucceeded is terminal: the model produced a final answer.
	StateSucceeded State = "succeeded"
	// StateFailed is terminal: the iteration budget ran out.
	StateFailed State = "failed"
)

const executorSystemPrompt = `You are an execution agent working on one subtask of a larger plan.
Use the available tools when they help. When the subtask is done, respond with
a plain text summary of what was accomplished and do not call further tools.`

// Options configure the execution engine.
type Options struct {
	// MaxIterations bounds model completions per subtask. Defaults to 10.
	MaxIterations int
	// Temperature for execution completions. Defaults to 0.7.
	Temperature float64
}

// Engine executes subtasks against a model and a tool registry.
type Engine struct {
	model model.Model
	tools *tool.Registry
	opts  Options
}

// NewEngine creates an execution engine. The registry may be empty, in which
// case subtasks are answered in a single completion.
func NewEngine(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxIterations: 10,
		Temperature:   0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 10
	}
	if registry == nil {
		registry = tool.NewRegistry()
	}
	return &Engine{model: m, tools: registry, opts: opts}
}

// ExecuteTask runs one subtask through the tool-calling loop. planContext
// carries results of completed dependencies and is included in the prompt.
//
// Tool-level failures never surface as Go errors; they become failed
// invocations in the TaskResult and failed tool messages in working memory.
// A Go error is returned only for cancellation or a model failure, and the
// caller should treat the subtask as failed in that case. Exhausting the
// iteration budget returns a failed TaskResult with a nil error.
func (e *Engine) ExecuteTask(rc *core.RunContext, task *core.SubTask, planContext string) (*core.TaskResult, error) {
	result := &core.TaskResult{}

	rc.Publish(core.EventExecution, map[string]any{
		"message":    "subtask started",
		"subtask_id": task.ID,
	})

	e.seedMemory(rc, task, planContext)

	state := StateAwaitingModel
	var response *model.Response

	for iteration := 0; ; {
		switch state {
		case StateAwaitingModel:
			if err := rc.Err(); err != nil {
				return nil, fmt.Errorf("subtask %d cancelled: %w", task.ID, err)
			}
			if iteration >= e.opts.MaxIterations {
				state = StateFailed
				continue
			}
			iteration++

			start := time.Now()
			resp, err := e.model.Complete(rc.Context, model.Request{
				Messages:    rc.Memory.Messages(),
				Tools:       e.tools.Definitions(),
				Temperature: e.opts.Temperature,
			})
			if dl, ok := rc.Logger().(domainLogger); ok {
				dl.LogModelCall(e.model.Info().Name, time.Since(start), err == nil, err)
			}
			if err != nil {
				return nil, fmt.Errorf("subtask %d completion: %w", task.ID, err)
			}
			response = resp

			assistant := core.NewMessage("assistant", resp.Content)
			assistant.ToolCalls = resp.ToolCalls
			rc.Memory.Add(assistant)

			if len(resp.ToolCalls) > 0 {
				state = StateDispatchingTools
			} else {
				state = StateSucceeded
			}

		case StateDispatchingTools:
			for _, call := range response.ToolCalls {
				invocation := e.dispatch(rc, call)
				result.ToolCalls = append(result.ToolCalls, invocation)
				rc.Memory.Add(core.NewToolMessage(call.ID, call.Name, outcomeContent(invocation.Outcome)))
			}
			state = StateAwaitingModel

		case StateSucceeded:
			result.Success = true
			result.Output = strings.TrimSpace(response.Content)
			rc.Publish(core.EventExecution, map[string]any{
				"message":    "subtask finished",
				"subtask_id": task.ID,
				"success":    true,
			})
			return result, nil

		case StateFailed:
			budgetErr := &core.IterationBudgetError{Max: e.opts.MaxIterations}
			result.Success = false
			result.Error = budgetErr.Error()
			if response != nil {
				result.Output = strings.TrimSpace(response.Content)
			}
			rc.Publish(core.EventExecution, map[string]any{
				"message":    "subtask failed",
				"subtask_id": task.ID,
				"success":    false,
				"error":      result.Error,
			})
			return result, nil
		}
	}
}

// seedMemory writes the system and task prompts into working memory. The
// system prompt is added once per run; subsequent subtasks only append their
// task prompt.
func (e *Engine) seedMemory(rc *core.RunContext, task *core.SubTask, planContext string) {
	hasSystem := false
	for _, msg := range rc.Memory.Messages() {
		if msg.Role == "system" {
			hasSystem = true
			break
		}
	}
	if !hasSystem {
		rc.Memory.Add(core.NewMessage("system", executorSystemPrompt))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Overall goal: %s\n\nCurrent subtask (%d): %s", rc.Goal, task.ID, task.Description)
	if task.Reasoning != "" {
		fmt.Fprintf(&b, "\nWhy: %s", task.Reasoning)
	}
	if planContext != "" {
		fmt.Fprintf(&b, "\n\nResults of completed subtasks:\n%s", planContext)
	}
	rc.Memory.Add(core.NewMessage("user", b.String()))
}

// dispatch executes one requested tool call, converting malformed arguments
// into a failed outcome before the registry is even consulted.
func (e *Engine) dispatch(rc *core.RunContext, call core.ToolCall) core.ToolInvocation {
	invocation := core.ToolInvocation{Tool: call.Name}
	start := time.Now()

	args := map[string]any{}
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			invocation.Outcome = core.ToolOutcome{
				Success: false,
				Error:   fmt.Sprintf("malformed tool arguments: %v", err),
			}
			e.publishToolCall(rc, invocation, time.Since(start))
			return invocation
		}
	}
	invocation.Arguments = args
	invocation.Outcome = e.tools.Dispatch(rc.Context, call.Name, args)
	e.publishToolCall(rc, invocation, time.Since(start))
	return invocation
}

func (e *Engine) publishToolCall(rc *core.RunContext, invocation core.ToolInvocation, dur time.Duration) {
	data := map[string]any{
		"tool":    invocation.Tool,
		"success": invocation.Outcome.Success,
	}
	if invocation.Outcome.Error != "" {
		data["error"] = invocation.Outcome.Error
	}
	rc.Publish(core.EventToolCall, data)

	if dl, ok := rc.Logger().(domainLogger); ok {
		var err error
		if invocation.Outcome.Error != "" {
			err = errors.New(invocation.Outcome.Error)
		}
		dl.LogToolCall(invocation.Tool, dur, invocation.Outcome.Success, err)
		return
	}
	rc.LogDebug("tool call dispatched", "tool", invocation.Tool, "success", invocation.Outcome.Success)
}

// outcomeContent renders a tool outcome as the content of the tool message
// fed back to the model.
func outcomeContent(outcome core.ToolOutcome) string {
	if !outcome.Success {
		return fmt.Sprintf("Tool call failed: %s", outcome.Error)
	}
	switch v := outcome.Result.(type) {
	case string:
		return v
	case nil:
		return "ok"
	default:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
		return fmt.Sprintf("%v", v)
	}
}
