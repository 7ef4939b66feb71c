// Package agent wires the engines into runnable orchestrators. Agent drives
// a single goal end to end: plan, execute subtasks in dependency order,
// replan on failure within a bound, evaluate and archive the run.
// Orchestrator coordinates separate planner, executor and reviewer roles
// over a shared transcript.
package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/evaluation"
	"github.com/planloop/planloop/execution"
	"github.com/planloop/planloop/logging"
	"github.com/planloop/planloop/memory"
	"github.com/planloop/planloop/model"
	"github.com/planloop/planloop/planning"
	"github.com/planloop/planloop/stream"
	"github.com/planloop/planloop/thinking"
	"github.com/planloop/planloop/tool"
)

// Options configure an Agent.
type Options struct {
	// Name identifies the agent in logs. Defaults to "agent".
	Name string
	// MaxReplans bounds plan revisions per run. Defaults to 2.
	MaxReplans int
	// ThinkingEnabled turns on the reasoning trace: a pre-execution
	// reasoning step, a reflection after each completed subtask, failure
	// analysis and the replan-or-continue decision. Defaults to true; when
	// false the raw task error feeds the replan directly.
	ThinkingEnabled bool
	// MemoryLimit bounds working memory per run. Defaults to 100.
	MemoryLimit int
	// Bus receives run events. Defaults to a fresh bus.
	Bus *stream.Bus
	// Archive persists finished runs. Nil disables archiving.
	Archive core.LongTermMemory
	// Logger receives run diagnostics. Defaults to a no-op logger.
	Logger logging.Logger

	// Engine option hooks, applied to the engines the agent constructs.
	Planning   []func(o *planning.Options)
	Execution  []func(o *execution.Options)
	Thinking   []func(o *thinking.Options)
	Evaluation []func(o *evaluation.Options)
}

// RunResult is the outcome of one Agent.Run.
type RunResult struct {
	RunID      string
	Goal       string
	Plan       *core.Plan
	Evaluation *core.FinalEvaluation
	Output     string
	Success    bool
}

// Agent orchestrates a goal through planning, execution and evaluation.
// Construct once and reuse; each Run gets its own working memory and run
// context, so concurrent runs do not share conversational state.
type Agent struct {
	name      string
	planner   *planning.Engine
	executor  *execution.Engine
	thinker   *thinking.Engine
	evaluator *evaluation.Engine
	bus       *stream.Bus
	archive   core.LongTermMemory
	logger    logging.Logger
	opts      Options
}

// New creates an agent using one model for every engine. Use the engine
// option hooks to tune individual engines.
func New(m model.Model, registry *tool.Registry, optFns ...func(o *Options)) *Agent {
	opts := Options{
		Name:            "agent",
		MaxReplans:      2,
		ThinkingEnabled: true,
		MemoryLimit:     100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxReplans < 0 {
		opts.MaxReplans = 0
	}
	if opts.Bus == nil {
		opts.Bus = stream.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Agent{
		name:      opts.Name,
		planner:   planning.NewEngine(m, opts.Planning...),
		executor:  execution.NewEngine(m, registry, opts.Execution...),
		thinker:   thinking.NewEngine(m, opts.Thinking...),
		evaluator: evaluation.NewEngine(m, opts.Evaluation...),
		bus:       opts.Bus,
		archive:   opts.Archive,
		logger:    logger,
		opts:      opts,
	}
}

// Bus returns the agent's event bus for subscribing to run events.
func (a *Agent) Bus() *stream.Bus { return a.bus }

// Run executes goal end to end and returns the evaluated result. The context
// cancels the run between model calls and tool dispatches.
func (a *Agent) Run(ctx context.Context, goal string) (*RunResult, error) {
	runID := uuid.New().String()
	mem := memory.NewWorkingMemory(func(o *memory.WorkingMemoryOptions) {
		o.MaxMessages = a.opts.MemoryLimit
	})
	rc := core.NewRunContext(ctx, runID, goal, a.bus, mem, a.archive, a.logger)

	a.bus.EmitStart(runID, goal)
	rc.LogInfo("run started", "agent", a.name, "run_id", runID, "goal", goal)

	plan, err := a.planner.Plan(ctx, goal, a.recallLessons())
	if err != nil {
		a.bus.EmitError(runID, err)
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	a.bus.EmitPlanning("plan created", map[string]any{
		"subtasks": len(plan.SubTasks),
		"strategy": plan.Strategy,
	})

	if a.opts.ThinkingEnabled {
		a.thinker.Observe(rc, fmt.Sprintf("Plan for %q has %d subtasks (strategy: %s).",
			goal, len(plan.SubTasks), plan.Strategy))
		if _, err := a.thinker.Think(rc, fmt.Sprintf(
			"About to execute a %d-subtask plan for %q. What should be watched while executing it?",
			len(plan.SubTasks), goal)); err != nil {
			rc.LogWarn("pre-execution reasoning failed", "error", err)
		}
	}

	if err := a.executePlan(rc, plan); err != nil {
		a.bus.EmitError(runID, err)
		return nil, err
	}

	final := a.evaluator.EvaluateFinal(rc, plan)
	result := &RunResult{
		RunID:      runID,
		Goal:       goal,
		Plan:       plan,
		Evaluation: final,
		Output:     lastOutput(plan),
		Success:    final.OverallSuccess,
	}

	a.persist(rc, result)
	a.bus.EmitComplete(runID, result.Success, map[string]any{
		"score":  final.OverallScore,
		"output": result.Output,
	})
	rc.LogInfo("run finished", "run_id", runID, "success", result.Success, "score", final.OverallScore)
	a.thinker.Clear()
	return result, nil
}

// QuickTask executes a single task without planning or evaluation and
// returns its output. Failures of the task itself are returned as errors.
func (a *Agent) QuickTask(ctx context.Context, task string) (string, error) {
	runID := uuid.New().String()
	mem := memory.NewWorkingMemory(func(o *memory.WorkingMemoryOptions) {
		o.MaxMessages = a.opts.MemoryLimit
	})
	rc := core.NewRunContext(ctx, runID, task, a.bus, mem, nil, a.logger)

	result, err := a.executor.ExecuteTask(rc, &core.SubTask{ID: 1, Description: task}, "")
	if err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("task failed: %s", result.Error)
	}
	return result.Output, nil
}

// executePlan walks subtasks in dependency order, skipping dependents of
// failures and replanning within the bound.
func (a *Agent) executePlan(rc *core.RunContext, plan *core.Plan) error {
	replans := 0

	for {
		order, err := planning.ExecutionOrder(plan)
		if err != nil {
			return fmt.Errorf("plan is not executable: %w", err)
		}

		replanned := false
		for _, id := range order {
			task := plan.SubTask(id)
			if task == nil || task.Status == core.StatusCompleted || task.Status == core.StatusSkipped {
				continue
			}

			if dep, ok := unmetDependency(plan, task); ok {
				task.Status = core.StatusSkipped
				task.Result = &core.TaskResult{
					Success: false,
					Error:   fmt.Sprintf("dependency %d did not complete", dep),
				}
				rc.LogInfo("subtask skipped", "subtask_id", task.ID, "dependency", dep)
				continue
			}

			task.Status = core.StatusInProgress
			result, err := a.executor.ExecuteTask(rc, task, completedContext(plan))
			if err != nil {
				if rc.Err() != nil {
					return err
				}
				// Model failure: record it on the subtask and continue the
				// failure path below.
				result = &core.TaskResult{Success: false, Error: err.Error()}
			}
			task.Result = result

			if result.Success {
				task.Status = core.StatusCompleted
				a.bus.EmitProgress(len(plan.CompletedIDs()), len(plan.SubTasks))
				if a.opts.ThinkingEnabled {
					if _, err := a.thinker.ReflectOnAction(rc, task.Description, result.Output); err != nil {
						rc.LogWarn("reflection failed", "subtask_id", task.ID, "error", err)
					}
				}
				continue
			}

			task.Status = core.StatusFailed
			a.bus.EmitProgress(len(plan.CompletedIDs()), len(plan.SubTasks))

			analysis := result.Error
			if a.opts.ThinkingEnabled {
				if thought, thinkErr := a.thinker.AnalyzeFailure(rc, task.Description, result.Error); thinkErr == nil {
					analysis = thought
				}
			}

			if replans >= a.opts.MaxReplans {
				rc.LogWarn("replan budget exhausted", "subtask_id", task.ID)
				continue
			}

			if a.opts.ThinkingEnabled {
				choice, decErr := a.thinker.MakeDecision(rc, fmt.Sprintf(
					"Subtask %d failed: %s. Revise the plan or continue with the remaining subtasks?",
					task.ID, analysis), []string{"replan", "continue"})
				if decErr == nil && choice == "continue" {
					rc.LogInfo("keeping current plan", "subtask_id", task.ID)
					continue
				}
			}

			revised, replanErr := a.planner.Replan(rc.Context, plan,
				fmt.Sprintf("subtask %d failed: %s", task.ID, analysis))
			if replanErr != nil {
				rc.LogWarn("replan failed, keeping current plan", "error", replanErr)
				continue
			}
			replans++
			*plan = *revised
			a.bus.EmitPlanning("plan revised", map[string]any{
				"replans":  replans,
				"subtasks": len(plan.SubTasks),
			})
			replanned = true
			break
		}

		if !replanned {
			return nil
		}
	}
}

// recallLessons summarizes lessons from recent archived runs for the
// planning prompt.
func (a *Agent) recallLessons() string {
	if a.archive == nil {
		return ""
	}
	records, err := a.archive.Recent(3)
	if err != nil || len(records) == 0 {
		return ""
	}
	var lines []string
	for _, record := range records {
		if record.Evaluation == nil {
			continue
		}
		for _, lesson := range record.Evaluation.LessonsLearned {
			lines = append(lines, "- "+lesson)
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Lessons from previous runs:\n" + strings.Join(lines, "\n")
}

func (a *Agent) persist(rc *core.RunContext, result *RunResult) {
	if a.archive == nil {
		return
	}
	record := core.RunRecord{
		RunID:       result.RunID,
		Goal:        result.Goal,
		Plan:        result.Plan,
		Evaluation:  result.Evaluation,
		CompletedAt: time.Now().UTC(),
	}
	if err := a.archive.RecordRun(record); err != nil {
		rc.LogWarn("failed to archive run", "run_id", result.RunID, "error", err)
	}
}

// unmetDependency returns the first dependency of task that did not
// complete, if any.
func unmetDependency(plan *core.Plan, task *core.SubTask) (int, bool) {
	for _, dep := range task.Dependencies {
		depTask := plan.SubTask(dep)
		if depTask == nil || depTask.Status != core.StatusCompleted {
			return dep, true
		}
	}
	return 0, false
}

// completedContext renders completed subtask outputs for the execution
// prompt.
func completedContext(plan *core.Plan) string {
	var lines []string
	for _, task := range plan.SubTasks {
		if task.Status == core.StatusCompleted && task.Result != nil {
			lines = append(lines, fmt.Sprintf("- subtask %d (%s): %s", task.ID, task.Description, task.Result.Output))
		}
	}
	return strings.Join(lines, "\n")
}

// lastOutput returns the output of the last completed subtask in id order.
func lastOutput(plan *core.Plan) string {
	output := ""
	for _, task := range plan.SubTasks {
		if task.Status == core.StatusCompleted && task.Result != nil && task.Result.Output != "" {
			output = task.Result.Output
		}
	}
	return output
}
