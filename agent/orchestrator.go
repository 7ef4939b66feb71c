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
	"github.com/planloop/planloop/tool"
)

// OrchestratorOptions configure a multi-role Orchestrator.
type OrchestratorOptions struct {
	// MaxRounds bounds planner/reviewer cycles. Defaults to 2, meaning the
	// initial plan plus up to two revisions.
	MaxRounds int
	// MemoryLimit bounds working memory per run. Defaults to 100.
	MemoryLimit int
	// Bus receives run events. Defaults to a fresh bus.
	Bus *stream.Bus
	// Archive persists finished runs. Nil disables archiving.
	Archive core.LongTermMemory
	// Logger receives run diagnostics. Defaults to a no-op logger.
	Logger logging.Logger

	// Engine option hooks.
	Planning   []func(o *planning.Options)
	Execution  []func(o *execution.Options)
	Evaluation []func(o *evaluation.Options)
}

// CollabResult is the outcome of one Orchestrator.Run, including the
// inter-role transcript.
type CollabResult struct {
	RunID      string
	Goal       string
	Plan       *core.Plan
	Evaluation *core.FinalEvaluation
	Transcript []core.AgentMessage
	Output     string
	Success    bool
}

// Orchestrator coordinates three roles over a shared transcript: a planner
// that proposes plans, an executor that carries them out and a reviewer that
// scores the outcome. When the reviewer rejects a round, the planner revises
// the plan with the reviewer's findings, within a bounded number of rounds.
// Each role may be backed by a different model.
type Orchestrator struct {
	planner   *planning.Engine
	executor  *execution.Engine
	evaluator *evaluation.Engine
	bus       *stream.Bus
	archive   core.LongTermMemory
	logger    logging.Logger
	opts      OrchestratorOptions
}

// NewOrchestrator creates a multi-role orchestrator. Distinct models per
// role are allowed and common; pass the same model three times for the
// single-model setup.
func NewOrchestrator(plannerModel, executorModel, reviewerModel model.Model, registry *tool.Registry, optFns ...func(o *OrchestratorOptions)) *Orchestrator {
	opts := OrchestratorOptions{
		MaxRounds:   2,
		MemoryLimit: 100,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxRounds < 0 {
		opts.MaxRounds = 0
	}
	if opts.Bus == nil {
		opts.Bus = stream.NewBus()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Orchestrator{
		planner:   planning.NewEngine(plannerModel, opts.Planning...),
		executor:  execution.NewEngine(executorModel, registry, opts.Execution...),
		evaluator: evaluation.NewEngine(reviewerModel, opts.Evaluation...),
		bus:       opts.Bus,
		archive:   opts.Archive,
		logger:    logger,
		opts:      opts,
	}
}

// Bus returns the orchestrator's event bus.
func (o *Orchestrator) Bus() *stream.Bus { return o.bus }

// Run executes goal through the planner/executor/reviewer cycle.
func (o *Orchestrator) Run(ctx context.Context, goal string) (*CollabResult, error) {
	runID := uuid.New().String()
	transcript := core.NewTranscript()
	mem := memory.NewWorkingMemory(func(m *memory.WorkingMemoryOptions) {
		m.MaxMessages = o.opts.MemoryLimit
	})
	rc := core.NewRunContext(ctx, runID, goal, o.bus, mem, o.archive, o.logger)

	o.bus.EmitStart(runID, goal)
	transcript.Append("user", "planner", core.RoleSystem, fmt.Sprintf("Goal: %s", goal))

	plan, err := o.planner.Plan(ctx, goal, "")
	if err != nil {
		o.bus.EmitError(runID, err)
		return nil, fmt.Errorf("planner: %w", err)
	}

	var final *core.FinalEvaluation
	for round := 0; ; round++ {
		transcript.Append("planner", "executor", core.RolePlanner, describePlan(plan))
		o.bus.EmitPlanning("plan handed to executor", map[string]any{
			"round":    round,
			"subtasks": len(plan.SubTasks),
		})

		if err := o.execute(rc, plan, transcript); err != nil {
			o.bus.EmitError(runID, err)
			return nil, err
		}

		final = o.evaluator.EvaluateFinal(rc, plan)
		transcript.Append("reviewer", "planner", core.RoleReviewer, describeReview(final))

		if final.OverallSuccess || round >= o.opts.MaxRounds {
			break
		}
		if err := rc.Err(); err != nil {
			return nil, err
		}

		revised, replanErr := o.planner.Replan(ctx, plan, reviewFeedback(final))
		if replanErr != nil {
			rc.LogWarn("planner could not revise, accepting result", "error", replanErr)
			break
		}
		plan = revised
		transcript.Append("planner", "executor", core.RolePlanner,
			fmt.Sprintf("Revised plan after review (round %d)", round+1))
	}

	result := &CollabResult{
		RunID:      runID,
		Goal:       goal,
		Plan:       plan,
		Evaluation: final,
		Transcript: transcript.Messages(),
		Output:     lastOutput(plan),
		Success:    final.OverallSuccess,
	}

	if o.archive != nil {
		record := core.RunRecord{
			RunID:       runID,
			Goal:        goal,
			Plan:        plan,
			Evaluation:  final,
			Transcript:  result.Transcript,
			CompletedAt: time.Now().UTC(),
		}
		if err := o.archive.RecordRun(record); err != nil {
			rc.LogWarn("failed to archive run", "run_id", runID, "error", err)
		}
	}

	o.bus.EmitComplete(runID, result.Success, map[string]any{
		"score":  final.OverallScore,
		"output": result.Output,
	})
	return result, nil
}

// execute runs the plan's remaining subtasks in dependency order, reporting
// each outcome on the transcript.
func (o *Orchestrator) execute(rc *core.RunContext, plan *core.Plan, transcript *core.Transcript) error {
	order, err := planning.ExecutionOrder(plan)
	if err != nil {
		return fmt.Errorf("plan is not executable: %w", err)
	}

	for _, id := range order {
		task := plan.SubTask(id)
		if task == nil || task.Status == core.StatusCompleted {
			continue
		}
		if dep, ok := unmetDependency(plan, task); ok {
			task.Status = core.StatusSkipped
			task.Result = &core.TaskResult{
				Success: false,
				Error:   fmt.Sprintf("dependency %d did not complete", dep),
			}
			transcript.Append("executor", "reviewer", core.RoleExecutor,
				fmt.Sprintf("Subtask %d skipped: dependency %d did not complete", task.ID, dep))
			continue
		}

		task.Status = core.StatusInProgress
		result, err := o.executor.ExecuteTask(rc, task, completedContext(plan))
		if err != nil {
			if rc.Err() != nil {
				return err
			}
			result = &core.TaskResult{Success: false, Error: err.Error()}
		}
		task.Result = result

		if result.Success {
			task.Status = core.StatusCompleted
			transcript.Append("executor", "reviewer", core.RoleExecutor,
				fmt.Sprintf("Subtask %d done: %s", task.ID, result.Output))
		} else {
			task.Status = core.StatusFailed
			transcript.Append("executor", "reviewer", core.RoleExecutor,
				fmt.Sprintf("Subtask %d failed: %s", task.ID, result.Error))
		}
		o.bus.EmitProgress(len(plan.CompletedIDs()), len(plan.SubTasks))
	}
	return nil
}

func describePlan(plan *core.Plan) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Plan for %q (%s):", plan.Goal, plan.Strategy))
	for _, task := range plan.SubTasks {
		lines = append(lines, fmt.Sprintf("%d. %s (deps: %v)", task.ID, task.Description, task.Dependencies))
	}
	return strings.Join(lines, "\n")
}

func describeReview(final *core.FinalEvaluation) string {
	verdict := "rejected"
	if final.OverallSuccess {
		verdict = "accepted"
	}
	return fmt.Sprintf("Review %s: overall score %.2f. %s", verdict, final.OverallScore, final.Summary)
}

func reviewFeedback(final *core.FinalEvaluation) string {
	var issues []string
	for _, step := range final.Steps {
		for _, issue := range step.Issues {
			issues = append(issues, fmt.Sprintf("subtask %d: %s", step.StepID, issue))
		}
	}
	if len(issues) == 0 {
		return fmt.Sprintf("review score %.2f is below the pass mark", final.OverallScore)
	}
	return "review found issues: " + strings.Join(issues, "; ")
}
