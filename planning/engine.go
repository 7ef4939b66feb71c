// Package planning turns a natural-language goal into a validated, ordered
// plan of subtasks. The engine asks a model for a JSON plan, repairs invalid
// responses with bounded retries, and guarantees that any plan it returns
// has unique ids, resolvable dependencies and no cycles.
package planning

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/logging"
	"github.com/planloop/planloop/model"
)

const planPrompt = `You are a planning assistant. Break the goal below into a plan of subtasks.

Goal: %s
%s
Respond with JSON only, in this exact shape:
{
  "strategy": "one sentence describing the overall approach",
  "subtasks": [
    {
      "id": 1,
      "description": "what to do",
      "reasoning": "why this step is needed",
      "dependencies": []
    }
  ]
}

Rules:
- Use at most %d subtasks.
- Ids are positive integers, unique within the plan.
- "dependencies" lists ids of subtasks that must complete first.
- Do not create circular dependencies.`

const replanPrompt = `You are a planning assistant. A plan for the goal below needs revision.

Goal: %s

Reason for revision: %s

Already completed subtasks (keep these unchanged, same ids):
%s

Remaining subtasks that may be revised, replaced or dropped:
%s

Respond with the full revised plan as JSON only, in this exact shape:
{
  "strategy": "one sentence describing the overall approach",
  "subtasks": [
    {
      "id": 1,
      "description": "what to do",
      "reasoning": "why this step is needed",
      "dependencies": []
    }
  ]
}

Rules:
- Include every completed subtask verbatim with its original id.
- Use at most %d subtasks in total.
- Ids are positive integers, unique within the plan.
- Do not create circular dependencies.`

type planResponse struct {
	Strategy string `json:"strategy"`
	SubTasks []struct {
		ID           int    `json:"id"`
		Description  string `json:"description"`
		Reasoning    string `json:"reasoning"`
		Dependencies []int  `json:"dependencies"`
	} `json:"subtasks"`
}

// Options configure the planning engine.
type Options struct {
	// MaxSubtasks bounds plan size. Defaults to 20.
	MaxSubtasks int
	// MaxAttempts bounds model calls per Plan/Replan, repair retries
	// included. Defaults to 3.
	MaxAttempts int
	// Temperature for planning completions. Defaults to 0.7.
	Temperature float64
	// Logger receives planning diagnostics. Defaults to a no-op logger.
	Logger logging.Logger
}

// Engine produces and revises plans via a model.
type Engine struct {
	model  model.Model
	opts   Options
	logger logging.Logger
}

// NewEngine creates a planning engine backed by the given model.
func NewEngine(m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		MaxSubtasks: 20,
		MaxAttempts: 3,
		Temperature: 0.7,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxSubtasks <= 0 {
		opts.MaxSubtasks = 20
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Engine{model: m, opts: opts, logger: logger}
}

// Plan creates a validated plan for goal. Additional context (prior runs,
// environment notes) may be supplied via contextInfo and is passed to the
// model verbatim.
//
// Invalid model output is retried with a repair hint up to MaxAttempts. A
// response that never parses as JSON degrades to a single-subtask plan; a
// response that parses but stays structurally invalid after all attempts
// returns a *core.PlanValidationError.
func (e *Engine) Plan(ctx context.Context, goal, contextInfo string) (*core.Plan, error) {
	extra := ""
	if contextInfo != "" {
		extra = fmt.Sprintf("\nContext:\n%s\n", contextInfo)
	}
	prompt := fmt.Sprintf(planPrompt, goal, extra, e.opts.MaxSubtasks)

	plan, err := e.requestPlan(ctx, goal, prompt)
	if errors.Is(err, errUnparseable) {
		// The model never produced JSON. Degrade to a trivial plan so the
		// run can still proceed with the goal as a single task.
		e.logger.Warn("plan response unparseable, using single-task fallback", "goal", goal)
		return fallbackPlan(goal), nil
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// Replan revises plan after reason (typically a failed subtask). Completed
// subtasks are carried over untouched, with their statuses and results
// restored onto the revised plan. Validation and retry behavior match Plan.
func (e *Engine) Replan(ctx context.Context, plan *core.Plan, reason string) (*core.Plan, error) {
	var completedDesc, remainingDesc []string
	completed := map[int]*core.SubTask{}
	for _, st := range plan.SubTasks {
		line := fmt.Sprintf("- id %d: %s", st.ID, st.Description)
		if st.Status == core.StatusCompleted {
			completed[st.ID] = st
			completedDesc = append(completedDesc, line)
		} else {
			remainingDesc = append(remainingDesc, fmt.Sprintf("%s (status: %s)", line, st.Status))
		}
	}
	if len(completedDesc) == 0 {
		completedDesc = []string{"(none)"}
	}
	if len(remainingDesc) == 0 {
		remainingDesc = []string{"(none)"}
	}

	prompt := fmt.Sprintf(replanPrompt, plan.Goal, reason,
		strings.Join(completedDesc, "\n"), strings.Join(remainingDesc, "\n"), e.opts.MaxSubtasks)

	revised, err := e.requestPlan(ctx, plan.Goal, prompt)
	if err != nil {
		return nil, fmt.Errorf("replan: %w", err)
	}

	// Restore completed state the model cannot know about.
	for _, st := range revised.SubTasks {
		if done, ok := completed[st.ID]; ok {
			st.Status = done.Status
			st.Result = done.Result
		}
	}
	return revised, nil
}

// requestPlan runs the model-parse-validate loop shared by Plan and Replan.
func (e *Engine) requestPlan(ctx context.Context, goal, prompt string) (*core.Plan, error) {
	messages := []core.Message{core.NewMessage("user", prompt)}

	var issues []string
	parsedOnce := false

	for attempt := 1; attempt <= e.opts.MaxAttempts; attempt++ {
		resp, err := e.model.Complete(ctx, model.Request{
			Messages:    messages,
			Temperature: e.opts.Temperature,
		})
		if err != nil {
			return nil, fmt.Errorf("planning completion: %w", err)
		}

		var parsed planResponse
		raw := extractJSON(resp.Content)
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			issues = []string{fmt.Sprintf("response is not valid JSON: %v", err)}
			e.logger.Debug("plan parse failed", "attempt", attempt, "error", err)
		} else {
			parsedOnce = true
			plan := toPlan(goal, parsed)
			issues = e.validate(plan)
			if len(issues) == 0 {
				return plan, nil
			}
			e.logger.Debug("plan validation failed", "attempt", attempt, "issues", issues)
		}

		if attempt < e.opts.MaxAttempts {
			messages = append(messages,
				core.NewMessage("assistant", resp.Content),
				core.NewMessage("user", repairHint(issues)),
			)
		}
	}

	if !parsedOnce {
		return nil, errUnparseable
	}
	return nil, &core.PlanValidationError{Goal: goal, Attempts: e.opts.MaxAttempts, Issues: issues}
}

/// validate checks structural invariants: bounded size, unique positive ids,
// resolvable dependencies, no self-references and no cycles.
func (e *Engine) validate(plan *core.Plan) []string {
	var issues []string

	if len(plan.SubTasks) == 0 {
		return []string{"plan has no subtasks"}
	}
	if len(plan.SubTasks) > e.opts.MaxSubtasks {
		issues = append(issues, fmt.Sprintf("plan has %d subtasks, limit is %d", len(plan.SubTasks), e.opts.MaxSubtasks))
	}

	seen := map[int]bool{}
	for _, st := range plan.SubTasks {
		if st.ID <= 0 {
			issues = append(issues, fmt.Sprintf("subtask id %d is not a positive integer", st.ID))
		}
		if seen[st.ID] {
			issues = append(issues, fmt.Sprintf("duplicate subtask id %d", st.ID))
		}
		seen[st.ID] = true
		if strings.TrimSpace(st.Description) == "" {
			issues = append(issues, fmt.Sprintf("subtask %d has an empty description", st.ID))
		}
	}
	for _, st := range plan.SubTasks {
		for _, dep := range st.Dependencies {
			if dep == st.ID {
				issues = append(issues, fmt.Sprintf("subtask %d depends on itself", st.ID))
			} else if !seen[dep] {
				issues = append(issues, fmt.Sprintf("subtask %d depends on unknown subtask %d", st.ID, dep))
			}
		}
	}
	if len(issues) > 0 {
		return issues
	}

	if _, err := ExecutionOrder(plan); err != nil {
		issues = append(issues, err.Error())
	}
	return issues
}

func toPlan(goal string, parsed planResponse) *core.Plan {
	plan := &core.Plan{
		Goal:      goal,
		Strategy:  parsed.Strategy,
		CreatedAt: time.Now().UTC(),
	}
	for _, st := range parsed.SubTasks {
		deps := st.Dependencies
		if deps == nil {
			deps = []int{}
		}
		plan.SubTasks = append(plan.SubTasks, &core.SubTask{
			ID:           st.ID,
			Description:  st.Description,
			Reasoning:    st.Reasoning,
			Dependencies: deps,
			Status:       core.StatusPending,
		})
	}
	return plan
}

func fallbackPlan(goal string) *core.Plan {
	return &core.Plan{
		Goal:     goal,
		Strategy: "Execute the goal directly as a single task",
		SubTasks: []*core.SubTask{{
			ID:           1,
			Description:  goal,
			Reasoning:    "Planning output could not be parsed; executing the goal as one task",
			Dependencies: []int{},
			Status:       core.StatusPending,
		}},
		CreatedAt: time.Now().UTC(),
	}
}

func repairHint(issues []string) string {
	return fmt.Sprintf(
		"That plan is invalid:\n- %s\n\nRespond again with corrected JSON only, same shape as before.",
		strings.Join(issues, "\n- "))
}
