package core

import "time"

// Status describes the lifecycle state of a SubTask.
type Status string

const (
	// StatusPending marks a subtask that has not started yet.
	StatusPending Status = "pending"
	// StatusInProgress marks the single subtask currently executing.
	StatusInProgress Status = "in_progress"
	// StatusCompleted marks a subtask that finished successfully.
	StatusCompleted Status = "completed"
	// StatusFailed marks a subtask whose execution failed terminally.
	StatusFailed Status = "failed"
	// StatusSkipped marks a subtask that was never executed because one of
	// its dependencies did not complete.
	StatusSkipped Status = "skipped"
)

// ToolOutcome is the uniform result of a single tool execution.
// Internal tool failures never surface as errors past the tool boundary; they
// are converted into an outcome with Success=false.
type ToolOutcome struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ToolInvocation records one tool call made during subtask execution. It is
// ephemeral: created per call inside the execution engine and attached to the
// subtask result for evaluation and observability.
type ToolInvocation struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Outcome   ToolOutcome    `json:"outcome"`
}

// TaskResult is the structured payload produced by executing one subtask.
type TaskResult struct {
	Success   bool             `json:"success"`
	Output    string           `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`
}

// SubTask is one unit of planned work. IDs are unique within a Plan and
// Dependencies reference other subtasks of the same plan. The planner creates
// subtasks in state pending; only execution mutates Status and Result.
type SubTask struct {
	ID           int         `json:"id"`
	Description  string      `json:"description"`
	Reasoning    string      `json:"reasoning,omitempty"`
	Dependencies []int       `json:"dependencies,omitempty"`
	Status       Status      `json:"status"`
	Result       *TaskResult `json:"result,omitempty"`
}

// Plan is an ordered, dependency-annotated decomposition of a goal. A plan is
// created whole by the planning engine and only replaced whole on replanning;
// the planner never mutates an existing plan subtask-by-subtask.
type Plan struct {
	Goal      string     `json:"goal"`
	SubTasks  []*SubTask `json:"subtasks"`
	Strategy  string     `json:"strategy,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SubTask returns the subtask with the given id, or nil if absent.
func (p *Plan) SubTask(id int) *SubTask {
	for _, st := range p.SubTasks {
		if st.ID == id {
			return st
		}
	}
	return nil
}

// CompletedIDs returns the ids of all completed subtasks in declaration order.
func (p *Plan) CompletedIDs() []int {
	ids := make([]int, 0, len(p.SubTasks))
	for _, st := range p.SubTasks {
		if st.Status == StatusCompleted {
			ids = append(ids, st.ID)
		}
	}
	return ids
}

// Clone returns a deep copy of the plan safe for independent mutation.
func (p *Plan) Clone() *Plan {
	clone := &Plan{Goal: p.Goal, Strategy: p.Strategy, CreatedAt: p.CreatedAt, SubTasks: make([]*SubTask, 0, len(p.SubTasks))}
	for _, st := range p.SubTasks {
		cp := *st
		cp.Dependencies = append([]int(nil), st.Dependencies...)
		if st.Result != nil {
			res := *st.Result
			res.ToolCalls = append([]ToolInvocation(nil), st.Result.ToolCalls...)
			cp.Result = &res
		}
		clone.SubTasks = append(clone.SubTasks, &cp)
	}
	return clone
}
