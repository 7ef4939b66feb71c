package core

import (
	"fmt"
	"strings"
)

// PlanValidationError reports a structurally invalid plan: too many subtasks,
// unresolvable dependency ids or a dependency cycle. It is a fail-fast error;
// the planner surfaces it only after its bounded repair attempts are spent.
type PlanValidationError struct {
	Goal     string   `json:"goal"`
	Attempts int      `json:"attempts"`
	Issues   []string `json:"issues"`
}

func (e *PlanValidationError) Error() string {
	return fmt.Sprintf("plan validation failed after %d attempt(s): %s", e.Attempts, strings.Join(e.Issues, "; "))
}

// IterationBudgetError marks a subtask that exhausted its model-call budget.
// It is terminal for that subtask only and contributes score 0 to the final
// evaluation.
type IterationBudgetError struct {
	Max int `json:"max"`
}

func (e *IterationBudgetError) Error() string {
	return fmt.Sprintf("execution exceeded the maximum of %d iterations", e.Max)
}
