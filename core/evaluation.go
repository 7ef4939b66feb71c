package core

// StepEvaluation scores one executed (or skipped) subtask against its declared
// intent. Score is always in [0,1].
type StepEvaluation struct {
	StepID      int      `json:"step_id"`
	Description string   `json:"description,omitempty"`
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Reasoning   string   `json:"reasoning,omitempty"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// FinalEvaluation aggregates the step evaluations of a whole run. It is
// derived, never hand-edited: OverallScore is the arithmetic mean of step
// scores (skipped and failed steps counting 0) and OverallSuccess compares it
// against the configured success threshold.
type FinalEvaluation struct {
	Goal           string           `json:"goal"`
	OverallSuccess bool             `json:"overall_success"`
	OverallScore   float64          `json:"overall_score"`
	Summary        string           `json:"summary,omitempty"`
	Strengths      []string         `json:"strengths,omitempty"`
	Weaknesses     []string         `json:"weaknesses,omitempty"`
	LessonsLearned []string         `json:"lessons_learned,omitempty"`
	Steps          []StepEvaluation `json:"steps,omitempty"`
}
