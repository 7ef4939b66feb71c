// Package evaluation scores executed plans. Each subtask gets a step
// evaluation; the run gets a final evaluation whose overall score is the
// mean of the step scores measured against a success threshold. Failed and
// skipped subtasks score zero; successful ones are scored by a model at low
// temperature, falling back to a deterministic heuristic when the model's
// output cannot be parsed, so evaluation never fails a run.
package evaluation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/model"
)

const stepPrompt = `Evaluate how well this subtask was executed.

Subtask: %s
Reported success: %t
Output: %s
Error: %s

Respond with JSON only:
{
  "success": true,
  "score": 0.0,
  "reasoning": "one or two sentences",
  "issues": ["problems found"],
  "suggestions": ["possible improvements"]
}

"score" is between 0.0 and 1.0.`

const finalPrompt = `Summarize the overall execution of this goal.

Goal: %s
Step results:
%s

Respond with JSON only:
{
  "summary": "two or three sentences",
  "strengths": ["what went well"],
  "weaknesses": ["what went poorly"],
  "lessons_learned": ["what to do differently next time"]
}`

type stepResponse struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Reasoning   string   `json:"reasoning"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

type finalResponse struct {
	Summary        string   `json:"summary"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	LessonsLearned []string `json:"lessons_learned"`
}

// Options configure the evaluation engine.
type Options struct {
	// SuccessThreshold is the minimum overall score for a run to count as
	// successful. Defaults to 0.7.
	SuccessThreshold float64
	// Temperature for scoring completions. Kept low for consistency.
	// Defaults to 0.3.
	Temperature float64
}

// Engine scores subtasks and whole runs.
type Engine struct {
	model model.Model
	opts  Options
}

// NewEngine creates an evaluation engine backed by the given model.
func NewEngine(m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		SuccessThreshold: 0.7,
		Temperature:      0.3,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.SuccessThreshold <= 0 || opts.SuccessThreshold > 1 {
		opts.SuccessThreshold = 0.7
	}
	return &Engine{model: m, opts: opts}
}

// SuccessThreshold returns the configured pass mark.
func (e *Engine) SuccessThreshold() float64 { return e.opts.SuccessThreshold }

// EvaluateStep scores one subtask. Subtasks that never produced a result,
// were skipped or reported failure score zero deterministically, without a
// model call. Only reported successes are worth a scoring completion;
// unparseable model output there degrades to a fixed heuristic score.
func (e *Engine) EvaluateStep(rc *core.RunContext, task *core.SubTask) core.StepEvaluation {
	eval := core.StepEvaluation{
		StepID:      task.ID,
		Description: task.Description,
	}

	if task.Result == nil || task.Status == core.StatusSkipped || !task.Result.Success {
		eval.Success = false
		eval.Score = 0
		switch {
		case task.Result == nil:
			eval.Reasoning = "subtask was not executed"
			eval.Issues = []string{fmt.Sprintf("subtask %d has no execution result (status: %s)", task.ID, task.Status)}
		case task.Status == core.StatusSkipped:
			eval.Reasoning = "subtask was skipped"
			eval.Issues = []string{task.Result.Error}
		default:
			eval.Reasoning = "subtask reported failure"
			eval.Issues = []string{task.Result.Error}
		}
		e.publish(rc, eval)
		return eval
	}

	prompt := fmt.Sprintf(stepPrompt, task.Description, task.Result.Success, task.Result.Output, task.Result.Error)
	resp, err := e.model.Complete(rc.Context, model.Request{
		Messages:    []core.Message{core.NewMessage("user", prompt)},
		Temperature: e.opts.Temperature,
	})

	var parsed stepResponse
	if err != nil || json.Unmarshal([]byte(extractJSON(resp, err)), &parsed) != nil {
		eval.Success = true
		eval.Score = 0.8
		eval.Reasoning = "subtask reported success; detailed scoring unavailable"
		e.publish(rc, eval)
		return eval
	}

	eval.Success = parsed.Success
	eval.Score = clamp(parsed.Score)
	eval.Reasoning = parsed.Reasoning
	eval.Issues = parsed.Issues
	eval.Suggestions = parsed.Suggestions
	e.publish(rc, eval)
	return eval
}

// EvaluateFinal scores the whole run. Every subtask is stepwise evaluated,
// the overall score is the mean of step scores and the run passes when it
// reaches the success threshold. The narrative summary comes from one
// aggregate model call with a deterministic fallback.
func (e *Engine) EvaluateFinal(rc *core.RunContext, plan *core.Plan) *core.FinalEvaluation {
	final := &core.FinalEvaluation{Goal: plan.Goal}

	var sum float64
	for _, task := range plan.SubTasks {
		step := e.EvaluateStep(rc, task)
		final.Steps = append(final.Steps, step)
		sum += step.Score
	}
	if len(final.Steps) > 0 {
		final.OverallScore = sum / float64(len(final.Steps))
	}
	final.OverallSuccess = final.OverallScore >= e.opts.SuccessThreshold

	e.summarize(rc, final)

	rc.Publish(core.EventEvaluation, map[string]any{
		"message":         "run evaluated",
		"overall_score":   final.OverallScore,
		"overall_success": final.OverallSuccess,
	})
	return final
}

// summarize fills the narrative fields via one aggregate completion.
func (e *Engine) summarize(rc *core.RunContext, final *core.FinalEvaluation) {
	var lines []string
	for _, step := range final.Steps {
		lines = append(lines, fmt.Sprintf("- subtask %d (%s): score %.2f, %s",
			step.StepID, step.Description, step.Score, step.Reasoning))
	}
	prompt := fmt.Sprintf(finalPrompt, final.Goal, strings.Join(lines, "\n"))

	resp, err := e.model.Complete(rc.Context, model.Request{
		Messages:    []core.Message{core.NewMessage("user", prompt)},
		Temperature: e.opts.Temperature,
	})

	var parsed finalResponse
	if err != nil || json.Unmarshal([]byte(extractJSON(resp, err)), &parsed) != nil {
		final.Summary = fmt.Sprintf("Executed %d subtasks with an overall score of %.2f.",
			len(final.Steps), final.OverallScore)
		return
	}

	final.Summary = parsed.Summary
	final.Strengths = parsed.Strengths
	final.Weaknesses = parsed.Weaknesses
	final.LessonsLearned = parsed.LessonsLearned
}

func (e *Engine) publish(rc *core.RunContext, eval core.StepEvaluation) {
	rc.Publish(core.EventEvaluation, map[string]any{
		"message":    "subtask evaluated",
		"subtask_id": eval.StepID,
		"score":      eval.Score,
		"success":    eval.Success,
	})
}

// extractJSON pulls a JSON document out of a model response, stripping
// markdown fences when present.
func extractJSON(resp *model.Response, err error) string {
	if err != nil || resp == nil {
		return ""
	}
	s := strings.TrimSpace(resp.Content)
	if idx := strings.Index(s, "```json"); idx >= 0 {
		rest := s[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end >= 0 {
			return strings.TrimSpace(rest[:end])
		}
		return strings.TrimSpace(rest)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
