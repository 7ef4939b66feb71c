// Package thinking gives the agent an explicit reasoning trace. Each call
// asks the model one focused question (reason about a situation, reflect on
// an action, analyze a failure, pick between options), records the answer as
// a typed Thought and publishes it on the run's event stream.
package thinking

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/model"
)

// ThoughtType classifies entries in the reasoning trace.
type ThoughtType string

const (
	ThoughtObservation ThoughtType = "observation"
	ThoughtReasoning   ThoughtType = "reasoning"
	ThoughtReflection  ThoughtType = "reflection"
	ThoughtDecision    ThoughtType = "decision"
)

// Thought is one entry in the reasoning trace.
type Thought struct {
	Type      ThoughtType `json:"type"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// Options configure the thinking engine.
type Options struct {
	// Temperature for reasoning completions. Defaults to 0.7.
	Temperature float64
	// MaxThoughts bounds the trace; oldest entries are dropped beyond it.
	// Defaults to 200.
	MaxThoughts int
}

// Engine runs reasoning steps against a model and accumulates the trace.
// Safe for concurrent use, though a single run drives it sequentially.
type Engine struct {
	model    model.Model
	opts     Options
	mu       sync.Mutex
	thoughts []Thought
}

// NewEngine creates a thinking engine backed by the given model.
func NewEngine(m model.Model, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Temperature: 0.7,
		MaxThoughts: 200,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxThoughts <= 0 {
		opts.MaxThoughts = 200
	}
	return &Engine{model: m, opts: opts}
}

// Think reasons about an open question or situation.
func (e *Engine) Think(rc *core.RunContext, situation string) (string, error) {
	prompt := fmt.Sprintf(
		"Think step by step about the following situation and state your conclusions concisely.\n\nSituation: %s",
		situation)
	return e.complete(rc, ThoughtReasoning, prompt)
}

// Observe records an observation about the environment without a model call.
func (e *Engine) Observe(rc *core.RunContext, observation string) {
	e.record(rc, ThoughtObservation, observation)
}

// ReflectOnAction considers what an executed action's result means for the
// rest of the run.
func (e *Engine) ReflectOnAction(rc *core.RunContext, action, result string) (string, error) {
	prompt := fmt.Sprintf(
		"An action was just executed.\n\nAction: %s\nResult: %s\n\nReflect briefly: did it achieve its purpose, and what should be kept in mind going forward?",
		action, result)
	return e.complete(rc, ThoughtReflection, prompt)
}

// AnalyzeFailure examines why a task failed and what could be done
// differently.
func (e *Engine) AnalyzeFailure(rc *core.RunContext, task, failure string) (string, error) {
	prompt := fmt.Sprintf(
		"A task failed.\n\nTask: %s\nFailure: %s\n\nAnalyze the likely cause and suggest a concrete adjustment.",
		task, failure)
	return e.complete(rc, ThoughtReflection, prompt)
}

// MakeDecision picks one of the given options and explains why. The chosen
// option is returned verbatim when it can be matched in the response.
func (e *Engine) MakeDecision(rc *core.RunContext, question string, options []string) (string, error) {
	prompt := fmt.Sprintf(
		"Decide between the following options.\n\nQuestion: %s\nOptions:\n- %s\n\nName the chosen option first, then justify it in one or two sentences.",
		question, strings.Join(options, "\n- "))

	answer, err := e.complete(rc, ThoughtDecision, prompt)
	if err != nil {
		return "", err
	}
	lower := strings.ToLower(answer)
	for _, option := range options {
		if strings.Contains(lower, strings.ToLower(option)) {
			return option, nil
		}
	}
	return answer, nil
}

// Thoughts returns a copy of the trace in chronological order.
func (e *Engine) Thoughts() []Thought {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Thought, len(e.thoughts))
	copy(out, e.thoughts)
	return out
}

// Summary renders the trace as a compact text block for prompts.
func (e *Engine) Summary() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.thoughts) == 0 {
		return ""
	}
	var b strings.Builder
	for _, thought := range e.thoughts {
		fmt.Fprintf(&b, "[%s] %s\n", thought.Type, thought.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Clear discards the trace, typically between runs.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.thoughts = nil
}

func (e *Engine) complete(rc *core.RunContext, thoughtType ThoughtType, prompt string) (string, error) {
	resp, err := e.model.Complete(rc.Context, model.Request{
		Messages:    []core.Message{core.NewMessage("user", prompt)},
		Temperature: e.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("thinking completion: %w", err)
	}
	content := strings.TrimSpace(resp.Content)
	e.record(rc, thoughtType, content)
	return content, nil
}

func (e *Engine) record(rc *core.RunContext, thoughtType ThoughtType, content string) {
	e.mu.Lock()
	e.thoughts = append(e.thoughts, Thought{
		Type:      thoughtType,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
	if len(e.thoughts) > e.opts.MaxThoughts {
		e.thoughts = e.thoughts[len(e.thoughts)-e.opts.MaxThoughts:]
	}
	e.mu.Unlock()

	rc.Publish(core.EventThinking, map[string]any{
		"thought_type": string(thoughtType),
		"content":      content,
	})
}
