package tool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/planloop/planloop/core"
	"github.com/planloop/planloop/model"
)

// Error codes attached to ToolError and failed outcomes.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodePanic      = "PANIC"
)

// Registry holds the closed set of tools available to a run. Registration
// happens at startup and compiles each tool's parameter schema once; lookups
// and dispatches afterwards are read-only and safe for concurrent use.
//
// Dispatch never returns a Go error for tool-internal failures. Unknown
// tools, schema violations, execution errors and panics all become failed
// core.ToolOutcome values so the execution engine can feed them back to the
// model instead of aborting the run.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	schemas map[string]*jsonschema.Schema
	order   []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:   map[string]Tool{},
		schemas: map[string]*jsonschema.Schema{},
	}
}

// Register adds a tool, compiling its parameter schema. Duplicate names and
// invalid schemas are rejected here rather than surfacing mid-run.
func (r *Registry) Register(t Tool) error {
	name := t.Name()
	if name == "" {
		return NewToolError("", "tool name must not be empty", CodeValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return NewToolError(name, "tool already registered", CodeValidation)
	}

	schema, err := compileSchema(name, t.Parameters())
	if err != nil {
		return NewToolError(name, fmt.Sprintf("invalid parameter schema: %v", err), CodeValidation)
	}

	r.tools[name] = t
	r.schemas[name] = schema
	r.order = append(r.order, name)
	return nil
}

// MustRegister is Register but panics on error. Intended for startup wiring
// where a bad schema is a programming mistake.
func (r *Registry) MustRegister(t Tool) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Definitions returns the tool set in the shape model providers expect,
// in registration order.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		t := r.tools[name]
		out = append(out, model.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// Dispatch validates args against the tool's schema and executes it,
// converting every failure mode into a failed outcome.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any) (outcome core.ToolOutcome) {
	r.mu.RLock()
	t, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()

	if !ok {
		available := r.Names()
		sort.Strings(available)
		return core.ToolOutcome{
			Success: false,
			Error:   fmt.Sprintf("tool %q not found; available tools: %v", name, available),
		}
	}

	if args == nil {
		args = map[string]any{}
	}
	if err := schema.Validate(normalize(args)); err != nil {
		return core.ToolOutcome{
			Success: false,
			Error:   NewToolError(name, fmt.Sprintf("invalid arguments: %v", err), CodeValidation).Error(),
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			outcome = core.ToolOutcome{
				Success: false,
				Error:   NewToolError(name, fmt.Sprintf("panic: %v", rec), CodePanic).Error(),
			}
		}
	}()

	result, err := t.Execute(ctx, args)
	if err != nil {
		return core.ToolOutcome{
			Success: false,
			Error:   NewToolError(name, err.Error(), CodeExecution).Error(),
		}
	}
	return core.ToolOutcome{Success: true, Result: result}
}

// compileSchema compiles a parameter schema once at registration time.
func compileSchema(name string, params map[string]any) (*jsonschema.Schema, error) {
	if params == nil {
		params = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	compiler := jsonschema.NewCompiler()
	url := fmt.Sprintf("tool://%s/parameters.json", name)
	if err := compiler.AddResource(url, normalize(params)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// normalize rewrites a Go value into the plain JSON shapes the schema
// validator expects. Argument maps decoded by encoding/json are already in
// this form; normalize covers hand-built test fixtures using typed slices
// or ints.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = item
		}
		return out
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}
