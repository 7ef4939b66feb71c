package tool

import (
	"context"
)

// FunctionTool wraps a Go function as a Tool, removing the need for a
// dedicated type per capability. Handy for tests and for small one-off tools
// assembled at startup.
type FunctionTool struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// FunctionToolOptions configure optional FunctionTool fields.
type FunctionToolOptions struct {
	// Parameters is the JSON schema for the tool arguments. Defaults to an
	// object schema accepting any properties.
	Parameters map[string]any
}

// NewFunctionTool creates a tool from a plain function.
func NewFunctionTool(name, description string, fn func(ctx context.Context, args map[string]any) (any, error), optFns ...func(o *FunctionToolOptions)) *FunctionTool {
	opts := FunctionToolOptions{}
	for _, fnOpt := range optFns {
		fnOpt(&opts)
	}
	if opts.Parameters == nil {
		opts.Parameters = map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		}
	}
	return &FunctionTool{
		name:        name,
		description: description,
		parameters:  opts.Parameters,
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// Parameters implements Tool.
func (t *FunctionTool) Parameters() map[string]any { return t.parameters }

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.fn(ctx, args)
}

var _ Tool = (*FunctionTool)(nil)
