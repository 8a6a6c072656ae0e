package ports

import (
	"context"
	"fmt"
)

// ActionExecutor performs the side effect behind an Action step. Inputs are
// the slot values the step declares; outputs are written back into the active
// flow's slot store, optionally renamed through the step's output map.
type ActionExecutor interface {
	Execute(ctx context.Context, action string, inputs map[string]any) (map[string]any, error)
}

// ExecutorFunc adapts a plain function to the ActionExecutor interface.
type ExecutorFunc func(ctx context.Context, action string, inputs map[string]any) (map[string]any, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, action string, inputs map[string]any) (map[string]any, error) {
	return f(ctx, action, inputs)
}

// ActionFunc is the implementation of a single named action.
type ActionFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// ActionRegistry is an ActionExecutor that dispatches by action name.
type ActionRegistry struct {
	actions map[string]ActionFunc
}

// NewActionRegistry creates an empty registry.
func NewActionRegistry() *ActionRegistry {
	return &ActionRegistry{actions: make(map[string]ActionFunc)}
}

// Register installs or replaces the implementation of one action.
func (r *ActionRegistry) Register(name string, fn ActionFunc) {
	r.actions[name] = fn
}

// Execute runs the named action, failing on names nothing registered.
func (r *ActionRegistry) Execute(ctx context.Context, action string, inputs map[string]any) (map[string]any, error) {
	fn, ok := r.actions[action]
	if !ok {
		return nil, fmt.Errorf("no action registered as %q", action)
	}
	return fn(ctx, inputs)
}
