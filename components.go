package pipeflow

import (
	"context"
	"time"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// Stock component funcs used by examples and tests. Register them through a
// CodeModule and reference them from component revisions.

// PassThroughFunc returns every input unchanged under its own name.
func PassThroughFunc(ctx context.Context, inputs map[string]any) (map[string]any, error) {
	outputs := make(map[string]any, len(inputs))
	for name, v := range inputs {
		outputs[name] = v
	}
	return outputs, nil
}

// ConstantFunc returns a func without inputs that always produces the given
// outputs.
func ConstantFunc(outputs map[string]any) ComponentFunc {
	return func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		return outputs, nil
	}
}

// SleepFunc returns a func that sleeps for the given duration before passing
// its inputs through. It is context-aware: cancellation during the sleep
// fails the node with ctx.Err.
func SleepFunc(d time.Duration) ComponentFunc {
	return func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
		if d > 0 {
			select {
			case <-time.After(d):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return PassThroughFunc(ctx, inputs)
	}
}

// NewCodeModule bundles named funcs into a code module.
func NewCodeModule(id string, funcs map[string]ComponentFunc) *CodeModule {
	return &api.CodeModule{ID: id, Funcs: funcs}
}
