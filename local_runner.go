package pipeflow

import (
	"context"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// LocalRunner bundles an in-memory Registry and an Executor into a simple
// process-local runner for development, tests, and embedding.
//
// Typical usage:
//
//	runner := pipeflow.NewLocalRunner()
//	runner.RegisterCodeModule(module)
//	runner.RegisterRevision(revision)
//
//	result := runner.Execute(ctx, graph,
//	    pipeflow.DirectWiring(map[string]any{"threshold": 3.0}),
//	    pipeflow.Configuration{})
type LocalRunner struct {
	// Registry is the in-memory component lookup used by this runner.
	Registry *Registry

	// Executor runs executions against Registry.
	Executor *Executor
}

// NewLocalRunner constructs a LocalRunner backed by an empty in-memory
// registry. Executor options apply to the bundled executor.
func NewLocalRunner(opts ...ExecutorOption) *LocalRunner {
	reg := NewRegistry()
	return &LocalRunner{
		Registry: reg,
		Executor: NewExecutor(reg, opts...),
	}
}

// RegisterCodeModule registers a code module on the bundled registry.
func (r *LocalRunner) RegisterCodeModule(m *CodeModule) {
	r.Registry.RegisterCodeModule(m)
}

// RegisterRevision registers a component revision on the bundled registry.
func (r *LocalRunner) RegisterRevision(rev *ComponentRevision) {
	r.Registry.RegisterRevision(rev)
}

// Execute runs the given graph with the given wiring and configuration.
func (r *LocalRunner) Execute(ctx context.Context, graph *WorkflowNode, wiring *WorkflowWiring, cfg Configuration) *ExecutionResult {
	if wiring == nil {
		wiring = &WorkflowWiring{}
	}
	return r.Executor.Execute(ctx, &ExecutionInput{
		Workflow:      graph,
		Wiring:        wiring,
		Configuration: cfg,
	})
}

// DirectWiring builds a wiring that feeds the given values to the named
// workflow inputs via direct provisioning. Outputs are auto-wired to direct
// provisioning during execution.
func DirectWiring(values map[string]any) *WorkflowWiring {
	w := &WorkflowWiring{}
	for name, v := range values {
		w.InputWirings = append(w.InputWirings, api.InputWiring{
			WorkflowInputName: name,
			AdapterID:         api.DirectProvisioningAdapterID,
			Filters:           map[string]any{"value": v},
		})
	}
	return w
}
