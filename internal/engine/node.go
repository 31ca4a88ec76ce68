package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// HierarchySeparator joins parent and child ids/names into hierarchical
// identifiers that locate a node within nested workflows.
const HierarchySeparator = "/"

// Node is anything that can produce a named result map on demand. Both
// computation nodes and composite workflow nodes implement it.
type Node interface {
	// Result returns the node's outputs, computing them on first demand.
	// Repeated calls return the memoized outcome, success or failure.
	Result(ctx context.Context) (map[string]any, error)

	// AddInputs binds sources for the named inputs, overriding earlier
	// bindings for the same names.
	AddInputs(sources map[string]InputSource)

	// OperatorID is the hierarchical id of the node.
	OperatorID() string

	// OperatorName is the hierarchical human-readable name of the node.
	OperatorName() string

	// InProgress reports whether the node is currently computing. Demanding
	// a node that is in progress means the graph is cyclic.
	InProgress() bool

	// OnlyPlotOutputs reports whether all the node's outputs are plots.
	OnlyPlotOutputs() bool
}

// InputSource names the upstream node and output an input draws from.
type InputSource struct {
	Node   Node
	Output string
}

type runHooksKey struct{}

type runHooks struct {
	observer api.Observer
	jobID    string
}

// withRunHooks attaches the per-run observer and job id to the context so
// that nodes deep in the graph can emit lifecycle events.
func withRunHooks(ctx context.Context, observer api.Observer, jobID string) context.Context {
	if observer == nil {
		observer = api.NoopObserver{}
	}
	return context.WithValue(ctx, runHooksKey{}, runHooks{observer: observer, jobID: jobID})
}

func runHooksFrom(ctx context.Context) (api.Observer, string) {
	if h, ok := ctx.Value(runHooksKey{}).(runHooks); ok {
		return h.observer, h.jobID
	}
	return api.NoopObserver{}, ""
}

// ComputationNode wraps one component function instance in the graph. Its
// result is computed at most once; later demands return the memoized
// outcome.
type ComputationNode struct {
	id   string
	name string

	fn              api.ComponentFunc
	requiredInputs  []string
	onlyPlotOutputs bool

	inputs map[string]InputSource

	once       sync.Once
	inProgress bool
	result     map[string]any
	err        error
}

// NewComputationNode creates a node running fn. The revision supplies the
// required input names and the plot-only flag; id and name are the node's
// hierarchical identifiers.
func NewComputationNode(id, name string, fn api.ComponentFunc, revision *api.ComponentRevision) *ComputationNode {
	return &ComputationNode{
		id:              id,
		name:            name,
		fn:              fn,
		requiredInputs:  revision.RequiredInputNames(),
		onlyPlotOutputs: revision.OnlyPlotOutputs(),
		inputs:          make(map[string]InputSource),
	}
}

// NewConstantProviderNode creates a node without inputs that returns the
// given values as its outputs. Used for constants, defaults, and run-time
// provided data.
func NewConstantProviderNode(id, name string, values map[string]any) *ComputationNode {
	fn := func(ctx context.Context, _ map[string]any) (map[string]any, error) {
		return values, nil
	}
	return &ComputationNode{
		id:     id,
		name:   name,
		fn:     fn,
		inputs: make(map[string]InputSource),
	}
}

func (n *ComputationNode) OperatorID() string    { return n.id }
func (n *ComputationNode) OperatorName() string  { return n.name }
func (n *ComputationNode) InProgress() bool      { return n.inProgress }
func (n *ComputationNode) OnlyPlotOutputs() bool { return n.onlyPlotOutputs }

// AddInputs binds input sources, overriding earlier bindings for the same
// names. Safe to call repeatedly with the same bindings.
func (n *ComputationNode) AddInputs(sources map[string]InputSource) {
	for name, src := range sources {
		n.inputs[name] = src
	}
}

// Result computes the node's outputs at most once and memoizes the outcome.
func (n *ComputationNode) Result(ctx context.Context) (map[string]any, error) {
	n.once.Do(func() {
		n.result, n.err = n.compute(ctx)
	})
	return n.result, n.err
}

func (n *ComputationNode) compute(ctx context.Context) (map[string]any, error) {
	n.inProgress = true
	defer func() { n.inProgress = false }()

	if err := n.checkInputSources(); err != nil {
		return nil, err
	}
	inputs, err := n.gatherInputs(ctx)
	if err != nil {
		return nil, err
	}
	return n.runFunc(ctx, inputs)
}

func (n *ComputationNode) checkInputSources() error {
	for _, name := range n.requiredInputs {
		if _, ok := n.inputs[name]; !ok {
			return missingInputSourceErr(n.id, n.name, name)
		}
	}
	return nil
}

// gatherInputs demands every bound upstream node in sorted input-name order.
// The cycle check runs before each recursive demand: pulling a node that is
// already computing would otherwise deadlock on its memoization latch.
func (n *ComputationNode) gatherInputs(ctx context.Context) (map[string]any, error) {
	names := make([]string, 0, len(n.inputs))
	for name := range n.inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make(map[string]any, len(names))
	for _, name := range names {
		src := n.inputs[name]
		if src.Node.InProgress() {
			return nil, circularDependencyErr(n.id, n.name, name, src.Output,
				src.Node.OperatorID(), src.Node.OperatorName())
		}
		upstream, err := src.Node.Result(ctx)
		if err != nil {
			return nil, err
		}
		v, ok := upstream[src.Output]
		if !ok {
			return nil, missingOutputErr(src.Node.OperatorID(), src.Node.OperatorName(), src.Output)
		}
		values[name] = v
	}
	return values, nil
}

func (n *ComputationNode) runFunc(ctx context.Context, inputs map[string]any) (result map[string]any, err error) {
	observer, jobID := runHooksFrom(ctx)
	observer.OnNodeStart(ctx, jobID, n.id, n.name)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = unexpectedFailureErr(n.id, n.name, fmt.Errorf("panic: %v", r))
		}
		observer.OnNodeCompleted(ctx, jobID, n.id, n.name, err, time.Since(start))
	}()

	result, err = n.fn(ctx, inputs)
	if err != nil {
		var ce *api.ComponentError
		if errors.As(err, &ce) {
			return nil, componentFailureErr(n.id, n.name, ce)
		}
		return nil, unexpectedFailureErr(n.id, n.name, err)
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}
