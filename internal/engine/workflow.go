package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// Suffixes of the synthesized constant-provider nodes a workflow may carry.
// Run-time provided data overrides declared defaults because it is wired
// later.
const (
	DefaultValuesSuffix = "workflow_default_values"
	DynamicDataSuffix   = "dynamic_data"
	ConstantsSuffix     = "constants"
)

// BoundaryInput locates the inner input a workflow-level input forwards to.
type BoundaryInput struct {
	Node      Node
	InputName string
}

// Workflow is a composite node: it delegates its exposed inputs to inner
// nodes and draws its outputs from them. Workflows nest arbitrarily.
type Workflow struct {
	id   string
	name string

	subNodes        []Node
	inputMappings   map[string]BoundaryInput
	outputMappings  map[string]InputSource
	onlyPlotOutputs bool

	// inputs holds the outer sources bound per workflow input name. They are
	// forwarded to the mapped inner nodes on every Result call, so late
	// bindings (defaults, run-time data) take effect regardless of order.
	inputs map[string]InputSource

	once       sync.Once
	inProgress bool
	result     map[string]any
	err        error
}

// NewWorkflow assembles a composite node. inputMappings key workflow input
// names to inner targets; outputMappings key workflow output names to inner
// sources.
func NewWorkflow(id, name string, subNodes []Node, inputMappings map[string]BoundaryInput, outputMappings map[string]InputSource, onlyPlotOutputs bool) *Workflow {
	return &Workflow{
		id:              id,
		name:            name,
		subNodes:        subNodes,
		inputMappings:   inputMappings,
		outputMappings:  outputMappings,
		onlyPlotOutputs: onlyPlotOutputs,
		inputs:          make(map[string]InputSource),
	}
}

func (w *Workflow) OperatorID() string    { return w.id }
func (w *Workflow) OperatorName() string  { return w.name }
func (w *Workflow) InProgress() bool      { return w.inProgress }
func (w *Workflow) OnlyPlotOutputs() bool { return w.onlyPlotOutputs }

// AddInputs binds outer sources for the named workflow inputs, overriding
// earlier bindings for the same names.
func (w *Workflow) AddInputs(sources map[string]InputSource) {
	for name, src := range sources {
		w.inputs[name] = src
	}
}

// wireInputs forwards the current outer bindings to the mapped inner nodes.
// Idempotent; names without a boundary mapping are ignored.
func (w *Workflow) wireInputs() {
	for name, outer := range w.inputs {
		target, ok := w.inputMappings[name]
		if !ok {
			continue
		}
		target.Node.AddInputs(map[string]InputSource{target.InputName: outer})
	}
}

// AddConstantProvidingNode parses the given values as a batch and attaches a
// constant-provider sub-node serving them as outer sources for the matching
// workflow inputs. The batch fails as a whole on the first bad value.
func (w *Workflow) AddConstantProvidingNode(values []api.NamedValue, idSuffix string) error {
	parsed, err := api.ParseNamed(values)
	if err != nil {
		return inputValidationErr(w.id, w.name, err)
	}
	node := NewConstantProviderNode(
		w.id+HierarchySeparator+idSuffix,
		w.name+HierarchySeparator+idSuffix,
		parsed,
	)
	w.subNodes = append(w.subNodes, node)
	sources := make(map[string]InputSource, len(parsed))
	for name := range parsed {
		sources[name] = InputSource{Node: node, Output: name}
	}
	w.AddInputs(sources)
	return nil
}

// Result wires the boundary and pulls every mapped output, memoizing the
// outcome. Plot-only inner nodes are substituted with empty payloads when
// the run configuration says plots should be skipped.
func (w *Workflow) Result(ctx context.Context) (map[string]any, error) {
	w.wireInputs()
	w.once.Do(func() {
		w.result, w.err = w.computeOutputs(ctx)
	})
	return w.result, w.err
}

func (w *Workflow) computeOutputs(ctx context.Context) (map[string]any, error) {
	w.inProgress = true
	defer func() { w.inProgress = false }()

	cfg := api.ConfigFromContext(ctx)

	names := make([]string, 0, len(w.outputMappings))
	for name := range w.outputMappings {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]any, len(names))
	for _, name := range names {
		src := w.outputMappings[name]
		if cfg.SkipPurePlotOperators && src.Node.OnlyPlotOutputs() {
			results[name] = api.PlotPayload{}
			continue
		}
		if src.Node.InProgress() {
			return nil, circularDependencyErr(w.id, w.name, name, src.Output,
				src.Node.OperatorID(), src.Node.OperatorName())
		}
		upstream, err := src.Node.Result(ctx)
		if err != nil {
			return nil, err
		}
		v, ok := upstream[src.Output]
		if !ok {
			// The boundary reports the miss, not the inner node.
			return nil, missingOutputErr(w.id, "workflow", name)
		}
		results[name] = v
	}
	return results, nil
}

// ObtainAllNodes flattens the workflow into the full set of computation
// nodes it transitively contains, nested workflows included.
func (w *Workflow) ObtainAllNodes() []*ComputationNode {
	var all []*ComputationNode
	for _, sub := range w.subNodes {
		switch n := sub.(type) {
		case *ComputationNode:
			all = append(all, n)
		case *Workflow:
			all = append(all, n.ObtainAllNodes()...)
		}
	}
	return all
}
