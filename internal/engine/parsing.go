package engine

import (
	"fmt"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// ComponentResolver is the injected read-only lookup the parser uses to turn
// component references into runnable functions. Implementations live outside
// the engine; there are no global registries.
type ComponentResolver interface {
	// ComponentRevision returns the revision with the given id.
	ComponentRevision(id string) (*api.ComponentRevision, error)

	// ResolveFunc returns the function the given code module exports under
	// the given name.
	ResolveFunc(codeModuleID, functionName string) (api.ComponentFunc, error)
}

// ioContract is the connectable surface of one parsed sub-node: its input
// and output kinds by name.
type ioContract struct {
	inputs  map[string]api.Kind
	outputs map[string]api.Kind
}

func contractFromRevision(rev *api.ComponentRevision) ioContract {
	c := ioContract{
		inputs:  make(map[string]api.Kind, len(rev.Inputs)),
		outputs: make(map[string]api.Kind, len(rev.Outputs)),
	}
	for _, in := range rev.Inputs {
		c.inputs[in.Name] = in.Kind
	}
	for _, out := range rev.Outputs {
		c.outputs[out.Name] = out.Kind
	}
	return c
}

func contractFromWorkflowNode(wf *api.WorkflowNode) ioContract {
	c := ioContract{
		inputs:  make(map[string]api.Kind, len(wf.Inputs)),
		outputs: make(map[string]api.Kind, len(wf.Outputs)),
	}
	for _, in := range wf.Inputs {
		if in.Name != "" {
			c.inputs[in.Name] = in.Kind
		}
	}
	for _, out := range wf.Outputs {
		c.outputs[out.Name] = out.Kind
	}
	return c
}

// kindsCompatible allows exact matches plus ANY on either side.
func kindsCompatible(a, b api.Kind) bool {
	return a == b || a == api.KindAny || b == api.KindAny
}

// ParseWorkflow turns a workflow graph description into an evaluatable
// composite node, resolving component references through the given
// resolver. It walks the description depth-first in pre-order, building
// hierarchical ids/names with HierarchySeparator.
func ParseWorkflow(root *api.WorkflowNode, resolver ComponentResolver) (*Workflow, error) {
	name := root.Name
	if name == "" {
		name = "workflow"
	}
	return parseWorkflowNode(root, root.ID, name, resolver)
}

func parseWorkflowNode(wf *api.WorkflowNode, hierID, hierName string, resolver ComponentResolver) (*Workflow, error) {
	nodes := make(map[string]Node, len(wf.SubNodes))
	contracts := make(map[string]ioContract, len(wf.SubNodes))

	for _, sub := range wf.SubNodes {
		if id := sub.NodeID(); id != "" {
			if _, dup := nodes[id]; dup {
				return nil, &ParsingError{
					Message: fmt.Sprintf("workflow %q contains duplicate sub-node id %q", wf.ID, id),
				}
			}
		}
		switch {
		case sub.Workflow != nil:
			child := sub.Workflow
			parsed, err := parseWorkflowNode(
				child,
				hierID+HierarchySeparator+child.ID,
				hierName+HierarchySeparator+child.Name,
				resolver,
			)
			if err != nil {
				return nil, err
			}
			nodes[child.ID] = parsed
			contracts[child.ID] = contractFromWorkflowNode(child)

		case sub.Component != nil:
			ref := sub.Component
			rev, err := resolver.ComponentRevision(ref.ComponentRevisionID)
			if err != nil {
				return nil, parsingErrf(ErrComponentNotFound,
					"node %q references revision %q: %v", ref.ID, ref.ComponentRevisionID, err)
			}
			fn, err := resolver.ResolveFunc(rev.CodeModuleID, rev.FunctionName)
			if err != nil {
				return nil, parsingErrf(ErrFuncLoading,
					"revision %q (module %q, function %q): %v", rev.ID, rev.CodeModuleID, rev.FunctionName, err)
			}
			nodes[ref.ID] = NewComputationNode(
				hierID+HierarchySeparator+ref.ID,
				hierName+HierarchySeparator+ref.Name,
				fn,
				rev,
			)
			contracts[ref.ID] = contractFromRevision(rev)

		default:
			return nil, parsingErrf(ErrNodeNotFound, "workflow %q contains an empty sub-node", wf.ID)
		}
	}

	for _, conn := range wf.Connections {
		source, ok := nodes[conn.SourceNodeID]
		if !ok {
			return nil, parsingErrf(ErrNodeNotFound,
				"connection source node %q not in workflow %q", conn.SourceNodeID, wf.ID)
		}
		target, ok := nodes[conn.TargetNodeID]
		if !ok {
			return nil, parsingErrf(ErrNodeNotFound,
				"connection target node %q not in workflow %q", conn.TargetNodeID, wf.ID)
		}
		outKind, ok := contracts[conn.SourceNodeID].outputs[conn.SourceOutput]
		if !ok {
			return nil, parsingErrf(ErrConnectionInvalid,
				"node %q has no output %q", conn.SourceNodeID, conn.SourceOutput)
		}
		inKind, ok := contracts[conn.TargetNodeID].inputs[conn.TargetInput]
		if !ok {
			return nil, parsingErrf(ErrConnectionInvalid,
				"node %q has no input %q", conn.TargetNodeID, conn.TargetInput)
		}
		if !kindsCompatible(outKind, inKind) {
			return nil, parsingErrf(ErrConnectionInvalid,
				"output %q (%s) does not fit input %q (%s)",
				conn.SourceOutput, outKind, conn.TargetInput, inKind)
		}
		target.AddInputs(map[string]InputSource{
			conn.TargetInput: {Node: source, Output: conn.SourceOutput},
		})
	}

	inputMappings := make(map[string]BoundaryInput)
	var constants, defaults []api.NamedValue
	for _, in := range wf.Inputs {
		target, ok := nodes[in.NodeID]
		if !ok {
			return nil, parsingErrf(ErrNodeNotFound,
				"workflow input references node %q not in workflow %q", in.NodeID, wf.ID)
		}
		if _, ok := contracts[in.NodeID].inputs[in.NodeInputName]; !ok {
			return nil, parsingErrf(ErrConnectionInvalid,
				"node %q has no input %q", in.NodeID, in.NodeInputName)
		}
		switch {
		case in.Constant:
			name := constantInputName(in.NodeID, in.NodeInputName)
			inputMappings[name] = BoundaryInput{Node: target, InputName: in.NodeInputName}
			constants = append(constants, api.NamedValue{Name: name, Kind: in.Kind, Value: in.Value})
		case in.HasDefault:
			inputMappings[in.Name] = BoundaryInput{Node: target, InputName: in.NodeInputName}
			defaults = append(defaults, api.NamedValue{Name: in.Name, Kind: in.Kind, Value: in.Value})
		default:
			inputMappings[in.Name] = BoundaryInput{Node: target, InputName: in.NodeInputName}
		}
	}

	outputMappings := make(map[string]InputSource, len(wf.Outputs))
	onlyPlot := len(wf.Outputs) > 0
	for _, out := range wf.Outputs {
		source, ok := nodes[out.NodeID]
		if !ok {
			return nil, parsingErrf(ErrNodeNotFound,
				"workflow output references node %q not in workflow %q", out.NodeID, wf.ID)
		}
		if _, ok := contracts[out.NodeID].outputs[out.NodeOutputName]; !ok {
			return nil, parsingErrf(ErrConnectionInvalid,
				"node %q has no output %q", out.NodeID, out.NodeOutputName)
		}
		outputMappings[out.Name] = InputSource{Node: source, Output: out.NodeOutputName}
		if out.Kind != api.KindPlotlyJSON {
			onlyPlot = false
		}
	}

	subNodes := make([]Node, 0, len(nodes))
	for _, sub := range wf.SubNodes {
		subNodes = append(subNodes, nodes[sub.NodeID()])
	}
	parsed := NewWorkflow(hierID, hierName, subNodes, inputMappings, outputMappings, onlyPlot)

	// Constants bind first, then declared defaults. Run-time provided data
	// is attached later by the orchestrator and overrides both.
	if len(constants) > 0 {
		if err := parsed.AddConstantProvidingNode(constants, ConstantsSuffix); err != nil {
			return nil, err
		}
	}
	if len(defaults) > 0 {
		if err := parsed.AddConstantProvidingNode(defaults, DefaultValuesSuffix); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

// constantInputName synthesizes a boundary name for an unnamed constant
// workflow input.
func constantInputName(nodeID, inputName string) string {
	return "constant_" + nodeID + "_" + inputName
}
