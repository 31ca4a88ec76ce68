package pipeflow

import (
	"fmt"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// GraphBuilder provides a fluent API for defining workflow graphs:
//
//	graph := pipeflow.NewGraph("demo", "Demo").
//	    Component("load", "Load", loadRevID).
//	    Component("score", "Score", scoreRevID).
//	    Connect("load", "data", "score", "data").
//	    Input("threshold", pipeflow.KindFloat, "score", "threshold").
//	    Output("result", pipeflow.KindSeries, "score", "result").
//	    Build()
//
// Structurally impossible definitions (empty ids, duplicate node ids) panic;
// semantic problems (unknown revisions, bad connections) surface when the
// graph is executed.
type GraphBuilder struct {
	wf      api.WorkflowNode
	nodeIDs map[string]bool
}

// NewGraph creates a new builder for a workflow graph with the given id and
// name.
func NewGraph(id, name string) *GraphBuilder {
	if id == "" {
		panic("pipeflow: graph id must not be empty")
	}
	return &GraphBuilder{
		wf:      api.WorkflowNode{ID: id, Name: name},
		nodeIDs: make(map[string]bool),
	}
}

func (b *GraphBuilder) addNodeID(id string) {
	if id == "" {
		panic("pipeflow: node id must not be empty")
	}
	if b.nodeIDs[id] {
		panic(fmt.Sprintf("pipeflow: duplicate node id %q", id))
	}
	b.nodeIDs[id] = true
}

// Component adds a component node referencing the given revision.
func (b *GraphBuilder) Component(nodeID, name, revisionID string) *GraphBuilder {
	b.addNodeID(nodeID)
	if revisionID == "" {
		panic(fmt.Sprintf("pipeflow: node %q has empty revision id", nodeID))
	}
	b.wf.SubNodes = append(b.wf.SubNodes, api.SubNode{
		Component: &api.ComponentNode{ID: nodeID, Name: name, ComponentRevisionID: revisionID},
	})
	return b
}

// SubWorkflow nests another workflow graph as a node.
func (b *GraphBuilder) SubWorkflow(wf *api.WorkflowNode) *GraphBuilder {
	if wf == nil {
		panic("pipeflow: nil sub-workflow")
	}
	b.addNodeID(wf.ID)
	b.wf.SubNodes = append(b.wf.SubNodes, api.SubNode{Workflow: wf})
	return b
}

// Connect wires an output of one node to an input of another.
func (b *GraphBuilder) Connect(sourceNodeID, sourceOutput, targetNodeID, targetInput string) *GraphBuilder {
	if !b.nodeIDs[sourceNodeID] {
		panic(fmt.Sprintf("pipeflow: connection source %q is not a node of this graph", sourceNodeID))
	}
	if !b.nodeIDs[targetNodeID] {
		panic(fmt.Sprintf("pipeflow: connection target %q is not a node of this graph", targetNodeID))
	}
	b.wf.Connections = append(b.wf.Connections, api.Connection{
		SourceNodeID: sourceNodeID,
		SourceOutput: sourceOutput,
		TargetNodeID: targetNodeID,
		TargetInput:  targetInput,
	})
	return b
}

// Input exposes an inner node input as a dynamic workflow input.
func (b *GraphBuilder) Input(name string, kind Kind, nodeID, nodeInput string) *GraphBuilder {
	if name == "" {
		panic("pipeflow: workflow input name must not be empty")
	}
	b.requireNode(nodeID)
	b.wf.Inputs = append(b.wf.Inputs, api.WorkflowInput{
		Name: name, Kind: kind, NodeID: nodeID, NodeInputName: nodeInput,
	})
	return b
}

// InputWithDefault exposes an inner node input as a dynamic workflow input
// with a declared default value.
func (b *GraphBuilder) InputWithDefault(name string, kind Kind, nodeID, nodeInput string, value any) *GraphBuilder {
	if name == "" {
		panic("pipeflow: workflow input name must not be empty")
	}
	b.requireNode(nodeID)
	b.wf.Inputs = append(b.wf.Inputs, api.WorkflowInput{
		Name: name, Kind: kind, NodeID: nodeID, NodeInputName: nodeInput,
		HasDefault: true, Value: value,
	})
	return b
}

// Constant fixes an inner node input to a constant raw value.
func (b *GraphBuilder) Constant(kind Kind, nodeID, nodeInput string, value any) *GraphBuilder {
	b.requireNode(nodeID)
	b.wf.Inputs = append(b.wf.Inputs, api.WorkflowInput{
		Kind: kind, NodeID: nodeID, NodeInputName: nodeInput,
		Constant: true, Value: value,
	})
	return b
}

// Output exposes an inner node output at the workflow boundary.
func (b *GraphBuilder) Output(name string, kind Kind, nodeID, nodeOutput string) *GraphBuilder {
	if name == "" {
		panic("pipeflow: workflow output name must not be empty")
	}
	b.requireNode(nodeID)
	b.wf.Outputs = append(b.wf.Outputs, api.WorkflowOutput{
		Name: name, Kind: kind, NodeID: nodeID, NodeOutputName: nodeOutput,
	})
	return b
}

func (b *GraphBuilder) requireNode(nodeID string) {
	if !b.nodeIDs[nodeID] {
		panic(fmt.Sprintf("pipeflow: node %q is not part of this graph", nodeID))
	}
}

// Build returns the assembled graph description.
func (b *GraphBuilder) Build() *api.WorkflowNode {
	wf := b.wf
	return &wf
}
