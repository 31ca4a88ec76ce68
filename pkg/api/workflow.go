package api

import (
	"encoding/json"
	"fmt"
)

// Connection links one sub-node's output to another sub-node's input within
// the same workflow node.
type Connection struct {
	SourceNodeID string `json:"source_node_id"`
	SourceOutput string `json:"source_output"`
	TargetNodeID string `json:"target_node_id"`
	TargetInput  string `json:"target_input"`
}

// WorkflowInput exposes an inner sub-node input at the workflow boundary.
//
// Exactly one of three roles applies:
//
//   - dynamic without default: Name is set, value supplied at run time
//   - dynamic with default: Name and HasDefault set, Value holds the default
//   - constant: Constant set, Value holds the fixed raw value, Name empty
type WorkflowInput struct {
	Name string `json:"name,omitempty"`
	Kind Kind   `json:"type"`

	NodeID        string `json:"node_id"`
	NodeInputName string `json:"node_input_name"`

	Constant   bool `json:"constant,omitempty"`
	HasDefault bool `json:"has_default,omitempty"`
	Value      any  `json:"value,omitempty"`
}

// WorkflowOutput exposes an inner sub-node output at the workflow boundary.
type WorkflowOutput struct {
	Name string `json:"name"`
	Kind Kind   `json:"type"`

	NodeID         string `json:"node_id"`
	NodeOutputName string `json:"node_output_name"`
}

// ComponentNode references a component revision as a node within a workflow.
type ComponentNode struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	ComponentRevisionID string `json:"component_revision_id"`
}

// WorkflowNode is the recursive graph description: a named collection of
// sub-nodes (component references or nested workflows), connections between
// them, and the inputs/outputs it exposes.
type WorkflowNode struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	SubNodes    []SubNode        `json:"sub_nodes"`
	Connections []Connection     `json:"connections"`
	Inputs      []WorkflowInput  `json:"inputs"`
	Outputs     []WorkflowOutput `json:"outputs"`
}

// DynamicInputs returns the exposed inputs that require a run-time value,
// i.e. non-constant inputs without a default.
func (w *WorkflowNode) DynamicInputs() []WorkflowInput {
	var out []WorkflowInput
	for _, in := range w.Inputs {
		if !in.Constant && !in.HasDefault {
			out = append(out, in)
		}
	}
	return out
}

// SubNode is a union of the two node flavors a workflow may contain. Exactly
// one of Component or Workflow is non-nil.
type SubNode struct {
	Component *ComponentNode
	Workflow  *WorkflowNode
}

// NodeID returns the id of whichever flavor is present.
func (n SubNode) NodeID() string {
	if n.Workflow != nil {
		return n.Workflow.ID
	}
	if n.Component != nil {
		return n.Component.ID
	}
	return ""
}

// MarshalJSON renders the contained flavor directly, without a wrapper
// object. Workflow nodes are recognizable by their "sub_nodes" key.
func (n SubNode) MarshalJSON() ([]byte, error) {
	switch {
	case n.Workflow != nil:
		return json.Marshal(n.Workflow)
	case n.Component != nil:
		return json.Marshal(n.Component)
	}
	return nil, fmt.Errorf("sub-node has neither component nor workflow flavor")
}

// UnmarshalJSON detects the flavor by the presence of the "sub_nodes" key.
func (n *SubNode) UnmarshalJSON(data []byte) error {
	var probe struct {
		SubNodes json.RawMessage `json:"sub_nodes"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.SubNodes != nil {
		var w WorkflowNode
		if err := json.Unmarshal(data, &w); err != nil {
			return err
		}
		n.Workflow = &w
		n.Component = nil
		return nil
	}
	var c ComponentNode
	if err := json.Unmarshal(data, &c); err != nil {
		return err
	}
	n.Component = &c
	n.Workflow = nil
	return nil
}
