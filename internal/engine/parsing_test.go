package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pipewerks/pipeflow/pkg/api"
)

type testResolver struct {
	revisions map[string]*api.ComponentRevision
	funcs     map[string]api.ComponentFunc
}

func (r *testResolver) ComponentRevision(id string) (*api.ComponentRevision, error) {
	rev, ok := r.revisions[id]
	if !ok {
		return nil, fmt.Errorf("no revision %q", id)
	}
	return rev, nil
}

func (r *testResolver) ResolveFunc(codeModuleID, functionName string) (api.ComponentFunc, error) {
	fn, ok := r.funcs[codeModuleID+"/"+functionName]
	if !ok {
		return nil, fmt.Errorf("no function %q in %q", functionName, codeModuleID)
	}
	return fn, nil
}

// doubleResolver resolves one revision "double" that doubles a FLOAT input
// "x" into output "y".
func doubleResolver() *testResolver {
	return &testResolver{
		revisions: map[string]*api.ComponentRevision{
			"double": {
				ID:           "double",
				Name:         "Double",
				Inputs:       []api.IODescriptor{{Name: "x", Kind: api.KindFloat}},
				Outputs:      []api.IODescriptor{{Name: "y", Kind: api.KindFloat}},
				CodeModuleID: "m",
				FunctionName: "double",
			},
		},
		funcs: map[string]api.ComponentFunc{
			"m/double": func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
				return map[string]any{"y": inputs["x"].(float64) * 2}, nil
			},
		},
	}
}

func componentSub(id, name, revID string) api.SubNode {
	return api.SubNode{Component: &api.ComponentNode{ID: id, Name: name, ComponentRevisionID: revID}}
}

func TestParseWorkflowBuildsEvaluatableGraph(t *testing.T) {
	desc := &api.WorkflowNode{
		ID:   "wf",
		Name: "WF",
		SubNodes: []api.SubNode{
			componentSub("a", "A", "double"),
			componentSub("b", "B", "double"),
		},
		Connections: []api.Connection{
			{SourceNodeID: "a", SourceOutput: "y", TargetNodeID: "b", TargetInput: "x"},
		},
		Inputs: []api.WorkflowInput{
			{Kind: api.KindFloat, NodeID: "a", NodeInputName: "x", Constant: true, Value: 2.0},
		},
		Outputs: []api.WorkflowOutput{
			{Name: "quadrupled", Kind: api.KindFloat, NodeID: "b", NodeOutputName: "y"},
		},
	}

	wf, err := ParseWorkflow(desc, doubleResolver())
	if err != nil {
		t.Fatalf("ParseWorkflow failed: %v", err)
	}
	res, err := wf.Result(context.Background())
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if res["quadrupled"] != 8.0 {
		t.Fatalf("expected 8.0, got %v", res["quadrupled"])
	}
}

func TestParseWorkflowHierarchicalIDs(t *testing.T) {
	desc := &api.WorkflowNode{
		ID:       "wf",
		Name:     "WF",
		SubNodes: []api.SubNode{componentSub("a", "A", "double")},
		Inputs: []api.WorkflowInput{
			{Kind: api.KindFloat, NodeID: "a", NodeInputName: "x", Constant: true, Value: 1.0},
		},
		Outputs: []api.WorkflowOutput{
			{Name: "y", Kind: api.KindFloat, NodeID: "a", NodeOutputName: "y"},
		},
	}

	wf, err := ParseWorkflow(desc, doubleResolver())
	if err != nil {
		t.Fatalf("ParseWorkflow failed: %v", err)
	}
	ids := map[string]bool{}
	for _, n := range wf.ObtainAllNodes() {
		ids[n.OperatorID()] = true
	}
	if !ids["wf/a"] {
		t.Fatalf("expected hierarchical id wf/a, got %v", ids)
	}
	if !ids["wf/"+ConstantsSuffix] {
		t.Fatalf("expected constant provider node, got %v", ids)
	}
}

func TestParseWorkflowNested(t *testing.T) {
	inner := &api.WorkflowNode{
		ID:       "sub",
		Name:     "Sub",
		SubNodes: []api.SubNode{componentSub("leaf", "Leaf", "double")},
		Inputs: []api.WorkflowInput{
			{Name: "x", Kind: api.KindFloat, NodeID: "leaf", NodeInputName: "x"},
		},
		Outputs: []api.WorkflowOutput{
			{Name: "y", Kind: api.KindFloat, NodeID: "leaf", NodeOutputName: "y"},
		},
	}
	desc := &api.WorkflowNode{
		ID:       "wf",
		Name:     "WF",
		SubNodes: []api.SubNode{{Workflow: inner}},
		Inputs: []api.WorkflowInput{
			{Kind: api.KindFloat, NodeID: "sub", NodeInputName: "x", Constant: true, Value: 3.0},
		},
		Outputs: []api.WorkflowOutput{
			{Name: "doubled", Kind: api.KindFloat, NodeID: "sub", NodeOutputName: "y"},
		},
	}

	wf, err := ParseWorkflow(desc, doubleResolver())
	if err != nil {
		t.Fatalf("ParseWorkflow failed: %v", err)
	}
	res, err := wf.Result(context.Background())
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if res["doubled"] != 6.0 {
		t.Fatalf("expected 6.0, got %v", res["doubled"])
	}

	ids := map[string]bool{}
	for _, n := range wf.ObtainAllNodes() {
		ids[n.OperatorID()] = true
	}
	if !ids["wf/sub/leaf"] {
		t.Fatalf("expected hierarchical id wf/sub/leaf, got %v", ids)
	}
}

func TestParseWorkflowDefaultValuesProvider(t *testing.T) {
	desc := &api.WorkflowNode{
		ID:       "wf",
		Name:     "WF",
		SubNodes: []api.SubNode{componentSub("a", "A", "double")},
		Inputs: []api.WorkflowInput{
			{Name: "x", Kind: api.KindFloat, NodeID: "a", NodeInputName: "x", HasDefault: true, Value: 5.0},
		},
		Outputs: []api.WorkflowOutput{
			{Name: "y", Kind: api.KindFloat, NodeID: "a", NodeOutputName: "y"},
		},
	}

	wf, err := ParseWorkflow(desc, doubleResolver())
	if err != nil {
		t.Fatalf("ParseWorkflow failed: %v", err)
	}
	res, err := wf.Result(context.Background())
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if res["y"] != 10.0 {
		t.Fatalf("expected the default to apply, got %v", res["y"])
	}
}

func TestParseWorkflowUnknownRevision(t *testing.T) {
	desc := &api.WorkflowNode{
		ID:       "wf",
		SubNodes: []api.SubNode{componentSub("a", "A", "nope")},
	}
	_, err := ParseWorkflow(desc, doubleResolver())
	if !errors.Is(err, ErrComponentNotFound) {
		t.Fatalf("expected ErrComponentNotFound, got %v", err)
	}
	var pe *ParsingError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParsingError, got %T", err)
	}
}

func TestParseWorkflowUnresolvableFunc(t *testing.T) {
	resolver := doubleResolver()
	delete(resolver.funcs, "m/double")

	desc := &api.WorkflowNode{
		ID:       "wf",
		SubNodes: []api.SubNode{componentSub("a", "A", "double")},
	}
	_, err := ParseWorkflow(desc, resolver)
	if !errors.Is(err, ErrFuncLoading) {
		t.Fatalf("expected ErrFuncLoading, got %v", err)
	}
}

func TestParseWorkflowDuplicateNodeID(t *testing.T) {
	desc := &api.WorkflowNode{
		ID: "wf",
		SubNodes: []api.SubNode{
			componentSub("a", "A", "double"),
			componentSub("a", "Other", "double"),
		},
	}
	_, err := ParseWorkflow(desc, doubleResolver())
	var pe *ParsingError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParsingError, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate") || !strings.Contains(err.Error(), `"a"`) {
		t.Fatalf("expected the duplicate id to be named, got %v", err)
	}
}

func TestParseWorkflowConnectionToUnknownNode(t *testing.T) {
	desc := &api.WorkflowNode{
		ID:       "wf",
		SubNodes: []api.SubNode{componentSub("a", "A", "double")},
		Connections: []api.Connection{
			{SourceNodeID: "a", SourceOutput: "y", TargetNodeID: "ghost", TargetInput: "x"},
		},
	}
	_, err := ParseWorkflow(desc, doubleResolver())
	if !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestParseWorkflowConnectionBadEndpoint(t *testing.T) {
	desc := &api.WorkflowNode{
		ID: "wf",
		SubNodes: []api.SubNode{
			componentSub("a", "A", "double"),
			componentSub("b", "B", "double"),
		},
		Connections: []api.Connection{
			{SourceNodeID: "a", SourceOutput: "absent", TargetNodeID: "b", TargetInput: "x"},
		},
	}
	_, err := ParseWorkflow(desc, doubleResolver())
	if !errors.Is(err, ErrConnectionInvalid) {
		t.Fatalf("expected ErrConnectionInvalid, got %v", err)
	}
}

func TestParseWorkflowConnectionKindMismatch(t *testing.T) {
	resolver := doubleResolver()
	resolver.revisions["stringer"] = &api.ComponentRevision{
		ID:           "stringer",
		Name:         "Stringer",
		Inputs:       []api.IODescriptor{{Name: "s", Kind: api.KindString}},
		Outputs:      []api.IODescriptor{{Name: "s", Kind: api.KindString}},
		CodeModuleID: "m",
		FunctionName: "double",
	}

	desc := &api.WorkflowNode{
		ID: "wf",
		SubNodes: []api.SubNode{
			componentSub("a", "A", "double"),
			componentSub("b", "B", "stringer"),
		},
		Connections: []api.Connection{
			{SourceNodeID: "a", SourceOutput: "y", TargetNodeID: "b", TargetInput: "s"},
		},
	}
	_, err := ParseWorkflow(desc, resolver)
	if !errors.Is(err, ErrConnectionInvalid) {
		t.Fatalf("expected ErrConnectionInvalid, got %v", err)
	}
}
