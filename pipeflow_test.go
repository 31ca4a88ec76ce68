package pipeflow

import (
	"context"
	"fmt"
	"testing"
)

// countAboveModule registers a "counter" component that counts series
// entries above a float threshold, used by several tests.
func countAboveModule() *CodeModule {
	return NewCodeModule("analysis", map[string]ComponentFunc{
		"count_above": func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			series := inputs["data"].(*Series)
			level := inputs["level"].(float64)
			count := int64(0)
			for _, v := range series.Values {
				if v.(float64) > level {
					count++
				}
			}
			return map[string]any{"count": count}, nil
		},
		"summarize": func(ctx context.Context, inputs map[string]any) (map[string]any, error) {
			return map[string]any{"summary": fmt.Sprintf("count: %d", inputs["count"].(int64))}, nil
		},
	})
}

func counterRevision() *ComponentRevision {
	return &ComponentRevision{
		ID:              "counter-1.0.0",
		RevisionGroupID: "counter",
		Name:            "Counter",
		Tag:             "1.0.0",
		Inputs: []IODescriptor{
			{Name: "data", Kind: KindSeries},
			{Name: "level", Kind: KindFloat},
		},
		Outputs:      []IODescriptor{{Name: "count", Kind: KindInt}},
		CodeModuleID: "analysis",
		FunctionName: "count_above",
	}
}

func summarizeRevision() *ComponentRevision {
	return &ComponentRevision{
		ID:              "summarize-1.0.0",
		RevisionGroupID: "summarize",
		Name:            "Summarize",
		Tag:             "1.0.0",
		Inputs:          []IODescriptor{{Name: "count", Kind: KindInt}},
		Outputs:         []IODescriptor{{Name: "summary", Kind: KindString}},
		CodeModuleID:    "analysis",
		FunctionName:    "summarize",
	}
}

func newAnalysisRunner(t *testing.T) *LocalRunner {
	t.Helper()
	runner := NewLocalRunner()
	runner.RegisterCodeModule(countAboveModule())
	runner.RegisterRevision(counterRevision())
	runner.RegisterRevision(summarizeRevision())
	return runner
}

func TestLocalRunnerEndToEnd(t *testing.T) {
	runner := newAnalysisRunner(t)

	graph := NewGraph("analysis", "Analysis").
		Component("x", "X", "counter-1.0.0").
		Component("y", "Y", "summarize-1.0.0").
		Connect("x", "count", "y", "count").
		Input("data", KindSeries, "x", "data").
		Constant(KindFloat, "x", "level", 3.0).
		Output("summary", KindString, "y", "summary").
		Build()

	result := runner.Execute(context.Background(), graph, DirectWiring(map[string]any{
		"data": `{"0": 1.0, "1": 4.0, "2": 2.0}`,
	}), Configuration{})

	if !result.OK() {
		t.Fatalf("execution failed: %v", result.Error)
	}
	if result.Outputs["summary"] != "count: 1" {
		t.Fatalf("expected count: 1, got %v", result.Outputs["summary"])
	}
}

func TestLocalRunnerNestedGraph(t *testing.T) {
	runner := newAnalysisRunner(t)

	inner := NewGraph("inner", "Inner").
		Component("x", "X", "counter-1.0.0").
		Input("data", KindSeries, "x", "data").
		Input("level", KindFloat, "x", "level").
		Output("count", KindInt, "x", "count").
		Build()

	graph := NewGraph("outer", "Outer").
		SubWorkflow(inner).
		Component("y", "Y", "summarize-1.0.0").
		Connect("inner", "count", "y", "count").
		Input("data", KindSeries, "inner", "data").
		InputWithDefault("level", KindFloat, "inner", "level", 3.0).
		Output("summary", KindString, "y", "summary").
		Build()

	result := runner.Execute(context.Background(), graph, DirectWiring(map[string]any{
		"data": `{"0": 1.0, "1": 4.0, "2": 5.0}`,
	}), Configuration{})

	if !result.OK() {
		t.Fatalf("execution failed: %v", result.Error)
	}
	if result.Outputs["summary"] != "count: 2" {
		t.Fatalf("expected count: 2, got %v", result.Outputs["summary"])
	}
}

func TestLocalRunnerComponentErrorSurfaces(t *testing.T) {
	runner := NewLocalRunner()
	runner.RegisterCodeModule(NewCodeModule("failing", map[string]ComponentFunc{
		"fail": func(ctx context.Context, _ map[string]any) (map[string]any, error) {
			return nil, NewComponentError("bad input range")
		},
	}))
	runner.RegisterRevision(&ComponentRevision{
		ID:           "fail-1.0.0",
		Name:         "Fail",
		Outputs:      []IODescriptor{{Name: "out", Kind: KindAny}},
		CodeModuleID: "failing",
		FunctionName: "fail",
	})

	graph := NewGraph("wf", "WF").
		Component("f", "F", "fail-1.0.0").
		Output("out", KindAny, "f", "out").
		Build()

	result := runner.Execute(context.Background(), graph, nil, Configuration{})
	if result.OK() {
		t.Fatalf("expected failure")
	}
	if result.Error.Kind != ErrorKind("COMPONENT_FAILURE") {
		t.Fatalf("expected component failure, got %s", result.Error.Kind)
	}
}

func TestGraphBuilderPanics(t *testing.T) {
	cases := map[string]func(){
		"empty graph id":     func() { NewGraph("", "X") },
		"empty node id":      func() { NewGraph("g", "G").Component("", "X", "rev") },
		"empty revision":     func() { NewGraph("g", "G").Component("a", "A", "") },
		"duplicate node id":  func() { NewGraph("g", "G").Component("a", "A", "r").Component("a", "B", "r") },
		"unknown connection": func() { NewGraph("g", "G").Connect("a", "o", "b", "i") },
		"unknown input node": func() { NewGraph("g", "G").Input("x", KindFloat, "ghost", "x") },
		"nil sub-workflow":   func() { NewGraph("g", "G").SubWorkflow(nil) },
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic")
				}
			}()
			fn()
		})
	}
}

func TestPassThroughFunc(t *testing.T) {
	out, err := PassThroughFunc(context.Background(), map[string]any{"a": 1, "b": "x"})
	if err != nil {
		t.Fatalf("PassThroughFunc failed: %v", err)
	}
	if out["a"] != 1 || out["b"] != "x" {
		t.Fatalf("unexpected outputs %v", out)
	}
}

func TestSleepFuncRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := SleepFunc(1e9)(ctx, nil)
	if err == nil {
		t.Fatalf("expected context error")
	}
}
