// Package pipeflow provides a lightweight, embeddable dataflow workflow
// engine for Go.
//
// Pipeflow evaluates directed graphs of typed computation nodes on demand:
// asking a graph for its outputs pulls exactly the upstream work each output
// needs, each node runs at most once per execution, and every value crossing
// a node boundary carries a declared kind. It runs fully in Go and
// integrates cleanly into existing codebases.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. ComponentFunc
//  2. ComponentRevision and CodeModule
//  3. GraphBuilder
//  4. WorkflowWiring
//  5. Executor and LocalRunner
//
// # ComponentFunc
//
// A ComponentFunc is the fundamental executable unit:
//
//	type ComponentFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)
//
// Inputs arrive already parsed into canonical typed values (series, frames,
// scalars); outputs are returned under the names the component declares.
// Business failures are reported with ComponentError and kept apart from
// engine defects in the structured result.
//
// # Components and Revisions
//
// A ComponentRevision declares the IO contract of a func: named, kinded
// inputs (optionally with defaults) and outputs. Funcs are registered in
// CodeModules; revisions reference them by module id and function name.
// Revision metadata can live in memory or in SQLite (see NewSQLiteBundle).
//
// # GraphBuilder
//
// GraphBuilder provides the ergonomic API used to define graphs:
//
//	graph := pipeflow.NewGraph("demo", "Demo").
//	    Component("load", "Load", loadRev).
//	    Component("score", "Score", scoreRev).
//	    Connect("load", "data", "score", "data").
//	    Input("threshold", pipeflow.KindFloat, "score", "threshold").
//	    Output("result", pipeflow.KindSeries, "score", "result").
//	    Build()
//
// Graphs nest: a built graph can be added to another via SubWorkflow. Graph
// descriptions are plain JSON-serializable values.
//
// # Wiring
//
// A WorkflowWiring binds the exposed inputs and outputs of a graph to data
// for one run. The built-in direct-provisioning adapter embeds input values
// in the wiring and returns output values with the result; custom adapters
// plug in via WithSourceAdapter / WithSinkAdapter.
//
// # Executor and LocalRunner
//
// The Executor runs one execution end to end and always returns a
// structured result; failures never surface as Go errors. LocalRunner
// bundles an in-memory registry with an executor for development and unit
// testing.
//
// Observability follows log/slog: attach a LoggingObserver, BasicMetrics,
// or any custom Observer via WithObserver.
//
// For complete programs, see the /examples directory.
package pipeflow
