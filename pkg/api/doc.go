// Package api contains the core data model used by the pipeflow execution
// engine: value kinds and typed-value parsing, component revisions and code
// modules, workflow graph descriptions, wirings, execution inputs/results,
// and observers.
//
// Most users interact with the higher-level pipeflow package, which
// re-exports selected types and helpers from this package. The api package
// is intended for advanced use cases, custom integrations, or contributors
// extending the engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Typed values and their serialized forms
//   - Component revisions and code modules
//   - Workflow graph descriptions
//   - Wirings binding graph boundaries to data
//   - Observability
//
// # Typed Values
//
// Every component input and output carries a declared Kind. Parse coerces
// raw values (JSON strings or native Go containers) into canonical in-memory
// representations; Serialize renders them back into JSON-compatible values.
// Structured kinds (SERIES, DATAFRAME, MULTITSFRAME) carry an optional
// metadata side channel that survives serialization through a wrapper
// envelope.
//
// # Components and Workflows
//
// A ComponentRevision is the immutable IO contract of one piece of business
// logic, referencing a ComponentFunc inside a registered CodeModule. A
// WorkflowNode composes component references and nested workflows into a
// graph via Connections, exposing selected inner inputs and outputs at its
// boundary.
//
// # Wirings
//
// A WorkflowWiring binds the exposed inputs and outputs of a workflow to
// adapters for one execution. The built-in direct-provisioning adapter
// embeds input values in the wiring itself and hands output values back with
// the result.
//
// # Observability
//
// The Observer interface reports execution and node lifecycle events.
// Ready-made implementations cover structured logging (log/slog), basic
// in-memory metrics, and fan-out composition.
//
// Most applications should start from the pipeflow package, using the
// GraphBuilder and LocalRunner provided there.
package api
