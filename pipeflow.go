package pipeflow

import (
	"context"
	"log/slog"

	"github.com/pipewerks/pipeflow/internal/engine"
	"github.com/pipewerks/pipeflow/internal/registry"
	"github.com/pipewerks/pipeflow/internal/wiring"
	"github.com/pipewerks/pipeflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Kind              = api.Kind
	Series            = api.Series
	DataFrame         = api.DataFrame
	MultiTSFrame      = api.MultiTSFrame
	TSRecord          = api.TSRecord
	PlotPayload       = api.PlotPayload
	NamedValue        = api.NamedValue
	ValueParsingError = api.ValueParsingError

	ComponentFunc     = api.ComponentFunc
	ComponentRevision = api.ComponentRevision
	CodeModule        = api.CodeModule
	IODescriptor      = api.IODescriptor

	WorkflowNode   = api.WorkflowNode
	SubNode        = api.SubNode
	ComponentNode  = api.ComponentNode
	Connection     = api.Connection
	WorkflowInput  = api.WorkflowInput
	WorkflowOutput = api.WorkflowOutput

	WorkflowWiring = api.WorkflowWiring
	InputWiring    = api.InputWiring
	OutputWiring   = api.OutputWiring

	ExecutionInput  = api.ExecutionInput
	ExecutionResult = api.ExecutionResult
	Configuration   = api.Configuration
	MeasuredStep    = api.MeasuredStep
	StructuredError = api.StructuredError
	ComponentError  = api.ComponentError
	ErrorKind       = api.ErrorKind

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	Parse                = api.Parse
	Serialize            = api.Serialize
	NewComponentError    = api.NewComponentError
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export value kinds for convenience.

const (
	KindInt          = api.KindInt
	KindFloat        = api.KindFloat
	KindString       = api.KindString
	KindBoolean      = api.KindBoolean
	KindSeries       = api.KindSeries
	KindDataFrame    = api.KindDataFrame
	KindMultiTSFrame = api.KindMultiTSFrame
	KindAny          = api.KindAny
	KindPlotlyJSON   = api.KindPlotlyJSON
)

const (
	OutcomeOK      = api.OutcomeOK
	OutcomeFailure = api.OutcomeFailure

	DirectProvisioningAdapterID = api.DirectProvisioningAdapterID
)

// ComponentResolver is the lookup the executor's parser consults for
// component revisions and their functions.
type ComponentResolver interface {
	ComponentRevision(id string) (*api.ComponentRevision, error)
	ResolveFunc(codeModuleID, functionName string) (api.ComponentFunc, error)
}

// Registry constructors.
// These wrap the internal/registry package so external callers never need to
// import internal packages.

// Registry is an in-memory component lookup.
type Registry = registry.Registry

// NewRegistry returns an empty in-memory Registry.
func NewRegistry() *Registry {
	return registry.New()
}

// SQLiteRegistry is a component lookup whose revision metadata is persisted
// in SQLite.
type SQLiteRegistry = registry.SQLiteRegistry

// NewSQLiteRegistry wraps registry.NewSQLiteRegistry; see bundle.go for a
// ready-made SQLite-backed runner.
var NewSQLiteRegistry = registry.NewSQLiteRegistry

// SourceAdapter loads input data for wirings referencing its adapter id.
type SourceAdapter = wiring.SourceAdapter

// SinkAdapter receives output data for wirings referencing its adapter id.
type SinkAdapter = wiring.SinkAdapter

// Executor runs workflow executions against a component resolver.
type Executor struct {
	resolver   ComponentResolver
	dispatcher *wiring.Dispatcher
	observer   api.Observer
	logger     *slog.Logger
}

// ExecutorOption customizes an Executor.
type ExecutorOption func(*Executor)

// WithObserver attaches an observer for execution and node lifecycle
// events.
func WithObserver(obs Observer) ExecutorOption {
	return func(e *Executor) { e.observer = obs }
}

// WithLogger sets the logger for per-stage debug lines.
func WithLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = logger }
}

// WithSourceAdapter registers an additional source adapter under the given
// id.
func WithSourceAdapter(id string, a SourceAdapter) ExecutorOption {
	return func(e *Executor) { e.dispatcher.RegisterSource(id, a) }
}

// WithSinkAdapter registers an additional sink adapter under the given id.
func WithSinkAdapter(id string, a SinkAdapter) ExecutorOption {
	return func(e *Executor) { e.dispatcher.RegisterSink(id, a) }
}

// NewExecutor creates an Executor resolving components through the given
// resolver. Panics if resolver is nil.
func NewExecutor(resolver ComponentResolver, opts ...ExecutorOption) *Executor {
	if resolver == nil {
		panic("pipeflow: executor needs a component resolver")
	}
	e := &Executor{
		resolver:   resolver,
		dispatcher: wiring.NewDispatcher(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs one workflow execution. It never returns a Go error: every
// failure is reported inside the result.
func (e *Executor) Execute(ctx context.Context, input *ExecutionInput) *ExecutionResult {
	return engine.Execute(ctx, input, engine.Dependencies{
		Resolver:   e.resolver,
		Dispatcher: e.dispatcher,
		Observer:   e.observer,
		Logger:     e.logger,
	})
}
