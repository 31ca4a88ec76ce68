package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the execution engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay graph evaluation.
type Observer interface {
	// OnExecutionStart is called once per Execute call, after the input has
	// been accepted and a job id assigned, before parsing begins.
	OnExecutionStart(ctx context.Context, jobID string)

	// OnExecutionCompleted is called when an execution finishes with a
	// successful result.
	OnExecutionCompleted(ctx context.Context, jobID string, result *ExecutionResult)

	// OnExecutionFailed is called when an execution finishes with a failure
	// result. The structured error is the one attached to the result.
	OnExecutionFailed(ctx context.Context, jobID string, result *ExecutionResult)

	// OnNodeStart is called before a computation node's function runs.
	OnNodeStart(ctx context.Context, jobID, nodeID, nodeName string)

	// OnNodeCompleted is called after a computation node's function returns,
	// for both successes and failures (err != nil).
	OnNodeCompleted(ctx context.Context, jobID, nodeID, nodeName string, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnExecutionStart(ctx context.Context, jobID string)                          {}
func (NoopObserver) OnExecutionCompleted(ctx context.Context, jobID string, r *ExecutionResult)  {}
func (NoopObserver) OnExecutionFailed(ctx context.Context, jobID string, r *ExecutionResult)     {}
func (NoopObserver) OnNodeStart(ctx context.Context, jobID, nodeID, nodeName string)             {}
func (NoopObserver) OnNodeCompleted(ctx context.Context, jobID, nodeID, nodeName string, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnExecutionStart(ctx context.Context, jobID string) {
	for _, o := range c.observers {
		o.OnExecutionStart(ctx, jobID)
	}
}

func (c *CompositeObserver) OnExecutionCompleted(ctx context.Context, jobID string, r *ExecutionResult) {
	for _, o := range c.observers {
		o.OnExecutionCompleted(ctx, jobID, r)
	}
}

func (c *CompositeObserver) OnExecutionFailed(ctx context.Context, jobID string, r *ExecutionResult) {
	for _, o := range c.observers {
		o.OnExecutionFailed(ctx, jobID, r)
	}
}

func (c *CompositeObserver) OnNodeStart(ctx context.Context, jobID, nodeID, nodeName string) {
	for _, o := range c.observers {
		o.OnNodeStart(ctx, jobID, nodeID, nodeName)
	}
}

func (c *CompositeObserver) OnNodeCompleted(ctx context.Context, jobID, nodeID, nodeName string, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnNodeCompleted(ctx, jobID, nodeID, nodeName, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs execution / node lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnExecutionStart(ctx context.Context, jobID string) {
	o.Logger.InfoContext(ctx, "execution_start",
		slog.String("job_id", jobID),
	)
}

func (o *LoggingObserver) OnExecutionCompleted(ctx context.Context, jobID string, r *ExecutionResult) {
	o.Logger.InfoContext(ctx, "execution_completed",
		slog.String("job_id", jobID),
		slog.Int("outputs", len(r.Outputs)),
	)
}

func (o *LoggingObserver) OnExecutionFailed(ctx context.Context, jobID string, r *ExecutionResult) {
	attrs := []any{slog.String("job_id", jobID)}
	if r.Error != nil {
		attrs = append(attrs,
			slog.String("error_kind", string(r.Error.Kind)),
			slog.String("error", r.Error.Message),
			slog.String("stage", r.Error.ProcessStage),
		)
	}
	o.Logger.ErrorContext(ctx, "execution_failed", attrs...)
}

func (o *LoggingObserver) OnNodeStart(ctx context.Context, jobID, nodeID, nodeName string) {
	o.Logger.DebugContext(ctx, "node_start",
		slog.String("job_id", jobID),
		slog.String("node_id", nodeID),
		slog.String("node", nodeName),
	)
}

func (o *LoggingObserver) OnNodeCompleted(ctx context.Context, jobID, nodeID, nodeName string, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "node_completed",
		slog.String("job_id", jobID),
		slog.String("node_id", nodeID),
		slog.String("node", nodeName),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate node durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	executionsStarted   atomic.Int64
	executionsCompleted atomic.Int64
	executionsFailed    atomic.Int64
	nodesCompleted      atomic.Int64
	totalNodeDuration   atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	ExecutionsStarted   int64
	ExecutionsCompleted int64
	ExecutionsFailed    int64
	RunningExecutions   int64

	NodesCompleted  int64
	AvgNodeDuration time.Duration
}

func (m *BasicMetrics) OnExecutionStart(ctx context.Context, jobID string) {
	m.executionsStarted.Add(1)
}

func (m *BasicMetrics) OnExecutionCompleted(ctx context.Context, jobID string, r *ExecutionResult) {
	m.executionsCompleted.Add(1)
}

func (m *BasicMetrics) OnExecutionFailed(ctx context.Context, jobID string, r *ExecutionResult) {
	m.executionsFailed.Add(1)
}

func (m *BasicMetrics) OnNodeCompleted(ctx context.Context, jobID, nodeID, nodeName string, err error, d time.Duration) {
	// Only count successful nodes for average duration.
	if err == nil {
		m.nodesCompleted.Add(1)
		m.totalNodeDuration.Add(d.Nanoseconds())
	}
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.executionsStarted.Load()
	completed := m.executionsCompleted.Load()
	failed := m.executionsFailed.Load()
	nodes := m.nodesCompleted.Load()
	totalNs := m.totalNodeDuration.Load()

	var avg time.Duration
	if nodes > 0 {
		avg = time.Duration(totalNs / nodes)
	}

	return BasicMetricsSnapshot{
		ExecutionsStarted:   started,
		ExecutionsCompleted: completed,
		ExecutionsFailed:    failed,
		RunningExecutions:   started - completed - failed,
		NodesCompleted:      nodes,
		AvgNodeDuration:     avg,
	}
}
