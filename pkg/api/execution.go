package api

import "time"

// Configuration tunes one execution run. The zero value gives the default
// behavior: pure plot components are evaluated and per-node results are not
// collected.
type Configuration struct {
	// SkipPurePlotOperators replaces the results of components whose outputs
	// are all PLOTLYJSON with empty maps instead of running them.
	SkipPurePlotOperators bool `json:"skip_pure_plot_operators,omitempty"`

	// ReturnIndividualNodeResults adds a human-readable per-node result
	// listing to the execution result.
	ReturnIndividualNodeResults bool `json:"return_individual_node_results,omitempty"`
}

// ExecutionInput is everything one Execute call needs: the graph, the wiring
// binding its boundary to data, and the run configuration.
type ExecutionInput struct {
	Workflow *WorkflowNode   `json:"workflow"`
	Wiring   *WorkflowWiring `json:"wiring"`

	// JobID identifies the run in logs and results. Assigned by the engine
	// when empty.
	JobID string `json:"job_id,omitempty"`

	Configuration Configuration `json:"configuration"`
}

// Outcome is the overall verdict of an execution.
type Outcome string

const (
	OutcomeOK      Outcome = "ok"
	OutcomeFailure Outcome = "failure"
)

// Process stage names used in MeasuredStep and StructuredError.ProcessStage.
const (
	StageParsingWorkflow    = "PARSING_WORKFLOW"
	StageLoadingData        = "LOADING_DATA_FROM_ADAPTERS"
	StageParsingLoadedData  = "PARSING_LOADED_WORKFLOW_DATA"
	StageExecutingComponent = "EXECUTING_COMPONENT_CODE"
	StageSendingData        = "SENDING_DATA_TO_ADAPTERS"
	StageEncodingResults    = "ENCODING_RESULTS_TO_JSON"
)

// MeasuredStep records the wall-clock span of one orchestration stage.
type MeasuredStep struct {
	Name     string        `json:"name"`
	Begin    time.Time     `json:"begin"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`
}

// ExecutionResult is the always-structured outcome of an Execute call.
// Failures never surface as Go errors from the orchestrator; they appear
// here as Outcome == OutcomeFailure plus a StructuredError.
type ExecutionResult struct {
	Outcome Outcome `json:"result"`
	JobID   string  `json:"job_id"`

	// Outputs holds the serialized value of every workflow output wired to
	// direct provisioning, keyed by output name. Empty on failure.
	Outputs map[string]any `json:"output_results_by_output_name"`

	// NodeResults is the optional per-node diagnostic listing, one line per
	// evaluated node.
	NodeResults string `json:"node_results,omitempty"`

	Error *StructuredError `json:"error,omitempty"`

	MeasuredSteps []MeasuredStep `json:"measured_steps,omitempty"`
}

// OK reports whether the execution succeeded.
func (r *ExecutionResult) OK() bool { return r.Outcome == OutcomeOK }
