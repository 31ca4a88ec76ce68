package api

import "fmt"

// ComponentError is the error component functions return to signal a
// business-level failure. The engine distinguishes it from unexpected
// failures (panics, programming errors) in the structured result.
type ComponentError struct {
	// Message describes the failure for humans.
	Message string
	// Code is an optional machine-readable error code.
	Code string
	// Extra carries optional JSON-compatible diagnostic payload.
	Extra map[string]any
}

func (e *ComponentError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (code %s)", e.Message, e.Code)
	}
	return e.Message
}

// NewComponentError creates a ComponentError with just a message.
func NewComponentError(format string, args ...any) *ComponentError {
	return &ComponentError{Message: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies a structured execution error.
type ErrorKind string

const (
	ErrorKindParsing             ErrorKind = "PARSING"
	ErrorKindInputValidation     ErrorKind = "INPUT_VALIDATION"
	ErrorKindMissingInputSource  ErrorKind = "MISSING_INPUT_SOURCE"
	ErrorKindCircularDependency  ErrorKind = "CIRCULAR_DEPENDENCY"
	ErrorKindMissingOutput       ErrorKind = "MISSING_OUTPUT"
	ErrorKindComponentFailure    ErrorKind = "COMPONENT_FAILURE"
	ErrorKindAdapter             ErrorKind = "ADAPTER_HANDLING"
	ErrorKindUnexpectedFailure   ErrorKind = "UNEXPECTED_FAILURE"
	ErrorKindOutputSerialization ErrorKind = "OUTPUT_SERIALIZATION"
)

// StructuredError is the failure description attached to an ExecutionResult.
// It pins the failure to a node and a process stage where applicable.
type StructuredError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`

	OperatorID   string `json:"operator_id,omitempty"`
	OperatorName string `json:"operator_name,omitempty"`

	// ErrorCode and ExtraInformation are populated from ComponentError.
	ErrorCode        string         `json:"error_code,omitempty"`
	ExtraInformation map[string]any `json:"extra_information,omitempty"`

	// ProcessStage names the orchestration stage the failure occurred in,
	// e.g. "PARSING_WORKFLOW" or "EXECUTING_COMPONENT_CODE".
	ProcessStage string `json:"process_stage,omitempty"`
}

func (e *StructuredError) Error() string {
	if e.OperatorName != "" {
		return fmt.Sprintf("%s in node %q: %s", e.Kind, e.OperatorName, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}
