// Package engine implements demand-driven evaluation of workflow graphs:
// graph parsing, memoized computation nodes, composite workflow nodes, and
// the execution orchestrator.
package engine

import (
	"errors"
	"fmt"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// Sentinel parse-time error kinds. Wrapped inside *ParsingError and matched
// with errors.Is.
var (
	// ErrComponentNotFound: a node references a component revision the
	// resolver does not know.
	ErrComponentNotFound = errors.New("component revision does not exist")

	// ErrFuncLoading: the revision's code module or function name cannot be
	// resolved to a runnable function.
	ErrFuncLoading = errors.New("component function cannot be loaded")

	// ErrNodeNotFound: a connection or boundary mapping references a node id
	// absent from the sub-node list.
	ErrNodeNotFound = errors.New("referenced node does not exist")

	// ErrConnectionInvalid: a connection endpoint does not match the
	// referenced node's IO contract.
	ErrConnectionInvalid = errors.New("connection is invalid")
)

// ParsingError is the root of the parse-time taxonomy. It wraps one of the
// sentinel kinds above (or a cause from a lower layer) and pins the failure
// to a place in the graph description.
type ParsingError struct {
	Message string
	Err     error
}

func (e *ParsingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("workflow parsing failed: %s: %v", e.Message, e.Err)
	}
	return "workflow parsing failed: " + e.Message
}

func (e *ParsingError) Unwrap() error { return e.Err }

func parsingErrf(kind error, format string, args ...any) error {
	return &ParsingError{Message: fmt.Sprintf(format, args...), Err: kind}
}

// RuntimeError is the root of the run-time taxonomy. Kind classifies the
// failure; NodeID/NodeName pin it to the graph node it surfaced at. For
// component failures Code and Extra carry the ComponentError payload.
type RuntimeError struct {
	Kind     api.ErrorKind
	NodeID   string
	NodeName string

	Code  string
	Extra map[string]any

	msg   string
	cause error
}

func (e *RuntimeError) Error() string {
	where := ""
	if e.NodeName != "" {
		where = fmt.Sprintf(" in node %q (%s)", e.NodeName, e.NodeID)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s%s: %s: %v", e.Kind, where, e.msg, e.cause)
	}
	return fmt.Sprintf("%s%s: %s", e.Kind, where, e.msg)
}

func (e *RuntimeError) Unwrap() error { return e.cause }

// Is lets errors.Is match against a bare *RuntimeError carrying only a Kind,
// e.g. errors.Is(err, &RuntimeError{Kind: api.ErrorKindCircularDependency}).
func (e *RuntimeError) Is(target error) bool {
	t, ok := target.(*RuntimeError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.NodeID == "" || t.NodeID == e.NodeID)
}

func missingInputSourceErr(nodeID, nodeName, inputName string) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindMissingInputSource,
		NodeID:   nodeID,
		NodeName: nodeName,
		msg:      fmt.Sprintf("input %q has no source", inputName),
	}
}

func circularDependencyErr(nodeID, nodeName, inputName, outputName, upstreamID, upstreamName string) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindCircularDependency,
		NodeID:   nodeID,
		NodeName: nodeName,
		msg: fmt.Sprintf("input %q demands output %q of node %q (%s), which is already computing",
			inputName, outputName, upstreamName, upstreamID),
	}
}

func missingOutputErr(nodeID, nodeName, outputName string) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindMissingOutput,
		NodeID:   nodeID,
		NodeName: nodeName,
		msg:      fmt.Sprintf("result does not provide output %q", outputName),
	}
}

func componentFailureErr(nodeID, nodeName string, cause *api.ComponentError) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindComponentFailure,
		NodeID:   nodeID,
		NodeName: nodeName,
		Code:     cause.Code,
		Extra:    cause.Extra,
		msg:      "component function failed",
		cause:    cause,
	}
}

func unexpectedFailureErr(nodeID, nodeName string, cause error) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindUnexpectedFailure,
		NodeID:   nodeID,
		NodeName: nodeName,
		msg:      "component function failed unexpectedly",
		cause:    cause,
	}
}

func inputValidationErr(nodeID, nodeName string, cause error) *RuntimeError {
	return &RuntimeError{
		Kind:     api.ErrorKindInputValidation,
		NodeID:   nodeID,
		NodeName: nodeName,
		msg:      "workflow input data does not match the declared kinds",
		cause:    cause,
	}
}
