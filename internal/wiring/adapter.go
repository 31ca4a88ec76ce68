// Package wiring loads workflow input data from adapters and sends output
// data to them, batching per adapter. The only built-in adapter is direct
// provisioning: values travel inside the wiring and the result.
package wiring

import (
	"context"
	"errors"
	"fmt"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// ErrAdapterUnknown is returned when a wiring references an adapter id no
// adapter is registered for.
var ErrAdapterUnknown = errors.New("unknown adapter")

// AdapterError wraps a failure of one adapter during load or send.
type AdapterError struct {
	AdapterID string
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter %q: %v", e.AdapterID, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// SourceAdapter loads data for a batch of input wirings that share the
// adapter. The result is keyed by workflow input name.
type SourceAdapter interface {
	LoadData(ctx context.Context, wirings []api.InputWiring) (map[string]any, error)
}

// SinkAdapter sends output values for a batch of output wirings that share
// the adapter. It returns the subset of values to hand back to the caller
// instead of sending them anywhere; only direct provisioning uses this.
type SinkAdapter interface {
	SendData(ctx context.Context, wirings []api.OutputWiring, values map[string]any) (map[string]any, error)
}

// DirectAdapter implements direct provisioning: input values are embedded in
// the wiring filters under "value", output values are returned to the
// caller.
type DirectAdapter struct{}

// directValueFilter is the filter key carrying the embedded input value.
const directValueFilter = "value"

func (DirectAdapter) LoadData(ctx context.Context, wirings []api.InputWiring) (map[string]any, error) {
	data := make(map[string]any, len(wirings))
	for _, w := range wirings {
		v, ok := w.Filters[directValueFilter]
		if !ok {
			return nil, fmt.Errorf("input %q carries no %q filter", w.WorkflowInputName, directValueFilter)
		}
		data[w.WorkflowInputName] = v
	}
	return data, nil
}

func (DirectAdapter) SendData(ctx context.Context, wirings []api.OutputWiring, values map[string]any) (map[string]any, error) {
	direct := make(map[string]any, len(wirings))
	for _, w := range wirings {
		v, ok := values[w.WorkflowOutputName]
		if !ok {
			return nil, fmt.Errorf("no value produced for output %q", w.WorkflowOutputName)
		}
		direct[w.WorkflowOutputName] = v
	}
	return direct, nil
}
