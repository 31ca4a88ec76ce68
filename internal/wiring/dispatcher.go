package wiring

import (
	"context"
	"sort"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// Dispatcher routes wirings to registered adapters, one batch per adapter.
// The direct-provisioning adapter is always registered.
type Dispatcher struct {
	sources map[string]SourceAdapter
	sinks   map[string]SinkAdapter
}

// NewDispatcher creates a Dispatcher with the direct-provisioning adapter
// registered on both sides.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		sources: make(map[string]SourceAdapter),
		sinks:   make(map[string]SinkAdapter),
	}
	d.RegisterSource(api.DirectProvisioningAdapterID, DirectAdapter{})
	d.RegisterSink(api.DirectProvisioningAdapterID, DirectAdapter{})
	return d
}

// RegisterSource registers a source adapter under the given id, replacing
// any previous registration.
func (d *Dispatcher) RegisterSource(id string, a SourceAdapter) {
	d.sources[id] = a
}

// RegisterSink registers a sink adapter under the given id, replacing any
// previous registration.
func (d *Dispatcher) RegisterSink(id string, a SinkAdapter) {
	d.sinks[id] = a
}

// Load fetches data for all input wirings, batched per adapter, and merges
// the results into one map keyed by workflow input name. Adapters are
// consulted in deterministic id order.
func (d *Dispatcher) Load(ctx context.Context, wirings []api.InputWiring) (map[string]any, error) {
	batches := make(map[string][]api.InputWiring)
	for _, w := range wirings {
		batches[w.AdapterID] = append(batches[w.AdapterID], w)
	}
	merged := make(map[string]any, len(wirings))
	for _, id := range sortedKeys(batches) {
		adapter, ok := d.sources[id]
		if !ok {
			return nil, &AdapterError{AdapterID: id, Err: ErrAdapterUnknown}
		}
		data, err := adapter.LoadData(ctx, batches[id])
		if err != nil {
			return nil, &AdapterError{AdapterID: id, Err: err}
		}
		for name, v := range data {
			merged[name] = v
		}
	}
	return merged, nil
}

// Send delivers output values to all output wirings, batched per adapter.
// It returns the values routed through direct provisioning, keyed by
// workflow output name.
func (d *Dispatcher) Send(ctx context.Context, wirings []api.OutputWiring, values map[string]any) (map[string]any, error) {
	batches := make(map[string][]api.OutputWiring)
	for _, w := range wirings {
		batches[w.AdapterID] = append(batches[w.AdapterID], w)
	}
	direct := make(map[string]any)
	for _, id := range sortedKeys(batches) {
		adapter, ok := d.sinks[id]
		if !ok {
			return nil, &AdapterError{AdapterID: id, Err: ErrAdapterUnknown}
		}
		returned, err := adapter.SendData(ctx, batches[id], values)
		if err != nil {
			return nil, &AdapterError{AdapterID: id, Err: err}
		}
		for name, v := range returned {
			direct[name] = v
		}
	}
	return direct, nil
}

func sortedKeys[B any](m map[string]B) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
