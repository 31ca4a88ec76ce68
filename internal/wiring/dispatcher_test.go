package wiring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewerks/pipeflow/pkg/api"
)

func directInput(name string, value any) api.InputWiring {
	return api.InputWiring{
		WorkflowInputName: name,
		AdapterID:         api.DirectProvisioningAdapterID,
		Filters:           map[string]any{"value": value},
	}
}

func TestDispatcherLoadDirect(t *testing.T) {
	d := NewDispatcher()
	data, err := d.Load(context.Background(), []api.InputWiring{
		directInput("a", 1.0),
		directInput("b", "two"),
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1.0, "b": "two"}, data)
}

func TestDispatcherLoadDirectMissingValue(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Load(context.Background(), []api.InputWiring{
		{WorkflowInputName: "a", AdapterID: api.DirectProvisioningAdapterID},
	})
	var ae *AdapterError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, api.DirectProvisioningAdapterID, ae.AdapterID)
}

func TestDispatcherUnknownAdapter(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Load(context.Background(), []api.InputWiring{
		{WorkflowInputName: "a", AdapterID: "ghost"},
	})
	assert.ErrorIs(t, err, ErrAdapterUnknown)

	_, err = d.Send(context.Background(), []api.OutputWiring{
		{WorkflowOutputName: "a", AdapterID: "ghost"},
	}, map[string]any{"a": 1})
	assert.ErrorIs(t, err, ErrAdapterUnknown)
}

func TestDispatcherSendDirectReturnsValues(t *testing.T) {
	d := NewDispatcher()
	direct, err := d.Send(context.Background(), []api.OutputWiring{
		{WorkflowOutputName: "x", AdapterID: api.DirectProvisioningAdapterID},
	}, map[string]any{"x": 42, "hidden": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": 42}, direct)
}

func TestDispatcherSendDirectMissingValue(t *testing.T) {
	d := NewDispatcher()
	_, err := d.Send(context.Background(), []api.OutputWiring{
		{WorkflowOutputName: "x", AdapterID: api.DirectProvisioningAdapterID},
	}, map[string]any{})
	require.Error(t, err)
}

// batchAdapter records which wirings it was handed, to verify per-adapter
// batching.
type batchAdapter struct {
	loads [][]api.InputWiring
	sends [][]api.OutputWiring
}

func (a *batchAdapter) LoadData(ctx context.Context, wirings []api.InputWiring) (map[string]any, error) {
	a.loads = append(a.loads, wirings)
	out := make(map[string]any, len(wirings))
	for _, w := range wirings {
		out[w.WorkflowInputName] = w.RefID
	}
	return out, nil
}

func (a *batchAdapter) SendData(ctx context.Context, wirings []api.OutputWiring, values map[string]any) (map[string]any, error) {
	a.sends = append(a.sends, wirings)
	return nil, nil
}

func TestDispatcherBatchesPerAdapter(t *testing.T) {
	custom := &batchAdapter{}
	d := NewDispatcher()
	d.RegisterSource("custom", custom)

	data, err := d.Load(context.Background(), []api.InputWiring{
		{WorkflowInputName: "a", AdapterID: "custom", RefID: "ref-a"},
		directInput("b", 2.0),
		{WorkflowInputName: "c", AdapterID: "custom", RefID: "ref-c"},
	})
	require.NoError(t, err)

	// Both custom wirings arrive in one batch.
	require.Len(t, custom.loads, 1)
	assert.Len(t, custom.loads[0], 2)
	assert.Equal(t, map[string]any{"a": "ref-a", "b": 2.0, "c": "ref-c"}, data)
}

func TestDispatcherSinkBatching(t *testing.T) {
	custom := &batchAdapter{}
	d := NewDispatcher()
	d.RegisterSink("custom", custom)

	direct, err := d.Send(context.Background(), []api.OutputWiring{
		{WorkflowOutputName: "x", AdapterID: "custom"},
		{WorkflowOutputName: "y", AdapterID: api.DirectProvisioningAdapterID},
		{WorkflowOutputName: "z", AdapterID: "custom"},
	}, map[string]any{"x": 1, "y": 2, "z": 3})
	require.NoError(t, err)

	require.Len(t, custom.sends, 1)
	assert.Len(t, custom.sends[0], 2)
	// Only the direct-provisioning output comes back.
	assert.Equal(t, map[string]any{"y": 2}, direct)
}
