package api

import "fmt"

// DirectProvisioningAdapterID is the built-in adapter: input values are
// embedded in the wiring itself and output values are handed back to the
// caller with the execution result.
const DirectProvisioningAdapterID = "direct_provisioning"

// InputWiring binds one dynamic workflow input to a data source behind an
// adapter. For direct provisioning the raw value sits in Filters under
// "value".
type InputWiring struct {
	WorkflowInputName string         `json:"workflow_input_name"`
	AdapterID         string         `json:"adapter_id"`
	RefID             string         `json:"ref_id,omitempty"`
	Filters           map[string]any `json:"filters,omitempty"`
}

// OutputWiring binds one workflow output to a data sink behind an adapter.
type OutputWiring struct {
	WorkflowOutputName string         `json:"workflow_output_name"`
	AdapterID          string         `json:"adapter_id"`
	RefID              string         `json:"ref_id,omitempty"`
	Filters            map[string]any `json:"filters,omitempty"`
}

// WorkflowWiring binds the exposed inputs and outputs of a workflow to
// adapters for one execution.
type WorkflowWiring struct {
	InputWirings  []InputWiring  `json:"input_wirings"`
	OutputWirings []OutputWiring `json:"output_wirings"`
}

// WiringValidationError reports an incomplete or contradictory wiring.
type WiringValidationError struct {
	Message string
}

func (e *WiringValidationError) Error() string {
	return "invalid wiring: " + e.Message
}

// Validate checks the wiring against the workflow it is meant to drive:
// every dynamic input without a default must be wired exactly once, and no
// wiring may name an input or output the workflow does not expose.
func (w *WorkflowWiring) Validate(wf *WorkflowNode) error {
	dynamic := make(map[string]bool)
	for _, in := range wf.DynamicInputs() {
		dynamic[in.Name] = true
	}
	optional := make(map[string]bool)
	for _, in := range wf.Inputs {
		if !in.Constant && in.HasDefault {
			optional[in.Name] = true
		}
	}
	wired := make(map[string]bool)
	for _, iw := range w.InputWirings {
		if wired[iw.WorkflowInputName] {
			return &WiringValidationError{Message: fmt.Sprintf("input %q wired more than once", iw.WorkflowInputName)}
		}
		wired[iw.WorkflowInputName] = true
		if !dynamic[iw.WorkflowInputName] && !optional[iw.WorkflowInputName] {
			return &WiringValidationError{Message: fmt.Sprintf("wiring references unknown workflow input %q", iw.WorkflowInputName)}
		}
	}
	for name := range dynamic {
		if !wired[name] {
			return &WiringValidationError{Message: fmt.Sprintf("workflow input %q is not wired", name)}
		}
	}

	outputs := make(map[string]bool, len(wf.Outputs))
	for _, out := range wf.Outputs {
		outputs[out.Name] = true
	}
	seen := make(map[string]bool)
	for _, ow := range w.OutputWirings {
		if seen[ow.WorkflowOutputName] {
			return &WiringValidationError{Message: fmt.Sprintf("output %q wired more than once", ow.WorkflowOutputName)}
		}
		seen[ow.WorkflowOutputName] = true
		if !outputs[ow.WorkflowOutputName] {
			return &WiringValidationError{Message: fmt.Sprintf("wiring references unknown workflow output %q", ow.WorkflowOutputName)}
		}
	}
	return nil
}

// CompleteOutputWirings adds a direct-provisioning wiring for every workflow
// output the wiring does not mention, so that unbound outputs are returned
// to the caller instead of being dropped.
func (w *WorkflowWiring) CompleteOutputWirings(wf *WorkflowNode) {
	seen := make(map[string]bool, len(w.OutputWirings))
	for _, ow := range w.OutputWirings {
		seen[ow.WorkflowOutputName] = true
	}
	for _, out := range wf.Outputs {
		if !seen[out.Name] {
			w.OutputWirings = append(w.OutputWirings, OutputWiring{
				WorkflowOutputName: out.Name,
				AdapterID:          DirectProvisioningAdapterID,
			})
		}
	}
}
