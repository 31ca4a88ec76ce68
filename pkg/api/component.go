package api

import "context"

// ComponentFunc is the callable convention for component business logic.
//
// Inputs arrive as a map keyed by the revision's declared input names, each
// value already parsed into its canonical in-memory representation. The
// returned map is keyed by output name. A nil map is a valid empty result.
//
// Funcs that block (I/O, sleeps) should honor ctx cancellation; pure funcs
// may ignore it. Callers cannot tell the difference.
type ComponentFunc func(ctx context.Context, inputs map[string]any) (map[string]any, error)

// IODescriptor declares one input or output of a component revision.
type IODescriptor struct {
	Name string `json:"name"`
	Kind Kind   `json:"type"`

	// HasDefault marks an input as optional. DefaultValue is its raw default,
	// parsed through the value model when the graph is built.
	HasDefault   bool `json:"has_default,omitempty"`
	DefaultValue any  `json:"default_value,omitempty"`
}

// ComponentRevision is an immutable, versioned description of a component:
// its IO contract plus a reference to the function implementing it.
type ComponentRevision struct {
	ID              string `json:"id"`
	RevisionGroupID string `json:"revision_group_id"`
	Name            string `json:"name"`
	Tag             string `json:"tag"`

	Inputs  []IODescriptor `json:"inputs"`
	Outputs []IODescriptor `json:"outputs"`

	// CodeModuleID and FunctionName locate the ComponentFunc within a
	// registered code module.
	CodeModuleID string `json:"code_module_id"`
	FunctionName string `json:"function_name"`
}

// RequiredInputNames returns the names of all inputs without a default,
// i.e. the parameters every node instance of this revision must have a
// source for.
func (r *ComponentRevision) RequiredInputNames() []string {
	var names []string
	for _, in := range r.Inputs {
		if !in.HasDefault {
			names = append(names, in.Name)
		}
	}
	return names
}

// InputByName returns the descriptor of the named input.
func (r *ComponentRevision) InputByName(name string) (IODescriptor, bool) {
	for _, in := range r.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return IODescriptor{}, false
}

// OutputByName returns the descriptor of the named output.
func (r *ComponentRevision) OutputByName(name string) (IODescriptor, bool) {
	for _, out := range r.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return IODescriptor{}, false
}

// OnlyPlotOutputs reports whether the revision has at least one output and
// all of them are PLOTLYJSON. Such components exist purely for visualization
// and can be skipped when plots are not needed.
func (r *ComponentRevision) OnlyPlotOutputs() bool {
	if len(r.Outputs) == 0 {
		return false
	}
	for _, out := range r.Outputs {
		if out.Kind != KindPlotlyJSON {
			return false
		}
	}
	return true
}

// CodeModule is a process-registered bundle of named component functions.
// Revisions reference a code module id plus a function name.
type CodeModule struct {
	ID    string
	Funcs map[string]ComponentFunc
}

// Func returns the named function of the module.
func (m *CodeModule) Func(name string) (ComponentFunc, bool) {
	fn, ok := m.Funcs[name]
	return fn, ok
}
