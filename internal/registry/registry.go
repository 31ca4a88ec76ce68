// Package registry provides the component lookup the engine's parser
// consumes: component revision metadata plus resolution of revision
// references to registered functions.
//
// Functions cannot be persisted; code modules are always registered
// in-process. Revision metadata can live in memory or in SQLite.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pipewerks/pipeflow/pkg/api"
)

var (
	// ErrRevisionNotFound is returned when a component revision id is
	// unknown.
	ErrRevisionNotFound = errors.New("component revision not found")

	// ErrCodeModuleNotFound is returned when a revision references an
	// unregistered code module.
	ErrCodeModuleNotFound = errors.New("code module not found")

	// ErrFuncNotFound is returned when a code module does not export the
	// referenced function.
	ErrFuncNotFound = errors.New("function not found in code module")
)

// Registry is an in-memory component lookup. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	revisions map[string]*api.ComponentRevision
	modules   map[string]*api.CodeModule
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		revisions: make(map[string]*api.ComponentRevision),
		modules:   make(map[string]*api.CodeModule),
	}
}

// RegisterCodeModule registers a code module, replacing any module with the
// same id.
func (r *Registry) RegisterCodeModule(m *api.CodeModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.ID] = m
}

// RegisterRevision registers a component revision, replacing any revision
// with the same id.
func (r *Registry) RegisterRevision(rev *api.ComponentRevision) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revisions[rev.ID] = rev
}

// ComponentRevision returns the revision with the given id.
func (r *Registry) ComponentRevision(id string) (*api.ComponentRevision, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rev, ok := r.revisions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRevisionNotFound, id)
	}
	return rev, nil
}

// ResolveFunc returns the function the given code module exports under the
// given name.
func (r *Registry) ResolveFunc(codeModuleID, functionName string) (api.ComponentFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return resolveFunc(r.modules, codeModuleID, functionName)
}

func resolveFunc(modules map[string]*api.CodeModule, codeModuleID, functionName string) (api.ComponentFunc, error) {
	m, ok := modules[codeModuleID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCodeModuleNotFound, codeModuleID)
	}
	fn, ok := m.Func(functionName)
	if !ok {
		return nil, fmt.Errorf("%w: %q in module %q", ErrFuncNotFound, functionName, codeModuleID)
	}
	return fn, nil
}
