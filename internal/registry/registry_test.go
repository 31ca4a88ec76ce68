package registry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipewerks/pipeflow/pkg/api"
)

func testModule() *api.CodeModule {
	return &api.CodeModule{
		ID: "mod",
		Funcs: map[string]api.ComponentFunc{
			"noop": func(ctx context.Context, _ map[string]any) (map[string]any, error) {
				return map[string]any{"ok": true}, nil
			},
		},
	}
}

func testRevision() *api.ComponentRevision {
	return &api.ComponentRevision{
		ID:              "rev-1",
		RevisionGroupID: "rev",
		Name:            "Noop",
		Tag:             "1.0.0",
		Outputs:         []api.IODescriptor{{Name: "ok", Kind: api.KindBoolean}},
		CodeModuleID:    "mod",
		FunctionName:    "noop",
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := New()
	r.RegisterCodeModule(testModule())
	r.RegisterRevision(testRevision())

	rev, err := r.ComponentRevision("rev-1")
	require.NoError(t, err)
	assert.Equal(t, "Noop", rev.Name)

	fn, err := r.ResolveFunc(rev.CodeModuleID, rev.FunctionName)
	require.NoError(t, err)
	out, err := fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}

func TestRegistryUnknownRevision(t *testing.T) {
	r := New()
	_, err := r.ComponentRevision("ghost")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestRegistryUnknownModule(t *testing.T) {
	r := New()
	_, err := r.ResolveFunc("ghost", "noop")
	assert.ErrorIs(t, err, ErrCodeModuleNotFound)
}

func TestRegistryUnknownFunc(t *testing.T) {
	r := New()
	r.RegisterCodeModule(testModule())
	_, err := r.ResolveFunc("mod", "ghost")
	assert.ErrorIs(t, err, ErrFuncNotFound)
}
