package registry

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/pipewerks/pipeflow/pkg/api"
)

func newSQLiteRegistry(t *testing.T) *SQLiteRegistry {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r, err := NewSQLiteRegistry(db)
	require.NoError(t, err)
	return r
}

func TestSQLiteRegistryRoundTrip(t *testing.T) {
	r := newSQLiteRegistry(t)
	r.RegisterCodeModule(testModule())
	require.NoError(t, r.SaveRevision(testRevision()))

	rev, err := r.ComponentRevision("rev-1")
	require.NoError(t, err)
	assert.Equal(t, "Noop", rev.Name)
	assert.Equal(t, []api.IODescriptor{{Name: "ok", Kind: api.KindBoolean}}, rev.Outputs)

	fn, err := r.ResolveFunc(rev.CodeModuleID, rev.FunctionName)
	require.NoError(t, err)
	out, err := fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
}

func TestSQLiteRegistrySaveReplaces(t *testing.T) {
	r := newSQLiteRegistry(t)
	require.NoError(t, r.SaveRevision(testRevision()))

	updated := testRevision()
	updated.Name = "Renamed"
	require.NoError(t, r.SaveRevision(updated))

	rev, err := r.ComponentRevision("rev-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", rev.Name)
}

func TestSQLiteRegistryUnknownRevision(t *testing.T) {
	r := newSQLiteRegistry(t)
	_, err := r.ComponentRevision("ghost")
	assert.ErrorIs(t, err, ErrRevisionNotFound)
}

func TestSQLiteRegistryListRevisions(t *testing.T) {
	r := newSQLiteRegistry(t)

	first := testRevision()
	second := testRevision()
	second.ID = "rev-2"
	second.Tag = "2.0.0"
	other := testRevision()
	other.ID = "other-1"
	other.RevisionGroupID = "other"

	require.NoError(t, r.SaveRevision(first))
	require.NoError(t, r.SaveRevision(second))
	require.NoError(t, r.SaveRevision(other))

	revs, err := r.ListRevisions("rev")
	require.NoError(t, err)
	require.Len(t, revs, 2)
	assert.Equal(t, "1.0.0", revs[0].Tag)
	assert.Equal(t, "2.0.0", revs[1].Tag)

	all, err := r.ListRevisions("")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
