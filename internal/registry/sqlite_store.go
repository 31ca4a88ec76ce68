package registry

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/pipewerks/pipeflow/pkg/api"
)

// SQLiteRegistry is a component lookup whose revision metadata is persisted
// in SQLite. Code modules still register in-process; only their metadata
// reference (module id, function name) is stored.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRegistry struct {
	db *sql.DB

	mu      sync.RWMutex
	modules map[string]*api.CodeModule
}

// NewSQLiteRegistry initializes the required schema in the given database
// and returns a new SQLiteRegistry.
func NewSQLiteRegistry(db *sql.DB) (*SQLiteRegistry, error) {
	r := &SQLiteRegistry{
		db:      db,
		modules: make(map[string]*api.CodeModule),
	}
	if err := r.initSchema(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRegistry) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS component_revisions (
			id TEXT PRIMARY KEY,
			revision_group_id TEXT NOT NULL,
			name TEXT NOT NULL,
			tag TEXT NOT NULL,
			document BLOB NOT NULL
		);`,
	)
	return err
}

// SaveRevision stores a revision, replacing any revision with the same id.
func (r *SQLiteRegistry) SaveRevision(rev *api.ComponentRevision) error {
	doc, err := json.Marshal(rev)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		INSERT INTO component_revisions (id, revision_group_id, name, tag, document)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			revision_group_id = excluded.revision_group_id,
			name = excluded.name,
			tag = excluded.tag,
			document = excluded.document`,
		rev.ID,
		rev.RevisionGroupID,
		rev.Name,
		rev.Tag,
		doc,
	)
	return err
}

// ComponentRevision returns the revision with the given id.
func (r *SQLiteRegistry) ComponentRevision(id string) (*api.ComponentRevision, error) {
	row := r.db.QueryRow(`
		SELECT document
		FROM component_revisions
		WHERE id = ?`,
		id,
	)
	var doc []byte
	if err := row.Scan(&doc); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %q", ErrRevisionNotFound, id)
		}
		return nil, err
	}
	var rev api.ComponentRevision
	if err := json.Unmarshal(doc, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// ListRevisions returns all revisions of one revision group, every group
// when groupID is empty.
func (r *SQLiteRegistry) ListRevisions(groupID string) ([]*api.ComponentRevision, error) {
	query := `SELECT document FROM component_revisions ORDER BY revision_group_id, tag`
	args := []any{}
	if groupID != "" {
		query = `SELECT document FROM component_revisions WHERE revision_group_id = ? ORDER BY tag`
		args = append(args, groupID)
	}
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []*api.ComponentRevision
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var rev api.ComponentRevision
		if err := json.Unmarshal(doc, &rev); err != nil {
			return nil, err
		}
		revs = append(revs, &rev)
	}
	return revs, rows.Err()
}

// RegisterCodeModule registers a code module in-process, replacing any
// module with the same id.
func (r *SQLiteRegistry) RegisterCodeModule(m *api.CodeModule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.ID] = m
}

// ResolveFunc returns the function the given code module exports under the
// given name.
func (r *SQLiteRegistry) ResolveFunc(codeModuleID, functionName string) (api.ComponentFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return resolveFunc(r.modules, codeModuleID, functionName)
}
