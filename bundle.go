package pipeflow

import (
	"database/sql"
)

// RegistryBundle wires together a SQLite-backed component registry and an
// Executor resolving through it. Revision metadata survives restarts; code
// modules register in-process after each start.
type RegistryBundle struct {
	Registry *SQLiteRegistry
	Executor *Executor
}

// NewSQLiteBundle constructs a durable Registry + Executor combo on the
// provided SQLite database.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:pipeflow.db?_journal=WAL")
//	bundle, err := pipeflow.NewSQLiteBundle(db)
//	// register code modules and revisions on bundle.Registry
//	// run executions via bundle.Executor
func NewSQLiteBundle(db *sql.DB, opts ...ExecutorOption) (*RegistryBundle, error) {
	reg, err := NewSQLiteRegistry(db)
	if err != nil {
		return nil, err
	}
	return &RegistryBundle{
		Registry: reg,
		Executor: NewExecutor(reg, opts...),
	}, nil
}
