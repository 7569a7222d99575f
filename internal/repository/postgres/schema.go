package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the node and closure tables if they don't exist.
// Called from the maintenance CLI and the integration test harness.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames, tablePrefix string) error {
	createNodes := `
		CREATE TABLE IF NOT EXISTS ` + tables.Nodes + ` (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL,
			parent_id UUID REFERENCES ` + tables.Nodes + `(id),
			path TEXT NOT NULL,
			order_index INTEGER NOT NULL,
			depth INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_by TEXT NOT NULL,
			modified_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			modified_by TEXT NOT NULL,
			deleted_at TIMESTAMPTZ,
			deleted_by TEXT
		)
	`
	if _, err := pool.Exec(ctx, createNodes); err != nil {
		return fmt.Errorf("create nodes table: %w", err)
	}

	createClosure := `
		CREATE TABLE IF NOT EXISTS ` + tables.Closure + ` (
			ancestor_id UUID NOT NULL,
			descendant_id UUID NOT NULL,
			depth INTEGER NOT NULL,
			PRIMARY KEY (ancestor_id, descendant_id)
		)
	`
	if _, err := pool.Exec(ctx, createClosure); err != nil {
		return fmt.Errorf("create closure table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `nodes_parent ON ` + tables.Nodes + `(parent_id, order_index)`,
		// Sibling uniqueness is case-insensitive; two partial indexes
		// because NULL parents never collide in a plain unique index.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `nodes_sibling_name ON ` + tables.Nodes + `(parent_id, LOWER(name)) WHERE parent_id IS NOT NULL AND state <> 'deleted'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `nodes_root_name ON ` + tables.Nodes + `(LOWER(name)) WHERE parent_id IS NULL AND state <> 'deleted'`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `closure_descendant ON ` + tables.Closure + `(descendant_id)`,
	}
	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}

	return nil
}

// DropSchema drops the engine's tables. Guarded against production use
// by the CLI.
func DropSchema(ctx context.Context, pool *pgxpool.Pool, tables *TableNames) error {
	for _, table := range []string{tables.Closure, tables.Nodes} {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE"); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return nil
}
