package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qbank/internal/domain/repositories"
)

// PostgresClosureIndex implements the ClosureIndex interface
type PostgresClosureIndex struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewClosureIndex creates a new postgres closure index
func NewClosureIndex(config *RepositoryConfig) repositories.ClosureIndex {
	return &PostgresClosureIndex{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Insert adds the given rows
func (r *PostgresClosureIndex) Insert(ctx context.Context, rows []repositories.ClosureRow) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (ancestor_id, descendant_id, depth)
		VALUES ($1, $2, $3)
		ON CONFLICT (ancestor_id, descendant_id) DO UPDATE SET depth = EXCLUDED.depth
	`, r.tables.Closure)

	executor := GetExecutor(ctx, r.pool)
	for _, row := range rows {
		if _, err := executor.Exec(ctx, query, row.AncestorID, row.DescendantID, row.Depth); err != nil {
			return fmt.Errorf("insert closure row: %w", err)
		}
	}
	return nil
}

// Ancestors returns all rows above the given descendant, root first
func (r *PostgresClosureIndex) Ancestors(ctx context.Context, id string) ([]repositories.ClosureRow, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_id, descendant_id, depth
		FROM %s
		WHERE descendant_id = $1 AND depth > 0
		ORDER BY depth DESC
	`, r.tables.Closure)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("list ancestors: %w", err)
	}
	return collectClosureRows(rows)
}

// Descendants returns all rows below the given ancestor including the
// self row, nearest first. maxDepth <= 0 means unbounded.
func (r *PostgresClosureIndex) Descendants(ctx context.Context, id string, maxDepth int) ([]repositories.ClosureRow, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_id, descendant_id, depth
		FROM %s
		WHERE ancestor_id = $1 AND ($2 <= 0 OR depth <= $2)
		ORDER BY depth ASC, descendant_id ASC
	`, r.tables.Closure)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, id, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("list descendants: %w", err)
	}
	return collectClosureRows(rows)
}

// DetachSubtree removes every row linking a member of id's subtree to
// an ancestor outside the subtree
func (r *PostgresClosureIndex) DetachSubtree(ctx context.Context, id string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE descendant_id IN (SELECT descendant_id FROM %s WHERE ancestor_id = $1)
		  AND ancestor_id NOT IN (SELECT descendant_id FROM %s WHERE ancestor_id = $1)
	`, r.tables.Closure, r.tables.Closure, r.tables.Closure)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id); err != nil {
		return fmt.Errorf("detach closure subtree: %w", err)
	}
	return nil
}

// AttachSubtree links every member of id's subtree to parentID and all
// of parentID's ancestors
func (r *PostgresClosureIndex) AttachSubtree(ctx context.Context, id string, parentID *string) error {
	if parentID == nil {
		return nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (ancestor_id, descendant_id, depth)
		SELECT sup.ancestor_id, sub.descendant_id, sup.depth + sub.depth + 1
		FROM %s sup
		CROSS JOIN %s sub
		WHERE sup.descendant_id = $1 AND sub.ancestor_id = $2
		ON CONFLICT (ancestor_id, descendant_id) DO UPDATE SET depth = EXCLUDED.depth
	`, r.tables.Closure, r.tables.Closure, r.tables.Closure)

	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, *parentID, id); err != nil {
		return fmt.Errorf("attach closure subtree: %w", err)
	}
	return nil
}

// All returns every stored row
func (r *PostgresClosureIndex) All(ctx context.Context) ([]repositories.ClosureRow, error) {
	query := fmt.Sprintf(`
		SELECT ancestor_id, descendant_id, depth
		FROM %s
		ORDER BY ancestor_id ASC, descendant_id ASC
	`, r.tables.Closure)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list closure rows: %w", err)
	}
	return collectClosureRows(rows)
}

// Replace atomically swaps the entire index for the given rows
func (r *PostgresClosureIndex) Replace(ctx context.Context, rows []repositories.ClosureRow) error {
	executor := GetExecutor(ctx, r.pool)

	if _, err := executor.Exec(ctx, fmt.Sprintf("DELETE FROM %s", r.tables.Closure)); err != nil {
		return fmt.Errorf("clear closure rows: %w", err)
	}
	return r.Insert(ctx, rows)
}

func collectClosureRows(rows pgx.Rows) ([]repositories.ClosureRow, error) {
	defer rows.Close()

	var result []repositories.ClosureRow
	for rows.Next() {
		var row repositories.ClosureRow
		if err := rows.Scan(&row.AncestorID, &row.DescendantID, &row.Depth); err != nil {
			return nil, fmt.Errorf("scan closure row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate closure rows: %w", err)
	}
	return result, nil
}
