package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/repositories"
)

// PostgresNodeStore implements the NodeStore interface
type PostgresNodeStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewNodeStore creates a new postgres node store
func NewNodeStore(config *RepositoryConfig) repositories.NodeStore {
	return &PostgresNodeStore{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const nodeColumns = `id, name, parent_id, path, order_index, depth, state,
	created_at, created_by, modified_at, modified_by, deleted_at, deleted_by`

func scanNode(row pgx.Row) (*models.Node, error) {
	var node models.Node
	err := row.Scan(
		&node.ID,
		&node.Name,
		&node.ParentID,
		&node.Path,
		&node.OrderIndex,
		&node.Depth,
		&node.State,
		&node.CreatedAt,
		&node.CreatedBy,
		&node.ModifiedAt,
		&node.ModifiedBy,
		&node.DeletedAt,
		&node.DeletedBy,
	)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func (r *PostgresNodeStore) collectNodes(rows pgx.Rows) ([]models.Node, error) {
	defer rows.Close()

	var nodes []models.Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, *node)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

// Create persists a new node
func (r *PostgresNodeStore) Create(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.tables.Nodes, nodeColumns)

	_, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		node.ID,
		node.Name,
		node.ParentID,
		node.Path,
		node.OrderIndex,
		node.Depth,
		node.State,
		node.CreatedAt,
		node.CreatedBy,
		node.ModifiedAt,
		node.ModifiedBy,
		node.DeletedAt,
		node.DeletedBy,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.DuplicateNameError{Name: node.Name, ParentID: node.ParentID, SiblingID: ""}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("parent of node %s: %w", node.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

// Get retrieves a node by id in any state
func (r *PostgresNodeStore) Get(ctx context.Context, id string) (*models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, nodeColumns, r.tables.Nodes)

	node, err := scanNode(GetExecutor(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get node: %w", err)
	}
	return node, nil
}

// Update rewrites the stored row for node.ID
func (r *PostgresNodeStore) Update(ctx context.Context, node *models.Node) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, parent_id = $2, path = $3, order_index = $4, depth = $5,
		    state = $6, modified_at = $7, modified_by = $8, deleted_at = $9, deleted_by = $10
		WHERE id = $11
	`, r.tables.Nodes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query,
		node.Name,
		node.ParentID,
		node.Path,
		node.OrderIndex,
		node.Depth,
		node.State,
		node.ModifiedAt,
		node.ModifiedBy,
		node.DeletedAt,
		node.DeletedBy,
		node.ID,
	)
	if err != nil {
		if IsPgDuplicateError(err) {
			return &domain.DuplicateNameError{Name: node.Name, ParentID: node.ParentID, SiblingID: ""}
		}
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("parent of node %s: %w", node.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("update node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}
	return nil
}

// SoftDelete marks the node deleted and records the audit fields
func (r *PostgresNodeStore) SoftDelete(ctx context.Context, id string, at time.Time, by string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET state = $1, deleted_at = $2, deleted_by = $3, modified_at = $2, modified_by = $3
		WHERE id = $4
	`, r.tables.Nodes)

	result, err := GetExecutor(ctx, r.pool).Exec(ctx, query, models.StateDeleted, at, by, id)
	if err != nil {
		return fmt.Errorf("soft-delete node: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Exists reports whether a live node with the given id exists
func (r *PostgresNodeStore) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s WHERE id = $1 AND state <> $2
		)
	`, r.tables.Nodes)

	var exists bool
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, id, models.StateDeleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check node existence: %w", err)
	}
	return exists, nil
}

// Children lists the live children of parentID ordered by order index
func (r *PostgresNodeStore) Children(ctx context.Context, parentID *string) ([]models.Node, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE parent_id IS NULL AND state <> $1
			ORDER BY order_index ASC
		`, nodeColumns, r.tables.Nodes)
		args = append(args, models.StateDeleted)
	} else {
		query = fmt.Sprintf(`
			SELECT %s
			FROM %s
			WHERE parent_id = $1 AND state <> $2
			ORDER BY order_index ASC
		`, nodeColumns, r.tables.Nodes)
		args = append(args, *parentID, models.StateDeleted)
	}

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return r.collectNodes(rows)
}

// CountChildren counts the live children of parentID
func (r *PostgresNodeStore) CountChildren(ctx context.Context, parentID *string) (int, error) {
	var query string
	var args []interface{}

	if parentID == nil {
		query = fmt.Sprintf(`
			SELECT COUNT(*) FROM %s WHERE parent_id IS NULL AND state <> $1
		`, r.tables.Nodes)
		args = append(args, models.StateDeleted)
	} else {
		query = fmt.Sprintf(`
			SELECT COUNT(*) FROM %s WHERE parent_id = $1 AND state <> $2
		`, r.tables.Nodes)
		args = append(args, *parentID, models.StateDeleted)
	}

	var count int
	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count children: %w", err)
	}
	return count, nil
}

// All retrieves every stored node, optionally including deleted ones
func (r *PostgresNodeStore) All(ctx context.Context, includeDeleted bool) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE ($1 OR state <> $2)
		ORDER BY id ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, includeDeleted, models.StateDeleted)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	return r.collectNodes(rows)
}

// SearchByName finds live nodes whose name contains substring,
// case-insensitive
func (r *PostgresNodeStore) SearchByName(ctx context.Context, substring string) ([]models.Node, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE state <> $1 AND name ILIKE '%%' || $2 || '%%'
		ORDER BY name ASC
	`, nodeColumns, r.tables.Nodes)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, models.StateDeleted, substring)
	if err != nil {
		return nil, fmt.Errorf("search nodes: %w", err)
	}
	return r.collectNodes(rows)
}
