package repositories

import "context"

// ClosureRow is one (ancestor, descendant, depth) triple of the closure
// index, including the self row (id, id, 0). The index is derived state:
// always recomputable from parent pointers, never the source of truth.
type ClosureRow struct {
	AncestorID   string `json:"ancestor_id" db:"ancestor_id"`
	DescendantID string `json:"descendant_id" db:"descendant_id"`
	Depth        int    `json:"depth" db:"depth"`
}

// ClosureIndex maintains the ancestor/descendant relation in lockstep
// with the node store. Rows for soft-deleted nodes are retained; callers
// filter query results against node liveness.
type ClosureIndex interface {
	// Insert adds the given rows.
	Insert(ctx context.Context, rows []ClosureRow) error

	// Ancestors returns all rows (a, id, depth>0) for the given
	// descendant, ordered by depth descending (root first).
	Ancestors(ctx context.Context, id string) ([]ClosureRow, error)

	// Descendants returns all rows (id, d, depth) including the self
	// row, ordered by depth ascending. maxDepth <= 0 means unbounded.
	Descendants(ctx context.Context, id string, maxDepth int) ([]ClosureRow, error)

	// DetachSubtree removes every row linking a member of id's subtree
	// to an ancestor outside the subtree. Rows internal to the subtree
	// are preserved. The first half of a move.
	DetachSubtree(ctx context.Context, id string) error

	// AttachSubtree links every member of id's subtree to parentID and
	// all of parentID's ancestors. The second half of a move; a nil
	// parentID is a no-op (subtree becomes a root).
	AttachSubtree(ctx context.Context, id string, parentID *string) error

	// All returns every stored row. Used by the integrity validator.
	All(ctx context.Context) ([]ClosureRow, error)

	// Replace atomically swaps the entire index for the given rows.
	// Used by the repairer when rebuilding from parent pointers.
	Replace(ctx context.Context, rows []ClosureRow) error
}
