package repositories

import (
	"context"
	"time"

	"qbank/internal/domain/models"
)

// NodeStore is durable keyed storage for category nodes. A successful
// write is visible to subsequent reads on the same store handle.
//
// "Live" means not soft-deleted (active or inactive). Listing methods
// that serve traversal exclude deleted nodes; Get and All serve audit
// and repair paths and do not.
type NodeStore interface {
	// Create persists a new node. The caller has already assigned the
	// id and derived fields.
	Create(ctx context.Context, node *models.Node) error

	// Get returns the node with the given id in any state.
	// Returns domain.ErrNotFound if no such node exists.
	Get(ctx context.Context, id string) (*models.Node, error)

	// Update rewrites the stored row for node.ID.
	// Returns domain.ErrNotFound if no such node exists.
	Update(ctx context.Context, node *models.Node) error

	// SoftDelete marks the node deleted and records the audit fields.
	SoftDelete(ctx context.Context, id string, at time.Time, by string) error

	// Exists reports whether a live node with the given id exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Children returns the live children of parentID (nil for root
	// level) ordered by order index.
	Children(ctx context.Context, parentID *string) ([]models.Node, error)

	// CountChildren returns the number of live children of parentID.
	CountChildren(ctx context.Context, parentID *string) (int, error)

	// All returns every stored node, optionally including deleted
	// ones. Used by full-tree queries and the integrity validator.
	All(ctx context.Context, includeDeleted bool) ([]models.Node, error)

	// SearchByName returns live nodes whose name contains substring,
	// case-insensitive.
	SearchByName(ctx context.Context, substring string) ([]models.Node, error)
}
