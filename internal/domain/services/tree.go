package services

import (
	"context"

	"qbank/internal/domain/models"
)

// DeleteStrategy selects what happens to a node's subtree on delete.
type DeleteStrategy string

const (
	// DeletePrevent refuses to delete a node that has live children or
	// attached items anywhere in its subtree. This is the default
	// strategy: deletion never silently drops content.
	DeletePrevent DeleteStrategy = "prevent"
	// DeleteCascade soft-deletes the node and its entire subtree.
	DeleteCascade DeleteStrategy = "cascade"
	// DeleteReparentChildren moves each direct child up to the node's
	// own parent, then deletes the now-childless node.
	DeleteReparentChildren DeleteStrategy = "reparent_children"
)

// Valid reports whether s is a known strategy.
func (s DeleteStrategy) Valid() bool {
	switch s {
	case DeletePrevent, DeleteCascade, DeleteReparentChildren:
		return true
	}
	return false
}

// CreateNodeRequest carries the inputs for creating a category node.
type CreateNodeRequest struct {
	Name     string  `json:"name"`
	ParentID *string `json:"parent_id"` // nil = create a root
	Actor    string  `json:"actor"`
}

// MoveNodeRequest reparents a node (and implicitly its whole subtree).
// A nil Position appends at the end of the new sibling list.
type MoveNodeRequest struct {
	NodeID      string  `json:"node_id"`
	NewParentID *string `json:"new_parent_id"` // nil = move to root level
	Position    *int    `json:"position"`
	Actor       string  `json:"actor"`
}

// BulkError records one failed element of a bulk operation.
type BulkError struct {
	Index  int    `json:"index"`
	NodeID string `json:"node_id,omitempty"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BulkResult aggregates per-item outcomes of a bulk operation. Bulk
// operations are best-effort: failed items never roll back unrelated
// successful ones.
type BulkResult struct {
	Succeeded []string    `json:"succeeded"` // node ids, in input order
	Failed    []BulkError `json:"failed"`
}

// TreeService is the category tree engine: orchestrates node creation,
// move, delete, reorder and bulk operations, and answers hierarchy
// queries. Every single-item mutation is atomic from the caller's point
// of view.
type TreeService interface {
	Create(ctx context.Context, req *CreateNodeRequest) (*models.Node, error)
	Rename(ctx context.Context, nodeID, newName, actor string) (*models.Node, error)
	SetActive(ctx context.Context, nodeID string, active bool, actor string) (*models.Node, error)
	Move(ctx context.Context, req *MoveNodeRequest) (*models.Node, error)
	Delete(ctx context.Context, nodeID string, strategy DeleteStrategy, actor string) error
	Reorder(ctx context.Context, parentID *string, orderedChildIDs []string, actor string) error

	BulkCreate(ctx context.Context, reqs []*CreateNodeRequest) *BulkResult
	BulkMove(ctx context.Context, reqs []*MoveNodeRequest) *BulkResult
	BulkDelete(ctx context.Context, nodeIDs []string, strategy DeleteStrategy, actor string) *BulkResult

	GetNode(ctx context.Context, nodeID string) (*models.Node, error)
	Ancestors(ctx context.Context, nodeID string) ([]models.Node, error)
	Descendants(ctx context.Context, nodeID string, maxDepth int) ([]models.Node, error)
	Children(ctx context.Context, parentID *string) ([]models.Node, error)
	Siblings(ctx context.Context, nodeID string) ([]models.Node, error)
	SearchByName(ctx context.Context, substring string) ([]models.Node, error)
	SubtreeItemCount(ctx context.Context, nodeID string) (int, error)
	GetTree(ctx context.Context, includeInactive bool) ([]*models.TreeView, error)
	Statistics(ctx context.Context) (*models.TreeStatistics, error)
}
