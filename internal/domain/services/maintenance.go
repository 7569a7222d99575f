package services

import (
	"context"

	"qbank/internal/domain/models"
)

// IntegrityService scans stored state for invariant violations and can
// rebuild derived state (paths, depths, closure rows) from parent links
// and order indexes alone.
type IntegrityService interface {
	// Validate runs a full read-only integrity scan.
	Validate(ctx context.Context) (*models.ValidationReport, error)

	// RebuildPaths regenerates path and depth for every node from its
	// parent chain. Returns the number of nodes rewritten.
	RebuildPaths(ctx context.Context) (int, error)

	// RebuildClosure regenerates the entire closure index from parent
	// pointers. Returns the number of rows written.
	RebuildClosure(ctx context.Context) (int, error)
}

// ImportResult reports a successful subtree import.
type ImportResult struct {
	RootID     string   `json:"root_id"`
	CreatedIDs []string `json:"created_ids"`
}

// ExchangeService serializes a subtree to a portable document and
// reconstructs such documents under a target parent. Unlike bulk
// operations, an import is atomic: any validation failure aborts the
// whole import.
type ExchangeService interface {
	ExportSubtree(ctx context.Context, rootID string, includeInactive bool) (*models.TreeDocument, error)
	ImportSubtree(ctx context.Context, doc *models.TreeDocument, targetParentID *string, actor string) (*ImportResult, error)
}

// ItemCounter is the boundary to the external question store: the number
// of items attached directly to a node. The tree engine only ever reads
// through it.
type ItemCounter interface {
	CountItems(ctx context.Context, nodeID string) (int, error)
}
