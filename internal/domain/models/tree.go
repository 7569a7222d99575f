package models

import "time"

// TreeView is a nested read-only projection of a subtree, assembled from
// flat node rows. Children are ordered by OrderIndex.
type TreeView struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	State     NodeState   `json:"state"`
	Depth     int         `json:"depth"`
	ItemCount int         `json:"item_count"`
	Children  []*TreeView `json:"children"`
}

// TreeDocument is the portable import/export format: recursive, no ids,
// no cross-references. Round-tripping import(export(x)) yields a
// structurally identical tree with fresh ids.
type TreeDocument struct {
	Name     string            `json:"name" yaml:"name"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Children []*TreeDocument   `json:"children,omitempty" yaml:"children,omitempty"`
}

// TreeStatistics is a read-only aggregate over the live tree.
type TreeStatistics struct {
	TotalNodes    int       `json:"total_nodes"`
	MaxDepth      int       `json:"max_depth"`
	LeafCount     int       `json:"leaf_count"`
	InternalCount int       `json:"internal_count"`
	LastModified  time.Time `json:"last_modified"`
}

// IssueKind classifies a single integrity violation found by the validator.
type IssueKind string

const (
	IssueOrphanedParent IssueKind = "orphaned_parent"
	IssuePathMismatch   IssueKind = "path_mismatch"
	IssueDepthMismatch  IssueKind = "depth_mismatch"
	IssueOrderGap       IssueKind = "order_gap"
	IssueOrderDuplicate IssueKind = "order_duplicate"
	IssueClosureDrift   IssueKind = "closure_drift"
	IssueCycle          IssueKind = "cycle"
)

// IntegrityIssue describes one invariant violation on one node.
type IntegrityIssue struct {
	Kind   IssueKind `json:"kind"`
	NodeID string    `json:"node_id"`
	Detail string    `json:"detail"`
}

// ValidationReport is the result of a full integrity scan.
type ValidationReport struct {
	Valid  bool             `json:"valid"`
	Issues []IntegrityIssue `json:"issues"`
}
