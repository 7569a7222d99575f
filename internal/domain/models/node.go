package models

import (
	"strings"
	"time"
)

// NodeState is the lifecycle state of a category node. It replaces
// independent is_active/is_deleted flags so invalid combinations cannot
// be represented.
type NodeState string

const (
	// StateActive nodes appear in all traversal results.
	StateActive NodeState = "active"
	// StateInactive nodes are hidden from normal listings but still
	// traversable by admin views and export with includeInactive.
	StateInactive NodeState = "inactive"
	// StateDeleted nodes are excluded everywhere except audit reads.
	StateDeleted NodeState = "deleted"
)

// Valid reports whether s is one of the three known states.
func (s NodeState) Valid() bool {
	switch s {
	case StateActive, StateInactive, StateDeleted:
		return true
	}
	return false
}

// Live reports whether the node still participates in the tree
// (active or inactive, but not deleted).
func (s NodeState) Live() bool {
	return s == StateActive || s == StateInactive
}

// Node is a category in the question-bank hierarchy.
//
// Path and Depth are caches derived from the ParentID chain; they are
// regenerated by the service on every move and by the integrity repairer,
// never hand-edited. OrderIndex is dense and contiguous among live
// siblings of the same parent.
type Node struct {
	ID         string     `json:"id" db:"id"`
	Name       string     `json:"name" db:"name"`
	ParentID   *string    `json:"parent_id" db:"parent_id"` // nil = root
	Path       string     `json:"path" db:"path"`
	OrderIndex int        `json:"order_index" db:"order_index"`
	Depth      int        `json:"depth" db:"depth"`
	State      NodeState  `json:"state" db:"state"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	CreatedBy  string     `json:"created_by" db:"created_by"`
	ModifiedAt time.Time  `json:"modified_at" db:"modified_at"`
	ModifiedBy string     `json:"modified_by" db:"modified_by"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeletedBy  *string    `json:"deleted_by,omitempty" db:"deleted_by"`

	// ItemCount is the number of externally-owned items (questions)
	// attached directly to this node. Populated from the attached-item
	// collaborator on read paths that report it; not stored here.
	ItemCount int `json:"item_count,omitempty" db:"-"`
}

// IsRoot reports whether the node has no parent.
func (n *Node) IsRoot() bool {
	return n.ParentID == nil
}

// SameName compares node names the way sibling uniqueness does
// (case-insensitive).
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}
