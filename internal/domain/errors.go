package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the tree engine - use with errors.Is()
var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicateName       = errors.New("name already exists among siblings")
	ErrCircularReference   = errors.New("move would create a cycle")
	ErrHasChildren         = errors.New("node has children")
	ErrHasAttachedItems    = errors.New("node subtree has attached items")
	ErrInvalidPermutation  = errors.New("reorder set does not match current children")
	ErrInvalidPath         = errors.New("malformed path string")
	ErrIntegrityViolation  = errors.New("tree integrity violation")
	ErrValidation          = errors.New("validation failed")
	ErrMaxDepthExceeded    = errors.New("maximum tree depth exceeded")
	ErrMaxChildrenExceeded = errors.New("maximum children per node exceeded")
)

// DuplicateNameError reports a sibling name collision with details about
// the node that already holds the name
type DuplicateNameError struct {
	Name      string  // Requested name
	ParentID  *string // Target parent, nil for root level
	SiblingID string  // ID of the existing sibling
}

// Error implements the error interface
func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a node named %q already exists in this location", e.Name)
}

// Is allows errors.Is() to match against ErrDuplicateName
func (e *DuplicateNameError) Is(target error) bool {
	return target == ErrDuplicateName
}
