package service

import (
	"context"
	"fmt"

	"qbank/internal/config"
	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/services"
)

// metadataState is the tree-document metadata key carrying a node's
// lifecycle state across export/import.
const metadataState = "state"

// ExportSubtree serializes a subtree to a portable document: nested,
// parent-free, no ids. Inactive nodes (with their subtrees) are skipped
// unless includeInactive is set.
func (s *Service) ExportSubtree(ctx context.Context, rootID string, includeInactive bool) (*models.TreeDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	root, err := s.getLive(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if root.State == models.StateInactive && !includeInactive {
		return nil, fmt.Errorf("node %s is inactive: %w", rootID, domain.ErrNotFound)
	}

	doc := exportDoc(root)

	// Depth-first with an explicit work list; child docs are appended
	// in sibling order when their parent frame is expanded, so the
	// traversal order itself does not matter.
	type frame struct {
		nodeID string
		doc    *models.TreeDocument
	}
	stack := []frame{{root.ID, doc}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.nodes.Children(ctx, &top.nodeID)
		if err != nil {
			return nil, fmt.Errorf("walk subtree: %w", err)
		}
		for i := range children {
			child := &children[i]
			if child.State == models.StateInactive && !includeInactive {
				continue
			}
			childDoc := exportDoc(child)
			top.doc.Children = append(top.doc.Children, childDoc)
			stack = append(stack, frame{child.ID, childDoc})
		}
	}

	s.logger.Info("subtree exported", "root_id", rootID, "include_inactive", includeInactive)
	return doc, nil
}

func exportDoc(node *models.Node) *models.TreeDocument {
	doc := &models.TreeDocument{Name: node.Name}
	if node.State == models.StateInactive {
		doc.Metadata = map[string]string{metadataState: string(models.StateInactive)}
	}
	return doc
}

// ImportSubtree recreates a tree document under targetParentID with
// fresh ids and fresh contiguous order indexes. The whole document is
// validated up front exactly as Create would, and the import commits as
// one unit: any failure aborts everything, unlike bulk operations.
func (s *Service) ImportSubtree(ctx context.Context, doc *models.TreeDocument, targetParentID *string, actor string) (*services.ImportResult, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	height, err := validateDocument(doc)
	if err != nil {
		return nil, err
	}

	baseDepth := 0
	if targetParentID != nil {
		parent, err := s.resolveParent(ctx, targetParentID)
		if err != nil {
			return nil, err
		}
		baseDepth = parent.Depth + 1
	}
	if baseDepth+height > config.MaxTreeDepth {
		return nil, fmt.Errorf("imported subtree would reach depth %d: %w",
			baseDepth+height, domain.ErrMaxDepthExceeded)
	}
	if err := s.checkSiblingName(ctx, targetParentID, doc.Name, ""); err != nil {
		return nil, err
	}

	result := &services.ImportResult{}
	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		type frame struct {
			doc      *models.TreeDocument
			parentID *string
		}
		// A queue keeps siblings created in document order, so their
		// fresh order indexes follow the document.
		queue := []frame{{doc, targetParentID}}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			node, err := s.createLocked(txCtx, &services.CreateNodeRequest{
				Name:     current.doc.Name,
				ParentID: current.parentID,
				Actor:    actor,
			})
			if err != nil {
				return err
			}
			if current.doc.Metadata[metadataState] == string(models.StateInactive) {
				node.State = models.StateInactive
				if err := s.nodes.Update(txCtx, node); err != nil {
					return err
				}
			}

			if result.RootID == "" {
				result.RootID = node.ID
			}
			result.CreatedIDs = append(result.CreatedIDs, node.ID)

			for _, child := range current.doc.Children {
				queue = append(queue, frame{child, &node.ID})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("subtree imported",
		"root_id", result.RootID,
		"created", len(result.CreatedIDs),
		"target_parent_id", targetParentID,
	)
	return result, nil
}

// validateDocument checks an entire tree document before any mutation:
// well-formed names, per-level name uniqueness, size and fan-out
// limits. Returns the document's height (root at 0).
func validateDocument(doc *models.TreeDocument) (int, error) {
	if doc == nil {
		return 0, fmt.Errorf("document is nil: %w", domain.ErrValidation)
	}

	type frame struct {
		doc   *models.TreeDocument
		depth int
	}
	total := 0
	height := 0
	stack := []frame{{doc, 0}}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if err := validateName(current.doc.Name); err != nil {
			return 0, err
		}
		if state, ok := current.doc.Metadata[metadataState]; ok {
			if st := models.NodeState(state); !st.Valid() || st == models.StateDeleted {
				return 0, fmt.Errorf("metadata state %q: %w", state, domain.ErrValidation)
			}
		}

		total++
		if total > config.MaxImportNodes {
			return 0, fmt.Errorf("document exceeds %d nodes: %w", config.MaxImportNodes, domain.ErrValidation)
		}
		if current.depth > height {
			height = current.depth
		}
		if len(current.doc.Children) > config.MaxChildrenPerNode {
			return 0, fmt.Errorf("level with %d children: %w", len(current.doc.Children), domain.ErrMaxChildrenExceeded)
		}

		seen := make(map[string]bool, len(current.doc.Children))
		for _, child := range current.doc.Children {
			if child == nil {
				return 0, fmt.Errorf("nil child document: %w", domain.ErrValidation)
			}
			key := foldName(child.Name)
			if seen[key] {
				return 0, fmt.Errorf("duplicate name %q at one level: %w", child.Name, domain.ErrDuplicateName)
			}
			seen[key] = true
			stack = append(stack, frame{child, current.depth + 1})
		}
	}
	return height, nil
}
