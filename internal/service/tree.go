package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"qbank/internal/config"
	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/services"
)

// Create inserts a new category under an existing (or nil) parent. The
// new node is appended after its siblings.
func (s *Service) Create(ctx context.Context, req *services.CreateNodeRequest) (*models.Node, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var created *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.createLocked(txCtx, req)
		if err != nil {
			return err
		}
		created = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node created",
		"id", created.ID,
		"name", created.Name,
		"parent_id", created.ParentID,
		"depth", created.Depth,
		"order_index", created.OrderIndex,
	)
	return created, nil
}

func (s *Service) createLocked(ctx context.Context, req *services.CreateNodeRequest) (*models.Node, error) {
	parent, err := s.resolveParent(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}

	path, depth := childPath(parent)
	if depth > config.MaxTreeDepth {
		return nil, fmt.Errorf("depth %d: %w", depth, domain.ErrMaxDepthExceeded)
	}

	siblingCount, err := s.nodes.CountChildren(ctx, req.ParentID)
	if err != nil {
		return nil, fmt.Errorf("count siblings: %w", err)
	}
	if siblingCount >= config.MaxChildrenPerNode {
		return nil, fmt.Errorf("parent already has %d children: %w", siblingCount, domain.ErrMaxChildrenExceeded)
	}

	if err := s.checkSiblingName(ctx, req.ParentID, req.Name, ""); err != nil {
		return nil, err
	}

	now := time.Now()
	node := &models.Node{
		ID:         uuid.NewString(),
		Name:       req.Name,
		ParentID:   req.ParentID,
		Path:       path,
		OrderIndex: siblingCount,
		Depth:      depth,
		State:      models.StateActive,
		CreatedAt:  now,
		CreatedBy:  req.Actor,
		ModifiedAt: now,
		ModifiedBy: req.Actor,
	}

	if err := s.nodes.Create(ctx, node); err != nil {
		return nil, err
	}

	rows, err := s.ancestorRows(ctx, node.ID, parent)
	if err != nil {
		return nil, err
	}
	if err := s.closure.Insert(ctx, rows); err != nil {
		return nil, fmt.Errorf("insert closure rows: %w", err)
	}

	return node, nil
}

// Rename changes a node's display name, keeping sibling uniqueness.
func (s *Service) Rename(ctx context.Context, nodeID, newName, actor string) (*models.Node, error) {
	if err := validateName(newName); err != nil {
		return nil, err
	}
	if actor == "" {
		return nil, fmt.Errorf("actor is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var renamed *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.getLive(txCtx, nodeID)
		if err != nil {
			return err
		}
		if node.Name == newName {
			renamed = node
			return nil
		}
		if err := s.checkSiblingName(txCtx, node.ParentID, newName, node.ID); err != nil {
			return err
		}

		node.Name = newName
		node.ModifiedAt = time.Now()
		node.ModifiedBy = actor
		if err := s.nodes.Update(txCtx, node); err != nil {
			return err
		}
		renamed = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node renamed", "id", nodeID, "name", newName)
	return renamed, nil
}

// SetActive toggles a node between Active and Inactive. Deleted nodes
// cannot be reactivated through this path.
func (s *Service) SetActive(ctx context.Context, nodeID string, active bool, actor string) (*models.Node, error) {
	if actor == "" {
		return nil, fmt.Errorf("actor is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.getLive(txCtx, nodeID)
		if err != nil {
			return err
		}

		state := models.StateInactive
		if active {
			state = models.StateActive
		}
		if node.State == state {
			updated = node
			return nil
		}

		node.State = state
		node.ModifiedAt = time.Now()
		node.ModifiedBy = actor
		if err := s.nodes.Update(txCtx, node); err != nil {
			return err
		}
		updated = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node state changed", "id", nodeID, "state", updated.State)
	return updated, nil
}

// Move reparents a node and its whole subtree, or repositions it among
// its current siblings. Moving a node under itself or any of its
// descendants fails with ErrCircularReference and leaves the tree
// untouched.
func (s *Service) Move(ctx context.Context, req *services.MoveNodeRequest) (*models.Node, error) {
	if err := validateMoveRequest(req); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var moved *models.Node
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		node, err := s.moveLocked(txCtx, req)
		if err != nil {
			return err
		}
		moved = node
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("node moved",
		"id", moved.ID,
		"new_parent_id", moved.ParentID,
		"order_index", moved.OrderIndex,
		"depth", moved.Depth,
	)
	return moved, nil
}

func (s *Service) moveLocked(ctx context.Context, req *services.MoveNodeRequest) (*models.Node, error) {
	node, err := s.getLive(ctx, req.NodeID)
	if err != nil {
		return nil, err
	}

	// Cycle guard: the target must not be the node itself or any
	// member of its descendant set. The closure index answers that
	// without walking parent pointers.
	subtree, err := s.closure.Descendants(ctx, node.ID, 0)
	if err != nil {
		return nil, fmt.Errorf("load descendant set: %w", err)
	}
	if req.NewParentID != nil {
		for _, row := range subtree {
			if row.DescendantID == *req.NewParentID {
				return nil, fmt.Errorf("cannot move %s under %s: %w",
					node.ID, *req.NewParentID, domain.ErrCircularReference)
			}
		}
	}

	if sameParent(node.ParentID, req.NewParentID) {
		return s.repositionLocked(ctx, node, req.Position, req.Actor)
	}

	parent, err := s.resolveParent(ctx, req.NewParentID)
	if err != nil {
		return nil, err
	}

	// The subtree keeps its shape, so its deepest live member moves by
	// the same delta as the node itself. Closure rows for soft-deleted
	// descendants are retained and do not count toward the height.
	_, newDepth := childPath(parent)
	subtreeHeight := 0
	for _, row := range subtree {
		if row.Depth <= subtreeHeight {
			continue
		}
		member, err := s.nodes.Get(ctx, row.DescendantID)
		if err != nil {
			return nil, err
		}
		if member.State.Live() {
			subtreeHeight = row.Depth
		}
	}
	if newDepth+subtreeHeight > config.MaxTreeDepth {
		return nil, fmt.Errorf("subtree would reach depth %d: %w",
			newDepth+subtreeHeight, domain.ErrMaxDepthExceeded)
	}

	newSiblings, err := s.nodes.Children(ctx, req.NewParentID)
	if err != nil {
		return nil, fmt.Errorf("load new siblings: %w", err)
	}
	if len(newSiblings) >= config.MaxChildrenPerNode {
		return nil, fmt.Errorf("target already has %d children: %w",
			len(newSiblings), domain.ErrMaxChildrenExceeded)
	}
	if err := s.checkSiblingName(ctx, req.NewParentID, node.Name, node.ID); err != nil {
		return nil, err
	}

	// Close the order gap at the old location.
	oldSiblings, err := s.nodes.Children(ctx, node.ParentID)
	if err != nil {
		return nil, fmt.Errorf("load old siblings: %w", err)
	}
	for i := range oldSiblings {
		sib := &oldSiblings[i]
		if sib.ID == node.ID || sib.OrderIndex < node.OrderIndex {
			continue
		}
		sib.OrderIndex--
		if err := s.nodes.Update(ctx, sib); err != nil {
			return nil, fmt.Errorf("close order gap: %w", err)
		}
	}

	// Open a gap at the new location; default position is append.
	position := len(newSiblings)
	if req.Position != nil && *req.Position < position {
		position = *req.Position
	}
	for i := range newSiblings {
		sib := &newSiblings[i]
		if sib.OrderIndex < position {
			continue
		}
		sib.OrderIndex++
		if err := s.nodes.Update(ctx, sib); err != nil {
			return nil, fmt.Errorf("open order gap: %w", err)
		}
	}

	newPath, _ := childPath(parent)
	node.ParentID = req.NewParentID
	node.Path = newPath
	node.Depth = newDepth
	node.OrderIndex = position
	node.ModifiedAt = time.Now()
	node.ModifiedBy = req.Actor
	if err := s.nodes.Update(ctx, node); err != nil {
		return nil, err
	}

	if err := s.rewriteSubtreePaths(ctx, node); err != nil {
		return nil, err
	}

	// Rebuild the closure rows crossing the subtree boundary. Rows
	// internal to the subtree are unaffected by a move.
	if err := s.closure.DetachSubtree(ctx, node.ID); err != nil {
		return nil, fmt.Errorf("detach closure subtree: %w", err)
	}
	if err := s.closure.AttachSubtree(ctx, node.ID, req.NewParentID); err != nil {
		return nil, fmt.Errorf("attach closure subtree: %w", err)
	}

	return node, nil
}

// repositionLocked handles a same-parent move: only order indexes
// change; paths, depths and closure rows stay as they are.
func (s *Service) repositionLocked(ctx context.Context, node *models.Node, position *int, actor string) (*models.Node, error) {
	siblings, err := s.nodes.Children(ctx, node.ParentID)
	if err != nil {
		return nil, fmt.Errorf("load siblings: %w", err)
	}

	target := len(siblings) - 1
	if position != nil && *position < target {
		target = *position
	}
	if target < 0 {
		target = 0
	}
	if target == node.OrderIndex {
		// No-op move: same parent, same position.
		return node, nil
	}

	// Rebuild the dense order with the node at its target slot.
	reordered := make([]models.Node, 0, len(siblings))
	for _, sib := range siblings {
		if sib.ID != node.ID {
			reordered = append(reordered, sib)
		}
	}
	reordered = append(reordered, models.Node{})
	copy(reordered[target+1:], reordered[target:])
	reordered[target] = *node

	now := time.Now()
	for i := range reordered {
		sib := &reordered[i]
		if sib.OrderIndex == i && sib.ID != node.ID {
			continue
		}
		sib.OrderIndex = i
		if sib.ID == node.ID {
			sib.ModifiedAt = now
			sib.ModifiedBy = actor
			*node = *sib
		}
		if err := s.nodes.Update(ctx, sib); err != nil {
			return nil, fmt.Errorf("reassign order index: %w", err)
		}
	}

	return node, nil
}

// rewriteSubtreePaths recomputes path and depth for every live
// descendant of root after a move. Iterative depth-first walk with an
// explicit stack; recursion depth is not bounded by tree depth.
func (s *Service) rewriteSubtreePaths(ctx context.Context, root *models.Node) error {
	stack := []*models.Node{root}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := s.nodes.Children(ctx, &parent.ID)
		if err != nil {
			return fmt.Errorf("walk subtree: %w", err)
		}
		for i := range children {
			child := &children[i]
			child.Path, child.Depth = childPath(parent)
			if err := s.nodes.Update(ctx, child); err != nil {
				return fmt.Errorf("rewrite descendant path: %w", err)
			}
			copied := *child
			stack = append(stack, &copied)
		}
	}
	return nil
}

// Delete soft-deletes a node according to the given strategy. The
// default policy for callers that have no opinion is DeletePrevent.
func (s *Service) Delete(ctx context.Context, nodeID string, strategy services.DeleteStrategy, actor string) error {
	if err := validateStrategy(strategy); err != nil {
		return err
	}
	if actor == "" {
		return fmt.Errorf("actor is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.deleteLocked(txCtx, nodeID, strategy, actor)
	})
	if err != nil {
		return err
	}

	s.logger.Info("node deleted", "id", nodeID, "strategy", strategy)
	return nil
}

func (s *Service) deleteLocked(ctx context.Context, nodeID string, strategy services.DeleteStrategy, actor string) error {
	node, err := s.getLive(ctx, nodeID)
	if err != nil {
		return err
	}

	children, err := s.nodes.Children(ctx, &node.ID)
	if err != nil {
		return fmt.Errorf("load children: %w", err)
	}

	now := time.Now()

	switch strategy {
	case services.DeletePrevent:
		if len(children) > 0 {
			return fmt.Errorf("node %s has %d children: %w", node.ID, len(children), domain.ErrHasChildren)
		}
		attached, err := s.subtreeItemCountLocked(ctx, node.ID)
		if err != nil {
			return err
		}
		if attached > 0 {
			return fmt.Errorf("node %s has %d attached items: %w", node.ID, attached, domain.ErrHasAttachedItems)
		}
		if err := s.nodes.SoftDelete(ctx, node.ID, now, actor); err != nil {
			return err
		}

	case services.DeleteCascade:
		subtree, err := s.closure.Descendants(ctx, node.ID, 0)
		if err != nil {
			return fmt.Errorf("load descendant set: %w", err)
		}
		for _, row := range subtree {
			member, err := s.nodes.Get(ctx, row.DescendantID)
			if err != nil {
				return err
			}
			if !member.State.Live() {
				continue
			}
			if err := s.nodes.SoftDelete(ctx, member.ID, now, actor); err != nil {
				return err
			}
		}

	case services.DeleteReparentChildren:
		// Validate every child against the grandparent before the
		// first move. moveLocked checks each child on its own, which
		// would leave earlier children reparented when a later one
		// fails.
		if len(children) > 0 {
			count, err := s.nodes.CountChildren(ctx, node.ParentID)
			if err != nil {
				return fmt.Errorf("count new siblings: %w", err)
			}
			// The node itself leaves the sibling group once its
			// children have moved.
			if count+len(children)-1 >= config.MaxChildrenPerNode {
				return fmt.Errorf("target would have %d children: %w",
					count+len(children)-1, domain.ErrMaxChildrenExceeded)
			}
			for _, child := range children {
				if err := s.checkSiblingName(ctx, node.ParentID, child.Name, child.ID); err != nil {
					return err
				}
			}
		}
		for _, child := range children {
			_, err := s.moveLocked(ctx, &services.MoveNodeRequest{
				NodeID:      child.ID,
				NewParentID: node.ParentID,
				Actor:       actor,
			})
			if err != nil {
				return fmt.Errorf("reparent child %s: %w", child.ID, err)
			}
		}
		if err := s.nodes.SoftDelete(ctx, node.ID, now, actor); err != nil {
			return err
		}
	}

	return s.closeOrderGap(ctx, node.ParentID)
}

// closeOrderGap renumbers the live children of parentID to a dense
// 0..k-1 order after one of them was removed.
func (s *Service) closeOrderGap(ctx context.Context, parentID *string) error {
	siblings, err := s.nodes.Children(ctx, parentID)
	if err != nil {
		return fmt.Errorf("load siblings: %w", err)
	}
	for i := range siblings {
		if siblings[i].OrderIndex == i {
			continue
		}
		siblings[i].OrderIndex = i
		if err := s.nodes.Update(ctx, &siblings[i]); err != nil {
			return fmt.Errorf("renumber siblings: %w", err)
		}
	}
	return nil
}

// Reorder reassigns order indexes 0..k-1 to exactly the given
// permutation of parentID's current live children.
func (s *Service) Reorder(ctx context.Context, parentID *string, orderedChildIDs []string, actor string) error {
	if actor == "" {
		return fmt.Errorf("actor is required: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if parentID != nil {
			if _, err := s.getLive(txCtx, *parentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		children, err := s.nodes.Children(txCtx, parentID)
		if err != nil {
			return fmt.Errorf("load children: %w", err)
		}
		if len(children) != len(orderedChildIDs) {
			return fmt.Errorf("got %d ids for %d children: %w",
				len(orderedChildIDs), len(children), domain.ErrInvalidPermutation)
		}

		byID := make(map[string]*models.Node, len(children))
		for i := range children {
			byID[children[i].ID] = &children[i]
		}

		now := time.Now()
		seen := make(map[string]bool, len(orderedChildIDs))
		for i, id := range orderedChildIDs {
			node, ok := byID[id]
			if !ok || seen[id] {
				return fmt.Errorf("id %s is not exactly one current child: %w", id, domain.ErrInvalidPermutation)
			}
			seen[id] = true
			if node.OrderIndex == i {
				continue
			}
			node.OrderIndex = i
			node.ModifiedAt = now
			node.ModifiedBy = actor
			if err := s.nodes.Update(txCtx, node); err != nil {
				return fmt.Errorf("reassign order index: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("children reordered", "parent_id", parentID, "count", len(orderedChildIDs))
	return nil
}
