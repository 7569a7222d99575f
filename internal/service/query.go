package service

import (
	"context"
	"fmt"
	"sort"

	"qbank/internal/domain/models"
)

// GetNode returns a live node with its attached-item count populated.
func (s *Service) GetNode(ctx context.Context, nodeID string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, err := s.getLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	count, err := s.items.CountItems(ctx, node.ID)
	if err != nil {
		return nil, fmt.Errorf("count attached items: %w", err)
	}
	node.ItemCount = count
	return node, nil
}

// Ancestors returns the chain from root to the node's parent.
func (s *Service) Ancestors(ctx context.Context, nodeID string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLive(ctx, nodeID); err != nil {
		return nil, err
	}

	rows, err := s.closure.Ancestors(ctx, nodeID)
	if err != nil {
		return nil, fmt.Errorf("load ancestors: %w", err)
	}

	ancestors := make([]models.Node, 0, len(rows))
	for _, row := range rows {
		node, err := s.nodes.Get(ctx, row.AncestorID)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, *node)
	}
	return ancestors, nil
}

// Descendants returns the live descendants of a node, nearest first.
// maxDepth bounds the walk relative to the node; <= 0 means unbounded.
func (s *Service) Descendants(ctx context.Context, nodeID string, maxDepth int) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLive(ctx, nodeID); err != nil {
		return nil, err
	}
	return s.liveDescendantsLocked(ctx, nodeID, maxDepth)
}

// liveDescendantsLocked resolves closure rows to live nodes, excluding
// the self row. Soft-deleted members are filtered here so the closure
// index itself never needs to know about node state.
func (s *Service) liveDescendantsLocked(ctx context.Context, nodeID string, maxDepth int) ([]models.Node, error) {
	rows, err := s.closure.Descendants(ctx, nodeID, maxDepth)
	if err != nil {
		return nil, fmt.Errorf("load descendants: %w", err)
	}

	descendants := make([]models.Node, 0, len(rows))
	for _, row := range rows {
		if row.Depth == 0 {
			continue
		}
		node, err := s.nodes.Get(ctx, row.DescendantID)
		if err != nil {
			return nil, err
		}
		if !node.State.Live() {
			continue
		}
		descendants = append(descendants, *node)
	}
	return descendants, nil
}

// Children returns the live children of parentID in sibling order.
func (s *Service) Children(ctx context.Context, parentID *string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if parentID != nil {
		if _, err := s.getLive(ctx, *parentID); err != nil {
			return nil, err
		}
	}
	return s.nodes.Children(ctx, parentID)
}

// Siblings returns the node's live siblings in order, excluding the
// node itself.
func (s *Service) Siblings(ctx context.Context, nodeID string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, err := s.getLive(ctx, nodeID)
	if err != nil {
		return nil, err
	}

	all, err := s.nodes.Children(ctx, node.ParentID)
	if err != nil {
		return nil, err
	}

	siblings := make([]models.Node, 0, len(all))
	for _, sibling := range all {
		if sibling.ID != nodeID {
			siblings = append(siblings, sibling)
		}
	}
	return siblings, nil
}

// SearchByName returns live nodes whose name contains the substring,
// case-insensitive.
func (s *Service) SearchByName(ctx context.Context, substring string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.nodes.SearchByName(ctx, substring)
}

// SubtreeItemCount sums the attached-item counts of a node and all its
// live descendants.
func (s *Service) SubtreeItemCount(ctx context.Context, nodeID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := s.getLive(ctx, nodeID); err != nil {
		return 0, err
	}
	return s.subtreeItemCountLocked(ctx, nodeID)
}

func (s *Service) subtreeItemCountLocked(ctx context.Context, nodeID string) (int, error) {
	total, err := s.items.CountItems(ctx, nodeID)
	if err != nil {
		return 0, fmt.Errorf("count attached items: %w", err)
	}

	descendants, err := s.liveDescendantsLocked(ctx, nodeID, 0)
	if err != nil {
		return 0, err
	}
	for _, node := range descendants {
		count, err := s.items.CountItems(ctx, node.ID)
		if err != nil {
			return 0, fmt.Errorf("count attached items: %w", err)
		}
		total += count
	}
	return total, nil
}

// GetTree assembles the nested view of the whole forest from flat rows.
// Inactive nodes (and their subtrees) are skipped unless includeInactive
// is set.
func (s *Service) GetTree(ctx context.Context, includeInactive bool) ([]*models.TreeView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.nodes.All(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	// First pass: create a view per visible node.
	views := make(map[string]*models.TreeView, len(all))
	byID := make(map[string]*models.Node, len(all))
	for i := range all {
		node := &all[i]
		byID[node.ID] = node
		if node.State == models.StateInactive && !includeInactive {
			continue
		}
		count, err := s.items.CountItems(ctx, node.ID)
		if err != nil {
			return nil, fmt.Errorf("count attached items: %w", err)
		}
		views[node.ID] = &models.TreeView{
			ID:        node.ID,
			Name:      node.Name,
			State:     node.State,
			Depth:     node.Depth,
			ItemCount: count,
			Children:  []*models.TreeView{},
		}
	}

	// Second pass: nest children under parents. A node whose parent
	// view was skipped (inactive) is skipped with it.
	var roots []*models.TreeView
	for i := range all {
		node := &all[i]
		view, ok := views[node.ID]
		if !ok {
			continue
		}
		if node.ParentID == nil {
			roots = append(roots, view)
			continue
		}
		if parent, ok := views[*node.ParentID]; ok {
			parent.Children = append(parent.Children, view)
		}
	}

	// Third pass: sibling order, walked with an explicit stack.
	orderOf := func(id string) int { return byID[id].OrderIndex }
	sort.Slice(roots, func(i, j int) bool { return orderOf(roots[i].ID) < orderOf(roots[j].ID) })
	stack := append([]*models.TreeView{}, roots...)
	for len(stack) > 0 {
		view := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		vs := view.Children
		sort.Slice(vs, func(i, j int) bool { return orderOf(vs[i].ID) < orderOf(vs[j].ID) })
		stack = append(stack, vs...)
	}

	return roots, nil
}

// Statistics computes read-only aggregates over the live tree.
func (s *Service) Statistics(ctx context.Context) (*models.TreeStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.nodes.All(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	stats := &models.TreeStatistics{TotalNodes: len(all)}
	hasChildren := make(map[string]bool, len(all))
	for _, node := range all {
		if node.ParentID != nil {
			hasChildren[*node.ParentID] = true
		}
	}
	for _, node := range all {
		if node.Depth > stats.MaxDepth {
			stats.MaxDepth = node.Depth
		}
		if node.ModifiedAt.After(stats.LastModified) {
			stats.LastModified = node.ModifiedAt
		}
		if hasChildren[node.ID] {
			stats.InternalCount++
		} else {
			stats.LeafCount++
		}
	}
	return stats, nil
}
