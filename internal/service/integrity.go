package service

import (
	"context"
	"fmt"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/repositories"
	"qbank/internal/treepath"
)

// Validate runs a full read-only integrity scan over the live tree:
// orphaned parent references, path/depth drift, order-index gaps and
// duplicates, closure drift and parent-pointer cycles. It never mutates
// state; repairs go through RebuildPaths/RebuildClosure.
func (s *Service) Validate(ctx context.Context) (*models.ValidationReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all, err := s.nodes.All(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	byID := make(map[string]*models.Node, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
	}

	report := &models.ValidationReport{}
	addIssue := func(kind models.IssueKind, nodeID, detail string) {
		report.Issues = append(report.Issues, models.IntegrityIssue{
			Kind:   kind,
			NodeID: nodeID,
			Detail: detail,
		})
	}

	// Parent references and cycles, walked over raw parent pointers.
	inCycle := findCycles(all, byID)
	for i := range all {
		node := &all[i]
		if !node.State.Live() {
			continue
		}
		if inCycle[node.ID] {
			addIssue(models.IssueCycle, node.ID, "node is its own ancestor via parent pointers")
			continue
		}
		if node.ParentID != nil {
			parent, ok := byID[*node.ParentID]
			switch {
			case !ok:
				addIssue(models.IssueOrphanedParent, node.ID,
					fmt.Sprintf("parent %s does not exist", *node.ParentID))
				continue
			case !parent.State.Live():
				addIssue(models.IssueOrphanedParent, node.ID,
					fmt.Sprintf("parent %s is deleted", *node.ParentID))
				continue
			}
		}

		chain, ok := ancestorChain(node, byID)
		if !ok {
			// Broken chain already reported above or on an ancestor.
			continue
		}
		if expected := treepath.Encode(chain); node.Path != expected {
			addIssue(models.IssuePathMismatch, node.ID,
				fmt.Sprintf("path %q, parent chain says %q", node.Path, expected))
		}
		if node.Depth != len(chain) {
			addIssue(models.IssueDepthMismatch, node.ID,
				fmt.Sprintf("depth %d, parent chain says %d", node.Depth, len(chain)))
		}
	}

	s.checkOrderIndexes(all, addIssue)

	if err := s.checkClosure(ctx, all, byID, inCycle, addIssue); err != nil {
		return nil, err
	}

	report.Valid = len(report.Issues) == 0
	s.logger.Info("integrity scan complete", "valid", report.Valid, "issues", len(report.Issues))
	return report, nil
}

// checkOrderIndexes verifies every live sibling group is exactly 0..k-1.
func (s *Service) checkOrderIndexes(all []models.Node, addIssue func(models.IssueKind, string, string)) {
	groups := make(map[string][]*models.Node)
	for i := range all {
		node := &all[i]
		if !node.State.Live() {
			continue
		}
		key := ""
		if node.ParentID != nil {
			key = *node.ParentID
		}
		groups[key] = append(groups[key], node)
	}

	for _, group := range groups {
		taken := make(map[int]string, len(group))
		for _, node := range group {
			if holder, dup := taken[node.OrderIndex]; dup {
				addIssue(models.IssueOrderDuplicate, node.ID,
					fmt.Sprintf("order index %d already held by %s", node.OrderIndex, holder))
				continue
			}
			taken[node.OrderIndex] = node.ID
		}
		for _, node := range group {
			if node.OrderIndex < 0 || node.OrderIndex >= len(group) {
				addIssue(models.IssueOrderGap, node.ID,
					fmt.Sprintf("order index %d outside 0..%d", node.OrderIndex, len(group)-1))
			}
		}
	}
}

// checkClosure compares stored closure rows between live nodes against
// rows derived from parent chains.
func (s *Service) checkClosure(
	ctx context.Context,
	all []models.Node,
	byID map[string]*models.Node,
	inCycle map[string]bool,
	addIssue func(models.IssueKind, string, string),
) error {
	expected := make(map[repositories.ClosureRow]bool)
	for i := range all {
		node := &all[i]
		if !node.State.Live() || inCycle[node.ID] {
			continue
		}
		chain, ok := ancestorChain(node, byID)
		if !ok {
			continue
		}
		expected[repositories.ClosureRow{AncestorID: node.ID, DescendantID: node.ID, Depth: 0}] = true
		for j, ancestorID := range chain {
			expected[repositories.ClosureRow{
				AncestorID:   ancestorID,
				DescendantID: node.ID,
				Depth:        len(chain) - j,
			}] = true
		}
	}

	actualRows, err := s.closure.All(ctx)
	if err != nil {
		return fmt.Errorf("load closure rows: %w", err)
	}
	actual := make(map[repositories.ClosureRow]bool, len(actualRows))
	for _, row := range actualRows {
		anc, ancOK := byID[row.AncestorID]
		desc, descOK := byID[row.DescendantID]
		if !ancOK || !descOK || !anc.State.Live() || !desc.State.Live() {
			// Rows touching deleted nodes are logically deleted.
			continue
		}
		actual[row] = true
		if !expected[row] {
			addIssue(models.IssueClosureDrift, row.DescendantID,
				fmt.Sprintf("unexpected closure row (%s, %s, %d)", row.AncestorID, row.DescendantID, row.Depth))
		}
	}
	for row := range expected {
		if !actual[row] {
			addIssue(models.IssueClosureDrift, row.DescendantID,
				fmt.Sprintf("missing closure row (%s, %s, %d)", row.AncestorID, row.DescendantID, row.Depth))
		}
	}
	return nil
}

// RebuildPaths regenerates path and depth for every node from parent
// pointers, the only ground truth. Returns the number of nodes
// rewritten.
func (s *Service) RebuildPaths(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	repaired := 0
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		all, err := s.nodes.All(txCtx, true)
		if err != nil {
			return fmt.Errorf("load nodes: %w", err)
		}
		byID := make(map[string]*models.Node, len(all))
		for i := range all {
			byID[all[i].ID] = &all[i]
		}

		for i := range all {
			node := &all[i]
			chain, ok := ancestorChain(node, byID)
			if !ok {
				return fmt.Errorf("node %s has a broken parent chain: %w", node.ID, domain.ErrIntegrityViolation)
			}
			path := treepath.Encode(chain)
			if node.Path == path && node.Depth == len(chain) {
				continue
			}
			node.Path = path
			node.Depth = len(chain)
			if err := s.nodes.Update(txCtx, node); err != nil {
				return err
			}
			repaired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("paths rebuilt", "repaired", repaired)
	return repaired, nil
}

// RebuildClosure regenerates the entire closure index from parent
// pointers. Returns the number of rows written.
func (s *Service) RebuildClosure(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	written := 0
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		all, err := s.nodes.All(txCtx, true)
		if err != nil {
			return fmt.Errorf("load nodes: %w", err)
		}
		byID := make(map[string]*models.Node, len(all))
		for i := range all {
			byID[all[i].ID] = &all[i]
		}

		var rows []repositories.ClosureRow
		for i := range all {
			node := &all[i]
			chain, ok := ancestorChain(node, byID)
			if !ok {
				return fmt.Errorf("node %s has a broken parent chain: %w", node.ID, domain.ErrIntegrityViolation)
			}
			rows = append(rows, repositories.ClosureRow{AncestorID: node.ID, DescendantID: node.ID, Depth: 0})
			for j, ancestorID := range chain {
				rows = append(rows, repositories.ClosureRow{
					AncestorID:   ancestorID,
					DescendantID: node.ID,
					Depth:        len(chain) - j,
				})
			}
		}

		if err := s.closure.Replace(txCtx, rows); err != nil {
			return fmt.Errorf("replace closure rows: %w", err)
		}
		written = len(rows)
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("closure rebuilt", "rows", written)
	return written, nil
}

// ancestorChain walks parent pointers from node to its root, returning
// ancestor ids root first. ok is false when the chain contains a
// missing parent or a cycle.
func ancestorChain(node *models.Node, byID map[string]*models.Node) ([]string, bool) {
	var reversed []string
	visited := map[string]bool{node.ID: true}
	current := node
	for current.ParentID != nil {
		parent, ok := byID[*current.ParentID]
		if !ok || visited[parent.ID] {
			return nil, false
		}
		visited[parent.ID] = true
		reversed = append(reversed, parent.ID)
		current = parent
	}

	chain := make([]string, len(reversed))
	for i, id := range reversed {
		chain[len(reversed)-1-i] = id
	}
	return chain, true
}

// findCycles marks every node sitting on a parent-pointer cycle.
func findCycles(all []models.Node, byID map[string]*models.Node) map[string]bool {
	const (
		unvisited  = 0
		inProgress = 1
		done       = 2
	)
	state := make(map[string]int, len(all))
	inCycle := make(map[string]bool)

	for i := range all {
		start := &all[i]
		if state[start.ID] != unvisited {
			continue
		}

		var walk []string
		current := start
		for {
			if state[current.ID] == inProgress {
				// Found a cycle: everything from its first occurrence
				// on the walk is a member.
				seen := false
				for _, id := range walk {
					if id == current.ID {
						seen = true
					}
					if seen {
						inCycle[id] = true
					}
				}
				break
			}
			if state[current.ID] == done {
				break
			}
			state[current.ID] = inProgress
			walk = append(walk, current.ID)

			if current.ParentID == nil {
				break
			}
			parent, ok := byID[*current.ParentID]
			if !ok {
				break
			}
			current = parent
		}
		for _, id := range walk {
			state[id] = done
		}
	}
	return inCycle
}
