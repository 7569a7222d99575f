package memory

import (
	"context"
	"sort"
	"sync"

	"qbank/internal/domain/repositories"
)

type closureKey struct {
	ancestor   string
	descendant string
}

// ClosureIndex is a mutex-guarded map implementation of
// repositories.ClosureIndex.
type ClosureIndex struct {
	mu   sync.RWMutex
	rows map[closureKey]int // (ancestor, descendant) -> depth
}

// NewClosureIndex creates an empty in-memory closure index.
func NewClosureIndex() *ClosureIndex {
	return &ClosureIndex{
		rows: make(map[closureKey]int),
	}
}

// Insert adds the given rows.
func (c *ClosureIndex) Insert(ctx context.Context, rows []repositories.ClosureRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		c.rows[closureKey{row.AncestorID, row.DescendantID}] = row.Depth
	}
	return nil
}

// Ancestors returns all rows with the given descendant and depth > 0,
// root first.
func (c *ClosureIndex) Ancestors(ctx context.Context, id string) ([]repositories.ClosureRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var rows []repositories.ClosureRow
	for key, depth := range c.rows {
		if key.descendant == id && depth > 0 {
			rows = append(rows, repositories.ClosureRow{
				AncestorID:   key.ancestor,
				DescendantID: key.descendant,
				Depth:        depth,
			})
		}
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Depth > rows[j].Depth })
	return rows, nil
}

// Descendants returns all rows with the given ancestor including the
// self row, nearest first. maxDepth <= 0 means unbounded.
func (c *ClosureIndex) Descendants(ctx context.Context, id string, maxDepth int) ([]repositories.ClosureRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var rows []repositories.ClosureRow
	for key, depth := range c.rows {
		if key.ancestor != id {
			continue
		}
		if maxDepth > 0 && depth > maxDepth {
			continue
		}
		rows = append(rows, repositories.ClosureRow{
			AncestorID:   key.ancestor,
			DescendantID: key.descendant,
			Depth:        depth,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Depth != rows[j].Depth {
			return rows[i].Depth < rows[j].Depth
		}
		return rows[i].DescendantID < rows[j].DescendantID
	})
	return rows, nil
}

// DetachSubtree removes every row linking a member of id's subtree to an
// ancestor outside the subtree.
func (c *ClosureIndex) DetachSubtree(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	subtree := c.subtreeLocked(id)
	for key := range c.rows {
		if subtree[key.descendant] && !subtree[key.ancestor] {
			delete(c.rows, key)
		}
	}
	return nil
}

// AttachSubtree links every member of id's subtree to parentID and all
// of parentID's ancestors.
func (c *ClosureIndex) AttachSubtree(ctx context.Context, id string, parentID *string) error {
	if parentID == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Rows above the new parent, including its self row.
	type superRow struct {
		ancestor string
		depth    int
	}
	var supers []superRow
	for key, depth := range c.rows {
		if key.descendant == *parentID {
			supers = append(supers, superRow{key.ancestor, depth})
		}
	}

	// Rows inside the moved subtree, including the moved node's self row.
	type subRow struct {
		descendant string
		depth      int
	}
	var subs []subRow
	for key, depth := range c.rows {
		if key.ancestor == id {
			subs = append(subs, subRow{key.descendant, depth})
		}
	}

	for _, sup := range supers {
		for _, sub := range subs {
			c.rows[closureKey{sup.ancestor, sub.descendant}] = sup.depth + sub.depth + 1
		}
	}
	return nil
}

// All returns every stored row.
func (c *ClosureIndex) All(ctx context.Context) ([]repositories.ClosureRow, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows := make([]repositories.ClosureRow, 0, len(c.rows))
	for key, depth := range c.rows {
		rows = append(rows, repositories.ClosureRow{
			AncestorID:   key.ancestor,
			DescendantID: key.descendant,
			Depth:        depth,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AncestorID != rows[j].AncestorID {
			return rows[i].AncestorID < rows[j].AncestorID
		}
		return rows[i].DescendantID < rows[j].DescendantID
	})
	return rows, nil
}

// Replace atomically swaps the entire index for the given rows.
func (c *ClosureIndex) Replace(ctx context.Context, rows []repositories.ClosureRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rows = make(map[closureKey]int, len(rows))
	for _, row := range rows {
		c.rows[closureKey{row.AncestorID, row.DescendantID}] = row.Depth
	}
	return nil
}

// subtreeLocked collects the descendant set of id (self included).
// Caller holds the lock.
func (c *ClosureIndex) subtreeLocked(id string) map[string]bool {
	subtree := map[string]bool{id: true}
	for key := range c.rows {
		if key.ancestor == id {
			subtree[key.descendant] = true
		}
	}
	return subtree
}

var _ repositories.ClosureIndex = (*ClosureIndex)(nil)
