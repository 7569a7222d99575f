// Package memory provides in-memory implementations of the persistence
// interfaces, used by tests and by tooling that runs without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/repositories"
)

// NodeStore is a mutex-guarded map implementation of
// repositories.NodeStore.
type NodeStore struct {
	mu    sync.RWMutex
	nodes map[string]models.Node
}

// NewNodeStore creates an empty in-memory node store.
func NewNodeStore() *NodeStore {
	return &NodeStore{
		nodes: make(map[string]models.Node),
	}
}

// Create persists a new node.
func (s *NodeStore) Create(ctx context.Context, node *models.Node) error {
	if node == nil || node.ID == "" {
		return fmt.Errorf("node must have an id: %w", domain.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; exists {
		return fmt.Errorf("node %s already exists: %w", node.ID, domain.ErrValidation)
	}

	s.nodes[node.ID] = *node
	return nil
}

// Get returns the node with the given id in any state.
func (s *NodeStore) Get(ctx context.Context, id string) (*models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	if !exists {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}

	copied := node
	return &copied, nil
}

// Update rewrites the stored row for node.ID.
func (s *NodeStore) Update(ctx context.Context, node *models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[node.ID]; !exists {
		return fmt.Errorf("node %s: %w", node.ID, domain.ErrNotFound)
	}

	s.nodes[node.ID] = *node
	return nil
}

// SoftDelete marks the node deleted and records the audit fields.
func (s *NodeStore) SoftDelete(ctx context.Context, id string, at time.Time, by string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, exists := s.nodes[id]
	if !exists {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}

	node.State = models.StateDeleted
	node.DeletedAt = &at
	node.DeletedBy = &by
	node.ModifiedAt = at
	node.ModifiedBy = by
	s.nodes[id] = node
	return nil
}

// Exists reports whether a live node with the given id exists.
func (s *NodeStore) Exists(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	return exists && node.State.Live(), nil
}

// Children returns the live children of parentID ordered by order index.
func (s *NodeStore) Children(ctx context.Context, parentID *string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var children []models.Node
	for _, node := range s.nodes {
		if !node.State.Live() {
			continue
		}
		if sameParent(node.ParentID, parentID) {
			children = append(children, node)
		}
	}

	sort.Slice(children, func(i, j int) bool {
		if children[i].OrderIndex != children[j].OrderIndex {
			return children[i].OrderIndex < children[j].OrderIndex
		}
		return children[i].ID < children[j].ID
	})

	return children, nil
}

// CountChildren returns the number of live children of parentID.
func (s *NodeStore) CountChildren(ctx context.Context, parentID *string) (int, error) {
	children, err := s.Children(ctx, parentID)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}

// All returns every stored node, optionally including deleted ones.
func (s *NodeStore) All(ctx context.Context, includeDeleted bool) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]models.Node, 0, len(s.nodes))
	for _, node := range s.nodes {
		if !includeDeleted && !node.State.Live() {
			continue
		}
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	return nodes, nil
}

// SearchByName returns live nodes whose name contains substring,
// case-insensitive.
func (s *NodeStore) SearchByName(ctx context.Context, substring string) ([]models.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(substring)
	var matches []models.Node
	for _, node := range s.nodes {
		if !node.State.Live() {
			continue
		}
		if strings.Contains(strings.ToLower(node.Name), needle) {
			matches = append(matches, node)
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Name < matches[j].Name })
	return matches, nil
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

var _ repositories.NodeStore = (*NodeStore)(nil)
