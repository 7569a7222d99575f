package memory

import (
	"context"
	"sync"

	"qbank/internal/domain/services"
)

// ItemCounter is an in-memory stand-in for the external question store:
// a settable per-node attached-item count.
type ItemCounter struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewItemCounter creates an empty item counter.
func NewItemCounter() *ItemCounter {
	return &ItemCounter{
		counts: make(map[string]int),
	}
}

// SetCount fixes the attached-item count reported for nodeID.
func (c *ItemCounter) SetCount(nodeID string, count int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[nodeID] = count
}

// CountItems returns the attached-item count for nodeID (zero when
// never set).
func (c *ItemCounter) CountItems(ctx context.Context, nodeID string) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.counts[nodeID], nil
}

var _ services.ItemCounter = (*ItemCounter)(nil)
