package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"qbank/internal/domain/models"
	"qbank/internal/domain/services"
	"qbank/internal/repository/memory"
)

const testActor = "tester"

// fixture wires a Service over fresh in-memory stores and keeps the
// store handles visible so tests can inspect raw state or corrupt it.
type fixture struct {
	svc     *Service
	nodes   *memory.NodeStore
	closure *memory.ClosureIndex
	items   *memory.ItemCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		nodes:   memory.NewNodeStore(),
		closure: memory.NewClosureIndex(),
		items:   memory.NewItemCounter(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = New(f.nodes, f.closure, f.items, memory.NewTransactionManager(), logger)
	return f
}

func (f *fixture) create(t *testing.T, name string, parentID *string) *models.Node {
	t.Helper()
	node, err := f.svc.Create(context.Background(), &services.CreateNodeRequest{
		Name:     name,
		ParentID: parentID,
		Actor:    testActor,
	})
	require.NoError(t, err)
	return node
}

func (f *fixture) move(t *testing.T, nodeID string, newParentID *string, position *int) *models.Node {
	t.Helper()
	node, err := f.svc.Move(context.Background(), &services.MoveNodeRequest{
		NodeID:      nodeID,
		NewParentID: newParentID,
		Position:    position,
		Actor:       testActor,
	})
	require.NoError(t, err)
	return node
}

// chain creates a root plus a linear chain of descendants and returns
// all nodes, root first.
func (f *fixture) chain(t *testing.T, names ...string) []*models.Node {
	t.Helper()
	nodes := make([]*models.Node, 0, len(names))
	var parentID *string
	for _, name := range names {
		node := f.create(t, name, parentID)
		nodes = append(nodes, node)
		parentID = &node.ID
	}
	return nodes
}

func childIDs(nodes []models.Node) []string {
	ids := make([]string, len(nodes))
	for i, node := range nodes {
		ids[i] = node.ID
	}
	return ids
}

func intPtr(v int) *int { return &v }
