package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
)

func newNode(id, name string, parentID *string, orderIndex int) *models.Node {
	now := time.Now()
	return &models.Node{
		ID:         id,
		Name:       name,
		ParentID:   parentID,
		Path:       "/",
		OrderIndex: orderIndex,
		State:      models.StateActive,
		CreatedAt:  now,
		CreatedBy:  "test",
		ModifiedAt: now,
		ModifiedBy: "test",
	}
}

func TestNodeStoreCreateGet(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	node := newNode("n1", "Algebra", nil, 0)
	require.NoError(t, store.Create(ctx, node))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got.Name)

	// Stored rows are copies: mutating the returned value changes nothing.
	got.Name = "changed"
	again, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", again.Name)

	err = store.Create(ctx, node)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNodeStoreChildrenOrdering(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	parent := "p"
	require.NoError(t, store.Create(ctx, newNode("p", "Parent", nil, 0)))
	require.NoError(t, store.Create(ctx, newNode("c2", "Second", &parent, 1)))
	require.NoError(t, store.Create(ctx, newNode("c1", "First", &parent, 0)))

	children, err := store.Children(ctx, &parent)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "c1", children[0].ID)
	assert.Equal(t, "c2", children[1].ID)

	count, err := store.CountChildren(ctx, &parent)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	roots, err := store.Children(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "p", roots[0].ID)
}

func TestNodeStoreSoftDelete(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newNode("n1", "Node", nil, 0)))

	at := time.Now()
	require.NoError(t, store.SoftDelete(ctx, "n1", at, "admin"))

	got, err := store.Get(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, models.StateDeleted, got.State)
	require.NotNil(t, got.DeletedBy)
	assert.Equal(t, "admin", *got.DeletedBy)

	exists, err := store.Exists(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, exists)

	live, err := store.All(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := store.All(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestNodeStoreSearchByName(t *testing.T) {
	store := NewNodeStore()
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, newNode("n1", "Linear Algebra", nil, 0)))
	require.NoError(t, store.Create(ctx, newNode("n2", "Geometry", nil, 1)))

	matches, err := store.SearchByName(ctx, "algebra")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "n1", matches[0].ID)
}
