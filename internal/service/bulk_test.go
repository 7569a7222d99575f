package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbank/internal/domain"
	"qbank/internal/domain/services"
)

func TestBulkCreatePartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.create(t, "Root", nil)

	result := f.svc.BulkCreate(ctx, []*services.CreateNodeRequest{
		{Name: "First", ParentID: &root.ID, Actor: testActor},
		{Name: "first", ParentID: &root.ID, Actor: testActor}, // duplicate
		{Name: "Third", ParentID: &root.ID, Actor: testActor},
	})

	assert.Len(t, result.Succeeded, 2)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 1, result.Failed[0].Index)
	assert.ErrorIs(t, result.Failed[0].Err, domain.ErrDuplicateName)
	assert.NotEmpty(t, result.Failed[0].Reason)

	// The failure does not roll back its siblings, and the survivors
	// hold a dense order.
	children, err := f.svc.Children(ctx, &root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, 0, children[0].OrderIndex)
	assert.Equal(t, 1, children[1].OrderIndex)
}

func TestBulkMovePartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.create(t, "Root", nil)
	a := f.create(t, "A", &root.ID)
	b := f.create(t, "B", &a.ID)
	target := f.create(t, "Target", nil)

	result := f.svc.BulkMove(ctx, []*services.MoveNodeRequest{
		{NodeID: b.ID, NewParentID: &target.ID, Actor: testActor},
		{NodeID: a.ID, NewParentID: &a.ID, Actor: testActor}, // cycle
		{NodeID: "missing", NewParentID: &target.ID, Actor: testActor},
	})

	assert.Equal(t, []string{b.ID}, result.Succeeded)
	require.Len(t, result.Failed, 2)
	assert.ErrorIs(t, result.Failed[0].Err, domain.ErrCircularReference)
	assert.Equal(t, a.ID, result.Failed[0].NodeID)
	assert.ErrorIs(t, result.Failed[1].Err, domain.ErrNotFound)
}

func TestBulkDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.create(t, "Root", nil)
	leaf := f.create(t, "Leaf", &root.ID)

	result := f.svc.BulkDelete(ctx, []string{leaf.ID, root.ID}, services.DeletePrevent, testActor)

	// Deleting the leaf first empties the root, so both succeed in order.
	assert.Equal(t, []string{leaf.ID, root.ID}, result.Succeeded)
	assert.Empty(t, result.Failed)
}

func TestBulkDeleteStopsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	parent := f.create(t, "Parent", nil)
	f.create(t, "Child", &parent.ID)
	lone := f.create(t, "Lone", nil)

	result := f.svc.BulkDelete(ctx, []string{parent.ID, lone.ID}, services.DeletePrevent, testActor)

	assert.Equal(t, []string{lone.ID}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, parent.ID, result.Failed[0].NodeID)
	assert.ErrorIs(t, result.Failed[0].Err, domain.ErrHasChildren)
}

func TestBulkHonorsCancelledContext(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.svc.BulkCreate(ctx, []*services.CreateNodeRequest{
		{Name: "A", Actor: testActor},
		{Name: "B", Actor: testActor},
	})
	assert.Empty(t, result.Succeeded)
	assert.Len(t, result.Failed, 2)
}
