package postgres

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
	"qbank/internal/domain/repositories"
)

// setupTestDB connects to the database named by TEST_DATABASE_URL and
// provisions a fresh test_ schema. Tests skip when no database is
// available, so the suite stays runnable without one.
func setupTestDB(t *testing.T) *RepositoryConfig {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping database integration tests")
	}

	ctx := context.Background()
	pool, err := CreateConnectionPool(ctx, url)
	if err != nil {
		t.Skipf("database unreachable: %v", err)
	}

	tables := NewTableNames("test_")
	require.NoError(t, DropSchema(ctx, pool, tables))
	require.NoError(t, EnsureSchema(ctx, pool, tables, "test_"))

	t.Cleanup(func() {
		_ = DropSchema(context.Background(), pool, tables)
		pool.Close()
	})

	return &RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testNode(name string, parentID *string, orderIndex, depth int, path string) *models.Node {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Node{
		ID:         uuid.NewString(),
		Name:       name,
		ParentID:   parentID,
		Path:       path,
		OrderIndex: orderIndex,
		Depth:      depth,
		State:      models.StateActive,
		CreatedAt:  now,
		CreatedBy:  "test",
		ModifiedAt: now,
		ModifiedBy: "test",
	}
}

func TestPostgresNodeStoreRoundTrip(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	ctx := context.Background()

	root := testNode("Mathematics", nil, 0, 0, "/")
	require.NoError(t, store.Create(ctx, root))

	child := testNode("Algebra", &root.ID, 0, 1, "/"+root.ID+"/")
	require.NoError(t, store.Create(ctx, child))

	got, err := store.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Algebra", got.Name)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, root.ID, *got.ParentID)
	assert.Equal(t, 1, got.Depth)

	got.Name = "Linear Algebra"
	require.NoError(t, store.Update(ctx, got))
	again, err := store.Get(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "Linear Algebra", again.Name)

	_, err = store.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresSiblingNameConstraint(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	ctx := context.Background()

	root := testNode("Root", nil, 0, 0, "/")
	require.NoError(t, store.Create(ctx, root))

	first := testNode("Physics", &root.ID, 0, 1, "/"+root.ID+"/")
	require.NoError(t, store.Create(ctx, first))

	// The partial unique index on LOWER(name) backs up the service-level
	// check.
	dup := testNode("PHYSICS", &root.ID, 1, 1, "/"+root.ID+"/")
	err := store.Create(ctx, dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	// Deleting the holder frees the name.
	require.NoError(t, store.SoftDelete(ctx, first.ID, time.Now(), "test"))
	require.NoError(t, store.Create(ctx, dup))
}

func TestPostgresCreateVanishedParent(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	ctx := context.Background()

	// A parent that was never inserted trips the foreign key, which
	// surfaces as a not-found on the parent.
	phantom := uuid.NewString()
	orphan := testNode("Orphan", &phantom, 0, 1, "/"+phantom+"/")
	err := store.Create(ctx, orphan)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	root := testNode("Root", nil, 0, 0, "/")
	require.NoError(t, store.Create(ctx, root))
	child := testNode("Child", &root.ID, 0, 1, "/"+root.ID+"/")
	require.NoError(t, store.Create(ctx, child))

	child.ParentID = &phantom
	err = store.Update(ctx, child)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresChildrenAndSearch(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	ctx := context.Background()

	root := testNode("Root", nil, 0, 0, "/")
	require.NoError(t, store.Create(ctx, root))
	second := testNode("Second", &root.ID, 1, 1, "/"+root.ID+"/")
	require.NoError(t, store.Create(ctx, second))
	first := testNode("First", &root.ID, 0, 1, "/"+root.ID+"/")
	require.NoError(t, store.Create(ctx, first))

	children, err := store.Children(ctx, &root.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, first.ID, children[0].ID)
	assert.Equal(t, second.ID, children[1].ID)

	count, err := store.CountChildren(ctx, &root.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	roots, err := store.Children(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)

	matches, err := store.SearchByName(ctx, "firs")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, first.ID, matches[0].ID)

	require.NoError(t, store.SoftDelete(ctx, first.ID, time.Now(), "test"))
	matches, err = store.SearchByName(ctx, "firs")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPostgresClosureIndex(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	index := NewClosureIndex(config)
	ctx := context.Background()

	a := testNode("A", nil, 0, 0, "/")
	require.NoError(t, store.Create(ctx, a))
	b := testNode("B", &a.ID, 0, 1, "/"+a.ID+"/")
	require.NoError(t, store.Create(ctx, b))
	c := testNode("C", &b.ID, 0, 2, "/"+a.ID+"/"+b.ID+"/")
	require.NoError(t, store.Create(ctx, c))
	r := testNode("R", nil, 1, 0, "/")
	require.NoError(t, store.Create(ctx, r))

	require.NoError(t, index.Insert(ctx, []repositories.ClosureRow{
		{AncestorID: a.ID, DescendantID: a.ID, Depth: 0},
		{AncestorID: b.ID, DescendantID: b.ID, Depth: 0},
		{AncestorID: c.ID, DescendantID: c.ID, Depth: 0},
		{AncestorID: r.ID, DescendantID: r.ID, Depth: 0},
		{AncestorID: a.ID, DescendantID: b.ID, Depth: 1},
		{AncestorID: a.ID, DescendantID: c.ID, Depth: 2},
		{AncestorID: b.ID, DescendantID: c.ID, Depth: 1},
	}))

	ancestors, err := index.Ancestors(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, a.ID, ancestors[0].AncestorID)
	assert.Equal(t, b.ID, ancestors[1].AncestorID)

	descendants, err := index.Descendants(ctx, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, descendants, 2)

	// Move b's subtree under r.
	require.NoError(t, index.DetachSubtree(ctx, b.ID))
	require.NoError(t, index.AttachSubtree(ctx, b.ID, &r.ID))

	ancestors, err = index.Ancestors(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 2)
	assert.Equal(t, r.ID, ancestors[0].AncestorID)
	assert.Equal(t, 2, ancestors[0].Depth)
	assert.Equal(t, b.ID, ancestors[1].AncestorID)
}

func TestPostgresTransactionRollback(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	tm := NewTransactionManager(config.Pool)
	ctx := context.Background()

	node := testNode("Doomed", nil, 0, 0, "/")
	err := tm.ExecTx(ctx, func(txCtx context.Context) error {
		if err := store.Create(txCtx, node); err != nil {
			return err
		}
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	_, err = store.Get(ctx, node.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostgresTransactionCommit(t *testing.T) {
	config := setupTestDB(t)
	store := NewNodeStore(config)
	tm := NewTransactionManager(config.Pool)
	ctx := context.Background()

	node := testNode("Kept", nil, 0, 0, "/")
	require.NoError(t, tm.ExecTx(ctx, func(txCtx context.Context) error {
		return store.Create(txCtx, node)
	}))

	got, err := store.Get(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Name)
}
