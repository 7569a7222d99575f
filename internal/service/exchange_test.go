package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qbank/internal/domain"
	"qbank/internal/domain/models"
)

func TestExportSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	math := f.create(t, "Mathematics", nil)
	algebra := f.create(t, "Algebra", &math.ID)
	f.create(t, "Geometry", &math.ID)
	f.create(t, "Linear", &algebra.ID)

	doc, err := f.svc.ExportSubtree(ctx, math.ID, false)
	require.NoError(t, err)

	assert.Equal(t, "Mathematics", doc.Name)
	require.Len(t, doc.Children, 2)
	assert.Equal(t, "Algebra", doc.Children[0].Name)
	assert.Equal(t, "Geometry", doc.Children[1].Name)
	require.Len(t, doc.Children[0].Children, 1)
	assert.Equal(t, "Linear", doc.Children[0].Children[0].Name)
}

func TestExportInactiveHandling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	root := f.create(t, "Root", nil)
	hidden := f.create(t, "Hidden", &root.ID)
	f.create(t, "Hidden child", &hidden.ID)
	f.create(t, "Visible", &root.ID)
	_, err := f.svc.SetActive(ctx, hidden.ID, false, testActor)
	require.NoError(t, err)

	doc, err := f.svc.ExportSubtree(ctx, root.ID, false)
	require.NoError(t, err)
	require.Len(t, doc.Children, 1)
	assert.Equal(t, "Visible", doc.Children[0].Name)

	doc, err = f.svc.ExportSubtree(ctx, root.ID, true)
	require.NoError(t, err)
	require.Len(t, doc.Children, 2)
	assert.Equal(t, "inactive", doc.Children[0].Metadata["state"])
	assert.Len(t, doc.Children[0].Children, 1)
}

func TestExportMissingOrDeletedRoot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ExportSubtree(ctx, "missing", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inactive := f.create(t, "Inactive root", nil)
	_, err = f.svc.SetActive(ctx, inactive.ID, false, testActor)
	require.NoError(t, err)
	_, err = f.svc.ExportSubtree(ctx, inactive.ID, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestImportSubtree(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.create(t, "Target", nil)

	doc := &models.TreeDocument{
		Name: "Imported",
		Children: []*models.TreeDocument{
			{Name: "First", Children: []*models.TreeDocument{{Name: "Nested"}}},
			{Name: "Second", Metadata: map[string]string{"state": "inactive"}},
		},
	}

	result, err := f.svc.ImportSubtree(ctx, doc, &target.ID, testActor)
	require.NoError(t, err)
	assert.Len(t, result.CreatedIDs, 4)

	root, err := f.svc.GetNode(ctx, result.RootID)
	require.NoError(t, err)
	assert.Equal(t, "Imported", root.Name)
	assert.Equal(t, target.ID, *root.ParentID)
	assert.Equal(t, 1, root.Depth)

	children, err := f.svc.Children(ctx, &result.RootID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "First", children[0].Name)
	assert.Equal(t, 0, children[0].OrderIndex)
	assert.Equal(t, models.StateInactive, children[1].State)
}

func TestImportExportRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	math := f.create(t, "Mathematics", nil)
	algebra := f.create(t, "Algebra", &math.ID)
	f.create(t, "Geometry", &math.ID)
	f.create(t, "Linear", &algebra.ID)

	doc, err := f.svc.ExportSubtree(ctx, math.ID, true)
	require.NoError(t, err)

	other := f.create(t, "Other", nil)
	result, err := f.svc.ImportSubtree(ctx, doc, &other.ID, testActor)
	require.NoError(t, err)
	assert.Len(t, result.CreatedIDs, 4)
	assert.NotEqual(t, math.ID, result.RootID)

	// Re-exporting the copy yields a structurally identical document.
	copied, err := f.svc.ExportSubtree(ctx, result.RootID, true)
	require.NoError(t, err)
	assert.Equal(t, doc, copied)
}

func TestImportIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doc := &models.TreeDocument{
		Name: "Root",
		Children: []*models.TreeDocument{
			{Name: "Twin"},
			{Name: "twin"}, // duplicate at one level
		},
	}

	_, err := f.svc.ImportSubtree(ctx, doc, nil, testActor)
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	// Validation runs before any node is written.
	all, err := f.nodes.All(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestImportRejectsBadDocuments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		doc  *models.TreeDocument
		want error
	}{
		{"nil document", nil, domain.ErrValidation},
		{"blank name", &models.TreeDocument{Name: "  "}, domain.ErrValidation},
		{"delimiter in name", &models.TreeDocument{Name: "a/b"}, domain.ErrValidation},
		{"deleted state metadata", &models.TreeDocument{
			Name:     "Root",
			Metadata: map[string]string{"state": "deleted"},
		}, domain.ErrValidation},
		{"nil child", &models.TreeDocument{
			Name:     "Root",
			Children: []*models.TreeDocument{nil},
		}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.ImportSubtree(ctx, tt.doc, nil, testActor)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestImportDepthLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var parentID *string
	var deepest string
	for i := 0; i < 32; i++ {
		node := f.create(t, fmt.Sprintf("Level %d", i), parentID)
		deepest = node.ID
		parentID = &node.ID
	}

	doc := &models.TreeDocument{
		Name:     "Too deep",
		Children: []*models.TreeDocument{{Name: "Leaf"}},
	}
	_, err := f.svc.ImportSubtree(ctx, doc, &deepest, testActor)
	assert.ErrorIs(t, err, domain.ErrMaxDepthExceeded)
}

func TestImportDuplicateAtTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	target := f.create(t, "Target", nil)
	f.create(t, "Existing", &target.ID)

	doc := &models.TreeDocument{Name: "EXISTING"}
	_, err := f.svc.ImportSubtree(ctx, doc, &target.ID, testActor)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)
}
