// Package seed loads a small sample taxonomy through the service
// layer, for demos and manual testing against a fresh database.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"qbank/internal/domain/services"
)

// seedNode is one entry of the sample taxonomy.
type seedNode struct {
	name     string
	children []seedNode
}

var sampleTaxonomy = []seedNode{
	{name: "Mathematics", children: []seedNode{
		{name: "Algebra", children: []seedNode{
			{name: "Linear Equations"},
			{name: "Polynomials"},
		}},
		{name: "Geometry", children: []seedNode{
			{name: "Triangles"},
			{name: "Circles"},
		}},
		{name: "Statistics"},
	}},
	{name: "Science", children: []seedNode{
		{name: "Physics", children: []seedNode{
			{name: "Mechanics"},
			{name: "Electromagnetism"},
		}},
		{name: "Chemistry"},
		{name: "Biology"},
	}},
	{name: "Languages", children: []seedNode{
		{name: "English Grammar"},
		{name: "Spanish Vocabulary"},
	}},
}

// Taxonomy creates the sample category tree through the tree service.
// Existing categories with the same names make the seed fail; seed into
// a fresh schema.
func Taxonomy(ctx context.Context, svc services.TreeService, actor string, logger *slog.Logger) error {
	created := 0

	type frame struct {
		node     seedNode
		parentID *string
	}
	queue := make([]frame, 0, len(sampleTaxonomy))
	for _, root := range sampleTaxonomy {
		queue = append(queue, frame{root, nil})
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		node, err := svc.Create(ctx, &services.CreateNodeRequest{
			Name:     current.node.name,
			ParentID: current.parentID,
			Actor:    actor,
		})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", current.node.name, err)
		}
		created++

		for _, child := range current.node.children {
			queue = append(queue, frame{child, &node.ID})
		}
	}

	logger.Info("sample taxonomy seeded", "categories", created)
	return nil
}
