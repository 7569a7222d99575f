package config

const (
	// MaxNodeNameLength is the maximum length for category names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxNodeNameLength = 255

	// MaxTreeDepth is the maximum nesting depth for category nodes
	// (a root is at depth 0). Deeper hierarchies are an organizational
	// anti-pattern and make materialized paths unwieldy.
	MaxTreeDepth = 32

	// MaxChildrenPerNode caps the number of live children under one
	// parent. Keeps sibling reordering and order-index maintenance
	// bounded.
	MaxChildrenPerNode = 5000

	// MaxImportNodes caps the node count of a single imported tree
	// document so one import cannot monopolize the store.
	MaxImportNodes = 10000
)
