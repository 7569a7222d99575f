// Package treepath encodes a node's ancestry as a delimiter-framed string
// of ancestor ids, root first. The empty ancestry (a root node) encodes to
// the delimiter alone. Encode and Decode are exact inverses; neither does
// any I/O.
package treepath

import (
	"fmt"
	"strings"

	"qbank/internal/domain"
)

// Delimiter frames and separates ancestor ids inside a materialized path.
// It must never appear inside an id; uuid strings satisfy that.
const Delimiter = "/"

// Encode builds the materialized path for a node whose ancestors, root
// first, are ancestorIDs. Encode(nil) == "/".
func Encode(ancestorIDs []string) string {
	if len(ancestorIDs) == 0 {
		return Delimiter
	}
	return Delimiter + strings.Join(ancestorIDs, Delimiter) + Delimiter
}

// Decode parses a materialized path back into the ancestor id sequence.
// It returns domain.ErrInvalidPath for anything Encode could not have
// produced: missing framing delimiters or empty segments.
func Decode(path string) ([]string, error) {
	if path == Delimiter {
		return []string{}, nil
	}
	if len(path) < 2 || !strings.HasPrefix(path, Delimiter) || !strings.HasSuffix(path, Delimiter) {
		return nil, fmt.Errorf("path %q: %w", path, domain.ErrInvalidPath)
	}
	segments := strings.Split(path[1:len(path)-1], Delimiter)
	for _, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("path %q has an empty segment: %w", path, domain.ErrInvalidPath)
		}
	}
	return segments, nil
}

// Extend returns the path of a child of the node with the given path and
// id, without re-walking the parent chain.
func Extend(parentPath, parentID string) string {
	return parentPath + parentID + Delimiter
}
