package world

import (
	"strings"

	"golang.org/x/text/cases"
)

// FoldName normalizes a display name for identity matching: surrounding
// whitespace is trimmed and the result is Unicode case-folded.
func FoldName(s string) string {
	// Casers carry state and are not shared between goroutines
	return cases.Fold().String(strings.TrimSpace(s))
}

// SameName reports whether two display names refer to the same entity.
// Matching by name is a heuristic: a renamed entity looks like a new one.
func SameName(a, b string) bool {
	return FoldName(a) == FoldName(b)
}
