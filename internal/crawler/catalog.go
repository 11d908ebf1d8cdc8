package crawler

import (
	"slices"
	"strings"
)

// sortByName orders records by name in codepoint order. Equal names keep
// their input order.
func sortByName[T Named](records []T) []T {
	slices.SortStableFunc(records, func(a, b T) int {
		return strings.Compare(a.GetName(), b.GetName())
	})
	return records
}
