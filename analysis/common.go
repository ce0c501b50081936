package analysis

import (
	"cmp"
	"slices"
)

// EntityCount is a name seen Count times in the stream: a parser, a
// facility or a source.
type EntityCount struct {
	Name  string
	Count int
}

// SortByCount flattens counts, most frequent first and ties by name.
func SortByCount(counts map[string]int) []EntityCount {
	items := make([]EntityCount, 0, len(counts))
	for name, n := range counts {
		items = append(items, EntityCount{Name: name, Count: n})
	}
	slices.SortFunc(items, func(a, b EntityCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return items
}

func top(items []EntityCount, n int) []EntityCount {
	if len(items) > n {
		return items[:n]
	}
	return items
}
