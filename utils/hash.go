package utils

import (
	"github.com/benbjohnson/immutable"
	"golang.org/x/exp/constraints"
)

// orderedComparer compares naturally ordered keys of persistent sorted maps.
type orderedComparer[T constraints.Ordered] struct{}

// Compare orders a before b with a negative result, and after b with a positive one.
func (orderedComparer[T]) Compare(a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// OrderedComparer is a comparer factory for naturally ordered keys.
func OrderedComparer[T constraints.Ordered]() immutable.Comparer[T] { return orderedComparer[T]{} }

// NewSortedMap creates a persistent sorted map over naturally ordered keys.
func NewSortedMap[K constraints.Ordered, V any]() *immutable.SortedMap[K, V] {
	return immutable.NewSortedMap[K, V](OrderedComparer[K]())
}
