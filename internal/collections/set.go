// Package collections holds small generic containers shared by the evaluator
// and the registry.
package collections

import (
	"cmp"
	"slices"
)

// Set is a collection of unique items backed by a map.
type Set[T comparable] struct {
	items map[T]struct{}
}

// NewSet creates a set holding the given items.
func NewSet[T comparable](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[T]struct{}, len(items))}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

// Add inserts an item and reports whether it was not already present.
func (s *Set[T]) Add(item T) bool {
	if _, exists := s.items[item]; exists {
		return false
	}
	s.items[item] = struct{}{}
	return true
}

func (s *Set[T]) Contains(item T) bool {
	_, exists := s.items[item]
	return exists
}

// Path is a stack of distinct items that remembers insertion order. The
// evaluator uses it to track the fields currently being computed.
type Path[T comparable] struct {
	order []T
	index map[T]int
}

func NewPath[T comparable]() *Path[T] {
	return &Path[T]{index: make(map[T]int)}
}

// Push appends item. It returns false, leaving the path unchanged, when item
// is already on the path.
func (p *Path[T]) Push(item T) bool {
	if _, exists := p.index[item]; exists {
		return false
	}
	p.index[item] = len(p.order)
	p.order = append(p.order, item)
	return true
}

// Pop removes the most recently pushed item.
func (p *Path[T]) Pop() {
	if len(p.order) == 0 {
		return
	}
	last := p.order[len(p.order)-1]
	p.order = p.order[:len(p.order)-1]
	delete(p.index, last)
}

func (p *Path[T]) Contains(item T) bool {
	_, exists := p.index[item]
	return exists
}

// Top returns the most recently pushed item.
func (p *Path[T]) Top() (T, bool) {
	if len(p.order) == 0 {
		var zero T
		return zero, false
	}
	return p.order[len(p.order)-1], true
}

// From returns the items from item to the top of the path, or nil when item
// is not on it.
func (p *Path[T]) From(item T) []T {
	i, exists := p.index[item]
	if !exists {
		return nil
	}
	return slices.Clone(p.order[i:])
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}
