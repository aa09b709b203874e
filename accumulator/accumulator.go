package accumulator

import (
	"strings"
	"sync"
)

// Accumulator is the common surface of Text and List.
type Accumulator interface {
	Name() string
	Len() int
	Reset()
}

// Text accumulates string parts in insertion order.
type Text struct {
	name  string
	sep   string
	parts []string
	mu    sync.RWMutex
}

// NewText creates an empty text accumulator joining parts with sep.
func NewText(name, sep string) *Text {
	return &Text{name: name, sep: sep}
}

// Name returns the accumulator name.
func (t *Text) Name() string { return t.name }

// Append adds parts to the end. Empty parts are kept so callers control the
// exact rendering.
func (t *Text) Append(parts ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.parts = append(t.parts, parts...)
}

// String renders all parts joined by the separator.
func (t *Text) String() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return strings.Join(t.parts, t.sep)
}

// Len returns the number of appended parts.
func (t *Text) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.parts)
}

// Reset drops every part.
func (t *Text) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.parts = nil
}

// List accumulates items in insertion order.
type List[T any] struct {
	name  string
	items []T
	mu    sync.RWMutex
}

// NewList creates an empty list accumulator.
func NewList[T any](name string) *List[T] {
	return &List[T]{name: name}
}

// Name returns the accumulator name.
func (l *List[T]) Name() string { return l.name }

// Append adds items to the end.
func (l *List[T]) Append(items ...T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = append(l.items, items...)
}

// Items returns a copy of the accumulated items.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return len(l.items)
}

// Reset drops every item.
func (l *List[T]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = nil
}

// Distinct returns items without duplicates, keeping first occurrences.
func Distinct[T comparable](items []T) []T {
	seen := make(map[T]struct{}, len(items))
	out := make([]T, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
