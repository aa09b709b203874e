package accumulator

import (
	"fmt"
	"sort"
	"sync"
)

// Scope names the lifetime of an accumulator inside a run.
type Scope string

const (
	// ScopeRun accumulators live for the whole run.
	ScopeRun Scope = "run"
	// ScopeIteration accumulators are reset at the start of every outer iteration.
	ScopeIteration Scope = "iteration"
)

type entry struct {
	acc   Accumulator
	scope Scope
}

// Store tracks the accumulators of one run by name.
type Store struct {
	entries map[string]entry
	order   []string
	mu      sync.RWMutex
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]entry)}
}

// Register adds acc under its name within scope. Registering
// the same name twice is an error.
func (s *Store) Register(scope Scope, acc Accumulator) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[acc.Name()]; exists {
		return fmt.Errorf("accumulator %q already registered", acc.Name())
	}

	s.entries[acc.Name()] = entry{acc: acc, scope: scope}
	s.order = append(s.order, acc.Name())
	return nil
}

// MustText registers a new Text accumulator and panics on name clashes.
func (s *Store) MustText(scope Scope, name, sep string) *Text {
	t := NewText(name, sep)
	if err := s.Register(scope, t); err != nil {
		panic(err)
	}
	return t
}

// Get returns the accumulator registered under name.
func (s *Store) Get(name string) (Accumulator, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[name]
	return e.acc, ok
}

// ResetScope resets every accumulator of scope and returns their names in
// registration order.
func (s *Store) ResetScope(scope Scope) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for _, name := range s.order {
		e := s.entries[name]
		if e.scope != scope {
			continue
		}
		e.acc.Reset()
		names = append(names, name)
	}
	return names
}

// Snapshot reports the current length of every accumulator.
func (s *Store) Snapshot() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]int, len(s.entries))
	for name, e := range s.entries {
		out[name] = e.acc.Len()
	}
	return out
}

// Names lists registered accumulator names in sorted order.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.entries))
	for n := range s.entries {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MustList registers a new List accumulator on s and panics on name clashes.
func MustList[T any](s *Store, scope Scope, name string) *List[T] {
	l := NewList[T](name)
	if err := s.Register(scope, l); err != nil {
		panic(err)
	}
	return l
}
