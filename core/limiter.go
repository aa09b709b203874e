package core

import (
	"fmt"
	"sync"
)

// InvocationBudget enforces a maximum number of agent invocations per run.
type InvocationBudget struct {
	max   int
	count int
	mu    sync.Mutex
}

// NewInvocationBudget creates a budget allowing max invocations.
// If max == 0, unlimited invocations are allowed.
func NewInvocationBudget(max int) *InvocationBudget {
	return &InvocationBudget{max: max}
}

// Spend records one invocation and returns an error once the budget is exhausted.
func (b *InvocationBudget) Spend(agentID string) error {
	if b == nil {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.count++
	if b.max > 0 && b.count > b.max {
		return &AgentInvocationError{
			AgentID: agentID,
			Err:     fmt.Errorf("invocation budget of %d calls exhausted", b.max),
		}
	}

	return nil
}

// Count returns the number of invocations spent so far.
func (b *InvocationBudget) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.count
}

// Remaining returns how many invocations are left before hitting the limit.
func (b *InvocationBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.max == 0 {
		return -1 // unlimited
	}

	return b.max - b.count
}
