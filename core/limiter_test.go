package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvocationBudget(t *testing.T) {
	b := NewInvocationBudget(2)

	require.NoError(t, b.Spend("a"))
	assert.Equal(t, 1, b.Remaining())
	require.NoError(t, b.Spend("b"))
	assert.Equal(t, 0, b.Remaining())

	err := b.Spend("c")

	var aie *AgentInvocationError
	require.ErrorAs(t, err, &aie)
	assert.Equal(t, "c", aie.AgentID)
	assert.Contains(t, aie.Error(), "budget of 2 calls exhausted")
	assert.Equal(t, 3, b.Count())
}

func TestInvocationBudgetUnlimited(t *testing.T) {
	b := NewInvocationBudget(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, b.Spend("a"))
	}
	assert.Equal(t, -1, b.Remaining())
	assert.Equal(t, 100, b.Count())
}

func TestInvocationBudgetNil(t *testing.T) {
	var b *InvocationBudget
	assert.NoError(t, b.Spend("a"))
}

func TestInvocationBudgetConcurrent(t *testing.T) {
	b := NewInvocationBudget(50)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed int
	)
	for i := 0; i < 80; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Spend("a") != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 30, failed)
	assert.Equal(t, 80, b.Count())
}
