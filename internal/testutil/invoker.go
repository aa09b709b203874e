package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/schema"
)

// Call records one invocation.
type Call struct {
	AgentID string
	Prompt  string
}

type step struct {
	result agent.Result
	err    error
}

// ScriptedInvoker is an agent.Invoker replaying queued results.
type ScriptedInvoker struct {
	mu     sync.Mutex
	queues map[string][]step
	calls  []Call
}

// NewScriptedInvoker creates an empty invoker.
func NewScriptedInvoker() *ScriptedInvoker {
	return &ScriptedInvoker{queues: make(map[string][]step)}
}

// Invoke implements agent.Invoker. An agent without queued results fails the
// call with an AgentInvocationError so unexpected invocations surface in tests.
func (s *ScriptedInvoker) Invoke(ctx context.Context, agentID, prompt string) (agent.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{AgentID: agentID, Prompt: prompt})

	queue := s.queues[agentID]
	if len(queue) == 0 {
		return nil, &core.AgentInvocationError{AgentID: agentID, Err: fmt.Errorf("no scripted result left")}
	}

	s.queues[agentID] = queue[1:]

	return queue[0].result, queue[0].err
}

// Text queues a TextResult.
func (s *ScriptedInvoker) Text(agentID, text string) *ScriptedInvoker {
	return s.push(agentID, step{result: &agent.TextResult{AgentID: agentID, Text: text}})
}

// JSON queues a StructuredResult decoded through the named schema contract.
// It panics when raw violates the contract; use Fail for error paths.
func (s *ScriptedInvoker) JSON(agentID, schemaName, raw string) *ScriptedInvoker {
	c, ok := schema.Lookup(schemaName)
	if !ok {
		panic(fmt.Sprintf("testutil: unknown schema %q", schemaName))
	}

	v, err := c.Decode([]byte(raw))
	if err != nil {
		panic(fmt.Sprintf("testutil: %s payload for %s: %v", schemaName, agentID, err))
	}

	return s.push(agentID, step{result: &agent.StructuredResult{AgentID: agentID, Schema: schemaName, Value: v, Raw: raw}})
}

// Table queues a MessageTableResult.
func (s *ScriptedInvoker) Table(agentID string, msgs ...core.Message) *ScriptedInvoker {
	return s.push(agentID, step{result: &agent.MessageTableResult{AgentID: agentID, Messages: msgs}})
}

// Fail queues an error.
func (s *ScriptedInvoker) Fail(agentID string, err error) *ScriptedInvoker {
	return s.push(agentID, step{err: err})
}

func (s *ScriptedInvoker) push(agentID string, st step) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queues[agentID] = append(s.queues[agentID], st)
	return s
}

// Calls returns every recorded call in order.
func (s *ScriptedInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallsTo returns the recorded calls for agentID in order.
func (s *ScriptedInvoker) CallsTo(agentID string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Call
	for _, c := range s.calls {
		if c.AgentID == agentID {
			out = append(out, c)
		}
	}
	return out
}

// Sequence returns the agent ids in call order.
func (s *ScriptedInvoker) Sequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.AgentID
	}
	return out
}

// Pending reports how many scripted results were never consumed.
func (s *ScriptedInvoker) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, q := range s.queues {
		n += len(q)
	}
	return n
}
