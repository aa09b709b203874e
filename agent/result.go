package agent

import (
	"fmt"
	"strings"

	"github.com/hupe1980/researchflow/core"
)

// Result is the closed set of agent outputs: *TextResult,
// *StructuredResult or *MessageTableResult.
type Result interface {
	Agent() string
	Contract() Contract
	isResult()
}

// TextResult is free text.
type TextResult struct {
	AgentID string
	Text    string
}

func (r *TextResult) Agent() string      { return r.AgentID }
func (r *TextResult) Contract() Contract { return ContractText }
func (*TextResult) isResult()            {}

// StructuredResult is a validated response DTO (a pointer to a schema type).
type StructuredResult struct {
	AgentID string
	Schema  string
	Value   any
	Raw     string
}

func (r *StructuredResult) Agent() string      { return r.AgentID }
func (r *StructuredResult) Contract() Contract { return ContractStrictJSON }
func (*StructuredResult) isResult()            {}

// MessageTableResult is the ordered transcript of a tool-equipped agent.
type MessageTableResult struct {
	AgentID  string
	Messages []core.Message
}

func (r *MessageTableResult) Agent() string      { return r.AgentID }
func (r *MessageTableResult) Contract() Contract { return ContractMessageTable }
func (*MessageTableResult) isResult()            {}

// Flatten joins the non-empty message texts with a single newline, in
// transcript order.
func (r *MessageTableResult) Flatten() string {
	parts := make([]string, 0, len(r.Messages))
	for _, m := range r.Messages {
		if m.Text == "" {
			continue
		}
		parts = append(parts, m.Text)
	}
	return strings.Join(parts, "\n")
}

// ContractError reports a Result variant other than the one a caller expected.
type ContractError struct {
	AgentID string
	Want    Contract
	Got     Contract
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("agent %s: expected %s result, got %s", e.AgentID, e.Want, e.Got)
}

// Text returns the text of a TextResult, or the flattened transcript of a
// MessageTableResult.
func Text(r Result) (string, error) {
	switch v := r.(type) {
	case *TextResult:
		return v.Text, nil
	case *MessageTableResult:
		return v.Flatten(), nil
	default:
		return "", &ContractError{AgentID: r.Agent(), Want: ContractText, Got: r.Contract()}
	}
}

// Structured returns the DTO of a StructuredResult as *T.
func Structured[T any](r Result) (*T, error) {
	sr, ok := r.(*StructuredResult)
	if !ok {
		return nil, &ContractError{AgentID: r.Agent(), Want: ContractStrictJSON, Got: r.Contract()}
	}

	v, ok := sr.Value.(*T)
	if !ok {
		return nil, fmt.Errorf("agent %s: schema %s decoded to %T, not %T", sr.AgentID, sr.Schema, sr.Value, new(T))
	}

	return v, nil
}

// Messages returns the transcript of a MessageTableResult.
func Messages(r Result) ([]core.Message, error) {
	mt, ok := r.(*MessageTableResult)
	if !ok {
		return nil, &ContractError{AgentID: r.Agent(), Want: ContractMessageTable, Got: r.Contract()}
	}
	return mt.Messages, nil
}
