package core

import (
	"fmt"
	"strings"
)

// AgentInvocationError reports a transport, timeout or remote failure while
// calling an agent. It is fatal to the current run.
type AgentInvocationError struct {
	AgentID string
	Err     error
}

func (e *AgentInvocationError) Error() string {
	return fmt.Sprintf("agent %s invocation failed: %v", e.AgentID, e.Err)
}

// Unwrap exposes the underlying cause (e.g. context.DeadlineExceeded).
func (e *AgentInvocationError) Unwrap() error { return e.Err }

// SchemaValidationError reports a structured agent response that does not
// conform to its closed response schema.
type SchemaValidationError struct {
	Schema  string `json:"schema"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *SchemaValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema %s: %s", e.Schema, e.Message)
	}
	return fmt.Sprintf("schema %s: field '%s': %s", e.Schema, e.Field, e.Message)
}

// AlignmentError reports parallel arrays whose lengths differ.
type AlignmentError struct {
	Schema  string
	Fields  []string
	Lengths []int
}

func (e *AlignmentError) Error() string {
	pairs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		pairs[i] = fmt.Sprintf("%s=%d", f, e.Lengths[i])
	}
	return fmt.Sprintf("schema %s: parallel arrays not aligned (%s)", e.Schema, strings.Join(pairs, ", "))
}

// UngroundedCitationError reports cited sources that were never supplied to
// the agent producing the final artifact.
type UngroundedCitationError struct {
	AgentID string
	Sources []string
}

func (e *UngroundedCitationError) Error() string {
	return fmt.Sprintf("agent %s cited sources outside the supplied evidence: %s", e.AgentID, strings.Join(e.Sources, ", "))
}

// CheckCitations returns an UngroundedCitationError listing every cited
// source absent from supplied, or nil when all citations are grounded.
func CheckCitations(agentID string, cited, supplied []string) error {
	known := make(map[string]struct{}, len(supplied))
	for _, s := range supplied {
		known[strings.TrimSpace(s)] = struct{}{}
	}

	var missing []string
	for _, c := range cited {
		if _, ok := known[strings.TrimSpace(c)]; !ok {
			missing = append(missing, c)
		}
	}

	if len(missing) > 0 {
		return &UngroundedCitationError{AgentID: agentID, Sources: missing}
	}

	return nil
}
