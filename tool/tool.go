// Package tool implements the backends tool-equipped agents may call: web
// search, internal document search and knowledge-base retrieval. Each backend
// is exposed to models as a single function with schema validated arguments
// and consistent error handling.
package tool

import (
	"context"
	"fmt"
)

// Kind names the tool an agent definition may declare. An agent declares at
// most one kind.
type Kind string

const (
	KindWebSearch      Kind = "web_search"
	KindInternalSearch Kind = "internal_search"
	KindRetrieval      Kind = "retrieval"
)

// Valid reports whether k is a known tool kind.
func (k Kind) Valid() bool {
	switch k {
	case KindWebSearch, KindInternalSearch, KindRetrieval:
		return true
	default:
		return false
	}
}

// Tool defines the interface for extending agent capabilities with external functions.
//
// Implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Define proper JSON schema for parameters
//   - Be thread-safe; retrieval may fan out across goroutines
type Tool interface {
	// Name returns the function name models use to call the tool (snake_case).
	Name() string

	// Description returns a human-readable description shown to the model.
	Description() string

	// Parameters returns a JSON schema describing the expected arguments.
	Parameters() map[string]any

	// Call executes the tool with arguments parsed from the model's JSON.
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}

// Set maps tool kinds to their configured backends.
type Set map[Kind]Tool

// Get returns the backend for kind or an error when none is configured.
func (s Set) Get(kind Kind) (Tool, error) {
	t, ok := s[kind]
	if !ok || t == nil {
		return nil, fmt.Errorf("no backend configured for tool %q", kind)
	}
	return t, nil
}
