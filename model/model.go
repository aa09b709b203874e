package model

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hupe1980/researchflow/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// ResponseFormat asks the provider to emit a JSON object matching Schema.
type ResponseFormat struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
	Strict bool           `json:"strict"`
}

// Request captures the normalized model input produced by the agent invoker.
type Request struct {
	AgentID         string           `json:"agent_id,omitempty"` // Caller identity, not sent to providers
	Model           string           `json:"model,omitempty"`    // Overrides the adapter default when set
	Instructions    string           `json:"instructions"`
	Contents        []core.Content   `json:"contents"`
	Tools           []ToolDefinition `json:"tools,omitempty"`
	ResponseFormat  *ResponseFormat  `json:"response_format,omitempty"`
	Temperature     *float64         `json:"temperature,omitempty"`
	MaxOutputTokens int64            `json:"max_output_tokens,omitempty"`
	Stream          bool             `json:"stream,omitempty"`
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a streaming model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"`
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "mock", etc.
	SupportsTools bool   `json:"supports_tools"`
}

// Model is the minimal interface required by the agent invoker to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains a Generate call and returns the final (non-partial) response.
func Collect(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final Response
		got   bool
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !r.Partial {
				final = r
				got = true
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}

	if !got {
		return Response{}, fmt.Errorf("model %s returned no final response", m.Info().Name)
	}

	return final, nil
}

// IsReasoningModel reports whether name refers to a model family that rejects
// sampling parameters such as temperature.
func IsReasoningModel(name string) bool {
	n := strings.ToLower(name)
	for _, prefix := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
//
// Responses are resolved in order: a queued script for the request's AgentID,
// a canned completion keyed by the last user text, then an echo.
type MockModel struct {
	info      Info
	mu        sync.Mutex
	responses map[string]string
	scripts   map[string][]core.Content
	failures  map[string]error
	requests  []Request
}

// NewMockModel constructs a MockModel with basic tool support enabled.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:          name,
			Provider:      provider,
			SupportsTools: true,
		},
		responses: make(map[string]string),
		scripts:   make(map[string][]core.Content),
		failures:  make(map[string]error),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Script queues assistant turns returned, one per call, for agentID.
func (m *MockModel) Script(agentID string, turns ...core.Content) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[agentID] = append(m.scripts[agentID], turns...)
}

// Fail makes every call for agentID return err.
func (m *MockModel) Fail(agentID string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[agentID] = err
}

// Requests returns a copy of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	copy(out, m.requests)
	return out
}

func (m *MockModel) next(req Request) (core.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)

	if err, ok := m.failures[req.AgentID]; ok {
		return core.Content{}, err
	}
	if queue := m.scripts[req.AgentID]; len(queue) > 0 {
		m.scripts[req.AgentID] = queue[1:]
		return queue[0], nil
	}
	if len(req.Contents) == 0 {
		return core.Content{}, fmt.Errorf("no contents provided")
	}
	inputText := req.Contents[len(req.Contents)-1].Text()
	full := m.responses[inputText]
	if full == "" {
		full = fmt.Sprintf("Mock response to: %s", inputText)
	}
	return core.NewTextContent("assistant", full), nil
}

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)

		content, err := m.next(req)
		if err != nil {
			errCh <- err
			return
		}
		if req.Stream {
			for _, r := range content.Text() {
				select {
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				case respCh <- Response{
					Partial: true,
					Content: core.NewTextContent("assistant", string(r)),
				}:
				}
			}
		}
		finish := "stop"
		if len(content.FunctionCalls()) > 0 {
			finish = "tool_calls"
		}
		select {
		case <-ctx.Done():
			errCh <- ctx.Err()
		case respCh <- Response{Partial: false, Content: content, FinishReason: finish}:
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
