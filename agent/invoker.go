package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/metrics"
	"github.com/hupe1980/researchflow/model"
	"github.com/hupe1980/researchflow/schema"
	"github.com/hupe1980/researchflow/tool"
)

// Invoker calls one agent with a fully rendered prompt.
type Invoker interface {
	Invoke(ctx context.Context, agentID, prompt string) (Result, error)
}

// InvokerOptions configures a ModelInvoker.
type InvokerOptions struct {
	// Timeout bounds a single invocation including its tool rounds.
	Timeout time.Duration
	// MaxToolRounds bounds model turns that request tool calls.
	MaxToolRounds int
	// Budget caps invocations; nil means unlimited.
	Budget   *core.InvocationBudget
	Logger   logging.Logger
	Recorder metrics.Recorder
}

// ModelInvoker implements Invoker on top of a model.Model.
type ModelInvoker struct {
	registry *Registry
	llm      model.Model
	tools    tool.Set
	opts     InvokerOptions
}

// NewInvoker creates an invoker for the agents in registry. Tool-equipped
// agents resolve their backend from tools at call time.
func NewInvoker(registry *Registry, llm model.Model, tools tool.Set, optFns ...func(o *InvokerOptions)) *ModelInvoker {
	opts := InvokerOptions{
		Timeout:       120 * time.Second,
		MaxToolRounds: 4,
		Logger:        logging.NoOpLogger{},
		Recorder:      metrics.Nop(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if tools == nil {
		tools = tool.Set{}
	}

	return &ModelInvoker{
		registry: registry,
		llm:      llm,
		tools:    tools,
		opts:     opts,
	}
}

// Invoke implements Invoker.
func (i *ModelInvoker) Invoke(ctx context.Context, agentID, prompt string) (Result, error) {
	def, err := i.registry.Get(agentID)
	if err != nil {
		return nil, err
	}

	if err := i.opts.Budget.Spend(agentID); err != nil {
		return nil, err
	}

	if i.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.opts.Timeout)
		defer cancel()
	}

	start := time.Now()

	res, usage, err := i.invoke(ctx, def, prompt)

	dur := time.Since(start)
	i.opts.Recorder.ObserveAgentCall(agentID, string(def.Contract()), int64(usage.PromptTokens), int64(usage.CompletionTokens), err == nil, dur)

	switch cl, ok := i.opts.Logger.(logging.AgentCallLogger); {
	case ok:
		cl.LogAgentCall(agentID, def.Model, string(def.Contract()), dur, err == nil, err)
	case err != nil:
		i.opts.Logger.Error("agent.invoke.error",
			"agent", agentID,
			"model", def.Model,
			"contract", def.Contract(),
			"duration_ms", dur.Milliseconds(),
			"error", err.Error(),
		)
	default:
		i.opts.Logger.Info("agent.invoke",
			"agent", agentID,
			"model", def.Model,
			"contract", def.Contract(),
			"duration_ms", dur.Milliseconds(),
			"prompt_tokens", usage.PromptTokens,
			"completion_tokens", usage.CompletionTokens,
		)
	}

	if err != nil {
		return nil, err
	}

	return res, nil
}

func (i *ModelInvoker) invoke(ctx context.Context, def Definition, prompt string) (Result, model.TokenUsage, error) {
	var usage model.TokenUsage

	req, backend, err := i.buildRequest(def, prompt)
	if err != nil {
		return nil, usage, err
	}

	var (
		transcript []core.Message
		final      core.Content
	)

	for round := 0; ; round++ {
		resp, err := model.Collect(ctx, i.llm, req)
		if err != nil {
			return nil, usage, &core.AgentInvocationError{AgentID: def.Name, Err: err}
		}

		if resp.Usage != nil {
			usage.PromptTokens += resp.Usage.PromptTokens
			usage.CompletionTokens += resp.Usage.CompletionTokens
			usage.TotalTokens += resp.Usage.TotalTokens
		}

		final = resp.Content
		if text := strings.TrimSpace(resp.Content.Text()); text != "" {
			transcript = append(transcript, core.Message{Role: "assistant", Text: text})
		}

		calls := resp.Content.FunctionCalls()
		if len(calls) == 0 {
			break
		}

		if backend == nil {
			return nil, usage, &core.AgentInvocationError{
				AgentID: def.Name,
				Err:     fmt.Errorf("model requested tool %q but agent declares no tool", calls[0].Name),
			}
		}

		if round >= i.opts.MaxToolRounds {
			return nil, usage, &core.AgentInvocationError{
				AgentID: def.Name,
				Err:     fmt.Errorf("tool-call loop exceeded %d rounds", i.opts.MaxToolRounds),
			}
		}

		responses := core.Content{Role: "tool"}
		for _, fc := range calls {
			if fc.ID == "" {
				fc.ID = core.NewID()
			}

			transcript = append(transcript, core.Message{Role: "tool_call", Text: fc.Arguments, ToolName: fc.Name})

			result, callErr := i.executeTool(ctx, def.Name, backend, fc)

			fr := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
			row := core.Message{Role: "tool", ToolName: fc.Name}
			if callErr != nil {
				fr.Error = callErr.Error()
				row.Text = "error: " + callErr.Error()
			} else {
				row.Text = renderToolOutput(result)
			}

			transcript = append(transcript, row)
			responses.Parts = append(responses.Parts, core.FunctionResponsePart{FunctionResponse: fr})
		}

		// Echo the assistant turn with ids filled in, then the tool outputs.
		req.Contents = append(req.Contents, withCallIDs(resp.Content, responses), responses)
	}

	switch def.Contract() {
	case ContractStrictJSON:
		raw := final.Text()

		c, _ := schema.Lookup(def.ResponseFormat.Schema)
		v, err := c.Decode([]byte(raw))
		if err != nil {
			return nil, usage, err
		}

		return &StructuredResult{AgentID: def.Name, Schema: c.Name, Value: v, Raw: raw}, usage, nil
	case ContractMessageTable:
		return &MessageTableResult{AgentID: def.Name, Messages: transcript}, usage, nil
	default:
		return &TextResult{AgentID: def.Name, Text: final.Text()}, usage, nil
	}
}

func (i *ModelInvoker) buildRequest(def Definition, prompt string) (model.Request, tool.Tool, error) {
	req := model.Request{
		AgentID:         def.Name,
		Model:           def.Model,
		Instructions:    def.Instructions,
		Contents:        []core.Content{core.NewTextContent("user", prompt)},
		MaxOutputTokens: def.MaxTokens,
	}

	// Reasoning models reject sampling parameters.
	if def.Temperature != nil && !model.IsReasoningModel(def.Model) {
		t := *def.Temperature
		req.Temperature = &t
	}

	if def.Contract() == ContractStrictJSON {
		c, ok := schema.Lookup(def.ResponseFormat.Schema)
		if !ok {
			return req, nil, fmt.Errorf("agent %s: unknown schema %q", def.Name, def.ResponseFormat.Schema)
		}
		req.ResponseFormat = &model.ResponseFormat{Name: c.Name, Schema: c.Schema, Strict: true}
	}

	if def.Tool == "" {
		return req, nil, nil
	}

	backend, err := i.tools.Get(def.Tool)
	if err != nil {
		return req, nil, fmt.Errorf("agent %s: %w", def.Name, err)
	}

	req.Tools = []model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        backend.Name(),
			Description: backend.Description(),
			Parameters:  backend.Parameters(),
		},
	}}

	return req, backend, nil
}

// executeTool runs one function call with panic safety.
func (i *ModelInvoker) executeTool(ctx context.Context, agentID string, backend tool.Tool, fc core.FunctionCall) (result any, err error) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &panicErr{val: r, stack: debug.Stack()}
			i.opts.Logger.Error("agent.function.panic", "agent", agentID, "function", fc.Name, "recover", r)
		}

		i.opts.Logger.Info(
			"agent.function.executed",
			"agent", agentID,
			"function", fc.Name,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)
	}()

	if fc.Name != backend.Name() {
		return nil, fmt.Errorf("tool %s not found", fc.Name)
	}

	args := map[string]any{}
	if strings.TrimSpace(fc.Arguments) != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return nil, fmt.Errorf("failed to unmarshal args: %w", err)
		}
	}

	return backend.Call(ctx, args)
}

type panicErr struct {
	val   any
	stack []byte
}

func (p *panicErr) Error() string { return fmt.Sprintf("panic recovered: %v", p.val) }

func renderToolOutput(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

// withCallIDs copies the assistant turn, stamping generated call ids taken
// from the matching tool responses.
func withCallIDs(turn core.Content, responses core.Content) core.Content {
	out := core.Content{Role: turn.Role, Parts: make([]core.Part, 0, len(turn.Parts))}
	n := 0
	for _, p := range turn.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok && n < len(responses.Parts) {
			if fr, ok := responses.Parts[n].(core.FunctionResponsePart); ok {
				fc.FunctionCall.ID = fr.FunctionResponse.ID
			}
			n++
			p = fc
		}
		out.Parts = append(out.Parts, p)
	}
	return out
}
