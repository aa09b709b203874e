package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/researchflow/logging"
	"github.com/invopop/jsonschema"
)

// FunctionTool exposes a typed Go function as a Tool.
//
// The parameter schema is reflected from the argument struct A. Incoming
// arguments are validated against that schema, decoded into A and handed to
// the wrapped function. Errors are normalized into *ToolError:
//
//	VALIDATION_ERROR -> schema / argument mismatch
//	EXECUTION_ERROR  -> the function returned a plain error
//	(custom codes are preserved when the function returns *ToolError itself)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool[A any] struct {
	name        string
	description string
	parameters  map[string]any
	fn          func(ctx context.Context, args A) (any, error)
	logger      logging.Logger
}

// NewFunctionTool constructs a FunctionTool deriving its schema from A.
//
// Example:
//
//	type SearchArgs struct {
//	  Query string `json:"query" jsonschema:"description=Search query"`
//	}
//
//	search := NewFunctionTool("web_search", "Search the web", func(ctx context.Context, a SearchArgs) (any, error) {
//	  return backend.Search(ctx, a.Query)
//	})
func NewFunctionTool[A any](name, description string, fn func(ctx context.Context, args A) (any, error), optFns ...func(o *FunctionToolOptions)) *FunctionTool[A] {
	opts := FunctionToolOptions{Logger: logging.NoOpLogger{}}
	for _, o := range optFns {
		o(&opts)
	}

	return &FunctionTool[A]{
		name:        name,
		description: description,
		parameters:  ParametersFor[A](),
		fn:          fn,
		logger:      opts.Logger,
	}
}

// FunctionToolOptions configures a FunctionTool.
type FunctionToolOptions struct {
	Logger logging.Logger
}

// ParametersFor reflects the JSON schema of an argument struct.
func ParametersFor[A any]() map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}

	data, err := json.Marshal(reflector.Reflect(new(A)))
	if err != nil {
		panic(fmt.Sprintf("tool: reflect %T: %v", *new(A), err))
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		panic(fmt.Sprintf("tool: reflect %T: %v", *new(A), err))
	}

	delete(result, "$schema")
	delete(result, "$id")

	return result
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool[A]) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool[A]) Description() string { return t.description }

// Parameters returns the JSON schema describing expected arguments.
func (t *FunctionTool[A]) Parameters() map[string]any { return t.parameters }

// Call validates args, decodes them into A and invokes the wrapped function.
func (t *FunctionTool[A]) Call(ctx context.Context, args map[string]any) (any, error) {
	start := time.Now()

	if err := ValidateParameters(args, t.parameters); err != nil {
		t.logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	var typed A

	raw, err := json.Marshal(args)
	if err == nil {
		err = json.Unmarshal(raw, &typed)
	}

	if err != nil {
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: "VALIDATION_ERROR"}
	}

	result, err := t.fn(ctx, typed)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // Already a ToolError -> just log and forward
			t.logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		t.logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	t.logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
