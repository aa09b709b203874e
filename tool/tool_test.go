package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query" jsonschema:"description=Search query"`
	Limit int    `json:"limit,omitempty"`
}

func TestParametersFor(t *testing.T) {
	schema := ParametersFor[searchArgs]()

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Equal(t, []any{"query"}, schema["required"])
	assert.NotContains(t, schema, "$schema")
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5.0, "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "x", vErr.Field)

	err = ValidateParameters(map[string]any{"x": "nope"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "expected type integer")

	assert.Error(t, ValidateParameters(map[string]any{"x": 1.5}, schema))
}

func TestValidateParametersBlankRequiredString(t *testing.T) {
	schema := ParametersFor[searchArgs]()

	err := ValidateParameters(map[string]any{"query": "  "}, schema)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "query", vErr.Field)
	assert.Equal(t, "invalid argument 'query': must not be blank", vErr.Error())

	assert.NoError(t, ValidateParameters(map[string]any{"query": "go", "limit": 3.0}, schema))
}

func TestFunctionToolCall(t *testing.T) {
	var got searchArgs
	ft := NewFunctionTool("web_search", "Search the web", func(_ context.Context, a searchArgs) (any, error) {
		got = a
		return []string{"result"}, nil
	})

	assert.Equal(t, "web_search", ft.Name())
	assert.Equal(t, "Search the web", ft.Description())

	out, err := ft.Call(context.Background(), map[string]any{"query": "sugar", "limit": 2.0})
	require.NoError(t, err)
	assert.Equal(t, []string{"result"}, out)
	assert.Equal(t, searchArgs{Query: "sugar", Limit: 2}, got)
}

func TestFunctionToolErrors(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		ft := NewFunctionTool("t", "d", func(context.Context, searchArgs) (any, error) { return nil, nil })

		_, err := ft.Call(context.Background(), map[string]any{})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "VALIDATION_ERROR", toolErr.Code)
	})

	t.Run("execution", func(t *testing.T) {
		ft := NewFunctionTool("t", "d", func(context.Context, searchArgs) (any, error) { return nil, errors.New("down") })

		_, err := ft.Call(context.Background(), map[string]any{"query": "q"})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "EXECUTION_ERROR", toolErr.Code)
		assert.Equal(t, "tool error [EXECUTION_ERROR] in t: down", toolErr.Error())
	})

	t.Run("custom code preserved", func(t *testing.T) {
		ft := NewFunctionTool("t", "d", func(context.Context, searchArgs) (any, error) {
			return nil, NewToolError("t", "quota", "RATE_LIMITED")
		})

		_, err := ft.Call(context.Background(), map[string]any{"query": "q"})
		var toolErr *ToolError
		require.ErrorAs(t, err, &toolErr)
		assert.Equal(t, "RATE_LIMITED", toolErr.Code)
	})
}

func TestKindAndSet(t *testing.T) {
	assert.True(t, KindWebSearch.Valid())
	assert.True(t, KindRetrieval.Valid())
	assert.False(t, Kind("code_interpreter").Valid())

	ft := NewFunctionTool("web_search", "d", func(context.Context, searchArgs) (any, error) { return nil, nil })
	set := Set{KindWebSearch: ft}

	got, err := set.Get(KindWebSearch)
	require.NoError(t, err)
	assert.Equal(t, "web_search", got.Name())

	_, err = set.Get(KindRetrieval)
	assert.Error(t, err)
}
