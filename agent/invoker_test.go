package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/model"
	"github.com/hupe1980/researchflow/schema"
	"github.com/hupe1980/researchflow/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query string `json:"query"`
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	r, err := NewRegistry(
		Definition{Name: "Writer", Model: "gpt-4.1", Instructions: "Write.", Temperature: temp(0.4), MaxTokens: 256},
		Definition{Name: "Thinker", Model: "gpt-5-mini", Instructions: "Think.", Temperature: temp(0.4)},
		Definition{
			Name: "ReportTitleAgent", Model: "gpt-4.1", Instructions: "Title.",
			ResponseFormat: ResponseFormat{Type: ContractStrictJSON, Schema: schema.ReportTitleName},
		},
		Definition{
			Name: "RagRetrieverAgent", Model: "gpt-4.1", Instructions: "Retrieve.",
			ResponseFormat: ResponseFormat{Type: ContractStrictJSON, Schema: schema.RagRetrievalName},
		},
		Definition{
			Name: "WebSearchAgent", Model: "gpt-4.1", Instructions: "Search.", Tool: tool.KindWebSearch,
			ResponseFormat: ResponseFormat{Type: ContractMessageTable},
		},
	)
	require.NoError(t, err)

	return r
}

func webSearchTool(calls *[]string) tool.Set {
	return tool.Set{
		tool.KindWebSearch: tool.NewFunctionTool("web_search", "Search", func(_ context.Context, a searchArgs) (any, error) {
			*calls = append(*calls, a.Query)
			return []string{"https://example.com/sugar"}, nil
		}),
	}
}

func TestInvokeText(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("Writer", core.NewTextContent("assistant", "hello"))

	inv := NewInvoker(testRegistry(t), m, nil)

	res, err := inv.Invoke(context.Background(), "Writer", "say hello")
	require.NoError(t, err)

	text, err := Text(res)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	req := m.Requests()[0]
	assert.Equal(t, "Writer", req.AgentID)
	assert.Equal(t, "gpt-4.1", req.Model)
	assert.Equal(t, "Write.", req.Instructions)
	assert.Equal(t, "say hello", req.Contents[0].Text())
	assert.EqualValues(t, 256, req.MaxOutputTokens)
	require.NotNil(t, req.Temperature)
	assert.InDelta(t, 0.4, *req.Temperature, 1e-9)
	assert.Nil(t, req.ResponseFormat)
	assert.Empty(t, req.Tools)
}

func TestInvokeReasoningModelDropsTemperature(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("Thinker", core.NewTextContent("assistant", "ok"))

	_, err := NewInvoker(testRegistry(t), m, nil).Invoke(context.Background(), "Thinker", "p")
	require.NoError(t, err)
	assert.Nil(t, m.Requests()[0].Temperature)
}

func TestInvokeStructured(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("ReportTitleAgent", core.NewTextContent("assistant", `{"title":"Sugar and the Brain","description":"d"}`))

	res, err := NewInvoker(testRegistry(t), m, nil).Invoke(context.Background(), "ReportTitleAgent", "p")
	require.NoError(t, err)

	title, err := Structured[schema.ReportTitle](res)
	require.NoError(t, err)
	assert.Equal(t, "Sugar and the Brain", title.Title)

	rf := m.Requests()[0].ResponseFormat
	require.NotNil(t, rf)
	assert.Equal(t, schema.ReportTitleName, rf.Name)
	assert.True(t, rf.Strict)
	assert.Equal(t, false, rf.Schema["additionalProperties"])
}

func TestInvokeStructuredContractViolations(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("ReportTitleAgent", core.NewTextContent("assistant", `{"title":"t"}`))
	m.Script("RagRetrieverAgent", core.NewTextContent("assistant", `{"query_used":"q","chunk_texts":["a","b"],"chunk_sources":["s"]}`))

	inv := NewInvoker(testRegistry(t), m, nil)

	_, err := inv.Invoke(context.Background(), "ReportTitleAgent", "p")
	var schemaErr *core.SchemaValidationError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "description", schemaErr.Field)

	_, err = inv.Invoke(context.Background(), "RagRetrieverAgent", "p")
	var alignErr *core.AlignmentError
	require.ErrorAs(t, err, &alignErr)
}

func TestInvokeMessageTableRunsToolLoop(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("WebSearchAgent",
		core.Content{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: "web_search", Arguments: `{"query":"sugar brain"}`}},
		}},
		core.NewTextContent("assistant", "Glucose fuels the brain."),
	)

	var calls []string
	inv := NewInvoker(testRegistry(t), m, webSearchTool(&calls))

	res, err := inv.Invoke(context.Background(), "WebSearchAgent", "sugar brain")
	require.NoError(t, err)
	assert.Equal(t, []string{"sugar brain"}, calls)

	msgs, err := Messages(res)
	require.NoError(t, err)
	assert.Equal(t, []core.Message{
		{Role: "tool_call", Text: `{"query":"sugar brain"}`, ToolName: "web_search"},
		{Role: "tool", Text: `["https://example.com/sugar"]`, ToolName: "web_search"},
		{Role: "assistant", Text: "Glucose fuels the brain."},
	}, msgs)

	reqs := m.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "web_search", reqs[0].Tools[0].Function.Name)

	// Second turn carries the assistant call and the tool response with matching ids.
	contents := reqs[1].Contents
	require.Len(t, contents, 3)
	callID := contents[1].FunctionCalls()[0].ID
	assert.NotEmpty(t, callID)
	fr := contents[2].Parts[0].(core.FunctionResponsePart).FunctionResponse
	assert.Equal(t, callID, fr.ID)
	assert.Equal(t, "tool", contents[2].Role)
}

func TestInvokeToolErrorsAreReturnedToModel(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("WebSearchAgent",
		core.Content{Role: "assistant", Parts: []core.Part{
			core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "web_search", Arguments: `{}`}},
		}},
		core.NewTextContent("assistant", "no results"),
	)

	var calls []string
	res, err := NewInvoker(testRegistry(t), m, webSearchTool(&calls)).Invoke(context.Background(), "WebSearchAgent", "q")
	require.NoError(t, err)
	assert.Empty(t, calls)

	msgs, _ := Messages(res)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[1].Text, "VALIDATION_ERROR")
}

func TestInvokeToolRoundLimit(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	call := core.Content{Role: "assistant", Parts: []core.Part{
		core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: "web_search", Arguments: `{"query":"again"}`}},
	}}
	m.Script("WebSearchAgent", call, call, call)

	var calls []string
	inv := NewInvoker(testRegistry(t), m, webSearchTool(&calls), func(o *InvokerOptions) { o.MaxToolRounds = 2 })

	_, err := inv.Invoke(context.Background(), "WebSearchAgent", "q")
	var invErr *core.AgentInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, invErr.Error(), "exceeded 2 rounds")
	assert.Len(t, calls, 2)
}

func TestInvokeMissingToolBackend(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	_, err := NewInvoker(testRegistry(t), m, nil).Invoke(context.Background(), "WebSearchAgent", "q")
	assert.ErrorContains(t, err, "no backend configured")
}

func TestInvokeModelFailure(t *testing.T) {
	boom := errors.New("503 service unavailable")
	m := model.NewMockModel("mock", "mock")
	m.Fail("Writer", boom)

	_, err := NewInvoker(testRegistry(t), m, nil).Invoke(context.Background(), "Writer", "p")

	var invErr *core.AgentInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "Writer", invErr.AgentID)
	assert.ErrorIs(t, err, boom)
}

type blockingModel struct{}

func (blockingModel) Generate(ctx context.Context, _ model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		<-ctx.Done()
		errCh <- ctx.Err()
	}()

	return respCh, errCh
}

func (blockingModel) Info() model.Info { return model.Info{Name: "blocking"} }

func TestInvokeTimeout(t *testing.T) {
	inv := NewInvoker(testRegistry(t), blockingModel{}, nil, func(o *InvokerOptions) { o.Timeout = 20 * time.Millisecond })

	_, err := inv.Invoke(context.Background(), "Writer", "p")

	var invErr *core.AgentInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvokeBudget(t *testing.T) {
	m := model.NewMockModel("mock", "mock")
	m.Script("Writer", core.NewTextContent("assistant", "1"), core.NewTextContent("assistant", "2"))

	inv := NewInvoker(testRegistry(t), m, nil, func(o *InvokerOptions) { o.Budget = core.NewInvocationBudget(1) })

	_, err := inv.Invoke(context.Background(), "Writer", "p")
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), "Writer", "p")
	var invErr *core.AgentInvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Contains(t, err.Error(), "budget")
}

func TestInvokeUnknownAgent(t *testing.T) {
	_, err := NewInvoker(testRegistry(t), model.NewMockModel("m", "mock"), nil).Invoke(context.Background(), "Nobody", "p")
	assert.ErrorIs(t, err, ErrUnknownAgent)
}
