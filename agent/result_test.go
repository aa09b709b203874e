package agent

import (
	"testing"

	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten(t *testing.T) {
	mt := &MessageTableResult{AgentID: "WebSearchAgent", Messages: []core.Message{
		{Role: "tool_call", Text: `{"query":"q"}`, ToolName: "web_search"},
		{Role: "tool", Text: "", ToolName: "web_search"},
		{Role: "tool", Text: "result", ToolName: "web_search"},
		{Role: "assistant", Text: "summary"},
	}}

	assert.Equal(t, "{\"query\":\"q\"}\nresult\nsummary", mt.Flatten())

	text, err := Text(mt)
	require.NoError(t, err)
	assert.Equal(t, mt.Flatten(), text)
}

func TestResultAccessors(t *testing.T) {
	title := &schema.ReportTitle{Title: "T"}
	sr := &StructuredResult{AgentID: "ReportTitleAgent", Schema: schema.ReportTitleName, Value: title}
	tr := &TextResult{AgentID: "Writer", Text: "hello"}
	mt := &MessageTableResult{AgentID: "Search"}

	got, err := Structured[schema.ReportTitle](sr)
	require.NoError(t, err)
	assert.Same(t, title, got)

	_, err = Structured[schema.Report](sr)
	assert.Error(t, err)

	_, err = Structured[schema.ReportTitle](tr)
	var cErr *ContractError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, ContractStrictJSON, cErr.Want)
	assert.Equal(t, ContractText, cErr.Got)

	text, err := Text(tr)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	_, err = Text(sr)
	assert.ErrorAs(t, err, &cErr)

	_, err = Messages(mt)
	assert.NoError(t, err)
	_, err = Messages(tr)
	assert.ErrorAs(t, err, &cErr)
}
