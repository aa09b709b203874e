package researchflow

import (
	"context"
	"testing"

	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/model"
	"github.com/hupe1980/researchflow/rag"
	"github.com/hupe1980/researchflow/research"
	"github.com/hupe1980/researchflow/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assistant(text string) core.Content { return core.NewTextContent("assistant", text) }

func toolCall(name, args string) core.Content {
	return core.Content{Role: "assistant", Parts: []core.Part{
		core.FunctionCallPart{FunctionCall: core.FunctionCall{Name: name, Arguments: args}},
	}}
}

func newKnowledge(t *testing.T) *knowledge.Store {
	t.Helper()

	kb, err := knowledge.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = kb.Close() })

	_, err = kb.Add(context.Background(),
		knowledge.Document{ID: "vacation", Source: "handbook.md", Title: "Handbook", Text: "Employees receive 25 vacation days per year."},
		knowledge.Document{ID: "travel", Source: "travel.md", Title: "Travel", Text: "Travel expenses are reimbursed within thirty days."},
	)
	require.NoError(t, err)

	return kb
}

func TestNewRequiresModel(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestToolsFollowBackends(t *testing.T) {
	flow, err := New(model.NewMockModel("mock", "mock"))
	require.NoError(t, err)
	assert.Empty(t, flow.Tools())

	flow, err = New(model.NewMockModel("mock", "mock"), func(o *Options) { o.Knowledge = newKnowledge(t) })
	require.NoError(t, err)
	assert.Contains(t, flow.Tools(), tool.KindRetrieval)
	assert.Contains(t, flow.Tools(), tool.KindInternalSearch)
	assert.NotContains(t, flow.Tools(), tool.KindWebSearch)
	assert.Len(t, flow.Registry().List(), 13)
}

func TestAskEndToEnd(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	llm.Script(rag.RagIntentRouterAgent, assistant(`{"should_run_rag":true,"assistant_message":""}`))
	llm.Script(rag.RagQueryPlanAgent, assistant(`{"queries":["vacation days"],"query_goals":["allowance"],"filter":""}`))
	llm.Script(rag.RagRetrieverAgent,
		toolCall("retrieval", `{"query":"vacation days"}`),
		assistant("```json\n"+`{"query_used":"vacation days","chunk_texts":["Employees receive 25 vacation days per year."],"chunk_sources":["handbook.md"]}`+"\n```"),
	)
	llm.Script(rag.RagRerankAgent, assistant(`{
		"selected_chunk_texts":["Employees receive 25 vacation days per year."],
		"selected_sources":["handbook.md"],"selected_rationales":["allowance"],"missing_info":[]}`))
	llm.Script(rag.RagEvidenceAgent, assistant(`{
		"is_sufficient":true,"confidence":0.95,
		"key_points":["25 days"],"key_point_sources":["handbook.md"],
		"missing_info":[],"followup_queries":[],"followup_goals":[]}`))
	llm.Script(rag.RagAnswerAgent, assistant(`{"answer_markdown":"You receive 25 days [handbook.md].","sources":["handbook.md"]}`))

	flow, err := New(llm, func(o *Options) { o.Knowledge = newKnowledge(t) })
	require.NoError(t, err)

	var delivered []string
	answer, err := flow.Ask(context.Background(), "How many vacation days do I get?",
		rag.ResponderFunc(func(_ context.Context, md string) error {
			delivered = append(delivered, md)
			return nil
		}))
	require.NoError(t, err)

	assert.Equal(t, "You receive 25 days [handbook.md].", answer.Markdown)
	assert.Equal(t, []string{"handbook.md"}, answer.Sources)
	assert.Equal(t, []string{answer.Markdown}, delivered)

	// The retrieval tool ran against the knowledge store and its output was
	// handed back to the model.
	var toolOutputSeen bool
	for _, req := range llm.Requests() {
		if req.AgentID != rag.RagRetrieverAgent || len(req.Contents) < 3 {
			continue
		}
		for _, p := range req.Contents[2].Parts {
			if fr, ok := p.(core.FunctionResponsePart); ok {
				assert.Empty(t, fr.FunctionResponse.Error)
				toolOutputSeen = true
			}
		}
	}
	assert.True(t, toolOutputSeen)
}

func TestResearchEndToEndWithInternalSearch(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")

	llm.Script(research.ClarifyingQuestionsAgent, assistant(`{"questions":[]}`))
	llm.Script(research.ReportTitleAgent, assistant(`{"title":"Vacation","description":"Vacation rules."}`))
	llm.Script(research.SERPQueryAgent, assistant(`{"queries":["vacation"],"research_goals":["allowance"]}`))
	llm.Script(research.InternalSearchAgent,
		toolCall("internal_search", `{"query":"vacation"}`),
		assistant("The handbook grants 25 days (handbook.md)."),
	)
	llm.Script(research.LearningsAgent, assistant(`{"learnings":["25 days per year"],"follow_up_questions":[],"sources":["handbook.md"]}`))
	llm.Script(research.ReportAgent, assistant(`{"report_markdown":"# Vacation\n25 days [handbook.md]","sources":["handbook.md"]}`))

	flow, err := New(llm, func(o *Options) {
		o.Knowledge = newKnowledge(t)
		o.Research = append(o.Research, func(o *research.Options) {
			o.Depth = 1
			o.Breadth = 1
			o.Source = research.SourceInternal
		})
	})
	require.NoError(t, err)

	report, err := flow.Research(context.Background(), "vacation policy", research.AnswererFunc(
		func(context.Context, int, string) (string, error) { return "", nil },
	))
	require.NoError(t, err)

	assert.Equal(t, "Vacation", report.Title)
	assert.Equal(t, []string{"handbook.md"}, report.Sources)
}

func TestBudgetAppliesPerRun(t *testing.T) {
	llm := model.NewMockModel("mock", "mock")
	for range 2 {
		llm.Script(rag.RagIntentRouterAgent, assistant(`{"should_run_rag":false,"assistant_message":"Hello!"}`))
	}

	flow, err := New(llm, func(o *Options) { o.Budget = 1 })
	require.NoError(t, err)

	for range 2 {
		answer, err := flow.Ask(context.Background(), "hi", nil)
		require.NoError(t, err)
		assert.True(t, answer.Direct)
	}
}
