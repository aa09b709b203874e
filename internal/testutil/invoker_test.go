package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedInvoker(t *testing.T) {
	boom := errors.New("boom")
	inv := NewScriptedInvoker().
		Text("A", "hello").
		JSON("B", schema.ReportTitleName, `{"title":"t","description":"d"}`).
		Fail("A", boom)

	res, err := inv.Invoke(context.Background(), "A", "p1")
	require.NoError(t, err)
	text, _ := agent.Text(res)
	assert.Equal(t, "hello", text)

	res, err = inv.Invoke(context.Background(), "B", "p2")
	require.NoError(t, err)
	title, err := agent.Structured[schema.ReportTitle](res)
	require.NoError(t, err)
	assert.Equal(t, "t", title.Title)

	_, err = inv.Invoke(context.Background(), "A", "p3")
	assert.ErrorIs(t, err, boom)

	_, err = inv.Invoke(context.Background(), "C", "p4")
	var invErr *core.AgentInvocationError
	assert.ErrorAs(t, err, &invErr)

	assert.Equal(t, []string{"A", "B", "A", "C"}, inv.Sequence())
	assert.Len(t, inv.CallsTo("A"), 2)
	assert.Equal(t, "p2", inv.CallsTo("B")[0].Prompt)
	assert.Zero(t, inv.Pending())
}

func TestScriptedInvokerRejectsInvalidFixtures(t *testing.T) {
	assert.Panics(t, func() {
		NewScriptedInvoker().JSON("B", schema.SERPQueriesName, `{"queries":["a"],"research_goals":[]}`)
	})
}
