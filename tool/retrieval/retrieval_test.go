package retrieval

import (
	"context"
	"testing"

	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockIndex struct{ mock.Mock }

func (m *mockIndex) Search(ctx context.Context, query string, k int, filter knowledge.Filter) ([]knowledge.Hit, error) {
	args := m.Called(ctx, query, k, filter)
	hits, _ := args.Get(0).([]knowledge.Hit)
	return hits, args.Error(1)
}

func TestToolPassesFilter(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Search", mock.Anything, "vacation days", 4, knowledge.Filter{"source": "handbook.md"}).
		Return([]knowledge.Hit{{Chunk: knowledge.Chunk{Text: "30 days", Source: "handbook.md"}, Score: 0.5}}, nil)

	tl := NewTool(idx, 4)
	assert.Equal(t, "retrieval", tl.Name())

	out, err := tl.Call(context.Background(), map[string]any{"query": "vacation days", "filter": "source eq 'handbook.md'"})
	require.NoError(t, err)
	assert.Equal(t, []Passage{{Text: "30 days", Source: "handbook.md", Score: 0.5}}, out)
	idx.AssertExpectations(t)
}

func TestToolEmptyFilter(t *testing.T) {
	idx := &mockIndex{}
	idx.On("Search", mock.Anything, "q", 2, knowledge.Filter{}).Return([]knowledge.Hit(nil), nil)

	out, err := NewTool(idx, 2).Call(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestToolInvalidFilter(t *testing.T) {
	_, err := NewTool(&mockIndex{}, 2).Call(context.Background(), map[string]any{"query": "q", "filter": "source > 3"})

	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "INVALID_FILTER", toolErr.Code)
}
