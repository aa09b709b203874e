// Package retrieval provides the retrieval tool used by the agentic RAG
// workflow: hybrid search over the knowledge base with an optional filter.
package retrieval

import (
	"context"

	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/tool"
)

// Index is the subset of knowledge.Store the tool needs.
type Index interface {
	Search(ctx context.Context, query string, k int, filter knowledge.Filter) ([]knowledge.Hit, error)
}

// Passage is one retrieved chunk.
type Passage struct {
	Text   string  `json:"text"`
	Source string  `json:"source"`
	Score  float64 `json:"score"`
}

// Args are the retrieval tool arguments.
type Args struct {
	Query  string `json:"query" jsonschema:"description=What to retrieve"`
	Filter string `json:"filter,omitempty" jsonschema:"description=Optional filter such as: source eq 'handbook.md'"`
}

// NewTool exposes index as the retrieval tool returning k passages per call.
func NewTool(index Index, k int) tool.Tool {
	return tool.NewFunctionTool(
		string(tool.KindRetrieval),
		"Retrieve passages from the knowledge base. Each passage carries the source to cite.",
		func(ctx context.Context, a Args) (any, error) {
			filter, err := knowledge.ParseFilter(a.Filter)
			if err != nil {
				return nil, tool.NewToolError(string(tool.KindRetrieval), err.Error(), "INVALID_FILTER")
			}

			hits, err := index.Search(ctx, a.Query, k, filter)
			if err != nil {
				return nil, err
			}

			out := make([]Passage, len(hits))
			for i, h := range hits {
				out[i] = Passage{Text: h.Text, Source: h.Source, Score: h.Score}
			}
			return out, nil
		},
	)
}
