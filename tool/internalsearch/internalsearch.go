// Package internalsearch provides the internal_search tool: lexical search
// over the organisation's own documents.
package internalsearch

import (
	"context"

	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/tool"
)

// Index is the subset of knowledge.Store the tool needs.
type Index interface {
	Search(ctx context.Context, query string, k int, filter knowledge.Filter) ([]knowledge.Hit, error)
}

// Result is one matching document excerpt.
type Result struct {
	Title   string  `json:"title"`
	Source  string  `json:"source"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Args are the internal_search tool arguments.
type Args struct {
	Query string `json:"query" jsonschema:"description=Keywords to search internal documents for"`
}

const snippetRunes = 480

// NewTool exposes index as the internal_search tool returning k results per call.
func NewTool(index Index, k int) tool.Tool {
	return tool.NewFunctionTool(
		string(tool.KindInternalSearch),
		"Search internal documents. Returns titles, document sources and excerpts.",
		func(ctx context.Context, a Args) (any, error) {
			hits, err := index.Search(ctx, a.Query, k, nil)
			if err != nil {
				return nil, err
			}

			out := make([]Result, len(hits))
			for i, h := range hits {
				out[i] = Result{Title: h.Title, Source: h.Source, Snippet: snippet(h.Text), Score: h.Score}
			}
			return out, nil
		},
	)
}

func snippet(text string) string {
	r := []rune(text)
	if len(r) <= snippetRunes {
		return text
	}
	return string(r[:snippetRunes]) + "…"
}
