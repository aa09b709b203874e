// Package websearch provides the web_search tool backed by the Serper API.
package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/tool"
)

// DefaultEndpoint is the Serper search endpoint.
const DefaultEndpoint = "https://google.serper.dev/search"

// Result is one organic search result.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Result, error)
}

// Options configures the Serper client.
type Options struct {
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client
	// NumResults is the default number of results per query.
	NumResults int
	Logger     logging.Logger
}

// Serper is a Searcher calling https://serper.dev.
type Serper struct {
	opts Options
}

// NewSerper creates a Serper client.
func NewSerper(optFns ...func(o *Options)) *Serper {
	opts := Options{
		Endpoint:   DefaultEndpoint,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		NumResults: 5,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Serper{opts: opts}
}

type serperResponse struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
}

// Search returns up to k organic results for query.
func (s *Serper) Search(ctx context.Context, query string, k int) ([]Result, error) {
	if s.opts.APIKey == "" {
		return nil, fmt.Errorf("serper: missing API key")
	}

	if k <= 0 {
		k = s.opts.NumResults
	}

	body, err := json.Marshal(map[string]any{"q": query, "num": k})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.opts.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-KEY", s.opts.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()

	resp, err := s.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("serper: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var raw serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("serper: decode response: %w", err)
	}

	out := make([]Result, 0, min(k, len(raw.Organic)))
	for i, it := range raw.Organic {
		if i >= k {
			break
		}
		out = append(out, Result{Title: it.Title, URL: it.Link, Snippet: it.Snippet})
	}

	s.opts.Logger.Debug("websearch.serper", "query", query, "results", len(out), "duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

// Args are the web_search tool arguments.
type Args struct {
	Query string `json:"query" jsonschema:"description=Web search query"`
}

// NewTool exposes searcher as the web_search tool returning k results per call.
func NewTool(searcher Searcher, k int) tool.Tool {
	return tool.NewFunctionTool(
		string(tool.KindWebSearch),
		"Search the public web. Returns result titles, URLs and snippets.",
		func(ctx context.Context, a Args) (any, error) {
			return searcher.Search(ctx, a.Query, k)
		},
	)
}
