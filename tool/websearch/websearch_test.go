package websearch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerperSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-API-KEY"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sugar brain", body["q"])
		assert.EqualValues(t, 2, body["num"])

		_, _ = w.Write([]byte(`{"organic":[
			{"title":"A","link":"https://a.example","snippet":"sa"},
			{"title":"B","link":"https://b.example","snippet":"sb"},
			{"title":"C","link":"https://c.example","snippet":"sc"}
		]}`))
	}))
	defer srv.Close()

	s := NewSerper(func(o *Options) {
		o.APIKey = "secret"
		o.Endpoint = srv.URL
	})

	res, err := s.Search(context.Background(), "sugar brain", 2)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Title: "A", URL: "https://a.example", Snippet: "sa"},
		{Title: "B", URL: "https://b.example", Snippet: "sb"},
	}, res)
}

func TestSerperErrors(t *testing.T) {
	_, err := NewSerper().Search(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "missing API key")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewSerper(func(o *Options) { o.APIKey = "k"; o.Endpoint = srv.URL })
	_, err = s.Search(context.Background(), "q", 1)
	assert.ErrorContains(t, err, "status 429")
}

type stubSearcher struct{ query string }

func (s *stubSearcher) Search(_ context.Context, q string, k int) ([]Result, error) {
	s.query = q
	return []Result{{Title: "t", URL: "https://u", Snippet: "s"}}[:k], nil
}

func TestTool(t *testing.T) {
	stub := &stubSearcher{}
	tl := NewTool(stub, 1)

	assert.Equal(t, "web_search", tl.Name())

	out, err := tl.Call(context.Background(), map[string]any{"query": "sugar"})
	require.NoError(t, err)
	assert.Equal(t, "sugar", stub.query)
	assert.Len(t, out, 1)
}
