package knowledge

import (
	"context"
	"hash/fnv"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hashEmbed is a deterministic bag-of-words embedding for tests.
func hashEmbed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 64)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(w, ".,?!")))
		vec[h.Sum32()%64]++
	}
	vec[0] += 0.01 // never all zero
	return vec, nil
}

var corpus = []Document{
	{ID: "sugar", Source: "docs/sugar.md", Title: "Sugar", Text: "Glucose is the primary fuel of the human brain.", Metadata: map[string]string{"category": "health"}},
	{ID: "coffee", Source: "docs/coffee.md", Title: "Coffee", Text: "Caffeine blocks adenosine receptors in the brain.", Metadata: map[string]string{"category": "health"}},
	{ID: "tax", Source: "docs/tax.md", Title: "Tax", Text: "Travel expenses are reimbursed within thirty days.", Metadata: map[string]string{"category": "policy"}},
}

func TestLexicalOnlySearch(t *testing.T) {
	s, err := New()
	require.NoError(t, err)
	defer s.Close()

	n, err := s.Add(context.Background(), corpus...)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := s.Search(context.Background(), "glucose brain", 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "docs/sugar.md", hits[0].Source)
	assert.Equal(t, 1, hits[0].Rank)
	assert.LessOrEqual(t, len(hits), 2)

	assert.Equal(t, Stats{Documents: 3, Chunks: 3}, s.Stats())
}

func TestHybridSearchWithFilter(t *testing.T) {
	s, err := New(func(o *Options) { o.Embed = hashEmbed })
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Add(context.Background(), corpus...)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Stats().Vectors)

	f, err := ParseFilter("category eq 'policy'")
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), "brain travel expenses", 5, f)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "docs/tax.md", hits[0].Source)
}

func TestSearchEdgeCases(t *testing.T) {
	s, err := New(func(o *Options) { o.Embed = hashEmbed })
	require.NoError(t, err)
	defer s.Close()

	// Empty store: vector leg must not query an empty collection.
	hits, err := s.Search(context.Background(), "anything", 3, nil)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = s.Search(context.Background(), "  ", 3, nil)
	require.NoError(t, err)
	assert.Nil(t, hits)
}

func TestNewRejectsOverlap(t *testing.T) {
	_, err := New(func(o *Options) { o.ChunkWords = 10; o.ChunkOverlap = 10 })
	assert.Error(t, err)
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"a b c"}, split("a  b\nc", 5, 1))
	assert.Equal(t, []string{"a b c", "c d e", "e f"}, split("a b c d e f", 3, 1))
}

func TestFuseRRF(t *testing.T) {
	a := []Hit{{Chunk: Chunk{ID: "x"}, Rank: 1}, {Chunk: Chunk{ID: "y"}, Rank: 2}}
	b := []Hit{{Chunk: Chunk{ID: "y"}, Rank: 1}, {Chunk: Chunk{ID: "z"}, Rank: 2}}

	out := fuseRRF(a, b, 2)
	require.Len(t, out, 2)
	assert.Equal(t, "y", out[0].ID)
	assert.Equal(t, "x", out[1].ID)
	assert.Equal(t, 2, out[1].Rank)
	assert.InDelta(t, 1.0/61+1.0/62, out[0].Score, 1e-9)
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		expr    string
		want    Filter
		wantErr bool
	}{
		{"", Filter{}, false},
		{"   ", Filter{}, false},
		{"source eq 'a.md'", Filter{"source": "a.md"}, false},
		{`category eq "policy" AND source eq 'b.md'`, Filter{"category": "policy", "source": "b.md"}, false},
		{"source ne 'a.md'", nil, true},
		{"source eq a.md", nil, true},
		{"title eq 'salt and pepper'", Filter{"title": "salt and pepper"}, false},
		{`title eq "rock and roll" and source eq 'c and d.md'`, Filter{"title": "rock and roll", "source": "c and d.md"}, false},
		{"source eq ''", Filter{"source": ""}, false},
		{"source eq 'a.md' or category eq 'x'", nil, true},
		{"source eq 'a.md' and", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := ParseFilter(tt.expr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatchAndWhere(t *testing.T) {
	f := Filter{"category": "health"}
	assert.True(t, f.Match(map[string]string{"category": "health", "x": "y"}))
	assert.False(t, f.Match(map[string]string{"category": "policy"}))
	assert.Nil(t, Filter{}.Where())
	assert.Equal(t, map[string]string{"category": "health"}, f.Where())
}

func TestLoadDir(t *testing.T) {
	fsys := fstest.MapFS{
		"kb/handbook.md": {Data: []byte("# Employee Handbook\n\nVacation is 30 days.")},
		"kb/notes.txt":   {Data: []byte("plain notes")},
		"kb/image.png":   {Data: []byte{0x89}},
	}

	docs, err := LoadDir(fsys, "kb")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, "kb/handbook.md", docs[0].Source)
	assert.Equal(t, "Employee Handbook", docs[0].Title)
	assert.Equal(t, "notes", docs[1].Title)
	assert.Equal(t, "txt", docs[1].Metadata["ext"])
}
