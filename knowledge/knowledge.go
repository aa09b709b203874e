package knowledge

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/blevesearch/bleve"
	"github.com/hupe1980/researchflow/logging"
	"github.com/philippgille/chromem-go"
)

// Document is a unit of ingested content.
type Document struct {
	ID       string
	Source   string // URL or path cited by agents
	Title    string
	Text     string
	Metadata map[string]string
}

// Chunk is an indexed window of a document.
type Chunk struct {
	ID         string
	DocumentID string
	Source     string
	Title      string
	Text       string
	Metadata   map[string]string
}

// Hit is a ranked search result.
type Hit struct {
	Chunk
	Score float64
	Rank  int
}

// Stats summarizes the store contents.
type Stats struct {
	Documents int
	Chunks    int
	Vectors   int
}

// Options configures a Store.
type Options struct {
	// ChunkWords is the window size in words.
	ChunkWords int
	// ChunkOverlap is the number of words shared by consecutive windows.
	ChunkOverlap int
	// Embed enables the vector leg. Nil keeps the store lexical-only.
	Embed chromem.EmbeddingFunc
	// PersistDir stores vectors on disk when set.
	PersistDir string
	// Collection names the chromem collection.
	Collection string
	Logger     logging.Logger
}

// Store is a hybrid lexical / vector chunk index. Safe for concurrent use.
type Store struct {
	opts      Options
	lexical   bleve.Index
	vectors   *chromem.Collection
	chunks    map[string]Chunk
	documents map[string]struct{}
	mu        sync.RWMutex
}

// New creates an empty store.
func New(optFns ...func(o *Options)) (*Store, error) {
	opts := Options{
		ChunkWords:   200,
		ChunkOverlap: 40,
		Collection:   "knowledge",
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.ChunkOverlap >= opts.ChunkWords {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", opts.ChunkOverlap, opts.ChunkWords)
	}

	index, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create lexical index: %w", err)
	}

	s := &Store{
		opts:      opts,
		lexical:   index,
		chunks:    make(map[string]Chunk),
		documents: make(map[string]struct{}),
	}

	if opts.Embed != nil {
		var db *chromem.DB
		if opts.PersistDir != "" {
			db, err = chromem.NewPersistentDB(opts.PersistDir, false)
			if err != nil {
				return nil, fmt.Errorf("open vector db: %w", err)
			}
		} else {
			db = chromem.NewDB()
		}

		col, err := db.GetOrCreateCollection(opts.Collection, nil, opts.Embed)
		if err != nil {
			return nil, fmt.Errorf("failed to get/create collection %q: %w", opts.Collection, err)
		}

		s.vectors = col
	}

	return s, nil
}

// Add chunks and indexes docs. It returns the number of chunks written.
// Re-adding a document ID replaces nothing; callers should use fresh IDs.
func (s *Store) Add(ctx context.Context, docs ...Document) (int, error) {
	var (
		chunks  []Chunk
		vectors []chromem.Document
	)

	for _, d := range docs {
		if strings.TrimSpace(d.Text) == "" {
			continue
		}

		if d.ID == "" {
			d.ID = d.Source
		}

		for i, window := range split(d.Text, s.opts.ChunkWords, s.opts.ChunkOverlap) {
			meta := make(map[string]string, len(d.Metadata)+2)
			for k, v := range d.Metadata {
				meta[k] = v
			}
			meta["source"] = d.Source
			meta["title"] = d.Title

			c := Chunk{
				ID:         fmt.Sprintf("%s#%d", d.ID, i),
				DocumentID: d.ID,
				Source:     d.Source,
				Title:      d.Title,
				Text:       window,
				Metadata:   meta,
			}
			chunks = append(chunks, c)

			if s.vectors != nil {
				vectors = append(vectors, chromem.Document{ID: c.ID, Content: c.Text, Metadata: meta})
			}
		}
	}

	if len(chunks) == 0 {
		return 0, nil
	}

	batch := s.lexical.NewBatch()
	for _, c := range chunks {
		if err := batch.Index(c.ID, map[string]any{
			"text":   c.Text,
			"title":  c.Title,
			"source": c.Source,
		}); err != nil {
			return 0, fmt.Errorf("index chunk %s: %w", c.ID, err)
		}
	}

	if err := s.lexical.Batch(batch); err != nil {
		return 0, fmt.Errorf("index batch: %w", err)
	}

	if len(vectors) > 0 {
		if err := s.vectors.AddDocuments(ctx, vectors, runtime.NumCPU()); err != nil {
			return 0, fmt.Errorf("embed chunks: %w", err)
		}
	}

	s.mu.Lock()
	for _, c := range chunks {
		s.chunks[c.ID] = c
		s.documents[c.DocumentID] = struct{}{}
	}
	s.mu.Unlock()

	s.opts.Logger.Debug("knowledge.add", "documents", len(docs), "chunks", len(chunks), "vectors", len(vectors))

	return len(chunks), nil
}

// Search returns up to k chunks matching query and filter.
func (s *Store) Search(ctx context.Context, query string, k int, filter Filter) ([]Hit, error) {
	if k <= 0 || strings.TrimSpace(query) == "" {
		return nil, nil
	}

	// Oversample so post-filtering and fusion still leave k candidates.
	pool := k * 3
	if len(filter) > 0 {
		pool = k * 10
	}

	lexHits, err := s.lexicalSearch(query, pool, filter)
	if err != nil {
		return nil, err
	}

	vecHits, err := s.vectorSearch(ctx, query, pool, filter)
	if err != nil {
		return nil, err
	}

	if vecHits == nil {
		if len(lexHits) > k {
			lexHits = lexHits[:k]
		}
		return lexHits, nil
	}

	return fuseRRF(lexHits, vecHits, k), nil
}

func (s *Store) lexicalSearch(query string, size int, filter Filter) ([]Hit, error) {
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), size, 0, false)

	res, err := s.lexical.Search(req)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Hit
	for _, h := range res.Hits {
		c, ok := s.chunks[h.ID]
		if !ok || !filter.Match(c.Metadata) {
			continue
		}
		out = append(out, Hit{Chunk: c, Score: h.Score, Rank: len(out) + 1})
	}

	return out, nil
}

func (s *Store) vectorSearch(ctx context.Context, query string, size int, filter Filter) ([]Hit, error) {
	if s.vectors == nil {
		return nil, nil
	}

	n := min(size, s.vectors.Count())
	if n == 0 {
		return []Hit{}, nil
	}

	results, err := s.vectors.Query(ctx, query, n, filter.Where(), nil)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Hit, 0, len(results))
	for _, r := range results {
		c, ok := s.chunks[r.ID]
		if !ok {
			continue
		}
		out = append(out, Hit{Chunk: c, Score: float64(r.Similarity), Rank: len(out) + 1})
	}

	return out, nil
}

// Stats reports document, chunk and vector counts.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Documents: len(s.documents), Chunks: len(s.chunks)}
	if s.vectors != nil {
		st.Vectors = s.vectors.Count()
	}
	return st
}

// Close releases the lexical index.
func (s *Store) Close() error {
	return s.lexical.Close()
}

// split cuts text into windows of size words overlapping by overlap words.
func split(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	var out []string
	step := size - overlap
	for start := 0; start < len(words); start += step {
		end := min(start+size, len(words))
		out = append(out, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return out
}
