package schema

import "strings"

// Contract names used by the agentic RAG workflow.
const (
	RagIntentRouteName = "rag_intent_route"
	RagQueryPlanName   = "rag_query_plan"
	RagRetrievalName   = "rag_retrieval"
	RagRerankName      = "rag_rerank"
	RagEvidenceName    = "rag_evidence"
	RagAnswerName      = "rag_answer"
)

func init() {
	Register[RagIntentRoute](RagIntentRouteName)
	Register[RagQueryPlan](RagQueryPlanName)
	Register[RagRetrieval](RagRetrievalName)
	Register[RagRerank](RagRerankName)
	Register[RagEvidence](RagEvidenceName)
	Register[RagAnswer](RagAnswerName)
}

// RagIntentRoute decides whether a question needs retrieval at all.
type RagIntentRoute struct {
	ShouldRunRAG     bool   `json:"should_run_rag" jsonschema:"description=True when the question needs document retrieval"`
	AssistantMessage string `json:"assistant_message" jsonschema:"description=Direct reply used when retrieval is skipped"`
}

func (r *RagIntentRoute) Validate() error { return nil }

// RagQueryPlan lists up to three retrieval queries with aligned goals and an
// optional filter expression ("" when absent).
type RagQueryPlan struct {
	Queries    []string `json:"queries" jsonschema:"maxItems=3,description=Retrieval queries"`
	QueryGoals []string `json:"query_goals" jsonschema:"maxItems=3,description=Goal of the query at the same index"`
	Filter     string   `json:"filter" jsonschema:"description=Filter expression or empty string"`
}

func (p *RagQueryPlan) Validate() error {
	return Aligned(RagQueryPlanName,
		Field{"queries", len(p.Queries)},
		Field{"query_goals", len(p.QueryGoals)},
	)
}

// PlannedQuery is one zipped (query, goal) record.
type PlannedQuery struct {
	Query string
	Goal  string
}

// Items zips the aligned arrays. Call only after Validate succeeded.
func (p *RagQueryPlan) Items() []PlannedQuery {
	out := make([]PlannedQuery, len(p.Queries))
	for i := range p.Queries {
		out[i] = PlannedQuery{Query: strings.TrimSpace(p.Queries[i]), Goal: strings.TrimSpace(p.QueryGoals[i])}
	}
	return out
}

// RagRetrieval is the outcome of one retrieval query.
type RagRetrieval struct {
	QueryUsed    string   `json:"query_used" jsonschema:"description=Query sent to the retrieval tool"`
	ChunkTexts   []string `json:"chunk_texts" jsonschema:"maxItems=20,description=Retrieved chunk texts"`
	ChunkSources []string `json:"chunk_sources" jsonschema:"maxItems=20,description=Source of the chunk at the same index"`
}

func (r *RagRetrieval) Validate() error {
	return Aligned(RagRetrievalName,
		Field{"chunk_texts", len(r.ChunkTexts)},
		Field{"chunk_sources", len(r.ChunkSources)},
	)
}

// Chunk is one zipped (text, source) record.
type Chunk struct {
	Text   string
	Source string
}

// Chunks zips the aligned arrays. Call only after Validate succeeded.
func (r *RagRetrieval) Chunks() []Chunk {
	out := make([]Chunk, len(r.ChunkTexts))
	for i := range r.ChunkTexts {
		out[i] = Chunk{Text: r.ChunkTexts[i], Source: strings.TrimSpace(r.ChunkSources[i])}
	}
	return out
}

// RagRerank keeps the chunks relevant to the question.
type RagRerank struct {
	SelectedChunkTexts []string `json:"selected_chunk_texts" jsonschema:"maxItems=8,description=Chunks kept for answering"`
	SelectedSources    []string `json:"selected_sources" jsonschema:"maxItems=8,description=Source of the chunk at the same index"`
	SelectedRationales []string `json:"selected_rationales" jsonschema:"maxItems=8,description=Why the chunk at the same index was kept"`
	MissingInfo        []string `json:"missing_info" jsonschema:"maxItems=3,description=Information still missing"`
}

func (r *RagRerank) Validate() error {
	return Aligned(RagRerankName,
		Field{"selected_chunk_texts", len(r.SelectedChunkTexts)},
		Field{"selected_sources", len(r.SelectedSources)},
		Field{"selected_rationales", len(r.SelectedRationales)},
	)
}

// SelectedChunk is one zipped (text, source, rationale) record.
type SelectedChunk struct {
	Text      string
	Source    string
	Rationale string
}

// Selection zips the aligned arrays. Call only after Validate succeeded.
func (r *RagRerank) Selection() []SelectedChunk {
	out := make([]SelectedChunk, len(r.SelectedChunkTexts))
	for i := range r.SelectedChunkTexts {
		out[i] = SelectedChunk{
			Text:      r.SelectedChunkTexts[i],
			Source:    strings.TrimSpace(r.SelectedSources[i]),
			Rationale: r.SelectedRationales[i],
		}
	}
	return out
}

// RagEvidence assesses whether the selected evidence answers the question.
type RagEvidence struct {
	IsSufficient    bool     `json:"is_sufficient" jsonschema:"description=True when the evidence answers the question"`
	Confidence      float64  `json:"confidence" jsonschema:"minimum=0,maximum=1,description=Confidence between 0 and 1"`
	KeyPoints       []string `json:"key_points" jsonschema:"description=Key points supported by the evidence"`
	KeyPointSources []string `json:"key_point_sources" jsonschema:"description=Source of the key point at the same index"`
	MissingInfo     []string `json:"missing_info" jsonschema:"maxItems=3,description=Information still missing"`
	FollowupQueries []string `json:"followup_queries" jsonschema:"maxItems=3,description=Queries that could close the gaps"`
	FollowupGoals   []string `json:"followup_goals" jsonschema:"maxItems=3,description=Goal of the follow-up query at the same index"`
}

func (e *RagEvidence) Validate() error {
	if err := Aligned(RagEvidenceName,
		Field{"key_points", len(e.KeyPoints)},
		Field{"key_point_sources", len(e.KeyPointSources)},
	); err != nil {
		return err
	}
	return Aligned(RagEvidenceName,
		Field{"followup_queries", len(e.FollowupQueries)},
		Field{"followup_goals", len(e.FollowupGoals)},
	)
}

// KeyPoint is one zipped (point, source) record.
type KeyPoint struct {
	Point  string
	Source string
}

// Points zips key points with their sources. Call only after Validate succeeded.
func (e *RagEvidence) Points() []KeyPoint {
	out := make([]KeyPoint, len(e.KeyPoints))
	for i := range e.KeyPoints {
		out[i] = KeyPoint{Point: e.KeyPoints[i], Source: strings.TrimSpace(e.KeyPointSources[i])}
	}
	return out
}

// Followups zips follow-up queries with their goals. Call only after Validate succeeded.
func (e *RagEvidence) Followups() []PlannedQuery {
	out := make([]PlannedQuery, len(e.FollowupQueries))
	for i := range e.FollowupQueries {
		out[i] = PlannedQuery{Query: strings.TrimSpace(e.FollowupQueries[i]), Goal: strings.TrimSpace(e.FollowupGoals[i])}
	}
	return out
}

// RagAnswer is the grounded final answer.
type RagAnswer struct {
	AnswerMarkdown string   `json:"answer_markdown" jsonschema:"description=Answer in markdown"`
	Sources        []string `json:"sources" jsonschema:"description=Sources cited in the answer"`
}

func (a *RagAnswer) Validate() error { return nil }
