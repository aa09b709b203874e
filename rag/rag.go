package rag

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/researchflow/accumulator"
	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/internal/prompt"
	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/loop"
	"github.com/hupe1980/researchflow/metrics"
	"github.com/hupe1980/researchflow/schema"
)

// Workflow is the workflow name used in logs and metrics.
const Workflow = "agentic-rag"

// Agent ids the workflow invokes.
const (
	RagIntentRouterAgent = "RagIntentRouterAgent"
	RagQueryPlanAgent    = "RagQueryPlanAgent"
	RagRetrieverAgent    = "RagRetrieverAgent"
	RagRerankAgent       = "RagRerankAgent"
	RagEvidenceAgent     = "RagEvidenceAgent"
	RagAnswerAgent       = "RagAnswerAgent"
)

// AgentIDs lists every agent the workflow may invoke.
func AgentIDs() []string {
	return []string{
		RagIntentRouterAgent, RagQueryPlanAgent, RagRetrieverAgent,
		RagRerankAgent, RagEvidenceAgent, RagAnswerAgent,
	}
}

// Accumulator names.
const (
	RetrievedContext = "retrieved_context"
	AllQueries       = "all_queries"
)

// Step names the workflow state an error occurred in.
type Step string

const (
	StepRoute    Step = "route"
	StepPlan     Step = "plan"
	StepRetrieve Step = "retrieve"
	StepRerank   Step = "rerank"
	StepEvidence Step = "evidence"
	StepRetry    Step = "retry"
	StepAnswer   Step = "answer"
)

// NoDocuments is appended to retrieved_context when no query was planned.
const NoDocuments = "(no documents retrieved)"

// Responder delivers a message to the user.
type Responder interface {
	Respond(ctx context.Context, markdown string) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, markdown string) error

// Respond implements Responder.
func (f ResponderFunc) Respond(ctx context.Context, markdown string) error { return f(ctx, markdown) }

// Options configures the orchestrator.
type Options struct {
	// MaxRetries bounds the evidence retry gate.
	MaxRetries int
	// Parallelism bounds concurrent retriever calls within one RetrieveLoop.
	// Results are always folded back in query order.
	Parallelism int
	// StrictCitations rejects answers citing sources outside the selection.
	StrictCitations bool
	Logger          logging.Logger
	Recorder        metrics.Recorder
}

// Orchestrator runs the agentic RAG workflow.
type Orchestrator struct {
	invoker   agent.Invoker
	responder Responder
	opts      Options
}

// New creates an orchestrator. A nil responder discards delivered messages.
func New(invoker agent.Invoker, responder Responder, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		MaxRetries:      loop.DefaultMaxAttempts,
		Parallelism:     1,
		StrictCitations: true,
		Logger:          logging.NoOpLogger{},
		Recorder:        metrics.Nop(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if responder == nil {
		responder = ResponderFunc(func(context.Context, string) error { return nil })
	}

	return &Orchestrator{invoker: invoker, responder: responder, opts: opts}
}

// Answer is the outcome of a run.
type Answer struct {
	RunID    string
	Markdown string
	// Direct is true when the router answered without retrieval.
	Direct  bool
	Sources []string
	// Queries are all retrieval queries in execution order.
	Queries    []string
	Filter     string
	Selection  []schema.SelectedChunk
	KeyPoints  []schema.KeyPoint
	Sufficient bool
	Confidence float64
	Retries    int
}

// run is the explicit per-run state.
type run struct {
	id        string
	log       logging.Logger
	question  string
	store     *accumulator.Store
	context   *accumulator.Text
	queries   *accumulator.List[string]
	filter    string
	plan      []schema.PlannedQuery
	selection []schema.SelectedChunk
	missing   []string
	evidence  *schema.RagEvidence
}

func newRun(question string) *run {
	store := accumulator.NewStore()

	return &run{
		id:       core.NewID(),
		question: question,
		store:    store,
		context:  store.MustText(accumulator.ScopeRun, RetrievedContext, "\n"),
		queries:  accumulator.MustList[string](store, accumulator.ScopeRun, AllQueries),
	}
}

// Run answers question. No partial answer is returned on error.
func (o *Orchestrator) Run(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("rag: empty question")
	}

	r := newRun(question)
	r.log = logging.ForRun(logging.ForComponent(o.opts.Logger, Workflow), r.id)
	start := time.Now()

	r.log.Info("rag.start", "max_retries", o.opts.MaxRetries, "parallelism", o.opts.Parallelism)

	answer, err := o.run(ctx, r)

	o.opts.Recorder.ObserveRun(Workflow, err == nil, time.Since(start))

	if err != nil {
		r.log.Error("rag.failed", "error", err.Error())
		return nil, err
	}

	if err := o.responder.Respond(ctx, answer.Markdown); err != nil {
		return nil, fmt.Errorf("rag: deliver answer: %w", err)
	}

	r.log.Info("rag.done",
		"direct", answer.Direct,
		"retries", answer.Retries,
		"duration_ms", time.Since(start).Milliseconds(),
		"accumulators", r.store.Snapshot(),
	)

	return answer, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run) (*Answer, error) {
	var route *schema.RagIntentRoute
	if err := o.step(ctx, r, StepRoute, func(ctx context.Context, r *run) (err error) {
		route, err = o.route(ctx, r)
		return err
	}); err != nil {
		return nil, err
	}

	if !route.ShouldRunRAG {
		r.log.Info("rag.route.direct")
		return &Answer{RunID: r.id, Markdown: route.AssistantMessage, Direct: true}, nil
	}

	if err := o.step(ctx, r, StepPlan, o.planStep); err != nil {
		return nil, err
	}

	if err := o.cycle(ctx, r, r.plan); err != nil {
		return nil, err
	}

	retries, err := loop.BoundedRetry(ctx, r.satisfied, o.opts.MaxRetries, func(ctx context.Context, attempt int) error {
		o.opts.Recorder.IncEvidenceRetry(Workflow)
		r.log.Info("rag.retry", "attempt", attempt, "followups", len(r.evidence.FollowupQueries))

		return o.cycle(ctx, r, r.evidence.Followups())
	}, loop.WithName("evidence_retry"), loop.WithLogger(r.log), loop.WithRecorder(o.opts.Recorder))
	if err != nil {
		return nil, fmt.Errorf("rag step %s: %w", StepRetry, err)
	}

	var answer *Answer
	if err := o.step(ctx, r, StepAnswer, func(ctx context.Context, r *run) (err error) {
		answer, err = o.answer(ctx, r)
		return err
	}); err != nil {
		return nil, err
	}

	answer.Retries = retries
	return answer, nil
}

// satisfied ends the retry gate once the evidence suffices or offers no
// follow-up query to pursue.
func (r *run) satisfied() bool {
	return r.evidence.IsSufficient || len(r.evidence.FollowupQueries) == 0
}

// cycle runs RetrieveLoop, Rerank and Evidence for queries.
func (o *Orchestrator) cycle(ctx context.Context, r *run, queries []schema.PlannedQuery) error {
	if err := o.step(ctx, r, StepRetrieve, func(ctx context.Context, r *run) error {
		return o.retrieve(ctx, r, queries)
	}); err != nil {
		return err
	}

	if err := o.step(ctx, r, StepRerank, o.rerank); err != nil {
		return err
	}

	return o.step(ctx, r, StepEvidence, o.assess)
}

func (o *Orchestrator) step(ctx context.Context, r *run, step Step, fn func(context.Context, *run) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("rag step %s: %w", step, err)
	}

	start := time.Now()
	err := fn(ctx, r)

	if sl, ok := r.log.(logging.StepLogger); ok {
		sl.LogStep(Workflow, string(step), time.Since(start), err)
	} else {
		r.log.Debug("rag.step", "step", step, "duration_ms", time.Since(start).Milliseconds(), "ok", err == nil)
	}

	if err != nil {
		return fmt.Errorf("rag step %s: %w", step, err)
	}
	return nil
}

func (o *Orchestrator) route(ctx context.Context, r *run) (*schema.RagIntentRoute, error) {
	p, err := prompt.Render(prompt.Route, struct{ Question string }{r.question})
	if err != nil {
		return nil, err
	}

	route, err := invokeStructured[schema.RagIntentRoute](ctx, o.invoker, RagIntentRouterAgent, p)
	if err != nil {
		return nil, err
	}

	if !route.ShouldRunRAG && strings.TrimSpace(route.AssistantMessage) == "" {
		return nil, &core.SchemaValidationError{
			Schema:  schema.RagIntentRouteName,
			Field:   "assistant_message",
			Message: "must not be empty when should_run_rag is false",
		}
	}

	return route, nil
}

func (o *Orchestrator) planStep(ctx context.Context, r *run) error {
	plan, err := Plan(ctx, o.invoker, r.question)
	if err != nil {
		return err
	}

	r.plan = plan.Items()
	r.filter = plan.Filter

	return nil
}

// Plan invokes the query planner for question. The returned plan holds at
// most three queries and a filter that is either empty or parses as a
// knowledge filter.
func Plan(ctx context.Context, invoker agent.Invoker, question string) (*schema.RagQueryPlan, error) {
	p, err := prompt.Render(prompt.Plan, struct{ Question string }{question})
	if err != nil {
		return nil, err
	}

	plan, err := invokeStructured[schema.RagQueryPlan](ctx, invoker, RagQueryPlanAgent, p)
	if err != nil {
		return nil, err
	}

	plan.Filter = strings.TrimSpace(plan.Filter)
	if _, err := knowledge.ParseFilter(plan.Filter); err != nil {
		return nil, &core.SchemaValidationError{Schema: schema.RagQueryPlanName, Field: "filter", Message: err.Error()}
	}

	return plan, nil
}

type retrieval struct {
	query  schema.PlannedQuery
	used   string
	chunks []schema.Chunk
}

// retrieve runs one RetrieveLoop over queries and appends one block per query
// to retrieved_context. Retriever calls may overlap up to Parallelism; blocks
// are appended by this goroutine alone, in query order.
func (o *Orchestrator) retrieve(ctx context.Context, r *run, queries []schema.PlannedQuery) error {
	results, err := loop.Gather(ctx, queries, o.opts.Parallelism, func(ctx context.Context, _ int, q schema.PlannedQuery) (retrieval, error) {
		return o.retrieveOne(ctx, r, q)
	})
	if err != nil {
		return err
	}

	return loop.Each(ctx, results, func(_ context.Context, _ loop.Iteration, res retrieval) error {
		r.queries.Append(res.query.Query)
		r.context.Append(formatBlock(r.queries.Len(), res))
		return nil
	},
		loop.WithName("retrieve"),
		loop.WithLogger(r.log),
		loop.WithRecorder(o.opts.Recorder),
		loop.WithFallback(func(context.Context) error {
			r.context.Append("### No retrieval queries planned\n" + NoDocuments + "\n")
			return nil
		}),
	)
}

func (o *Orchestrator) retrieveOne(ctx context.Context, r *run, q schema.PlannedQuery) (retrieval, error) {
	p, err := prompt.Render(prompt.Retrieve, struct {
		Query, Goal, Filter string
	}{q.Query, q.Goal, r.filter})
	if err != nil {
		return retrieval{}, err
	}

	out, err := invokeStructured[schema.RagRetrieval](ctx, o.invoker, RagRetrieverAgent, p)
	if err != nil {
		return retrieval{}, err
	}

	used := strings.TrimSpace(out.QueryUsed)
	if used == "" {
		used = q.Query
	}

	return retrieval{query: q, used: used, chunks: out.Chunks()}, nil
}

func formatBlock(n int, res retrieval) string {
	var b strings.Builder

	fmt.Fprintf(&b, "### Query %d: %s\n", n, res.used)
	if res.query.Goal != "" {
		fmt.Fprintf(&b, "Goal: %s\n", res.query.Goal)
	}

	if len(res.chunks) == 0 {
		b.WriteString(NoDocuments + "\n")
		return b.String()
	}

	for i, c := range res.chunks {
		fmt.Fprintf(&b, "[%d] source: %s\n%s\n", i+1, c.Source, strings.TrimSpace(c.Text))
	}

	return b.String()
}

func (o *Orchestrator) rerank(ctx context.Context, r *run) error {
	p, err := prompt.Render(prompt.Rerank, struct {
		Question, Context string
	}{r.question, r.context.String()})
	if err != nil {
		return err
	}

	out, err := invokeStructured[schema.RagRerank](ctx, o.invoker, RagRerankAgent, p)
	if err != nil {
		return err
	}

	r.selection = out.Selection()
	r.missing = out.MissingInfo

	return nil
}

func (o *Orchestrator) assess(ctx context.Context, r *run) error {
	p, err := prompt.Render(prompt.Evidence, struct {
		Question    string
		Selection   []schema.SelectedChunk
		MissingInfo []string
	}{r.question, r.selection, r.missing})
	if err != nil {
		return err
	}

	ev, err := invokeStructured[schema.RagEvidence](ctx, o.invoker, RagEvidenceAgent, p)
	if err != nil {
		return err
	}

	r.evidence = ev

	r.log.Info("rag.evidence",
		"sufficient", ev.IsSufficient,
		"confidence", ev.Confidence,
		"followups", len(ev.FollowupQueries),
	)

	return nil
}

func (o *Orchestrator) answer(ctx context.Context, r *run) (*Answer, error) {
	points := r.evidence.Points()

	p, err := prompt.Render(prompt.Answer, struct {
		Question   string
		Selection  []schema.SelectedChunk
		KeyPoints  []schema.KeyPoint
		Sufficient bool
	}{r.question, r.selection, points, r.evidence.IsSufficient})
	if err != nil {
		return nil, err
	}

	out, err := invokeStructured[schema.RagAnswer](ctx, o.invoker, RagAnswerAgent, p)
	if err != nil {
		return nil, err
	}

	sources := accumulator.Distinct(nonEmpty(out.Sources))

	if o.opts.StrictCitations {
		supplied := make([]string, 0, len(r.selection))
		for _, c := range r.selection {
			supplied = append(supplied, c.Source)
		}

		if err := core.CheckCitations(RagAnswerAgent, sources, supplied); err != nil {
			return nil, err
		}
	}

	return &Answer{
		RunID:      r.id,
		Markdown:   out.AnswerMarkdown,
		Sources:    sources,
		Queries:    r.queries.Items(),
		Filter:     r.filter,
		Selection:  r.selection,
		KeyPoints:  points,
		Sufficient: r.evidence.IsSufficient,
		Confidence: r.evidence.Confidence,
	}, nil
}

func invokeStructured[T any](ctx context.Context, inv agent.Invoker, agentID, p string) (*T, error) {
	res, err := inv.Invoke(ctx, agentID, p)
	if err != nil {
		return nil, err
	}
	return agent.Structured[T](res)
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
