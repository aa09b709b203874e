package research

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/researchflow/accumulator"
	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/internal/prompt"
	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/loop"
	"github.com/hupe1980/researchflow/metrics"
	"github.com/hupe1980/researchflow/schema"
)

// Workflow is the workflow name used in logs and metrics.
const Workflow = "deep-research"

// Agent ids the workflow invokes.
const (
	ClarifyingQuestionsAgent = "ClarifyingQuestionsAgent"
	ReportTitleAgent         = "ReportTitleAgent"
	SERPQueryAgent           = "SERPQueryAgent"
	WebSearchAgent           = "WebSearchAgent"
	InternalSearchAgent      = "InternalSearchAgent"
	LearningsAgent           = "LearningsAgent"
	ReportAgent              = "ReportAgent"
)

// AgentIDs lists every agent the workflow may invoke.
func AgentIDs() []string {
	return []string{
		ClarifyingQuestionsAgent, ReportTitleAgent, SERPQueryAgent,
		WebSearchAgent, InternalSearchAgent, LearningsAgent, ReportAgent,
	}
}

// Accumulator names.
const (
	AllQuestionsAndAnswers = "all_questions_and_answers"
	AllLearnings           = "all_learnings"
	AllURLs                = "all_urls"
	AllIterationFollowups  = "all_iteration_followups"
)

// Step names the workflow state an error occurred in.
type Step string

const (
	StepClarify    Step = "clarify"
	StepTitle      Step = "title"
	StepIterate    Step = "research_iteration"
	StepSynthesize Step = "synthesize"
)

// Source selects the search agent used inside research iterations.
type Source string

const (
	SourceWeb      Source = "web"
	SourceInternal Source = "internal"
)

// Answerer collects the user's answer to a clarifying question.
type Answerer interface {
	Answer(ctx context.Context, n int, question string) (string, error)
}

// AnswererFunc adapts a function to Answerer.
type AnswererFunc func(ctx context.Context, n int, question string) (string, error)

// Answer implements Answerer.
func (f AnswererFunc) Answer(ctx context.Context, n int, question string) (string, error) {
	return f(ctx, n, question)
}

// Options configures the orchestrator.
type Options struct {
	// Depth is the number of research iterations.
	Depth int
	// Breadth bounds the search queries researched per iteration.
	Breadth int
	Source  Source
	// StrictCitations rejects reports citing URLs never found during research.
	StrictCitations bool
	Logger          logging.Logger
	Recorder        metrics.Recorder
}

// Orchestrator runs the deep research workflow.
type Orchestrator struct {
	invoker  agent.Invoker
	answerer Answerer
	opts     Options
}

// New creates an orchestrator. A nil answerer leaves every clarifying
// question unanswered.
func New(invoker agent.Invoker, answerer Answerer, optFns ...func(o *Options)) *Orchestrator {
	opts := Options{
		Depth:           2,
		Breadth:         3,
		Source:          SourceWeb,
		StrictCitations: true,
		Logger:          logging.NoOpLogger{},
		Recorder:        metrics.Nop(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if answerer == nil {
		answerer = AnswererFunc(func(context.Context, int, string) (string, error) { return "", nil })
	}

	return &Orchestrator{invoker: invoker, answerer: answerer, opts: opts}
}

// QA is one clarifying question with the user's answer.
type QA struct {
	Question string
	Answer   string
}

// IterationTrace records what one depth iteration did.
type IterationTrace struct {
	Index int
	// FollowupsAtStart is the follow-up count right after the iteration reset.
	FollowupsAtStart int
	Queries          []string
	Followups        []string
}

// Report is the final artifact of a run.
type Report struct {
	RunID       string
	Title       string
	Description string
	Markdown    string
	// Sources are the URLs the report cites.
	Sources []string
	// Learnings and URLs are everything collected during research.
	Learnings  []string
	URLs       []string
	Clarified  []QA
	Iterations []IterationTrace
}

// run is the explicit per-run state.
type run struct {
	id         string
	log        logging.Logger
	query      string
	enriched   string
	store      *accumulator.Store
	qa         *accumulator.Text
	learnings  *accumulator.List[string]
	urls       *accumulator.List[string]
	followups  *accumulator.List[string]
	clarified  []QA
	iterations []IterationTrace
	title      *schema.ReportTitle
}

func newRun(query string) *run {
	store := accumulator.NewStore()

	return &run{
		id:        core.NewID(),
		query:     query,
		enriched:  query,
		store:     store,
		qa:        store.MustText(accumulator.ScopeRun, AllQuestionsAndAnswers, ""),
		learnings: accumulator.MustList[string](store, accumulator.ScopeRun, AllLearnings),
		urls:      accumulator.MustList[string](store, accumulator.ScopeRun, AllURLs),
		followups: accumulator.MustList[string](store, accumulator.ScopeIteration, AllIterationFollowups),
	}
}

// Run executes the workflow for query. No partial report is returned on error.
func (o *Orchestrator) Run(ctx context.Context, query string) (*Report, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("research: empty query")
	}

	r := newRun(query)
	r.log = logging.ForRun(logging.ForComponent(o.opts.Logger, Workflow), r.id)
	start := time.Now()

	r.log.Info("research.start", "depth", o.opts.Depth, "breadth", o.opts.Breadth, "source", o.opts.Source)

	report, err := o.run(ctx, r)

	o.opts.Recorder.ObserveRun(Workflow, err == nil, time.Since(start))

	if err != nil {
		r.log.Error("research.failed", "error", err.Error())
		return nil, err
	}

	r.log.Info("research.done", "duration_ms", time.Since(start).Milliseconds(), "accumulators", r.store.Snapshot())

	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, r *run) (*Report, error) {
	steps := []struct {
		step Step
		fn   func(context.Context, *run) error
	}{
		{StepClarify, o.clarify},
		{StepTitle, o.titleStep},
		{StepIterate, o.iterate},
	}

	for _, s := range steps {
		if err := o.step(ctx, r, s.step, s.fn); err != nil {
			return nil, err
		}
	}

	var report *Report
	err := o.step(ctx, r, StepSynthesize, func(ctx context.Context, r *run) error {
		var err error
		report, err = o.synthesize(ctx, r)
		return err
	})

	return report, err
}

func (o *Orchestrator) step(ctx context.Context, r *run, step Step, fn func(context.Context, *run) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("research step %s: %w", step, err)
	}

	start := time.Now()
	err := fn(ctx, r)

	if sl, ok := r.log.(logging.StepLogger); ok {
		sl.LogStep(Workflow, string(step), time.Since(start), err)
	} else {
		r.log.Debug("research.step", "step", step, "duration_ms", time.Since(start).Milliseconds(), "ok", err == nil)
	}

	if err != nil {
		return fmt.Errorf("research step %s: %w", step, err)
	}
	return nil
}

func (o *Orchestrator) loopOpts(r *run, name string, extra ...loop.Option) []loop.Option {
	return append([]loop.Option{
		loop.WithName(name),
		loop.WithLogger(r.log),
		loop.WithRecorder(o.opts.Recorder),
	}, extra...)
}

func (o *Orchestrator) clarify(ctx context.Context, r *run) error {
	p, err := prompt.Render(prompt.Clarify, struct{ Query string }{r.query})
	if err != nil {
		return err
	}

	cq, err := invokeStructured[schema.ClarifyingQuestions](ctx, o.invoker, ClarifyingQuestionsAgent, p)
	if err != nil {
		return err
	}

	err = loop.Each(ctx, cq.Questions, func(ctx context.Context, it loop.Iteration, q string) error {
		q = strings.TrimSpace(q)

		a, err := o.answerer.Answer(ctx, it.Index, q)
		if err != nil {
			return fmt.Errorf("answer question %d: %w", it.Index, err)
		}
		a = strings.TrimSpace(a)

		r.qa.Append(fmt.Sprintf("Q%d: %s\nA%d: %s\n", it.Index, q, it.Index, a))
		r.clarified = append(r.clarified, QA{Question: q, Answer: a})

		return nil
	}, o.loopOpts(r, "clarify", loop.WithFallback(func(context.Context) error {
		r.log.Info("research.clarify.none")
		return nil
	}))...)
	if err != nil {
		return err
	}

	if qa := r.qa.String(); qa != "" {
		r.enriched = r.query + "\n\n" + qa
	}

	return nil
}

func (o *Orchestrator) titleStep(ctx context.Context, r *run) error {
	p, err := prompt.Render(prompt.Title, struct{ Query string }{r.enriched})
	if err != nil {
		return err
	}

	title, err := invokeStructured[schema.ReportTitle](ctx, o.invoker, ReportTitleAgent, p)
	if err != nil {
		return err
	}

	r.title = title
	return nil
}

func (o *Orchestrator) iterate(ctx context.Context, r *run) error {
	return loop.Counted(ctx, o.opts.Depth, func(ctx context.Context, it loop.Iteration) error {
		r.store.ResetScope(accumulator.ScopeIteration)

		trace := IterationTrace{Index: it.Index, FollowupsAtStart: r.followups.Len()}

		p, err := prompt.Render(prompt.SERPQueries, struct {
			Query     string
			Breadth   int
			Learnings []string
		}{r.enriched, o.opts.Breadth, r.learnings.Items()})
		if err != nil {
			return err
		}

		serp, err := invokeStructured[schema.SERPQueries](ctx, o.invoker, SERPQueryAgent, p)
		if err != nil {
			return err
		}

		queries := serp.Items()
		queries = queries[:loop.Bound(o.opts.Breadth, len(queries))]

		err = loop.Each(ctx, queries, func(ctx context.Context, _ loop.Iteration, q schema.SERPQuery) error {
			trace.Queries = append(trace.Queries, q.Query)
			return o.research(ctx, r, q)
		}, o.loopOpts(r, "breadth", loop.WithFallback(func(context.Context) error {
			r.log.Warn("research.iteration.no_queries", "iteration", it.Index)
			return nil
		}))...)
		if err != nil {
			return err
		}

		trace.Followups = r.followups.Items()
		r.iterations = append(r.iterations, trace)

		r.foldFollowups()

		r.log.Info("research.iteration.done",
			"iteration", it.String(),
			"queries", len(queries),
			"learnings", r.learnings.Len(),
			"followups", r.followups.Len(),
		)

		return nil
	}, o.loopOpts(r, "depth", loop.WithFallback(func(context.Context) error {
		r.log.Warn("research.depth.zero")
		return nil
	}))...)
}

// research searches one query and condenses the results into learnings.
func (o *Orchestrator) research(ctx context.Context, r *run, q schema.SERPQuery) error {
	searchAgent := WebSearchAgent
	if o.opts.Source == SourceInternal {
		searchAgent = InternalSearchAgent
	}

	p, err := prompt.Render(prompt.WebSearch, q)
	if err != nil {
		return err
	}

	res, err := o.invoker.Invoke(ctx, searchAgent, p)
	if err != nil {
		return err
	}

	results, err := agent.Text(res)
	if err != nil {
		return err
	}

	p, err = prompt.Render(prompt.Learnings, struct {
		Query, Goal, Results string
	}{q.Query, q.Goal, results})
	if err != nil {
		return err
	}

	l, err := invokeStructured[schema.Learnings](ctx, o.invoker, LearningsAgent, p)
	if err != nil {
		return err
	}

	r.learnings.Append(nonEmpty(l.Learnings)...)
	r.urls.Append(nonEmpty(l.Sources)...)
	r.followups.Append(nonEmpty(l.FollowUpQuestions)...)

	return nil
}

// foldFollowups steers the next iteration towards the gaps found in this one.
func (r *run) foldFollowups() {
	items := r.followups.Items()
	if len(items) == 0 {
		return
	}

	var b strings.Builder
	b.WriteString(r.enriched)
	b.WriteString("\n\nFollow-up research directions:\n")
	for _, f := range items {
		b.WriteString("- ")
		b.WriteString(f)
		b.WriteString("\n")
	}

	r.enriched = strings.TrimRight(b.String(), "\n")
}

func (o *Orchestrator) synthesize(ctx context.Context, r *run) (*Report, error) {
	urls := accumulator.Distinct(r.urls.Items())
	learnings := r.learnings.Items()

	p, err := prompt.Render(prompt.Report, struct {
		Query, Title, Description string
		Learnings, URLs           []string
	}{r.enriched, r.title.Title, r.title.Description, learnings, urls})
	if err != nil {
		return nil, err
	}

	out, err := invokeStructured[schema.Report](ctx, o.invoker, ReportAgent, p)
	if err != nil {
		return nil, err
	}

	sources := accumulator.Distinct(nonEmpty(out.Sources))

	if o.opts.StrictCitations {
		if err := core.CheckCitations(ReportAgent, sources, urls); err != nil {
			return nil, err
		}
	}

	return &Report{
		RunID:       r.id,
		Title:       r.title.Title,
		Description: r.title.Description,
		Markdown:    out.ReportMarkdown,
		Sources:     sources,
		Learnings:   learnings,
		URLs:        urls,
		Clarified:   r.clarified,
		Iterations:  r.iterations,
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
