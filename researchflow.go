// Package researchflow wires the deep research and agentic RAG workflows to a
// model backend, the agent definitions and the tool backends. Most
// applications interact with this package by:
//  1. Creating a Flow via New() with a model and optional tool backends
//  2. Running Research for a report or Ask for a grounded answer
//
// Every run gets a fresh invoker so the invocation budget applies per run.
package researchflow

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/core"
	"github.com/hupe1980/researchflow/definitions"
	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/metrics"
	"github.com/hupe1980/researchflow/model"
	"github.com/hupe1980/researchflow/rag"
	"github.com/hupe1980/researchflow/research"
	"github.com/hupe1980/researchflow/tool"
	"github.com/hupe1980/researchflow/tool/internalsearch"
	"github.com/hupe1980/researchflow/tool/retrieval"
	"github.com/hupe1980/researchflow/tool/websearch"
)

// Options configures a Flow.
type Options struct {
	// Registry holds the agent definitions. Defaults to the embedded set.
	Registry *agent.Registry
	// Searcher backs the web_search tool. Nil leaves the tool unavailable.
	Searcher websearch.Searcher
	// Knowledge backs internal_search and retrieval. Nil leaves both unavailable.
	Knowledge *knowledge.Store

	SearchResults int
	RetrievalTopK int

	// InvokeTimeout bounds a single agent invocation.
	InvokeTimeout time.Duration
	MaxToolRounds int
	// Budget caps agent invocations per run; 0 disables the cap.
	Budget int

	Research []func(o *research.Options)
	RAG      []func(o *rag.Options)

	Logger   logging.Logger
	Recorder metrics.Recorder
}

// Flow is the high-level façade over both workflows.
type Flow struct {
	opts  Options
	llm   model.Model
	tools tool.Set
}

// New creates a Flow on top of llm.
func New(llm model.Model, optFns ...func(o *Options)) (*Flow, error) {
	opts := Options{
		SearchResults: 5,
		RetrievalTopK: 8,
		InvokeTimeout: 120 * time.Second,
		MaxToolRounds: 4,
		Logger:        logging.NoOpLogger{},
		Recorder:      metrics.Nop(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if llm == nil {
		return nil, fmt.Errorf("researchflow: model is required")
	}

	if opts.Registry == nil {
		reg, err := definitions.Registry()
		if err != nil {
			return nil, fmt.Errorf("load embedded agent definitions: %w", err)
		}
		opts.Registry = reg
	}

	tools := tool.Set{}
	if opts.Searcher != nil {
		tools[tool.KindWebSearch] = websearch.NewTool(opts.Searcher, opts.SearchResults)
	}
	if opts.Knowledge != nil {
		tools[tool.KindInternalSearch] = internalsearch.NewTool(opts.Knowledge, opts.SearchResults)
		tools[tool.KindRetrieval] = retrieval.NewTool(opts.Knowledge, opts.RetrievalTopK)
	}

	return &Flow{opts: opts, llm: llm, tools: tools}, nil
}

// Registry returns the agent registry in use.
func (f *Flow) Registry() *agent.Registry { return f.opts.Registry }

// Tools returns the configured tool backends.
func (f *Flow) Tools() tool.Set { return f.tools }

// Invoker returns a new invoker with its own invocation budget.
func (f *Flow) Invoker() agent.Invoker {
	return agent.NewInvoker(f.opts.Registry, f.llm, f.tools, func(o *agent.InvokerOptions) {
		o.Timeout = f.opts.InvokeTimeout
		o.MaxToolRounds = f.opts.MaxToolRounds
		o.Budget = core.NewInvocationBudget(f.opts.Budget)
		o.Logger = f.opts.Logger
		o.Recorder = f.opts.Recorder
	})
}

// Research runs the deep research workflow for query.
func (f *Flow) Research(ctx context.Context, query string, answerer research.Answerer) (*research.Report, error) {
	if err := f.opts.Registry.Require(research.AgentIDs()...); err != nil {
		return nil, err
	}

	optFns := append([]func(o *research.Options){func(o *research.Options) {
		o.Logger = f.opts.Logger
		o.Recorder = f.opts.Recorder
	}}, f.opts.Research...)

	return research.New(f.Invoker(), answerer, optFns...).Run(ctx, query)
}

// Ask runs the agentic RAG workflow for question.
func (f *Flow) Ask(ctx context.Context, question string, responder rag.Responder) (*rag.Answer, error) {
	if err := f.opts.Registry.Require(rag.AgentIDs()...); err != nil {
		return nil, err
	}

	optFns := append([]func(o *rag.Options){func(o *rag.Options) {
		o.Logger = f.opts.Logger
		o.Recorder = f.opts.Recorder
	}}, f.opts.RAG...)

	return rag.New(f.Invoker(), responder, optFns...).Run(ctx, question)
}
