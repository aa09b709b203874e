package main

import (
	"context"
	"fmt"
	"os"

	chromem "github.com/philippgille/chromem-go"

	"github.com/hupe1980/researchflow"
	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/definitions"
	"github.com/hupe1980/researchflow/knowledge"
	"github.com/hupe1980/researchflow/model"
	"github.com/hupe1980/researchflow/model/anthropic"
	"github.com/hupe1980/researchflow/model/openai"
	"github.com/hupe1980/researchflow/rag"
	"github.com/hupe1980/researchflow/registry"
	"github.com/hupe1980/researchflow/research"
	"github.com/hupe1980/researchflow/tool/websearch"
)

func (a *app) model() (model.Model, error) {
	switch a.cfg.Provider {
	case "anthropic":
		if a.cfg.Anthropic.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for provider anthropic")
		}
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = a.cfg.Anthropic.APIKey
		}), nil
	default:
		if a.cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for provider openai")
		}
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = a.cfg.OpenAI.APIKey
			o.BaseURL = a.cfg.OpenAI.BaseURL
		}), nil
	}
}

// definitions returns the agent definitions to run with: the registry when
// configured, otherwise a definitions directory or the embedded set.
func (a *app) definitions(ctx context.Context) ([]agent.Definition, error) {
	if a.cfg.Registry.Use {
		store, err := a.openRegistry()
		if err != nil {
			return nil, err
		}
		defer store.Close()

		defs, err := store.Definitions(ctx)
		if err != nil {
			return nil, err
		}
		if len(defs) == 0 {
			return nil, fmt.Errorf("registry %s is empty; run 'researchflow agents sync' first", store.Path())
		}
		return defs, nil
	}

	if a.cfg.Agents.Dir != "" {
		return definitions.LoadFrom(os.DirFS(a.cfg.Agents.Dir))
	}

	return definitions.Load()
}

func (a *app) openRegistry() (*registry.Store, error) {
	return registry.Open(a.cfg.Registry.Path, func(o *registry.Options) {
		o.Logger = a.logger.WithComponent("registry")
	})
}

// knowledge builds the document store from knowledge.dir. It returns nil
// when no directory is configured.
func (a *app) knowledge(ctx context.Context, dir string) (*knowledge.Store, error) {
	if dir == "" {
		dir = a.cfg.Knowledge.Dir
	}
	if dir == "" {
		return nil, nil
	}

	kcfg := a.cfg.Knowledge

	store, err := knowledge.New(func(o *knowledge.Options) {
		o.ChunkWords = kcfg.ChunkWords
		o.ChunkOverlap = kcfg.ChunkOverlap
		o.PersistDir = kcfg.PersistDir
		o.Logger = a.logger.WithComponent("knowledge")
		if kcfg.Embeddings {
			o.Embed = chromem.NewEmbeddingFuncOpenAI(a.cfg.OpenAI.APIKey, chromem.EmbeddingModelOpenAI3Small)
		}
	})
	if err != nil {
		return nil, err
	}

	docs, err := knowledge.LoadDir(os.DirFS(dir), ".")
	if err != nil {
		store.Close()
		return nil, err
	}

	if _, err := store.Add(ctx, docs...); err != nil {
		store.Close()
		return nil, err
	}

	return store, nil
}

func (a *app) flow(ctx context.Context, kb *knowledge.Store, researchOpts []func(*research.Options), ragOpts []func(*rag.Options)) (*researchflow.Flow, error) {
	llm, err := a.model()
	if err != nil {
		return nil, err
	}

	defs, err := a.definitions(ctx)
	if err != nil {
		return nil, err
	}

	reg, err := agent.NewRegistry(defs...)
	if err != nil {
		return nil, err
	}

	return researchflow.New(llm, func(o *researchflow.Options) {
		o.Registry = reg
		o.Knowledge = kb
		if a.cfg.Serper.APIKey != "" {
			o.Searcher = websearch.NewSerper(func(so *websearch.Options) {
				so.APIKey = a.cfg.Serper.APIKey
				if a.cfg.Serper.Endpoint != "" {
					so.Endpoint = a.cfg.Serper.Endpoint
				}
				so.NumResults = a.cfg.Serper.NumResults
				so.Logger = a.logger.WithComponent("websearch")
			})
		}
		o.SearchResults = a.cfg.Serper.NumResults
		o.RetrievalTopK = a.cfg.RAG.TopK
		o.InvokeTimeout = a.cfg.Agents.Timeout
		o.MaxToolRounds = a.cfg.Agents.MaxToolRounds
		o.Budget = a.cfg.Agents.Budget
		o.Research = researchOpts
		o.RAG = ragOpts
		o.Logger = a.logger
		o.Recorder = a.recorder
	})
}
