package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/researchflow/rag"
)

func newAskCmd(a *app) *cobra.Command {
	var (
		docs        string
		maxRetries  int
		parallelism int
		noStrict    bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from your documents",
		Long: `Runs the agentic RAG workflow: routing, query planning, retrieval,
reranking, an evidence check with at most max-retries follow-up rounds and a
grounded answer citing the retrieved sources.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			rcfg := a.cfg.RAG
			if cmd.Flags().Changed("max-retries") {
				rcfg.MaxRetries = maxRetries
			}
			if cmd.Flags().Changed("parallelism") {
				rcfg.Parallelism = parallelism
			}
			if noStrict {
				rcfg.StrictCitations = false
			}

			kb, err := a.knowledge(ctx, docs)
			if err != nil {
				return err
			}
			if kb == nil {
				return fmt.Errorf("ask needs documents (--docs or knowledge.dir)")
			}
			defer kb.Close()

			flow, err := a.flow(ctx, kb, nil, []func(*rag.Options){func(o *rag.Options) {
				o.MaxRetries = rcfg.MaxRetries
				o.Parallelism = rcfg.Parallelism
				o.StrictCitations = rcfg.StrictCitations
			}})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			answer, err := flow.Ask(ctx, strings.Join(args, " "), newTerminal(cmd.InOrStdin(), out))
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}

			printSources(out, answer.Sources)

			if verbose && !answer.Direct {
				fmt.Fprintf(out, "\nqueries: %s\nsufficient: %t (confidence %.2f), retries: %d\n",
					strings.Join(answer.Queries, " | "), answer.Sufficient, answer.Confidence, answer.Retries)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&docs, "docs", "", "directory of documents to answer from")
	cmd.Flags().IntVar(&maxRetries, "max-retries", 1, "follow-up retrieval rounds when evidence is insufficient")
	cmd.Flags().IntVar(&parallelism, "parallelism", 1, "concurrent retrieval calls per round")
	cmd.Flags().BoolVar(&noStrict, "no-strict-citations", false, "accept answers citing sources outside the evidence")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print retrieval details")

	return cmd
}
