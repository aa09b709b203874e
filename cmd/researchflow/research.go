package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/researchflow/research"
)

func newResearchCmd(a *app) *cobra.Command {
	var (
		depth, breadth int
		source         string
		docs           string
		answer         string
		noStrict       bool
	)

	cmd := &cobra.Command{
		Use:   "research <query>",
		Short: "Research a topic and write a cited report",
		Long: `Runs the deep research workflow: clarifying questions, a report title,
depth iterations of planned searches (breadth queries each) and a final
markdown report citing the collected sources.

Use --source internal together with --docs to research your own documents.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			query := strings.Join(args, " ")

			rcfg := a.cfg.Research
			if cmd.Flags().Changed("depth") {
				rcfg.Depth = depth
			}
			if cmd.Flags().Changed("breadth") {
				rcfg.Breadth = breadth
			}
			if cmd.Flags().Changed("source") {
				rcfg.Source = source
			}
			if noStrict {
				rcfg.StrictCitations = false
			}

			kb, err := a.knowledge(ctx, docs)
			if err != nil {
				return err
			}
			if kb != nil {
				defer kb.Close()
			}

			if rcfg.Source == string(research.SourceInternal) && kb == nil {
				return fmt.Errorf("--source internal needs documents (--docs or knowledge.dir)")
			}
			if rcfg.Source == string(research.SourceWeb) && a.cfg.Serper.APIKey == "" {
				return fmt.Errorf("web research needs SERPER_API_KEY")
			}

			flow, err := a.flow(ctx, kb, []func(*research.Options){func(o *research.Options) {
				o.Depth = rcfg.Depth
				o.Breadth = rcfg.Breadth
				o.Source = research.Source(rcfg.Source)
				o.StrictCitations = rcfg.StrictCitations
			}}, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			var answerer research.Answerer = newTerminal(cmd.InOrStdin(), out)
			if cmd.Flags().Changed("answer") {
				answerer = fixedAnswers(answer)
			}

			report, err := flow.Research(ctx, query, answerer)
			if err != nil {
				return fmt.Errorf("research failed: %w", err)
			}

			fmt.Fprintf(out, "\n# %s\n_%s_\n\n%s\n", report.Title, report.Description, report.Markdown)
			printSources(out, report.Sources)

			return nil
		},
	}

	cmd.Flags().IntVar(&depth, "depth", 2, "research iterations")
	cmd.Flags().IntVar(&breadth, "breadth", 3, "search queries per iteration")
	cmd.Flags().StringVar(&source, "source", "web", "search source: web or internal")
	cmd.Flags().StringVar(&docs, "docs", "", "directory of documents for internal search")
	cmd.Flags().StringVar(&answer, "answer", "", "answer every clarifying question with this text instead of prompting")
	cmd.Flags().BoolVar(&noStrict, "no-strict-citations", false, "accept reports citing sources that were never found")

	return cmd
}
