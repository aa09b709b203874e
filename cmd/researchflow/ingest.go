package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newIngestCmd(a *app) *cobra.Command {
	var (
		query string
		k     int
	)

	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Index a document directory and print statistics",
		Long: `Loads every .md, .markdown and .txt file below dir into the knowledge
store. With knowledge.persist_dir set the vectors are kept on disk. --query
runs a test search against the fresh index.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			kb, err := a.knowledge(ctx, args[0])
			if err != nil {
				return err
			}
			defer kb.Close()

			out := cmd.OutOrStdout()
			st := kb.Stats()
			fmt.Fprintf(out, "documents: %d\nchunks: %d\nvectors: %d\n", st.Documents, st.Chunks, st.Vectors)

			if query == "" {
				return nil
			}

			hits, err := kb.Search(ctx, query, k, nil)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nresults for %q:\n", query)
			for _, h := range hits {
				fmt.Fprintf(out, "  %d. %s (%.4f)\n", h.Rank, h.Source, h.Score)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "run a test search")
	cmd.Flags().IntVarP(&k, "top", "k", 5, "number of test search results")

	return cmd
}
