package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/researchflow/agent"
	"github.com/hupe1980/researchflow/definitions"
	"github.com/hupe1980/researchflow/registry"
)

func newAgentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect and deploy agent definitions",
	}

	cmd.AddCommand(
		newAgentsListCmd(a),
		newAgentsSyncCmd(a),
		newAgentsMaintainCmd(a),
	)

	return cmd
}

// definitionSource returns the definition tree to deploy from: dir when set,
// otherwise agents.dir, otherwise the embedded definitions.
func (a *app) definitionSource(dir string) fs.FS {
	if dir == "" {
		dir = a.cfg.Agents.Dir
	}
	if dir == "" {
		return definitions.FS()
	}
	return os.DirFS(dir)
}

func newAgentsListCmd(a *app) *cobra.Command {
	var (
		dir       string
		fromStore bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workflow projects and their agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()

			if fromStore {
				store, err := a.openRegistry()
				if err != nil {
					return err
				}
				defer store.Close()

				records, err := store.List(cmd.Context())
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "NAME\tVERSION\tMODEL\tUPDATED")
				for _, r := range records {
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", r.Name, r.Version, r.Definition.Model, r.UpdatedAt.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			}

			fsys := a.definitionSource(dir)

			projects, err := definitions.Detect(fsys)
			if err != nil {
				return err
			}

			for _, p := range projects {
				defs, err := definitions.LoadFrom(fsys, p.Name)
				if err != nil {
					return err
				}

				fmt.Fprintf(out, "%s (%d agents)\n", p.Name, len(defs))
				printDefinitions(out, defs)
				fmt.Fprintln(out)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "definition directory (default: embedded definitions)")
	cmd.Flags().BoolVar(&fromStore, "registry", false, "list the deployed agents instead")

	return cmd
}

func printDefinitions(out io.Writer, defs []agent.Definition) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, d := range defs {
		tool := string(d.Tool)
		if tool == "" {
			tool = "-"
		}
		fmt.Fprintf(w, "  %d.\t%s\t%s\t%s\t%s\n", i+1, d.Name, d.Model, d.Contract(), tool)
	}
	_ = w.Flush()
}

func newAgentsSyncCmd(a *app) *cobra.Command {
	var (
		dir      string
		mode     string
		projects []string
		choice   string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Deploy agent definitions to the registry",
		Long: `Creates or updates registry agents from the definition files.

Modes:
  create  only add agents that are not registered yet
  update  only update registered agents
  sync    create and update (default)

Unchanged definitions are skipped, so repeated syncs are no-ops. --select
picks agents by their list position, e.g. "1-3,5" or "all".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := registry.ParseMode(mode)
			if err != nil {
				return err
			}

			defs, err := definitions.LoadFrom(a.definitionSource(dir), projects...)
			if err != nil {
				return err
			}

			defs, err = registry.Select(defs, choice)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if dryRun {
				fmt.Fprintf(out, "would %s %d agents:\n", m, len(defs))
				printDefinitions(out, defs)
				return nil
			}

			store, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer store.Close()

			report, err := store.Sync(cmd.Context(), defs, m)
			if err != nil {
				return err
			}

			printReport(out, report)

			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "definition directory (default: embedded definitions)")
	cmd.Flags().StringVar(&mode, "mode", string(registry.ModeSync), "create, update or sync")
	cmd.Flags().StringSliceVarP(&projects, "project", "p", nil, "restrict to workflow projects")
	cmd.Flags().StringVar(&choice, "select", "all", "agents to deploy by list position")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the selection without writing")

	return cmd
}

func printReport(out io.Writer, r *registry.Report) {
	line := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(out, "%-10s %s\n", label+":", strings.Join(names, ", "))
	}

	line("created", r.Created)
	line("updated", r.Updated)
	line("unchanged", r.Unchanged)
	line("skipped", r.Skipped)

	if !r.Changed() {
		fmt.Fprintln(out, "registry already up to date")
	}
}

func newAgentsMaintainCmd(a *app) *cobra.Command {
	var stripSampling bool

	cmd := &cobra.Command{
		Use:   "maintain [agent...]",
		Short: "Apply maintenance fixes to registered agents",
		Long: `Rewrites registered agents in place. --strip-sampling clears sampling
parameters from agents on reasoning models, which reject them. Without agent
names every registered agent is checked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !stripSampling {
				return fmt.Errorf("nothing to do; pass --strip-sampling")
			}

			store, err := a.openRegistry()
			if err != nil {
				return err
			}
			defer store.Close()

			changed, err := store.StripReasoningSampling(cmd.Context(), args...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(changed) == 0 {
				fmt.Fprintln(out, "no agents needed changes")
				return nil
			}

			fmt.Fprintf(out, "stripped sampling from: %s\n", strings.Join(changed, ", "))

			return nil
		},
	}

	cmd.Flags().BoolVar(&stripSampling, "strip-sampling", false, "clear temperature on reasoning-model agents")

	return cmd
}
