package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/hupe1980/researchflow/config"
	"github.com/hupe1980/researchflow/logging"
	"github.com/hupe1980/researchflow/metrics"
)

// app carries what every subcommand needs once the config is loaded.
type app struct {
	configPath string
	logLevel   string

	cfg      *config.Config
	logger   *logging.RunLogger
	recorder metrics.Recorder
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "researchflow",
		Short: "Deep research and agentic RAG on top of declarative agents",
		Long: `researchflow runs two multi-agent workflows:

  research  iterative web or internal research ending in a cited report
  ask       retrieval-augmented answers grounded in your own documents

Agents are declared in YAML (embedded by default) and can be synced into a
local SQLite registry with the agents subcommands.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default: ./researchflow.yaml if present)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newResearchCmd(a),
		newAskCmd(a),
		newAgentsCmd(a),
		newIngestCmd(a),
	)

	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	a.cfg = cfg
	a.logger = logging.NewSlogLogger(logging.ParseLevel(cfg.Log.Level), cfg.Log.Format, false)
	a.recorder = metrics.Nop()

	if cfg.Metrics.Addr != "" {
		reg := prometheus.NewRegistry()
		a.recorder = metrics.NewPrometheusRecorder(reg)
		a.serveMetrics(reg)
	}

	return nil
}

func (a *app) serveMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics.server", "addr", srv.Addr, "error", err.Error())
		}
	}()

	a.logger.Info("metrics.server", "addr", srv.Addr)
}
