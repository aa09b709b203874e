package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements the Recorder interface using Prometheus metrics.
type PrometheusRecorder struct {
	agentCallsTotal   *prometheus.CounterVec
	agentCallDuration *prometheus.HistogramVec
	tokensTotal       *prometheus.CounterVec
	loopIterations    *prometheus.CounterVec
	evidenceRetries   *prometheus.CounterVec
	runsTotal         *prometheus.CounterVec
	runDuration       *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a recorder whose collectors are registered
// on reg. Passing nil uses the default registerer.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &PrometheusRecorder{
		agentCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchflow_agent_calls_total",
				Help: "Total number of agent invocations by agent, contract, and status",
			},
			[]string{"agent_id", "contract", "status"},
		),
		agentCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "researchflow_agent_call_duration_seconds",
				Help:    "Duration of agent invocations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"agent_id", "contract"},
		),
		tokensTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchflow_tokens_total",
				Help: "Total number of tokens used by agent invocations",
			},
			[]string{"agent_id", "type"},
		),
		loopIterations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchflow_loop_iterations_total",
				Help: "Total number of executed loop iterations by loop name",
			},
			[]string{"loop"},
		),
		evidenceRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchflow_evidence_retries_total",
				Help: "Total number of follow-up retrieval rounds",
			},
			[]string{"workflow"},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "researchflow_runs_total",
				Help: "Total number of workflow runs by workflow and status",
			},
			[]string{"workflow", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "researchflow_run_duration_seconds",
				Help:    "Duration of workflow runs in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"workflow"},
		),
	}
}

// ObserveAgentCall records metrics for a completed agent invocation.
func (p *PrometheusRecorder) ObserveAgentCall(agentID, contract string, promptTokens, completionTokens int64, success bool, duration time.Duration) {
	p.agentCallsTotal.WithLabelValues(agentID, contract, status(success)).Inc()

	// Token usage is only meaningful for successful calls
	if success {
		p.tokensTotal.WithLabelValues(agentID, "prompt").Add(float64(promptTokens))
		p.tokensTotal.WithLabelValues(agentID, "completion").Add(float64(completionTokens))
	}

	p.agentCallDuration.WithLabelValues(agentID, contract).Observe(duration.Seconds())
}

// IncLoopIteration increments the iteration counter of loop.
func (p *PrometheusRecorder) IncLoopIteration(loop string) {
	p.loopIterations.WithLabelValues(loop).Inc()
}

// IncEvidenceRetry increments the follow-up retrieval counter.
func (p *PrometheusRecorder) IncEvidenceRetry(workflow string) {
	p.evidenceRetries.WithLabelValues(workflow).Inc()
}

// ObserveRun records a finished workflow run.
func (p *PrometheusRecorder) ObserveRun(workflow string, success bool, duration time.Duration) {
	p.runsTotal.WithLabelValues(workflow, status(success)).Inc()
	p.runDuration.WithLabelValues(workflow).Observe(duration.Seconds())
}
