// Package metrics records workflow and agent invocation metrics.
package metrics

import "time"

// Recorder defines the interface for recording workflow metrics.
type Recorder interface {
	// ObserveAgentCall records one agent invocation.
	ObserveAgentCall(agentID, contract string, promptTokens, completionTokens int64, success bool, duration time.Duration)

	// IncLoopIteration counts one iteration of a named loop.
	IncLoopIteration(loop string)

	// IncEvidenceRetry counts one follow-up retrieval round.
	IncEvidenceRetry(workflow string)

	// ObserveRun records a finished workflow run.
	ObserveRun(workflow string, success bool, duration time.Duration)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveAgentCall does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveAgentCall(_, _ string, _, _ int64, _ bool, _ time.Duration) {}

// IncLoopIteration does nothing in the no-op recorder.
func (n *NoopRecorder) IncLoopIteration(_ string) {}

// IncEvidenceRetry does nothing in the no-op recorder.
func (n *NoopRecorder) IncEvidenceRetry(_ string) {}

// ObserveRun does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRun(_ string, _ bool, _ time.Duration) {}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
