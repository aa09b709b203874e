package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LogLevelDebug},
		{"INFO", LogLevelInfo},
		{"warning", LogLevelWarn},
		{"error", LogLevelError},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestRunLogger_AttachesRunAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelDebug, Format: "json", Output: &buf}).
		WithComponent("rag").
		WithRun("run-1")

	l.Info("step done", "step", "plan")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "step done", rec["msg"])
	assert.Equal(t, "rag", rec["component"])
	assert.Equal(t, "run-1", rec["run_id"])
	assert.Equal(t, "plan", rec["step"])
}

func TestRunLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelWarn, Format: "text", Output: &buf})

	l.Debug("hidden")
	l.Info("hidden")
	assert.Empty(t, buf.String())

	l.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestRunLogger_LogAgentCallFailure(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l.LogAgentCall("rag-answer-agent", "gpt-4.1", "strict_json_schema", 5*time.Millisecond, false, errors.New("boom"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "Agent call failed", rec["msg"])
	assert.Equal(t, "boom", rec["error"])
	assert.Equal(t, "rag-answer-agent", rec["agent"])
}

func TestRunLogger_WithContextDoesNotLeak(t *testing.T) {
	base := NewLogger(nil)
	child := base.WithContext("k", "v")

	assert.Empty(t, base.context)
	assert.Equal(t, "v", child.context["k"])
}

func TestNoOpLogger(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.NotPanics(t, func() {
		l.Debug("x")
		l.Info("x", "k", 1)
		l.Warn("x")
		l.Error("x")
	})
}

func TestForRunScopesRunLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf})

	l := ForRun(ForComponent(base, "rag"), "run-42")
	l.Info("hello")

	assert.Contains(t, buf.String(), `"run_id":"run-42"`)
	assert.Contains(t, buf.String(), `"component":"rag"`)

	var _ StepLogger = base
	var _ AgentCallLogger = base

	noop := NoOpLogger{}
	assert.Equal(t, Logger(noop), ForRun(noop, "x"))
}

func TestForRunScopesPlainLoggers(t *testing.T) {
	var buf bytes.Buffer
	base := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, nil)))

	l := ForRun(ForComponent(base, "research"), "run-7")
	l.Info("research.start", "depth", 2)
	l.Warn("research.depth.zero")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	for _, line := range lines {
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		assert.Equal(t, "run-7", rec["run_id"])
		assert.Equal(t, "research", rec["component"])
		assert.Equal(t, 1, strings.Count(line, `"run_id"`))
	}

	assert.Equal(t, Logger(NoOpLogger{}), ForComponent(nil, "x"))
}
