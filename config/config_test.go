package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFiles(o *Options) { o.EnvFiles = nil }

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("", noEnvFiles)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-env", cfg.APIKey())
	assert.Equal(t, 2, cfg.Research.Depth)
	assert.Equal(t, 3, cfg.Research.Breadth)
	assert.Equal(t, "web", cfg.Research.Source)
	assert.True(t, cfg.Research.StrictCitations)
	assert.Equal(t, 1, cfg.RAG.MaxRetries)
	assert.Equal(t, 1, cfg.RAG.Parallelism)
	assert.Equal(t, 120*time.Second, cfg.Agents.Timeout)
	assert.Equal(t, 4, cfg.Agents.MaxToolRounds)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "researchflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: anthropic
anthropic:
  api_key: from-file
research:
  depth: 4
  source: internal
agents:
  timeout: 30s
`), 0o600))

	t.Setenv("RESEARCHFLOW_RESEARCH_BREADTH", "5")
	t.Setenv("RESEARCHFLOW_RAG_PARALLELISM", "3")

	cfg, err := Load(path, noEnvFiles)
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "from-file", cfg.APIKey())
	assert.Equal(t, 4, cfg.Research.Depth)
	assert.Equal(t, 5, cfg.Research.Breadth)
	assert.Equal(t, "internal", cfg.Research.Source)
	assert.Equal(t, 3, cfg.RAG.Parallelism)
	assert.Equal(t, 30*time.Second, cfg.Agents.Timeout)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERPER_API_KEY=serper-from-dotenv\n"), 0o600))

	t.Chdir(dir)
	t.Setenv("SERPER_API_KEY", "")
	os.Unsetenv("SERPER_API_KEY")

	cfg, err := Load("", func(o *Options) { o.EnvFiles = []string{envFile, filepath.Join(dir, "missing.env")} })
	require.NoError(t, err)
	assert.Equal(t, "serper-from-dotenv", cfg.Serper.APIKey)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), noEnvFiles)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"provider", map[string]string{"RESEARCHFLOW_PROVIDER": "gemini"}},
		{"source", map[string]string{"RESEARCHFLOW_RESEARCH_SOURCE": "intranet"}},
		{"breadth", map[string]string{"RESEARCHFLOW_RESEARCH_BREADTH": "0"}},
		{"parallelism", map[string]string{"RESEARCHFLOW_RAG_PARALLELISM": "0"}},
		{"chunks", map[string]string{"RESEARCHFLOW_KNOWLEDGE_CHUNK_OVERLAP": "500"}},
		{"log format", map[string]string{"RESEARCHFLOW_LOG_FORMAT": "xml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("", noEnvFiles)
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}
