// Package config loads researchflow settings from defaults, an optional YAML
// file, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. RESEARCHFLOW_RESEARCH_DEPTH.
const EnvPrefix = "RESEARCHFLOW"

// Config holds all settings of the CLI.
type Config struct {
	Provider  string          `mapstructure:"provider"`
	OpenAI    ProviderConfig  `mapstructure:"openai"`
	Anthropic ProviderConfig  `mapstructure:"anthropic"`
	Agents    AgentsConfig    `mapstructure:"agents"`
	Serper    SerperConfig    `mapstructure:"serper"`
	Research  ResearchConfig  `mapstructure:"research"`
	RAG       RAGConfig       `mapstructure:"rag"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ProviderConfig holds model provider credentials.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// AgentsConfig controls agent invocation.
type AgentsConfig struct {
	// Dir loads definitions from disk instead of the embedded set.
	Dir           string        `mapstructure:"dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxToolRounds int           `mapstructure:"max_tool_rounds"`
	// Budget caps agent invocations per run; 0 disables the cap.
	Budget int `mapstructure:"budget"`
}

// SerperConfig configures web search.
type SerperConfig struct {
	APIKey     string `mapstructure:"api_key"`
	Endpoint   string `mapstructure:"endpoint"`
	NumResults int    `mapstructure:"num_results"`
}

// ResearchConfig configures the deep research workflow.
type ResearchConfig struct {
	Depth           int    `mapstructure:"depth"`
	Breadth         int    `mapstructure:"breadth"`
	Source          string `mapstructure:"source"`
	StrictCitations bool   `mapstructure:"strict_citations"`
}

// RAGConfig configures the agentic RAG workflow.
type RAGConfig struct {
	MaxRetries      int  `mapstructure:"max_retries"`
	Parallelism     int  `mapstructure:"parallelism"`
	StrictCitations bool `mapstructure:"strict_citations"`
	TopK            int  `mapstructure:"top_k"`
}

// KnowledgeConfig configures the document store behind retrieval and
// internal search.
type KnowledgeConfig struct {
	Dir          string `mapstructure:"dir"`
	PersistDir   string `mapstructure:"persist_dir"`
	ChunkWords   int    `mapstructure:"chunk_words"`
	ChunkOverlap int    `mapstructure:"chunk_overlap"`
	// Embeddings enables the vector leg (OpenAI embeddings).
	Embeddings bool `mapstructure:"embeddings"`
}

// RegistryConfig configures the SQLite agent registry.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
	// Use runs workflows against the registered definitions.
	Use bool `mapstructure:"use"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Addr serves /metrics when non-empty, e.g. ":9090".
	Addr string `mapstructure:"addr"`
}

// Options configures Load.
type Options struct {
	// EnvFiles are loaded with godotenv before the environment is read.
	// Missing files are ignored; variables already set are kept.
	EnvFiles []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("provider", "openai")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("agents.dir", "")
	v.SetDefault("agents.timeout", 120*time.Second)
	v.SetDefault("agents.max_tool_rounds", 4)
	v.SetDefault("agents.budget", 0)
	v.SetDefault("serper.api_key", "")
	v.SetDefault("serper.endpoint", "")
	v.SetDefault("serper.num_results", 5)
	v.SetDefault("research.depth", 2)
	v.SetDefault("research.breadth", 3)
	v.SetDefault("research.source", "web")
	v.SetDefault("research.strict_citations", true)
	v.SetDefault("rag.max_retries", 1)
	v.SetDefault("rag.parallelism", 1)
	v.SetDefault("rag.strict_citations", true)
	v.SetDefault("rag.top_k", 8)
	v.SetDefault("knowledge.dir", "")
	v.SetDefault("knowledge.persist_dir", "")
	v.SetDefault("knowledge.chunk_words", 200)
	v.SetDefault("knowledge.chunk_overlap", 40)
	v.SetDefault("knowledge.embeddings", false)
	v.SetDefault("registry.path", defaultRegistryPath())
	v.SetDefault("registry.use", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("metrics.addr", "")
}

func defaultRegistryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".researchflow", "registry.db")
	}
	return filepath.Join(home, ".researchflow", "registry.db")
}

// Load reads the configuration. An empty path searches researchflow.yaml in
// the working directory and ./config; a missing file is not an error then.
func Load(path string, optFns ...func(o *Options)) (*Config, error) {
	opts := Options{EnvFiles: []string{".env.local", ".env"}}

	for _, fn := range optFns {
		fn(&opts)
	}

	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("researchflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyProviderEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyProviderEnv falls back to the providers' conventional variables.
func (c *Config) applyProviderEnv() {
	fallback := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}

	fallback(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	fallback(&c.Anthropic.APIKey, "ANTHROPIC_API_KEY")
	fallback(&c.Serper.APIKey, "SERPER_API_KEY")
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error

	switch c.Provider {
	case "openai", "anthropic":
	default:
		errs = append(errs, fmt.Errorf("provider must be openai or anthropic, got %q", c.Provider))
	}

	switch c.Research.Source {
	case "web", "internal":
	default:
		errs = append(errs, fmt.Errorf("research.source must be web or internal, got %q", c.Research.Source))
	}

	if c.Research.Depth < 0 {
		errs = append(errs, errors.New("research.depth must not be negative"))
	}
	if c.Research.Breadth < 1 {
		errs = append(errs, errors.New("research.breadth must be at least 1"))
	}
	if c.RAG.MaxRetries < 0 {
		errs = append(errs, errors.New("rag.max_retries must not be negative"))
	}
	if c.RAG.Parallelism < 1 {
		errs = append(errs, errors.New("rag.parallelism must be at least 1"))
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkWords {
		errs = append(errs, errors.New("knowledge.chunk_overlap must be smaller than knowledge.chunk_words"))
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}

	return nil
}

// APIKey returns the key of the selected provider.
func (c *Config) APIKey() string {
	if c.Provider == "anthropic" {
		return c.Anthropic.APIKey
	}
	return c.OpenAI.APIKey
}
