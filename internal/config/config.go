package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderGemini = "gemini"

	StrategySequential = "sequential"
	StrategySimilarity = "similarity"

	DriverPGDriver = "pgdriver"
	DriverPQ       = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LLM       LLMConfig       `yaml:"llm"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	RAG       RAGConfig       `yaml:"rag"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	BodyLimit              string `yaml:"body_limit"`
	ReadTimeout            int    `yaml:"read_timeout_seconds"`
	WriteTimeout           int    `yaml:"write_timeout_seconds"`
	SessionTimeoutMinutes  int    `yaml:"session_timeout_minutes"`
	CleanupIntervalMinutes int    `yaml:"cleanup_interval_minutes"`
	MaxSessions            int    `yaml:"max_sessions"`
	AllowOrigins           string `yaml:"allow_origins"`
}

// LLMConfig describes the chat-completion backend.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	BaseURL        string `yaml:"base_url"`
	Key            string `yaml:"key"`
	Model          string `yaml:"model"`
	VisionModel    string `yaml:"vision_model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type EmbeddingConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

// RAGConfig holds the chunking and context budgets. All sizes are in characters.
type RAGConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	ContextBudget int    `yaml:"context_budget"`
	SummaryBudget int    `yaml:"summary_budget"`
	Strategy      string `yaml:"strategy"`
	TopK          int    `yaml:"top_k"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"`
	DSN     string `yaml:"dsn"`
	Debug   bool   `yaml:"debug"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultPort            = 8080
	defaultBodyLimit       = "32M"
	defaultTimeout         = 60
	defaultSessionTimeout  = 60
	defaultCleanupInterval = 5
	defaultMaxSessions     = 100
	defaultBaseURL         = "https://api.openai.com/v1"
	defaultOllamaURL       = "http://localhost:11434"
	defaultChunkSize       = 1000
	defaultContextBudget   = 12000
	defaultSummaryBudget   = 8000
	defaultTopK            = 8
)

// defaultModels maps a provider to its chat model.
var defaultModels = map[string]string{
	ProviderOpenAI: "gpt-4o-mini",
	ProviderGemini: "gemini-2.0-flash",
	ProviderOllama: "llama3.2",
}

var defaultEmbeddingModels = map[string]string{
	ProviderOpenAI: "text-embedding-3-small",
	ProviderOllama: "nomic-embed-text",
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads the YAML file at path, loads an optional .env file, and applies
// environment overrides and defaults. A missing config file is not an error.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Str("config", path).Msg(w)
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if c.LLM.Key == "" {
		switch strings.ToLower(c.LLM.Provider) {
		case ProviderGemini:
			c.LLM.Key = os.Getenv("GEMINI_API_KEY")
		default:
			c.LLM.Key = os.Getenv("OPENAI_API_KEY")
		}
	}
	if c.Embedding.Key == "" {
		c.Embedding.Key = os.Getenv("OPENAI_API_KEY")
	}
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		c.Database.DSN = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.BodyLimit == "" {
		c.Server.BodyLimit = defaultBodyLimit
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 2 * defaultTimeout
	}
	if c.Server.SessionTimeoutMinutes == 0 {
		c.Server.SessionTimeoutMinutes = defaultSessionTimeout
	}
	if c.Server.CleanupIntervalMinutes == 0 {
		c.Server.CleanupIntervalMinutes = defaultCleanupInterval
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = defaultMaxSessions
	}

	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultModels[c.LLM.Provider]
	}
	if c.LLM.VisionModel == "" {
		c.LLM.VisionModel = c.LLM.Model
	}
	// an OpenAI endpoint left over from a shared config file means nothing to other providers
	if c.LLM.Provider != ProviderOpenAI && c.LLM.BaseURL == defaultBaseURL {
		c.LLM.BaseURL = ""
	}
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultBaseURL
		}
	case ProviderOllama:
		if c.LLM.BaseURL == "" {
			c.LLM.BaseURL = defaultOllamaURL
		}
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = defaultTimeout
	}

	c.Embedding.Provider = strings.ToLower(c.Embedding.Provider)
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderOpenAI
		if c.LLM.Provider == ProviderOllama {
			c.Embedding.Provider = ProviderOllama
		}
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModels[c.Embedding.Provider]
	}
	if c.Embedding.BaseURL == "" {
		switch {
		case c.Embedding.Provider == c.LLM.Provider:
			c.Embedding.BaseURL = c.LLM.BaseURL
		case c.Embedding.Provider == ProviderOpenAI:
			c.Embedding.BaseURL = defaultBaseURL
		case c.Embedding.Provider == ProviderOllama:
			c.Embedding.BaseURL = defaultOllamaURL
		}
	}

	if c.RAG.ChunkSize == 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ContextBudget == 0 {
		c.RAG.ContextBudget = defaultContextBudget
	}
	if c.RAG.SummaryBudget == 0 {
		c.RAG.SummaryBudget = defaultSummaryBudget
	}
	c.RAG.Strategy = strings.ToLower(c.RAG.Strategy)
	if c.RAG.Strategy == "" {
		c.RAG.Strategy = StrategySequential
	}
	if c.RAG.TopK == 0 {
		c.RAG.TopK = defaultTopK
	}

	if c.Database.Driver == "" {
		c.Database.Driver = DriverPGDriver
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderGemini:
	default:
		return fmt.Errorf("unknown llm provider: %q", c.LLM.Provider)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown embedding provider: %q", c.Embedding.Provider)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("rag.chunk_size must be positive, got %d", c.RAG.ChunkSize)
	}
	if c.RAG.ContextBudget <= 0 {
		return fmt.Errorf("rag.context_budget must be positive, got %d", c.RAG.ContextBudget)
	}
	if c.RAG.SummaryBudget <= 0 {
		return fmt.Errorf("rag.summary_budget must be positive, got %d", c.RAG.SummaryBudget)
	}
	switch c.RAG.Strategy {
	case StrategySequential, StrategySimilarity:
	default:
		return fmt.Errorf("unknown rag strategy: %q", c.RAG.Strategy)
	}
	if c.RAG.TopK < 0 {
		return fmt.Errorf("rag.top_k must not be negative, got %d", c.RAG.TopK)
	}
	switch c.Database.Driver {
	case DriverPGDriver, DriverPQ:
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}
	if c.Database.Enabled && c.Database.DSN == "" {
		return errors.New("database.dsn is required when the database is enabled")
	}
	return nil
}

// Warnings lists settings that are valid but likely to fail at request time.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.RAG.ChunkSize > c.RAG.ContextBudget {
		warnings = append(warnings, fmt.Sprintf(
			"rag.chunk_size (%d) exceeds rag.context_budget (%d): documents whose first chunk is larger than the budget cannot be answered from",
			c.RAG.ChunkSize, c.RAG.ContextBudget))
	}
	if c.RAG.ChunkSize > c.RAG.SummaryBudget {
		warnings = append(warnings, fmt.Sprintf(
			"rag.chunk_size (%d) exceeds rag.summary_budget (%d): documents whose first chunk is larger than the budget cannot be summarized",
			c.RAG.ChunkSize, c.RAG.SummaryBudget))
	}
	return warnings
}

// HasLLMKey reports whether the configured provider has the credential it needs.
// Ollama runs locally and needs none.
func (c *Config) HasLLMKey() bool {
	return c.LLM.Provider == ProviderOllama || c.LLM.Key != ""
}

// ServerAddr returns the listen address.
func (c *Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
