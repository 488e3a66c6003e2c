package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the passage API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Model     ModelConfig     `yaml:"model"`
	Budget    BudgetConfig    `yaml:"budget"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Graph     GraphConfig     `yaml:"graph"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // valkey, redis (default: valkey)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"` // default "passage:"
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelConfig holds model provider settings. A local provider (Ollama or
// any OpenAI-compatible server) disables budget accounting and retries.
type ModelConfig struct {
	Provider  string          `yaml:"provider"` // openai, ollama, ...
	APIKey    string          `yaml:"api_key"`
	BaseURL   string          `yaml:"base_url"`
	Local     bool            `yaml:"local"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Retry     RetryConfig     `yaml:"retry"`
}

// EmbeddingConfig holds the embedding model settings.
type EmbeddingConfig struct {
	Model         string `yaml:"model"`
	Dimensions    int    `yaml:"dimensions"`
	CacheTTLHours int    `yaml:"cache_ttl_hours"` // 0 = default
}

// ChatConfig holds the chat model settings. FallbackModel is used once
// monthly spend reaches the critical threshold; empty disables the switch.
type ChatConfig struct {
	Model         string `yaml:"model"`
	FallbackModel string `yaml:"fallback_model"`
}

// RetryConfig holds the model-call retry settings.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BaseDelayMs int `yaml:"base_delay_ms"`
	MaxDelaySec int `yaml:"max_delay_sec"`
}

// BudgetConfig holds monthly spend settings. MonthlyUSD of 0 disables
// budget control entirely.
type BudgetConfig struct {
	MonthlyUSD float64 `yaml:"monthly_usd"`
}

// RetrievalConfig holds ranking and fusion settings.
type RetrievalConfig struct {
	MinScore         float64 `yaml:"min_score"`
	DiversityPenalty float64 `yaml:"diversity_penalty"`
	LookbackDays     int     `yaml:"lookback_days"`
	ChunksPerEpisode int     `yaml:"chunks_per_episode"`
	EpisodeLimit     int     `yaml:"episode_limit"`
}

// GraphConfig holds the graph-search collaborator settings. An empty
// BaseURL disables the graph-bridged strategy.
type GraphConfig struct {
	BaseURL    string `yaml:"base_url"`
	Token      string `yaml:"token"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "valkey"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Model.Provider == "" {
		c.Model.Provider = "openai"
	}
	if c.Model.Embedding.Model == "" {
		c.Model.Embedding.Model = "text-embedding-3-small"
	}
	if c.Model.Embedding.Dimensions <= 0 {
		c.Model.Embedding.Dimensions = 1536
	}
	if c.Model.Embedding.CacheTTLHours <= 0 {
		c.Model.Embedding.CacheTTLHours = 24
	}
	if c.Model.Chat.Model == "" {
		c.Model.Chat.Model = "gpt-5-mini"
	}
	if c.Model.Retry.MaxAttempts <= 0 {
		c.Model.Retry.MaxAttempts = 5
	}
	if c.Model.Retry.BaseDelayMs <= 0 {
		c.Model.Retry.BaseDelayMs = 1000
	}
	if c.Model.Retry.MaxDelaySec <= 0 {
		c.Model.Retry.MaxDelaySec = 60
	}
	if c.Retrieval.MinScore <= 0 {
		c.Retrieval.MinScore = 0.4
	}
	if c.Retrieval.DiversityPenalty <= 0 {
		c.Retrieval.DiversityPenalty = 0.30
	}
	if c.Retrieval.LookbackDays <= 0 {
		c.Retrieval.LookbackDays = 30
	}
	if c.Retrieval.ChunksPerEpisode <= 0 {
		c.Retrieval.ChunksPerEpisode = 2
	}
	if c.Retrieval.EpisodeLimit <= 0 {
		c.Retrieval.EpisodeLimit = 5
	}
	if c.Graph.TimeoutSec <= 0 {
		c.Graph.TimeoutSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Model.APIKey == "" && !c.Model.Local {
		return fmt.Errorf("model.api_key is required for non-local providers")
	}
	if c.Budget.MonthlyUSD < 0 {
		return fmt.Errorf("budget.monthly_usd must not be negative, got %f", c.Budget.MonthlyUSD)
	}
	if c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be at most 1, got %f", c.Retrieval.MinScore)
	}
	if c.Retrieval.DiversityPenalty > 1 {
		return fmt.Errorf("retrieval.diversity_penalty must be at most 1, got %f", c.Retrieval.DiversityPenalty)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
