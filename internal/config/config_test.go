package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "config"), 0o755); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config", "test.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	return path
}

const minimalConfig = `
http:
  port: 8080
database:
  addrs: ["localhost:6379"]
model:
  api_key: sk-test
`

func TestLoad_AppliesDefaults(t *testing.T) {
	writeConfig(t, minimalConfig)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Model.Provider != "openai" {
		t.Errorf("expected provider default openai, got %q", cfg.Model.Provider)
	}
	if cfg.Model.Embedding.Dimensions != 1536 {
		t.Errorf("expected 1536 dimensions, got %d", cfg.Model.Embedding.Dimensions)
	}
	if cfg.Model.Retry.MaxAttempts != 5 {
		t.Errorf("expected 5 attempts, got %d", cfg.Model.Retry.MaxAttempts)
	}
	if cfg.Retrieval.MinScore != 0.4 {
		t.Errorf("expected min_score 0.4, got %f", cfg.Retrieval.MinScore)
	}
	if cfg.Retrieval.DiversityPenalty != 0.30 {
		t.Errorf("expected diversity_penalty 0.30, got %f", cfg.Retrieval.DiversityPenalty)
	}
	if cfg.Retrieval.LookbackDays != 30 {
		t.Errorf("expected lookback_days 30, got %d", cfg.Retrieval.LookbackDays)
	}
	if cfg.Retrieval.ChunksPerEpisode != 2 {
		t.Errorf("expected chunks_per_episode 2, got %d", cfg.Retrieval.ChunksPerEpisode)
	}
}

func TestLoad_ExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_PASSAGE_KEY", "sk-from-env")
	writeConfig(t, `
http:
  port: 8080
database:
  addrs: ["${TEST_PASSAGE_ADDR:-localhost:6379}"]
model:
  api_key: ${TEST_PASSAGE_KEY}
`)

	cfg, err := Load("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.APIKey != "sk-from-env" {
		t.Errorf("expected env value, got %q", cfg.Model.APIKey)
	}
	if cfg.Database.Addrs[0] != "localhost:6379" {
		t.Errorf("expected fallback default, got %q", cfg.Database.Addrs[0])
	}
}

func TestLoad_MissingFile(t *testing.T) {
	writeConfig(t, minimalConfig)

	if _, err := Load("nonexistent"); err == nil {
		t.Fatal("expected error for a missing config file")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		var c Config
		c.HTTP.Port = 8080
		c.Database.Addrs = []string{"localhost:6379"}
		c.Model.APIKey = "sk-test"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(_ *Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.HTTP.Port = 0 }, wantErr: true},
		{name: "no addrs", mutate: func(c *Config) { c.Database.Addrs = nil }, wantErr: true},
		{name: "no api key remote", mutate: func(c *Config) { c.Model.APIKey = "" }, wantErr: true},
		{name: "no api key local", mutate: func(c *Config) {
			c.Model.APIKey = ""
			c.Model.Local = true
		}},
		{name: "negative budget", mutate: func(c *Config) { c.Budget.MonthlyUSD = -1 }, wantErr: true},
		{name: "penalty above one", mutate: func(c *Config) { c.Retrieval.DiversityPenalty = 1.5 }, wantErr: true},
		{name: "min score above one", mutate: func(c *Config) { c.Retrieval.MinScore = 1.1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
