package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
archive:
  index_url: "https://archive.example.org/issues?year=%s&page=%d"
  link_selector: "a.article-link"
  magazine: Prabuddha Bharata
  user_agent: archive-bot
db:
  dsn: postgres://ingest:pw@localhost:5432/archive
  max_conns: 20
  min_conns: 5
  conn_lifetime_minutes: 15
ai:
  base_url: https://llm.internal/v1
  api_key: secret
  model: gpt-4o
  timeout_seconds: 90
concurrency:
  articles: 6
  enrichment: 12
  relations: 4
retry:
  period_attempts: 2
  article_attempts: 4
  backoff_ms: 250
browser:
  nav_timeout_seconds: 30
  host_qps: 0.5
timeout_log:
  path: /var/log/ingest/timeouts.log
logging:
  development: false
metrics:
  port: 9102
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Archive.LinkSelector != "a.article-link" {
		t.Fatalf("expected archive overrides to apply, got %+v", cfg.Archive)
	}
	if cfg.DB.MaxConns != 20 || cfg.DB.MinConns != 5 {
		t.Fatalf("expected db pool overrides to apply, got %+v", cfg.DB)
	}
	if cfg.AI.Model != "gpt-4o" || cfg.AI.APIKey != "secret" {
		t.Fatalf("expected ai overrides to apply, got %+v", cfg.AI)
	}
	if cfg.Concurrency.Articles != 6 || cfg.Concurrency.Enrichment != 12 || cfg.Concurrency.Relations != 4 {
		t.Fatalf("expected concurrency overrides to apply, got %+v", cfg.Concurrency)
	}
	if cfg.Retry.ArticleAttempts != 4 {
		t.Fatalf("expected retry overrides to apply, got %+v", cfg.Retry)
	}
	if cfg.Metrics.Port != 9102 {
		t.Fatalf("expected metrics port 9102, got %d", cfg.Metrics.Port)
	}
	if got := cfg.AITimeout(); got != 90*time.Second {
		t.Fatalf("expected ai timeout 90s, got %v", got)
	}
	if got := cfg.NavTimeout(); got != 30*time.Second {
		t.Fatalf("expected nav timeout 30s, got %v", got)
	}
	if got := cfg.ConnLifetime(); got != 15*time.Minute {
		t.Fatalf("expected conn lifetime 15m, got %v", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
archive:
  index_url: "https://archive.example.org/issues?year=%s&page=%d"
db:
  dsn: postgres://ingest:pw@localhost:5432/archive
ai:
  api_key: secret
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Archive.LinkSelector != "a[href]" {
		t.Fatalf("expected default link selector, got %q", cfg.Archive.LinkSelector)
	}
	if cfg.Concurrency.Articles != 4 || cfg.Concurrency.Enrichment != 8 {
		t.Fatalf("expected default concurrency ceilings, got %+v", cfg.Concurrency)
	}
	if cfg.Retry.PeriodAttempts != 3 || cfg.Retry.ArticleAttempts != 3 {
		t.Fatalf("expected default retry attempts, got %+v", cfg.Retry)
	}
	if cfg.AI.Model != "gpt-4o-mini" {
		t.Fatalf("expected default model, got %q", cfg.AI.Model)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Archive:     ArchiveConfig{IndexURL: "https://x.org/%s/%d"},
		DB:          DBConfig{DSN: "postgres://x"},
		AI:          AIConfig{APIKey: "k"},
		Concurrency: ConcurrencyConfig{Articles: 1, Enrichment: 1, Relations: 1},
		Retry:       RetryConfig{PeriodAttempts: 3, ArticleAttempts: 3},
		Browser:     BrowserConfig{NavTimeoutSec: 45},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "missing index url",
			cfg: func() Config {
				c := base
				c.Archive.IndexURL = ""
				return c
			}(),
			want: "archive.index_url",
		},
		{
			name: "missing dsn",
			cfg: func() Config {
				c := base
				c.DB.DSN = ""
				return c
			}(),
			want: "db.dsn",
		},
		{
			name: "missing api key",
			cfg: func() Config {
				c := base
				c.AI.APIKey = ""
				return c
			}(),
			want: "ai.api_key",
		},
		{
			name: "zero concurrency",
			cfg: func() Config {
				c := base
				c.Concurrency.Relations = 0
				return c
			}(),
			want: "concurrency",
		},
		{
			name: "article attempts too high",
			cfg: func() Config {
				c := base
				c.Retry.ArticleAttempts = 6
				return c
			}(),
			want: "retry.article_attempts",
		},
		{
			name: "period attempts too low",
			cfg: func() Config {
				c := base
				c.Retry.PeriodAttempts = 0
				return c
			}(),
			want: "retry.period_attempts",
		},
		{
			name: "zero nav timeout",
			cfg: func() Config {
				c := base
				c.Browser.NavTimeoutSec = 0
				return c
			}(),
			want: "browser.nav_timeout_seconds",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
