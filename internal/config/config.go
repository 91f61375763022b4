// Package config loads and validates ingest configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Archive     ArchiveConfig     `mapstructure:"archive"`
	DB          DBConfig          `mapstructure:"db"`
	AI          AIConfig          `mapstructure:"ai"`
	Concurrency ConcurrencyConfig `mapstructure:"concurrency"`
	Retry       RetryConfig       `mapstructure:"retry"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	TimeoutLog  TimeoutLogConfig  `mapstructure:"timeout_log"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// ArchiveConfig locates the magazine archive being ingested.
type ArchiveConfig struct {
	// IndexURL is a printf template taking period key and page number.
	IndexURL     string `mapstructure:"index_url"`
	LinkSelector string `mapstructure:"link_selector"`
	Magazine     string `mapstructure:"magazine"`
	UserAgent    string `mapstructure:"user_agent"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	DSN             string `mapstructure:"dsn"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	ConnLifetimeMin int    `mapstructure:"conn_lifetime_minutes"`
}

// AIConfig points at the text generation service.
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ConcurrencyConfig sets the three independent domain ceilings.
type ConcurrencyConfig struct {
	Articles   int `mapstructure:"articles"`
	Enrichment int `mapstructure:"enrichment"`
	Relations  int `mapstructure:"relations"`
}

// RetryConfig bounds timeout retries at the period and article scopes.
type RetryConfig struct {
	PeriodAttempts  int `mapstructure:"period_attempts"`
	ArticleAttempts int `mapstructure:"article_attempts"`
	BackoffMs       int `mapstructure:"backoff_ms"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	NavTimeoutSec int     `mapstructure:"nav_timeout_seconds"`
	HostQPS       float64 `mapstructure:"host_qps"`
}

// TimeoutLogConfig locates the timeout audit file. An empty path disables it.
type TimeoutLogConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the Prometheus listener. Port 0 disables it.
type MetricsConfig struct {
	Port int `mapstructure:"port"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("archive.link_selector", "a[href]")
	v.SetDefault("archive.magazine", "Prabuddha Bharata")
	v.SetDefault("archive.user_agent", "archive-ingest-bot/0.1")
	v.SetDefault("db.max_conns", 10)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("db.conn_lifetime_minutes", 30)
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.timeout_seconds", 60)
	v.SetDefault("concurrency.articles", 4)
	v.SetDefault("concurrency.enrichment", 8)
	v.SetDefault("concurrency.relations", 8)
	v.SetDefault("retry.period_attempts", 3)
	v.SetDefault("retry.article_attempts", 3)
	v.SetDefault("retry.backoff_ms", 500)
	v.SetDefault("browser.nav_timeout_seconds", 45)
	v.SetDefault("browser.host_qps", 1.0)
	v.SetDefault("timeout_log.path", "timeouts.log")
	v.SetDefault("logging.development", true)
	v.SetDefault("metrics.port", 0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Archive.IndexURL == "" {
		return fmt.Errorf("archive.index_url must be set")
	}
	if c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set")
	}
	if c.AI.APIKey == "" {
		return fmt.Errorf("ai.api_key must be set")
	}
	if c.Concurrency.Articles <= 0 || c.Concurrency.Enrichment <= 0 || c.Concurrency.Relations <= 0 {
		return fmt.Errorf("concurrency ceilings must be > 0")
	}
	if c.Retry.PeriodAttempts < 1 || c.Retry.PeriodAttempts > 5 {
		return fmt.Errorf("retry.period_attempts must be between 1 and 5")
	}
	if c.Retry.ArticleAttempts < 1 || c.Retry.ArticleAttempts > 5 {
		return fmt.Errorf("retry.article_attempts must be between 1 and 5")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	return nil
}

// AITimeout converts the generation service timeout into a duration.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}

// NavTimeout converts the navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// ConnLifetime converts the pool connection lifetime into a duration.
func (c Config) ConnLifetime() time.Duration {
	return time.Duration(c.DB.ConnLifetimeMin) * time.Minute
}
