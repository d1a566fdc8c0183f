// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	PubSub   PubSubConfig   `mapstructure:"pubsub"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// DatabaseConfig controls access to Postgres. An empty DSN selects the in-memory stores.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

// StorageConfig selects the blob backend used for the listing archive.
type StorageConfig struct {
	Backend     string      `mapstructure:"backend"`
	Bucket      string      `mapstructure:"bucket"`
	ContentType string      `mapstructure:"content_type"`
	Local       LocalConfig `mapstructure:"local"`
}

// LocalConfig configures the filesystem blob backend.
type LocalConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// PubSubConfig holds metadata for run event notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// WorkerConfig governs background run execution.
type WorkerConfig struct {
	Count      int           `mapstructure:"count"`
	QueueDepth int           `mapstructure:"queue_depth"`
	RunTimeout time.Duration `mapstructure:"run_timeout"`
}

// ScraperConfig is the static settings object handed to the pipeline.
type ScraperConfig struct {
	BaseURL              string         `mapstructure:"base_url"`
	BrowsePath           string         `mapstructure:"browse_path"`
	DetailURLTemplate    string         `mapstructure:"detail_url_template"`
	Concurrency          int            `mapstructure:"concurrency"`
	RequestTimeout       time.Duration  `mapstructure:"request_timeout"`
	DelayBetweenRequests int            `mapstructure:"delay_between_requests_ms"`
	UserAgents           []string       `mapstructure:"user_agents"`
	MaxRequestsPerSecond float64        `mapstructure:"max_requests_per_second"`
	DescriptionPolicy    string         `mapstructure:"description_policy"`
	SingleFlight         bool           `mapstructure:"single_flight"`
	SmartDNS             []string       `mapstructure:"smart_dns"`
	Retry                RetryConfig    `mapstructure:"retry"`
	Headless             HeadlessConfig `mapstructure:"headless"`
	Archive              ArchiveConfig  `mapstructure:"archive"`
}

// RetryConfig parameterizes the uniform fetch retry policy.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinBackoff  time.Duration `mapstructure:"min_backoff"`
	MaxBackoff  time.Duration `mapstructure:"max_backoff"`
}

// HeadlessConfig configures chromedp rendering of the listing page. With
// Promote set, the listing is fetched over plain HTTP first and rendered only
// when it looks like a client-side shell.
type HeadlessConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Promote           bool          `mapstructure:"promote"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"`
}

// ArchiveConfig controls raw listing page archival.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Prefix  string `mapstructure:"prefix"`
}

// Description policies understood by the reconciler.
const (
	DescriptionOverwrite = "overwrite"
	DescriptionPreserve  = "preserve"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CATALOG")
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
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "120s")
	v.SetDefault("logging.development", true)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "30m")
	v.SetDefault("database.migrate", true)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("storage.local.base_dir", "data/archive")
	v.SetDefault("worker.count", 1)
	v.SetDefault("worker.queue_depth", 16)
	v.SetDefault("worker.run_timeout", "10m")
	v.SetDefault("scraper.base_url", "https://store.epicgames.com")
	v.SetDefault("scraper.browse_path", "/en-US/browse")
	v.SetDefault("scraper.detail_url_template", "{base_url}/en-US/p/{slug}")
	v.SetDefault("scraper.concurrency", 5)
	v.SetDefault("scraper.request_timeout", "20s")
	v.SetDefault("scraper.delay_between_requests_ms", 300)
	v.SetDefault("scraper.user_agents", []string{})
	v.SetDefault("scraper.max_requests_per_second", 0)
	v.SetDefault("scraper.description_policy", DescriptionOverwrite)
	v.SetDefault("scraper.single_flight", true)
	v.SetDefault("scraper.smart_dns", []string{})
	v.SetDefault("scraper.retry.max_attempts", 3)
	v.SetDefault("scraper.retry.min_backoff", "1s")
	v.SetDefault("scraper.retry.max_backoff", "4s")
	v.SetDefault("scraper.headless.enabled", false)
	v.SetDefault("scraper.headless.promote", false)
	v.SetDefault("scraper.headless.navigation_timeout", "45s")
	v.SetDefault("scraper.archive.enabled", true)
	v.SetDefault("scraper.archive.prefix", "listings")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "memory", "local", "gcs":
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.Storage.Backend == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage.bucket must be set for the gcs backend")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Worker.QueueDepth <= 0 {
		return fmt.Errorf("worker.queue_depth must be > 0")
	}
	return c.Scraper.Validate()
}

// Validate checks the scraper section on its own.
func (s ScraperConfig) Validate() error {
	u, err := url.Parse(s.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("scraper.base_url must be an absolute URL")
	}
	if s.Concurrency <= 0 {
		return fmt.Errorf("scraper.concurrency must be > 0")
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("scraper.request_timeout must be > 0")
	}
	if s.DelayBetweenRequests < 0 {
		return fmt.Errorf("scraper.delay_between_requests_ms must be >= 0")
	}
	if !strings.Contains(s.DetailURLTemplate, "{slug}") {
		return fmt.Errorf("scraper.detail_url_template must contain {slug}")
	}
	if s.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("scraper.retry.max_attempts must be > 0")
	}
	if s.Retry.MinBackoff < 0 || s.Retry.MaxBackoff < s.Retry.MinBackoff {
		return fmt.Errorf("scraper.retry backoff bounds must satisfy 0 <= min_backoff <= max_backoff")
	}
	if s.MaxRequestsPerSecond < 0 {
		return fmt.Errorf("scraper.max_requests_per_second must be >= 0")
	}
	switch s.DescriptionPolicy {
	case DescriptionOverwrite, DescriptionPreserve:
	default:
		return fmt.Errorf("scraper.description_policy must be %q or %q", DescriptionOverwrite, DescriptionPreserve)
	}
	return nil
}

// ListingURL joins base_url and browse_path.
func (s ScraperConfig) ListingURL() string {
	return strings.TrimRight(s.BaseURL, "/") + s.BrowsePath
}

// Delay converts delay_between_requests_ms into a duration.
func (s ScraperConfig) Delay() time.Duration {
	return time.Duration(s.DelayBetweenRequests) * time.Millisecond
}

// BaseHost returns the hostname of base_url.
func (s ScraperConfig) BaseHost() string {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
