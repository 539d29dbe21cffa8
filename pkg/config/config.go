// Package config loads and validates site configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Content, Postgres, Preview, Sitemap, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Content backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Metadata sources used by the preview renderer.
const (
	SourceDirect = "direct"
	SourceHTTP   = "http"
)

// Sitemap ordering policies.
const (
	OrderSlug     = "slug"
	OrderModified = "modified"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Site     SiteConfig     `yaml:"site"`
	Content  ContentConfig  `yaml:"content"`
	Postgres PostgresConfig `yaml:"postgres"`
	Preview  PreviewConfig  `yaml:"preview"`
	Sitemap  SitemapConfig  `yaml:"sitemap"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Events   EventsConfig   `yaml:"events"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SiteConfig holds the identity printed on pages and preview images.
type SiteConfig struct {
	Name    string `yaml:"name"`
	Tagline string `yaml:"tagline"`
	Domain  string `yaml:"domain"`
}

// ContentConfig selects and locates the content store.
type ContentConfig struct {
	Backend string `yaml:"backend"`
	Dir     string `yaml:"dir"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// PreviewConfig controls where the preview renderer reads metadata from and
// how long it waits for it.
type PreviewConfig struct {
	MetadataSource  string        `yaml:"metadataSource"`
	MetadataOrigin  string        `yaml:"metadataOrigin"`
	FetchTimeout    time.Duration `yaml:"fetchTimeout"`
	RetryAttempts   int           `yaml:"retryAttempts"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerReset    time.Duration `yaml:"breakerReset"`
}

// StaticPage is one hand-maintained URL published in the pages sitemap. The
// defaults are the listings this binary serves; extra paths must be served
// by whatever fronts the site.
type StaticPage struct {
	Path            string  `yaml:"path"`
	ChangeFrequency string  `yaml:"changeFrequency"`
	Priority        float64 `yaml:"priority"`
}

// SitemapConfig holds the negotiation and ordering policy for sitemaps.
type SitemapConfig struct {
	CrawlerTokens []string     `yaml:"crawlerTokens"`
	Order         string       `yaml:"order"`
	StaticPages   []StaticPage `yaml:"staticPages"`
}

// KafkaConfig holds Kafka broker settings.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
}

// EventsConfig controls publication of artifact events.
type EventsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Topic      string `yaml:"topic"`
	BufferSize int    `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects enum fields holding unknown values.
func (c *Config) Validate() error {
	switch c.Content.Backend {
	case BackendFile, BackendPostgres:
	default:
		return fmt.Errorf("content.backend: unknown backend %q", c.Content.Backend)
	}
	switch c.Preview.MetadataSource {
	case SourceDirect, SourceHTTP:
	default:
		return fmt.Errorf("preview.metadataSource: unknown source %q", c.Preview.MetadataSource)
	}
	switch c.Sitemap.Order {
	case OrderSlug, OrderModified:
	default:
		return fmt.Errorf("sitemap.order: unknown order %q", c.Sitemap.Order)
	}
	if c.Preview.FetchTimeout <= 0 {
		return fmt.Errorf("preview.fetchTimeout must be positive")
	}
	return nil
}

// DefaultCrawlerTokens is the allow-list of crawler user-agent fragments that
// receive the machine-readable sitemap when they send no explicit signal.
var DefaultCrawlerTokens = []string{
	"googlebot",
	"bingbot",
	"duckduckbot",
	"yandexbot",
	"baiduspider",
	"slurp",
	"applebot",
	"petalbot",
}

// defaultConfig returns a Config suitable for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			RequestTimeout:  10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Site: SiteConfig{
			Name:    "StockGuides",
			Tagline: "Plain-English investing guides and broker reviews",
			Domain:  "stockguides.io",
		},
		Content: ContentConfig{
			Backend: BackendFile,
			Dir:     "content",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "stockguides",
			User:            "stockguides",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Preview: PreviewConfig{
			MetadataSource:  SourceDirect,
			FetchTimeout:    3 * time.Second,
			RetryAttempts:   2,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Sitemap: SitemapConfig{
			CrawlerTokens: append([]string(nil), DefaultCrawlerTokens...),
			Order:         OrderSlug,
			StaticPages: []StaticPage{
				{Path: "/", ChangeFrequency: "daily", Priority: 1.0},
				{Path: "/guides", ChangeFrequency: "weekly", Priority: 0.9},
				{Path: "/brokers", ChangeFrequency: "weekly", Priority: 0.9},
			},
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
		},
		Events: EventsConfig{
			Enabled:    false,
			Topic:      "artifact-events",
			BufferSize: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SITE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SITE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SITE_NAME"); v != "" {
		cfg.Site.Name = v
	}
	if v := os.Getenv("SITE_CONTENT_BACKEND"); v != "" {
		cfg.Content.Backend = v
	}
	if v := os.Getenv("SITE_CONTENT_DIR"); v != "" {
		cfg.Content.Dir = v
	}
	if v := os.Getenv("SITE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SITE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SITE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SITE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SITE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SITE_PREVIEW_METADATA_SOURCE"); v != "" {
		cfg.Preview.MetadataSource = v
	}
	if v := os.Getenv("SITE_PREVIEW_METADATA_ORIGIN"); v != "" {
		cfg.Preview.MetadataOrigin = v
	}
	if v := os.Getenv("SITE_PREVIEW_FETCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Preview.FetchTimeout = d
		}
	}
	if v := os.Getenv("SITE_SITEMAP_CRAWLER_TOKENS"); v != "" {
		cfg.Sitemap.CrawlerTokens = strings.Split(v, ",")
	}
	if v := os.Getenv("SITE_SITEMAP_ORDER"); v != "" {
		cfg.Sitemap.Order = v
	}
	if v := os.Getenv("SITE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SITE_EVENTS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Events.Enabled = enabled
		}
	}
	if v := os.Getenv("SITE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SITE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
