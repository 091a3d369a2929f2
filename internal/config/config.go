// Package config loads and validates portal configuration via Viper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Blogs     BlogsConfig     `mapstructure:"blogs"`
	Pradipika PradipikaConfig `mapstructure:"pradipika"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Snapshots SnapshotConfig  `mapstructure:"snapshots"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles for mutating endpoints.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures the outbound HTTP client.
type HTTPConfig struct {
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	UserAgent      string  `mapstructure:"user_agent"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// BlogsConfig configures the blog index scraper and its cache.
type BlogsConfig struct {
	IndexURL       string        `mapstructure:"index_url"`
	DefaultAuthor  string        `mapstructure:"default_author"`
	DefaultMax     int           `mapstructure:"default_max"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
	ThumbnailHosts []string      `mapstructure:"thumbnail_hosts"`
}

// PradipikaConfig configures the magazine archive directory scraper.
type PradipikaConfig struct {
	DirectoryURL string `mapstructure:"directory_url"`
	BaseURL      string `mapstructure:"base_url"`
	LinkMarker   string `mapstructure:"link_marker"`
}

// DatabaseConfig controls access to the relational database.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	Table           string        `mapstructure:"table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// SnapshotConfig selects where raw upstream HTML is archived.
type SnapshotConfig struct {
	Backend string `mapstructure:"backend"`
	Bucket  string `mapstructure:"bucket"`
	BaseDir string `mapstructure:"base_dir"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for publish-subscribe notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ScheduleConfig holds cron specs for background jobs. Empty specs disable a job.
type ScheduleConfig struct {
	Timezone      string `mapstructure:"timezone"`
	BlogRefresh   string `mapstructure:"blog_refresh"`
	PradipikaSync string `mapstructure:"pradipika_sync"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Snapshot backends.
const (
	SnapshotNone   = "none"
	SnapshotMemory = "memory"
	SnapshotLocal  = "local"
	SnapshotGCS    = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PORTAL")
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

	// Cloud Run injects PORT.
	if raw := os.Getenv("PORT"); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return Config{}, fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("http.timeout_seconds", 15)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("http.rate_limit_rps", 4.0)
	v.SetDefault("http.rate_limit_burst", 10)
	v.SetDefault("blogs.index_url", "https://iskcondesiretree.com/profiles/blogs?sort=newestPosts")
	v.SetDefault("blogs.default_author", "ISKCON Desire Tree")
	v.SetDefault("blogs.default_max", 15)
	v.SetDefault("blogs.cache_ttl", 24*time.Hour)
	v.SetDefault("blogs.thumbnail_hosts", []string{"ning.com", "iskcondesiretree.com"})
	v.SetDefault("pradipika.directory_url",
		"https://ebooks.iskcondesiretree.com/index.php?q=f&f=%2Fpdf%2FBhagavata_Pradipika")
	v.SetDefault("pradipika.base_url", "https://ebooks.iskcondesiretree.com")
	v.SetDefault("pradipika.link_marker", "Bhagavata_Pradipika")
	v.SetDefault("database.table", "pradipika_issues")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("snapshots.backend", SnapshotNone)
	v.SetDefault("snapshots.base_dir", "data/snapshots")
	v.SetDefault("snapshots.prefix", "snapshots")
	v.SetDefault("schedule.timezone", "UTC")
	v.SetDefault("schedule.blog_refresh", "")
	v.SetDefault("schedule.pradipika_sync", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.RateLimitRPS < 0 {
		return fmt.Errorf("http.rate_limit_rps must be >= 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Blogs.IndexURL == "" {
		return fmt.Errorf("blogs.index_url is required")
	}
	if c.Blogs.DefaultMax <= 0 {
		return fmt.Errorf("blogs.default_max must be > 0")
	}
	if c.Blogs.CacheTTL <= 0 {
		return fmt.Errorf("blogs.cache_ttl must be > 0")
	}
	if c.Pradipika.DirectoryURL == "" || c.Pradipika.BaseURL == "" {
		return fmt.Errorf("pradipika.directory_url and pradipika.base_url are required")
	}
	switch c.Snapshots.Backend {
	case "", SnapshotNone, SnapshotMemory:
	case SnapshotLocal:
		if c.Snapshots.BaseDir == "" {
			return fmt.Errorf("snapshots.base_dir must be set for the local backend")
		}
	case SnapshotGCS:
		if c.Snapshots.Bucket == "" {
			return fmt.Errorf("snapshots.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("snapshots.backend %q is not supported", c.Snapshots.Backend)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	for name, spec := range map[string]string{
		"schedule.blog_refresh":   c.Schedule.BlogRefresh,
		"schedule.pradipika_sync": c.Schedule.PradipikaSync,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// RequestTimeout converts the HTTP timeout into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}
