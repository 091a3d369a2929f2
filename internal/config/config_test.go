package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Blogs.DefaultMax != 15 {
		t.Fatalf("expected default max 15, got %d", cfg.Blogs.DefaultMax)
	}
	if cfg.Blogs.CacheTTL != 24*time.Hour {
		t.Fatalf("expected 24h cache ttl, got %v", cfg.Blogs.CacheTTL)
	}
	if cfg.Blogs.DefaultAuthor != "ISKCON Desire Tree" {
		t.Fatalf("unexpected default author %q", cfg.Blogs.DefaultAuthor)
	}
	if !strings.HasPrefix(cfg.HTTP.UserAgent, "Mozilla/5.0") {
		t.Fatalf("expected browser-like user agent, got %q", cfg.HTTP.UserAgent)
	}
	if cfg.Snapshots.Backend != SnapshotNone {
		t.Fatalf("expected snapshots disabled by default, got %q", cfg.Snapshots.Backend)
	}
	if cfg.Database.Table != "pradipika_issues" {
		t.Fatalf("unexpected table %q", cfg.Database.Table)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
http:
  timeout_seconds: 45
  user_agent: portal-test
blogs:
  default_max: 20
  cache_ttl: 1h
  thumbnail_hosts: ["example.com"]
snapshots:
  backend: local
  base_dir: /tmp/snaps
schedule:
  timezone: Asia/Kolkata
  blog_refresh: "0 */6 * * *"
  pradipika_sync: "30 3 * * *"
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Blogs.DefaultMax != 20 || cfg.Blogs.CacheTTL != time.Hour {
		t.Fatalf("expected blog overrides to apply: %+v", cfg.Blogs)
	}
	if len(cfg.Blogs.ThumbnailHosts) != 1 || cfg.Blogs.ThumbnailHosts[0] != "example.com" {
		t.Fatalf("expected thumbnail hosts override: %v", cfg.Blogs.ThumbnailHosts)
	}
	if cfg.Schedule.PradipikaSync != "30 3 * * *" {
		t.Fatalf("expected sync schedule, got %q", cfg.Schedule.PradipikaSync)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Development {
		t.Fatalf("expected logging overrides: %+v", cfg.Logging)
	}
	if got := cfg.RequestTimeout(); got != 45*time.Second {
		t.Fatalf("expected request timeout 45s, got %v", got)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORTAL_BLOGS_DEFAULT_AUTHOR", "Someone Else")
	t.Setenv("PORT", "7070")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Blogs.DefaultAuthor != "Someone Else" {
		t.Fatalf("expected env author override, got %q", cfg.Blogs.DefaultAuthor)
	}
	if cfg.Server.Port != 7070 {
		t.Fatalf("expected PORT override, got %d", cfg.Server.Port)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:    ServerConfig{Port: 8080},
		HTTP:      HTTPConfig{TimeoutSeconds: 10},
		Blogs:     BlogsConfig{IndexURL: "https://example.com", DefaultMax: 15, CacheTTL: time.Hour},
		Pradipika: PradipikaConfig{DirectoryURL: "https://example.com/dir", BaseURL: "https://example.com"},
		Schedule:  ScheduleConfig{Timezone: "UTC"},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected base config to validate, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid timeout", mutate: func(c *Config) { c.HTTP.TimeoutSeconds = 0 }, want: "http.timeout_seconds"},
		{name: "auth missing api key", mutate: func(c *Config) { c.Auth.Enabled = true }, want: "auth.api_key"},
		{name: "invalid default max", mutate: func(c *Config) { c.Blogs.DefaultMax = 0 }, want: "blogs.default_max"},
		{name: "invalid ttl", mutate: func(c *Config) { c.Blogs.CacheTTL = 0 }, want: "blogs.cache_ttl"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Snapshots.Backend = SnapshotGCS }, want: "snapshots.bucket"},
		{name: "unknown backend", mutate: func(c *Config) { c.Snapshots.Backend = "s3" }, want: "snapshots.backend"},
		{name: "bad timezone", mutate: func(c *Config) { c.Schedule.Timezone = "Mars/Olympus" }, want: "schedule.timezone"},
		{name: "bad cron", mutate: func(c *Config) { c.Schedule.BlogRefresh = "every day" }, want: "schedule.blog_refresh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
