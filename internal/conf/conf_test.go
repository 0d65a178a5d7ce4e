package conf

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, key := range []string{"RELAY_MODE", "RELAY_ADDR", "RELAY_DB_PATH", "TOKEN_TTL_SECONDS", "PULL_INTERVAL_SECONDS", "CRAWLER_ENABLED", "CRAWLER_RULES_PATH"} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()
	if cfg.Server.Mode != ModePush {
		t.Errorf("Mode = %q, want %q", cfg.Server.Mode, ModePush)
	}
	if cfg.Server.Addr != ":8002" {
		t.Errorf("Addr = %q", cfg.Server.Addr)
	}
	if cfg.Store.DBPath != "./app.db" {
		t.Errorf("DBPath = %q", cfg.Store.DBPath)
	}
	if cfg.Upstream.TokenTTL != 5*time.Second {
		t.Errorf("TokenTTL = %v", cfg.Upstream.TokenTTL)
	}
	if cfg.Upstream.PullInterval != 0 {
		t.Errorf("PullInterval = %v", cfg.Upstream.PullInterval)
	}
	if !cfg.Crawler.Enabled || cfg.Crawler.Workers != 2 {
		t.Errorf("Crawler = %+v", cfg.Crawler)
	}
	if cfg.Crawler.Rules == nil {
		t.Fatal("Rules is nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadFromEnv_PullMode(t *testing.T) {
	t.Setenv("RELAY_MODE", " PULL ")
	t.Setenv("UPSTREAM_EMAIL", "ops@example.com")
	t.Setenv("PULL_INTERVAL_SECONDS", "30")
	t.Setenv("CRAWLER_ENABLED", "false")
	t.Setenv("CRAWLER_WORKERS", "not-a-number")

	cfg := LoadFromEnv()
	if !cfg.IsPull() {
		t.Fatalf("Mode = %q, want pull", cfg.Server.Mode)
	}
	if cfg.Upstream.Email != "ops@example.com" {
		t.Errorf("Email = %q", cfg.Upstream.Email)
	}
	if cfg.Upstream.PullInterval != 30*time.Second {
		t.Errorf("PullInterval = %v", cfg.Upstream.PullInterval)
	}
	if cfg.Crawler.Enabled {
		t.Error("crawler should be disabled")
	}
	if cfg.Crawler.Workers != 2 {
		t.Errorf("Workers = %d, want fallback 2", cfg.Crawler.Workers)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"unknown mode", func(c *Config) { c.Server.Mode = "both" }, "RELAY_MODE"},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, "RELAY_ADDR"},
		{"zero ttl", func(c *Config) { c.Upstream.TokenTTL = 0 }, "TOKEN_TTL_SECONDS"},
		{"negative interval", func(c *Config) { c.Upstream.PullInterval = -time.Second }, "PULL_INTERVAL_SECONDS"},
		{"no workers", func(c *Config) { c.Crawler.Workers = 0 }, "CRAWLER_WORKERS"},
		{"broken rules", func(c *Config) { c.Crawler.Rules.loadErr = errors.New("bad yaml") }, "CRAWLER_RULES_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestValidate_DisabledCrawlerSkipsCrawlerChecks(t *testing.T) {
	cfg := validConfig()
	cfg.Crawler.Enabled = false
	cfg.Crawler.Workers = 0
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

type fakeSecrets struct {
	values map[string]string
	calls  int
}

func (f *fakeSecrets) GetParameter(_ context.Context, name string) (string, error) {
	f.calls++
	v, ok := f.values[name]
	if !ok {
		return "", errors.New("parameter not found")
	}
	return v, nil
}

func TestResolveSecrets(t *testing.T) {
	secrets := &fakeSecrets{values: map[string]string{"/relay/password": "s3cret"}}

	cfg := validConfig()
	cfg.Upstream.PasswordParam = "/relay/password"
	if err := cfg.ResolveSecrets(context.Background(), secrets); err != nil {
		t.Fatalf("ResolveSecrets() = %v", err)
	}
	if cfg.Upstream.Password != "s3cret" {
		t.Errorf("Password = %q", cfg.Upstream.Password)
	}

	// Explicit password wins and skips the lookup
	cfg = validConfig()
	cfg.Upstream.Password = "inline"
	cfg.Upstream.PasswordParam = "/relay/password"
	secrets.calls = 0
	if err := cfg.ResolveSecrets(context.Background(), secrets); err != nil {
		t.Fatalf("ResolveSecrets() = %v", err)
	}
	if cfg.Upstream.Password != "inline" || secrets.calls != 0 {
		t.Errorf("Password = %q, calls = %d", cfg.Upstream.Password, secrets.calls)
	}
}

func TestResolveSecrets_MissingParameter(t *testing.T) {
	cfg := validConfig()
	cfg.Upstream.PasswordParam = "/relay/missing"

	err := cfg.ResolveSecrets(context.Background(), &fakeSecrets{})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "UPSTREAM_PASSWORD_PARAM" {
		t.Fatalf("ResolveSecrets() = %v", err)
	}
}

func TestLoadCrawlerRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.yaml")
	content := "login_templates:\n  - https://%s.example/login\nsuggest_prompt: list login pages\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadCrawlerRules(path)
	if err != nil {
		t.Fatalf("LoadCrawlerRules() = %v", err)
	}
	if len(rules.LoginTemplates) != 1 || rules.LoginTemplates[0] != "https://%s.example/login" {
		t.Errorf("LoginTemplates = %v", rules.LoginTemplates)
	}
	if rules.SuggestPrompt != "list login pages" {
		t.Errorf("SuggestPrompt = %q", rules.SuggestPrompt)
	}
	if rules.SearchIntervalSeconds != 2 {
		t.Errorf("SearchIntervalSeconds = %d, want default 2", rules.SearchIntervalSeconds)
	}
	if rules.Source != path {
		t.Errorf("Source = %q", rules.Source)
	}
}

func TestLoadCrawlerRules_Errors(t *testing.T) {
	if _, err := LoadCrawlerRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for explicit missing file")
	}

	path := filepath.Join(t.TempDir(), "broken.yaml")
	if err := os.WriteFile(path, []byte("login_templates: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadCrawlerRules(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadFromEnv_BrokenRulesFailValidation(t *testing.T) {
	t.Setenv("CRAWLER_RULES_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := LoadFromEnv()
	if cfg.Crawler.Rules == nil {
		t.Fatal("Rules is nil")
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation error")
	}
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8002", StaticDir: "./static", Mode: ModePush},
		Store:    StoreConfig{DBPath: "./app.db"},
		Upstream: UpstreamConfig{Timeout: 10 * time.Second, TokenTTL: 5 * time.Second},
		Crawler: CrawlerConfig{
			Enabled:   true,
			Workers:   2,
			QueueSize: 64,
			Timeout:   8 * time.Second,
			Rules:     DefaultCrawlerRules(),
		},
	}
}
