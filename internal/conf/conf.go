package conf

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Relay modes
const (
	ModePush = "push"
	ModePull = "pull"
)

// Config represents application configuration
type Config struct {
	// HTTP server configuration
	Server ServerConfig

	// Store configuration
	Store StoreConfig

	// Upstream dashboard configuration (pull mode)
	Upstream UpstreamConfig

	// Crawler configuration
	Crawler CrawlerConfig

	// LLM configuration (optional)
	LLM LLMConfig

	// Feishu configuration (optional)
	Feishu FeishuConfig

	// Debug mode
	Debug bool
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Addr      string
	StaticDir string
	Mode      string // push or pull
}

// StoreConfig contains database configuration
type StoreConfig struct {
	DBPath string
}

// UpstreamConfig contains dashboard configuration
type UpstreamConfig struct {
	BaseURL       string
	Email         string
	Password      string
	PasswordParam string // SSM parameter holding the password
	Timeout       time.Duration
	TokenTTL      time.Duration
	PullInterval  time.Duration // 0 disables background pulls
}

// CrawlerConfig contains login URL crawler configuration
type CrawlerConfig struct {
	Enabled   bool
	Workers   int
	QueueSize int
	Timeout   time.Duration
	SearchURL string
	RulesPath string
	Rules     *CrawlerRules
}

// LLMConfig contains login URL suggester configuration
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

// FeishuConfig contains notifier configuration
type FeishuConfig struct {
	AppID     string
	AppSecret string
	ChatID    string
}

// Enabled reports whether notifications are configured
func (c FeishuConfig) Enabled() bool {
	return c.AppID != "" && c.AppSecret != "" && c.ChatID != ""
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	mode := strings.ToLower(strings.TrimSpace(os.Getenv("RELAY_MODE")))
	if mode == "" {
		mode = ModePush
	}

	rulesPath := os.Getenv("CRAWLER_RULES_PATH")
	rules, err := LoadCrawlerRules(rulesPath)
	if err != nil {
		// A broken rules file falls back to defaults; Validate reports it
		rules = DefaultCrawlerRules()
		rules.loadErr = err
	}

	return &Config{
		Server: ServerConfig{
			Addr:      envString("RELAY_ADDR", ":8002"),
			StaticDir: envString("STATIC_DIR", "./static"),
			Mode:      mode,
		},
		Store: StoreConfig{
			DBPath: envString("RELAY_DB_PATH", "./app.db"),
		},
		Upstream: UpstreamConfig{
			BaseURL:       os.Getenv("UPSTREAM_BASE_URL"),
			Email:         os.Getenv("UPSTREAM_EMAIL"),
			Password:      os.Getenv("UPSTREAM_PASSWORD"),
			PasswordParam: os.Getenv("UPSTREAM_PASSWORD_PARAM"),
			Timeout:       envSeconds("UPSTREAM_TIMEOUT_SECONDS", 10),
			TokenTTL:      envSeconds("TOKEN_TTL_SECONDS", 5),
			PullInterval:  envSeconds("PULL_INTERVAL_SECONDS", 0),
		},
		Crawler: CrawlerConfig{
			Enabled:   envBool("CRAWLER_ENABLED", true),
			Workers:   envInt("CRAWLER_WORKERS", 2),
			QueueSize: envInt("CRAWLER_QUEUE_SIZE", 64),
			Timeout:   envSeconds("CRAWLER_TIMEOUT_SECONDS", 8),
			SearchURL: os.Getenv("CRAWLER_SEARCH_URL"),
			RulesPath: rulesPath,
			Rules:     rules,
		},
		LLM: LLMConfig{
			APIKey:  os.Getenv("LLM_API_KEY"),
			BaseURL: os.Getenv("LLM_BASE_URL"),
			Model:   os.Getenv("LLM_MODEL"),
		},
		Feishu: FeishuConfig{
			AppID:     os.Getenv("FEISHU_APP_ID"),
			AppSecret: os.Getenv("FEISHU_APP_SECRET"),
			ChatID:    os.Getenv("FEISHU_CHAT_ID"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// IsPull reports whether the relay pulls from the upstream dashboard
func (c *Config) IsPull() bool {
	return c.Server.Mode == ModePull
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Mode != ModePush && c.Server.Mode != ModePull {
		return &ConfigError{Field: "RELAY_MODE", Message: fmt.Sprintf("must be %q or %q, got %q", ModePush, ModePull, c.Server.Mode)}
	}
	if c.Server.Addr == "" {
		return &ConfigError{Field: "RELAY_ADDR", Message: "required"}
	}
	if c.Store.DBPath == "" {
		return &ConfigError{Field: "RELAY_DB_PATH", Message: "required"}
	}
	if c.Upstream.Timeout <= 0 {
		return &ConfigError{Field: "UPSTREAM_TIMEOUT_SECONDS", Message: "must be positive"}
	}
	if c.Upstream.TokenTTL <= 0 {
		return &ConfigError{Field: "TOKEN_TTL_SECONDS", Message: "must be positive"}
	}
	if c.Upstream.PullInterval < 0 {
		return &ConfigError{Field: "PULL_INTERVAL_SECONDS", Message: "must not be negative"}
	}
	if c.Crawler.Enabled {
		if c.Crawler.Workers <= 0 {
			return &ConfigError{Field: "CRAWLER_WORKERS", Message: "must be positive"}
		}
		if c.Crawler.QueueSize <= 0 {
			return &ConfigError{Field: "CRAWLER_QUEUE_SIZE", Message: "must be positive"}
		}
		if c.Crawler.Timeout <= 0 {
			return &ConfigError{Field: "CRAWLER_TIMEOUT_SECONDS", Message: "must be positive"}
		}
		if c.Crawler.Rules != nil && c.Crawler.Rules.loadErr != nil {
			return &ConfigError{Field: "CRAWLER_RULES_PATH", Message: c.Crawler.Rules.loadErr.Error()}
		}
	}
	return nil
}

// SecretGetter reads a secret by name
type SecretGetter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// NeedsSecrets reports whether ResolveSecrets has anything to fetch
func (c *Config) NeedsSecrets() bool {
	return c.Upstream.Password == "" && c.Upstream.PasswordParam != ""
}

// ResolveSecrets fills secrets that are configured by reference.
// An explicit UPSTREAM_PASSWORD wins over UPSTREAM_PASSWORD_PARAM.
func (c *Config) ResolveSecrets(ctx context.Context, getter SecretGetter) error {
	if !c.NeedsSecrets() {
		return nil
	}
	password, err := getter.GetParameter(ctx, c.Upstream.PasswordParam)
	if err != nil {
		return &ConfigError{Field: "UPSTREAM_PASSWORD_PARAM", Message: err.Error()}
	}
	c.Upstream.Password = password
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envString(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envSeconds(key string, def int) time.Duration {
	return time.Duration(envInt(key, def)) * time.Second
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}
