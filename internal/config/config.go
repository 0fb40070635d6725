package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Global configuration structure.
type Global struct {
	// Monday.com
	MondayAPIKey      string `mapstructure:"monday_api_key" yaml:"monday_api_key"`
	MondayURL         string `mapstructure:"monday_url" yaml:"monday_url"`
	MondayAPIVersion  string `mapstructure:"monday_api_version" yaml:"monday_api_version"`
	WorkOrdersBoardID string `mapstructure:"work_orders_board_id" yaml:"work_orders_board_id"`
	DealsBoardID      string `mapstructure:"deals_board_id" yaml:"deals_board_id"`
	PageSize          int    `mapstructure:"page_size" yaml:"page_size"`

	// LLM
	LLMProvider      string  `mapstructure:"llm_provider" yaml:"llm_provider"`
	LLMAPIKey        string  `mapstructure:"llm_api_key" yaml:"llm_api_key"`
	Model            string  `mapstructure:"model" yaml:"model"`
	MaxTokens        int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature      float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxContextTokens int     `mapstructure:"max_context_tokens" yaml:"max_context_tokens"`
	HistoryLimit     int     `mapstructure:"history_limit" yaml:"history_limit"`

	// Cache
	CacheBackend string `mapstructure:"cache_backend" yaml:"cache_backend"`
	CacheTTLSec  int    `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	RedisURL     string `mapstructure:"redis_url" yaml:"redis_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// ConfigError reports a missing or invalid setting. Callers surface it as a
// warning rather than aborting.
// Label, when set, names the setting for users in place of Key.
type ConfigError struct {
	Key   string
	Label string
	Msg   string
}

// NotConfigured reports that the setting key, shown to users as label, is
// empty.
func NotConfigured(key, label string) *ConfigError {
	return &ConfigError{Key: key, Label: label}
}

func (e *ConfigError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("config %s: %s", e.Key, e.Msg)
	}
	if e.Label != "" {
		return e.Label + " not configured"
	}
	return fmt.Sprintf("config %s is not set", e.Key)
}

// Missing lists the credentials and board ids that are empty. Each one
// degrades a feature rather than preventing startup.
func (c *Global) Missing() []*ConfigError {
	var out []*ConfigError
	if c.MondayAPIKey == "" {
		out = append(out, NotConfigured("monday_api_key", "MONDAY_API_KEY"))
	}
	if c.LLMAPIKey == "" {
		out = append(out, NotConfigured("llm_api_key", "LLM API key"))
	}
	if c.WorkOrdersBoardID == "" {
		out = append(out, NotConfigured("work_orders_board_id", "Work Orders board ID"))
	}
	if c.DealsBoardID == "" {
		out = append(out, NotConfigured("deals_board_id", "Deals board ID"))
	}
	return out
}

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// legacyEnv lists the unprefixed variable names accepted for a key, in
// precedence order after the BOARDSIGHT_ prefixed form.
var legacyEnv = map[string][]string{
	"monday_api_key":       {"MONDAY_API_KEY"},
	"work_orders_board_id": {"WORK_ORDERS_BOARD_ID"},
	"deals_board_id":       {"DEALS_BOARD_ID"},
	"llm_api_key":          {"GEMINI_API_KEY", "OPENROUTER_API_KEY"},
	"redis_url":            {"REDIS_URL"},
}

// CacheTTL returns the cache ttl as a duration.
func (c *Global) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// HTTPTimeout returns the per-request timeout as a duration.
func (c *Global) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSec) * time.Second
}

// RetryBaseDelay returns the linear backoff unit as a duration.
func (c *Global) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// Dir returns ~/.boardsight.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".boardsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.boardsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load loads configuration from env, config file, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("BOARDSIGHT")
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		bind := append([]string{key, "BOARDSIGHT_" + strings.ToUpper(key)}, names...)
		if err := v.BindEnv(bind...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	// Defaults
	v.SetDefault("monday_api_key", "")
	v.SetDefault("monday_url", "https://api.monday.com/v2")
	v.SetDefault("monday_api_version", "")
	v.SetDefault("work_orders_board_id", "")
	v.SetDefault("deals_board_id", "")
	v.SetDefault("page_size", 500)
	v.SetDefault("llm_provider", "gemini")
	v.SetDefault("llm_api_key", "")
	v.SetDefault("model", "gemini-2.5-flash")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.4)
	v.SetDefault("max_context_tokens", 0)
	v.SetDefault("history_limit", 40)
	v.SetDefault("cache_backend", CacheMemory)
	v.SetDefault("cache_ttl_sec", 300)
	v.SetDefault("redis_url", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 30)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 2000)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "console")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if inferOpenRouter(v) {
		c.LLMProvider = "openrouter"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// inferOpenRouter reports whether the provider was left at its default while
// the only LLM key supplied is OPENROUTER_API_KEY.
func inferOpenRouter(v *viper.Viper) bool {
	if os.Getenv("BOARDSIGHT_LLM_PROVIDER") != "" || v.InConfig("llm_provider") {
		return false
	}
	if os.Getenv("BOARDSIGHT_LLM_API_KEY") != "" || v.InConfig("llm_api_key") || os.Getenv("GEMINI_API_KEY") != "" {
		return false
	}
	return os.Getenv("OPENROUTER_API_KEY") != ""
}

// Validate rejects settings that cannot be used at all. Missing credentials
// and board ids are not errors here; they degrade to warnings at use time.
func (c *Global) Validate() error {
	switch c.CacheBackend {
	case CacheMemory, "":
	case CacheRedis:
		if c.RedisURL == "" {
			return &ConfigError{Key: "redis_url", Msg: "required when cache_backend is redis"}
		}
	default:
		return &ConfigError{Key: "cache_backend", Msg: fmt.Sprintf("unknown backend %q (use memory or redis)", c.CacheBackend)}
	}
	if c.PageSize <= 0 {
		return &ConfigError{Key: "page_size", Msg: "must be positive"}
	}
	return nil
}
