package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/boardsight/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set boardsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		showConfig(cmd.OutOrStdout(), cfg)
		return nil
	},
}

func showConfig(w io.Writer, c *cfgpkg.Global) {
	fmt.Fprintf(w, "monday_api_key: %s\n", mask(c.MondayAPIKey))
	fmt.Fprintf(w, "monday_url: %s\n", c.MondayURL)
	if c.MondayAPIVersion != "" {
		fmt.Fprintf(w, "monday_api_version: %s\n", c.MondayAPIVersion)
	}
	fmt.Fprintf(w, "work_orders_board_id: %s\n", c.WorkOrdersBoardID)
	fmt.Fprintf(w, "deals_board_id: %s\n", c.DealsBoardID)
	fmt.Fprintf(w, "page_size: %d\n", c.PageSize)
	fmt.Fprintf(w, "llm_provider: %s\n", c.LLMProvider)
	fmt.Fprintf(w, "llm_api_key: %s\n", mask(c.LLMAPIKey))
	fmt.Fprintf(w, "model: %s\n", c.Model)
	fmt.Fprintf(w, "max_tokens: %d\n", c.MaxTokens)
	fmt.Fprintf(w, "temperature: %.3f\n", c.Temperature)
	if c.MaxContextTokens > 0 {
		fmt.Fprintf(w, "max_context_tokens: %d\n", c.MaxContextTokens)
	}
	fmt.Fprintf(w, "history_limit: %d\n", c.HistoryLimit)
	fmt.Fprintf(w, "cache_backend: %s\n", c.CacheBackend)
	fmt.Fprintf(w, "cache_ttl_sec: %d\n", c.CacheTTLSec)
	if c.RedisURL != "" {
		fmt.Fprintf(w, "redis_url: %s\n", mask(c.RedisURL))
	}
	fmt.Fprintf(w, "http_timeout_sec: %d\n", c.HTTPTimeoutSec)
	fmt.Fprintf(w, "retry_max_attempts: %d\n", c.RetryMaxAttempts)
	fmt.Fprintf(w, "retry_base_delay_ms: %d\n", c.RetryBaseDelayMs)
	fmt.Fprintf(w, "log_level: %s\n", c.LogLevel)
	fmt.Fprintf(w, "log_format: %s\n", c.LogFormat)
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setConfigValue(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setConfigValue(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "monday_api_key":
		c.MondayAPIKey = val
	case "monday_url":
		c.MondayURL = val
	case "monday_api_version":
		c.MondayAPIVersion = val
	case "work_orders_board_id":
		c.WorkOrdersBoardID = val
	case "deals_board_id":
		c.DealsBoardID = val
	case "page_size":
		c.PageSize, err = atoi()
	case "llm_provider":
		switch val {
		case "gemini", "Gemini", "GEMINI":
			c.LLMProvider = "gemini"
		case "openrouter", "OpenRouter", "OPENROUTER":
			c.LLMProvider = "openrouter"
		default:
			return fmt.Errorf("invalid llm_provider: %s (use gemini or openrouter)", val)
		}
	case "llm_api_key":
		c.LLMAPIKey = val
	case "model":
		c.Model = val
	case "max_tokens":
		c.MaxTokens, err = atoi()
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for temperature: %w", perr)
		}
		c.Temperature = f
	case "max_context_tokens":
		c.MaxContextTokens, err = atoi()
	case "history_limit":
		c.HistoryLimit, err = atoi()
	case "cache_backend":
		c.CacheBackend = val
	case "cache_ttl_sec":
		c.CacheTTLSec, err = atoi()
	case "redis_url":
		c.RedisURL = val
	case "http_timeout_sec":
		c.HTTPTimeoutSec, err = atoi()
	case "retry_max_attempts":
		c.RetryMaxAttempts, err = atoi()
	case "retry_base_delay_ms":
		c.RetryBaseDelayMs, err = atoi()
	case "log_level":
		c.LogLevel = val
	case "log_format":
		c.LogFormat = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
