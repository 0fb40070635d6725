package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range []string{"MONDAY_API_KEY", "GEMINI_API_KEY", "OPENROUTER_API_KEY", "WORK_ORDERS_BOARD_ID", "DEALS_BOARD_ID", "REDIS_URL", "BOARDSIGHT_MONDAY_API_KEY", "BOARDSIGHT_CACHE_BACKEND", "BOARDSIGHT_LLM_PROVIDER", "BOARDSIGHT_LLM_API_KEY"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
	return home
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "https://api.monday.com/v2", c.MondayURL)
	assert.Equal(t, 500, c.PageSize)
	assert.Equal(t, CacheMemory, c.CacheBackend)
	assert.Equal(t, 300*time.Second, c.CacheTTL())
	assert.Equal(t, 3, c.RetryMaxAttempts)
	assert.Equal(t, 2*time.Second, c.RetryBaseDelay())
	assert.Equal(t, 30*time.Second, c.HTTPTimeout())
	assert.Equal(t, 40, c.HistoryLimit)
	assert.Equal(t, "gemini", c.LLMProvider)
	assert.Empty(t, c.MondayAPIKey)
}

func TestLoadLegacyEnvNames(t *testing.T) {
	isolate(t)
	t.Setenv("MONDAY_API_KEY", "mk")
	t.Setenv("GEMINI_API_KEY", "gk")
	t.Setenv("WORK_ORDERS_BOARD_ID", "111")
	t.Setenv("DEALS_BOARD_ID", "222")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "mk", c.MondayAPIKey)
	assert.Equal(t, "gk", c.LLMAPIKey)
	assert.Equal(t, "111", c.WorkOrdersBoardID)
	assert.Equal(t, "222", c.DealsBoardID)
}

func TestOpenRouterKeyAloneSelectsOpenRouter(t *testing.T) {
	isolate(t)
	t.Setenv("OPENROUTER_API_KEY", "ok")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ok", c.LLMAPIKey)
	assert.Equal(t, "openrouter", c.LLMProvider)

	t.Setenv("GEMINI_API_KEY", "gk")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.LLMProvider, "a Gemini key keeps the default provider")

	require.NoError(t, os.Unsetenv("GEMINI_API_KEY"))
	t.Setenv("BOARDSIGHT_LLM_PROVIDER", "gemini")
	c, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", c.LLMProvider, "an explicit provider is never overridden")
}

func TestPrefixedEnvWinsOverLegacy(t *testing.T) {
	isolate(t)
	t.Setenv("MONDAY_API_KEY", "legacy")
	t.Setenv("BOARDSIGHT_MONDAY_API_KEY", "prefixed")
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "prefixed", c.MondayAPIKey)
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	home := isolate(t)
	c, err := Load("")
	require.NoError(t, err)
	c.DealsBoardID = "999"
	c.CacheTTLSec = 60
	require.NoError(t, Save(c, ""))

	_, err = os.Stat(filepath.Join(home, ".boardsight", "config.yaml"))
	require.NoError(t, err)

	again, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "999", again.DealsBoardID)
	assert.Equal(t, time.Minute, again.CacheTTL())
}

func TestExplicitMissingConfigFileFails(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidateRedisNeedsURL(t *testing.T) {
	c := &Global{CacheBackend: CacheRedis, PageSize: 10}
	err := c.Validate()
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "redis_url", cfgErr.Key)

	c.RedisURL = "redis://localhost:6379/0"
	assert.NoError(t, c.Validate())

	c.CacheBackend = "memcached"
	assert.Error(t, c.Validate())
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("DEALS_BOARD_ID=from-file\nWORK_ORDERS_BOARD_ID=wo-file\n"), 0o644))
	t.Setenv("DEALS_BOARD_ID", "from-env")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { _ = os.Unsetenv("WORK_ORDERS_BOARD_ID") })
	assert.Equal(t, "from-env", os.Getenv("DEALS_BOARD_ID"))
	assert.Equal(t, "wo-file", os.Getenv("WORK_ORDERS_BOARD_ID"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestMissingSettings(t *testing.T) {
	c := &Global{MondayAPIKey: "mk", DealsBoardID: "1"}
	var keys []string
	for _, e := range c.Missing() {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"llm_api_key", "work_orders_board_id"}, keys)
	assert.Equal(t, "Work Orders board ID not configured", NotConfigured("work_orders_board_id", "Work Orders board ID").Error())
	assert.Equal(t, "config deals_board_id is not set", (&ConfigError{Key: "deals_board_id"}).Error())

	var err error = NotConfigured("monday_api_key", "MONDAY_API_KEY")
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "monday_api_key", cfgErr.Key)
}
