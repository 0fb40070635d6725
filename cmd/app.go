package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/KaramelBytes/boardsight/internal/agent"
	"github.com/KaramelBytes/boardsight/internal/ai"
	"github.com/KaramelBytes/boardsight/internal/cache"
	cfgpkg "github.com/KaramelBytes/boardsight/internal/config"
	"github.com/KaramelBytes/boardsight/internal/monday"
)

func newMondayClient(c *cfgpkg.Global, l *zap.Logger) *monday.Client {
	mc := monday.NewClientWithURL(c.MondayAPIKey, c.HTTPTimeout(), c.RetryMaxAttempts, c.RetryBaseDelay(), c.MondayURL)
	mc.SetAPIVersion(c.MondayAPIVersion)
	mc.SetLogger(l)
	return mc
}

// buildStore selects the cache backend. The returned close func is never nil.
func buildStore(ctx context.Context, c *cfgpkg.Global) (cache.Store, func(), error) {
	switch c.CacheBackend {
	case cfgpkg.CacheRedis:
		rs, err := cache.OpenRedis(c.RedisURL, cache.DefaultPrefix, c.CacheTTL())
		if err != nil {
			return nil, nil, err
		}
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis unreachable: %w", err)
		}
		return rs, func() { _ = rs.Close() }, nil
	default:
		return cache.NewMemoryStore(c.CacheTTL()), func() {}, nil
	}
}

// buildRuntime returns the configured LLM runtime, or nil when no key is set.
func buildRuntime(ctx context.Context, c *cfgpkg.Global, l *zap.Logger) (ai.Runtime, error) {
	if c.LLMAPIKey == "" {
		return nil, nil
	}
	provider := c.LLMProvider
	if provider == "" {
		provider = ai.ProviderGemini
	}
	return ai.NewRuntime(ctx, provider, ai.RuntimeConfig{
		APIKey:      c.LLMAPIKey,
		HTTPTimeout: c.HTTPTimeout(),
		RetryMax:    c.RetryMaxAttempts,
		Logger:      l,
	})
}

// credentialWarnings describes the missing credentials that disable a feature.
// Missing board ids are left to discovery and reported as caveats.
func credentialWarnings(c *cfgpkg.Global) []string {
	var out []string
	for _, e := range c.Missing() {
		switch e.Key {
		case "monday_api_key":
			out = append(out, fmt.Sprintf("⚠ Warning: %v; board data will be unavailable", e))
		case "llm_api_key":
			out = append(out, fmt.Sprintf("⚠ Warning: %v; chat answers are disabled", e))
		}
	}
	return out
}

// newAgent wires the client, store and runtime from configuration and
// discovers board ids that are not configured.
func newAgent(ctx context.Context) (*agent.Agent, func(), error) {
	c, err := requireConfig()
	if err != nil {
		return nil, nil, err
	}
	for _, w := range credentialWarnings(c) {
		fmt.Fprintln(os.Stderr, w)
	}
	store, closeStore, err := buildStore(ctx, c)
	if err != nil {
		return nil, nil, err
	}
	rt, err := buildRuntime(ctx, c, logger)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("init %s runtime: %w", c.LLMProvider, err)
	}
	a, err := agent.New(agent.Options{
		Source:            newMondayClient(c, logger),
		Store:             store,
		Runtime:           rt,
		WorkOrdersBoardID: c.WorkOrdersBoardID,
		DealsBoardID:      c.DealsBoardID,
		PageSize:          c.PageSize,
		HistoryLimit:      c.HistoryLimit,
		Model:             c.Model,
		MaxTokens:         c.MaxTokens,
		Temperature:       c.Temperature,
		MaxContextTokens:  c.MaxContextTokens,
		Logger:            logger,
	})
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	if c.WorkOrdersBoardID == "" || c.DealsBoardID == "" {
		a.DiscoverBoards(ctx)
	}
	return a, closeStore, nil
}
