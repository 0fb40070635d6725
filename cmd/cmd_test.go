package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/boardsight/internal/agent"
	"github.com/KaramelBytes/boardsight/internal/cache"
	cfgpkg "github.com/KaramelBytes/boardsight/internal/config"
)

// newIPv4Server serves handler on 127.0.0.1 and skips when listening is not
// permitted.
func newIPv4Server(t *testing.T, handler http.Handler) string {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })
	return "http://" + ln.Addr().String()
}

// fakeMonday answers the board list and first-page item queries.
func fakeMonday(t *testing.T) string {
	t.Helper()
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(req.Query, "items_page"):
			ids, _ := req.Variables["ids"].([]any)
			if len(ids) == 1 && ids[0] == "D1" {
				fmt.Fprint(w, `{"data":{"boards":[{"id":"D1","name":"Deals","columns":[
					{"id":"stage","title":"Stage","type":"status"},
					{"id":"val","title":"Deal Value","type":"numbers"}],
					"items_page":{"cursor":null,"items":[
					{"id":"1","name":"Acme","column_values":[{"id":"stage","text":"Won"},{"id":"val","text":"₹2,00,000"}]},
					{"id":"2","name":"Beta","column_values":[{"id":"stage","text":"Lead"},{"id":"val","text":"50000"}]}]}}]}}`)
				return
			}
			fmt.Fprint(w, `{"data":{"boards":[]}}`)
		case strings.Contains(req.Query, "boards(limit"):
			fmt.Fprint(w, `{"data":{"boards":[{"id":"W1","name":"Work Orders Tracker","board_kind":"public","columns":[]},{"id":"D1","name":"Deals","board_kind":"public","columns":[]}]}}`)
		default:
			fmt.Fprint(w, `{"data":{"boards":[{"columns":[{"id":"stage","title":"Stage","type":"status"}]}]}}`)
		}
	}))
}

func testConfig(url string) *cfgpkg.Global {
	return &cfgpkg.Global{
		MondayAPIKey:      "token",
		MondayURL:         url,
		WorkOrdersBoardID: "W1",
		DealsBoardID:      "D1",
		PageSize:          500,
		LLMProvider:       "gemini",
		Model:             "gemini-2.5-flash",
		HistoryLimit:      40,
		CacheBackend:      cfgpkg.CacheMemory,
		CacheTTLSec:       300,
		HTTPTimeoutSec:    5,
		RetryMaxAttempts:  1,
		RetryBaseDelayMs:  1,
	}
}

// resetFlags clears command flag variables now and again when the test ends,
// so no test sees another's flags.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func() {
		reportOutput, reportJSON, reportPlain = "", false, false
		chatDryRun, chatPlain = false, false
		boardsFind, boardsColumns = "", ""
	}
	reset()
	t.Cleanup(reset)
}

// run executes the root command with args against c and returns stdout.
func run(t *testing.T, c *cfgpkg.Global, args ...string) (string, error) {
	t.Helper()
	cfg = c
	resetFlags(t)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReportCommandWritesFile(t *testing.T) {
	c := testConfig(fakeMonday(t))
	path := filepath.Join(t.TempDir(), "out", "report.md")
	_, err := run(t, c, "report", "--output", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	md := string(b)
	assert.Contains(t, md, "## Pipeline Overview")
	assert.Contains(t, md, "- **Total Deals**: 2")
	assert.Contains(t, md, "| Won | 1 | 50% |")
	assert.Contains(t, md, "_No work orders data available._")
}

func TestReportCommandJSON(t *testing.T) {
	c := testConfig(fakeMonday(t))
	c.WorkOrdersBoardID = ""
	out, err := run(t, c, "report", "--json")
	require.NoError(t, err)

	var doc reportDoc
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "W1", doc.WorkOrdersBoard, "discovered by name")
	assert.Equal(t, "D1", doc.DealsBoard)
	assert.Contains(t, doc.Markdown, "# 📊 Leadership Update")
}

func TestChatWithoutKeyWarns(t *testing.T) {
	c := testConfig(fakeMonday(t))
	out, err := run(t, c, "chat", "--plain", "How", "is", "the", "pipeline?")
	require.NoError(t, err)
	assert.Equal(t, agent.MsgNoRuntime+"\n", out)
}

func TestChatDryRunPrintsPrompt(t *testing.T) {
	c := testConfig(fakeMonday(t))
	out, err := run(t, c, "chat", "--dry-run", "Which stage leads?")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "User Question: Which stage leads?\n\n--- DATA CONTEXT ---\n=== DEALS DATA ==="), out)
	assert.Contains(t, out, "Pipeline by Stage:")
}

func TestTokenReport(t *testing.T) {
	prompt := "User Question: which stage?\n\n--- DATA CONTEXT ---\n" + strings.Repeat("x", 400)
	got := tokenReport("which stage?", prompt)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "Estimated prompt tokens: "))
	assert.Contains(t, lines[1], "system")
	assert.Contains(t, lines[2], "context")
	assert.Equal(t, "  question 3", lines[3])
}

func TestREPL(t *testing.T) {
	c := testConfig(fakeMonday(t))
	// a dry run earlier in the process must not leak into the session
	_, err := run(t, c, "chat", "--dry-run", "warm up")
	require.NoError(t, err)
	resetFlags(t)
	require.False(t, chatDryRun)
	chatPlain = true
	a, closeFn, err := newAgent(context.Background())
	require.NoError(t, err)
	defer closeFn()

	var out bytes.Buffer
	in := strings.NewReader("\nfirst question\n/refresh\nexit\nnever read\n")
	require.NoError(t, repl(context.Background(), a, in, &out))
	s := out.String()
	assert.Contains(t, s, agent.MsgNoRuntime)
	assert.Contains(t, s, agent.MsgRefreshed)
	assert.NotContains(t, s, "never read")
}

func TestBoardsCommand(t *testing.T) {
	c := testConfig(fakeMonday(t))
	out, err := run(t, c, "boards")
	require.NoError(t, err)
	assert.Contains(t, out, "Work Orders Tracker")

	out, err = run(t, c, "boards", "--find", "DEAL")
	require.NoError(t, err)
	assert.Equal(t, "D1\tDeals\n", out)

	_, err = run(t, c, "boards", "--find", "invoices")
	assert.Error(t, err)

	out, err = run(t, c, "boards", "--columns", "D1")
	require.NoError(t, err)
	assert.Contains(t, out, "stage")
}

func TestStatusCommand(t *testing.T) {
	c := testConfig(fakeMonday(t))
	out, err := run(t, c, "status")
	require.NoError(t, err)
	var h agent.HealthStatus
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	assert.Equal(t, "connected", h.Monday.Status)
	assert.Equal(t, 2, h.Monday.BoardsFound)
	assert.False(t, h.LLMConfigured)
}

func TestCommandsNeedConfig(t *testing.T) {
	_, err := run(t, nil, "report")
	assert.Error(t, err)
}

func TestBuildStore(t *testing.T) {
	c := testConfig("")
	s, closeFn, err := buildStore(context.Background(), c)
	require.NoError(t, err)
	closeFn()
	assert.IsType(t, &cache.MemoryStore{}, s)

	mr := miniredis.RunT(t)
	c.CacheBackend = cfgpkg.CacheRedis
	c.RedisURL = "redis://" + mr.Addr()
	s, closeFn, err = buildStore(context.Background(), c)
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &cache.RedisStore{}, s)

	c.RedisURL = "redis://127.0.0.1:1"
	_, _, err = buildStore(context.Background(), c)
	assert.Error(t, err)
}

func TestBuildRuntime(t *testing.T) {
	c := testConfig("")
	rt, err := buildRuntime(context.Background(), c, logger)
	require.NoError(t, err)
	assert.Nil(t, rt, "no key means no runtime")

	c.LLMAPIKey = "k"
	c.LLMProvider = "openrouter"
	rt, err = buildRuntime(context.Background(), c, logger)
	require.NoError(t, err)
	assert.NotNil(t, rt)

	c.LLMProvider = "ollama"
	_, err = buildRuntime(context.Background(), c, logger)
	assert.Error(t, err)
}

func TestCredentialWarnings(t *testing.T) {
	c := testConfig("")
	c.MondayAPIKey = ""
	assert.Equal(t, []string{
		"⚠ Warning: MONDAY_API_KEY not configured; board data will be unavailable",
		"⚠ Warning: LLM API key not configured; chat answers are disabled",
	}, credentialWarnings(c))

	c.MondayAPIKey, c.LLMAPIKey, c.DealsBoardID = "mk", "lk", ""
	assert.Empty(t, credentialWarnings(c), "board ids are reported as caveats instead")
}

func TestSetConfigValue(t *testing.T) {
	c := &cfgpkg.Global{}
	require.NoError(t, setConfigValue(c, "deals_board_id", "42"))
	require.NoError(t, setConfigValue(c, "cache_ttl_sec", "60"))
	require.NoError(t, setConfigValue(c, "llm_provider", "OpenRouter"))
	require.NoError(t, setConfigValue(c, "temperature", "0.2"))
	assert.Equal(t, "42", c.DealsBoardID)
	assert.Equal(t, 60, c.CacheTTLSec)
	assert.Equal(t, "openrouter", c.LLMProvider)
	assert.InDelta(t, 0.2, c.Temperature, 1e-9)

	assert.Error(t, setConfigValue(c, "page_size", "-1"))
	assert.Error(t, setConfigValue(c, "llm_provider", "ollama"))
	assert.Error(t, setConfigValue(c, "nope", "x"))
}

func TestShowConfigMasksSecrets(t *testing.T) {
	c := testConfig("https://api.monday.com/v2")
	c.MondayAPIKey = "eyJhbGciOiJIUzI1NiJ9"
	var b bytes.Buffer
	showConfig(&b, c)
	assert.Contains(t, b.String(), "monday_api_key: eyJ****iJ9\n")
	assert.NotContains(t, b.String(), c.MondayAPIKey)

	c.RedisURL = "redis://:s3cret@cache.internal:6379/0"
	b.Reset()
	showConfig(&b, c)
	assert.Contains(t, b.String(), "redis_url: red****9/0\n")
	assert.NotContains(t, b.String(), "s3cret")
	assert.Equal(t, "******", mask("abc"))
	assert.Equal(t, "", mask(""))
}

func TestRenderMarkdownPlain(t *testing.T) {
	var b bytes.Buffer
	require.NoError(t, renderMarkdown(&b, "**bold**", true))
	assert.Equal(t, "**bold**\n", b.String())

	b.Reset()
	require.NoError(t, renderMarkdown(&b, "# Title", false))
	assert.Contains(t, b.String(), "Title")
}
