// Package agent answers questions about the Work Orders and Deals boards by
// pairing a cleaned data summary with an LLM runtime.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KaramelBytes/boardsight/internal/ai"
	"github.com/KaramelBytes/boardsight/internal/analysis"
	"github.com/KaramelBytes/boardsight/internal/cache"
	"github.com/KaramelBytes/boardsight/internal/config"
	"github.com/KaramelBytes/boardsight/internal/logging"
	"github.com/KaramelBytes/boardsight/internal/monday"
	"github.com/KaramelBytes/boardsight/internal/report"
	"github.com/KaramelBytes/boardsight/internal/utils"
)

// User-facing messages.
const (
	MsgNoRuntime   = "⚠️ Gemini API key not configured. Please set GEMINI_API_KEY environment variable."
	MsgRateLimited = "⚠️ API rate limit reached. Please wait a moment and try again."
	MsgRefreshed   = "✅ Data cache cleared. Next query will fetch fresh data from Monday.com."
)

// SystemPrompt is the fixed instruction sent with every chat call.
const SystemPrompt = `You are a Business Intelligence assistant for a company that uses Monday.com to manage Work Orders and Deals.

Your role:
- Answer founder-level business questions clearly and concisely
- Provide insights about revenue, pipeline health, sectoral performance, and operational metrics
- When data is incomplete or messy, acknowledge it and provide the best available answer
- Ask clarifying questions when a query is ambiguous
- Use tables, bullet points, and bold text for readability
- Include specific numbers and percentages when possible
- Always mention data caveats (e.g., "Note: 15% of deal values are missing")

You receive structured data summaries from the system. Use them to answer the user's question.
Do NOT make up numbers. Only use what is provided in the data context.
Format monetary values with ₹ symbol and commas.
When you don't have enough data to answer, say so clearly and suggest what data might help.`

// DefaultModel is used when Options.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Source fetches boards. *monday.Client implements it.
type Source interface {
	BoardItems(ctx context.Context, boardID string, pageSize int) (*monday.Board, error)
	FindBoardByName(ctx context.Context, name string) (*monday.Board, error)
	HealthCheck(ctx context.Context) monday.Health
}

// Options configures New. Source and Store are required; a nil Runtime makes
// Chat answer with MsgNoRuntime.
type Options struct {
	Source            Source
	Store             cache.Store
	Runtime           ai.Runtime
	WorkOrdersBoardID string
	DealsBoardID      string
	PageSize          int
	HistoryLimit      int
	Model             string
	MaxTokens         int
	Temperature       float64
	// MaxContextTokens truncates the data context when positive.
	MaxContextTokens int
	Logger           *zap.Logger
}

// Agent holds one conversation session.
type Agent struct {
	source           Source
	store            cache.Store
	runtime          ai.Runtime
	workID           string
	dealsID          string
	pageSize         int
	model            string
	maxTokens        int
	temperature      float64
	maxContextTokens int
	history          *History
	sessionID        string
	logger           *zap.Logger
}

// New builds an Agent. It does not contact the API.
func New(o Options) (*Agent, error) {
	if o.Source == nil {
		return nil, errors.New("agent: board source is required")
	}
	if o.Store == nil {
		return nil, errors.New("agent: cache store is required")
	}
	if o.PageSize <= 0 {
		o.PageSize = monday.DefaultPageSize
	}
	if o.Model == "" {
		o.Model = DefaultModel
	}
	id := uuid.NewString()
	return &Agent{
		source:           o.Source,
		store:            o.Store,
		runtime:          o.Runtime,
		workID:           o.WorkOrdersBoardID,
		dealsID:          o.DealsBoardID,
		pageSize:         o.PageSize,
		model:            o.Model,
		maxTokens:        o.MaxTokens,
		temperature:      o.Temperature,
		maxContextTokens: o.MaxContextTokens,
		history:          NewHistory(o.HistoryLimit),
		sessionID:        id,
		logger:           logging.OrNop(o.Logger).Named("agent").With(zap.String("session", id)),
	}, nil
}

// SessionID identifies this conversation in logs.
func (a *Agent) SessionID() string { return a.sessionID }

// BoardIDs returns the Work Orders and Deals board ids in use.
func (a *Agent) BoardIDs() (work, deals string) { return a.workID, a.dealsID }

// History exposes the conversation.
func (a *Agent) History() *History { return a.history }

// DiscoverBoards fills unset board ids by searching board names. Lookup
// failures are logged and otherwise ignored.
func (a *Agent) DiscoverBoards(ctx context.Context) {
	if a.workID == "" {
		a.workID = a.discover(ctx, "work order")
	}
	if a.dealsID == "" {
		a.dealsID = a.discover(ctx, "deal")
	}
}

func (a *Agent) discover(ctx context.Context, name string) string {
	b, err := a.source.FindBoardByName(ctx, name)
	if err != nil {
		a.logger.Debug("board discovery failed", zap.String("name", name), zap.Error(err))
		return ""
	}
	if b == nil {
		return ""
	}
	a.logger.Info("discovered board", zap.String("name", name), zap.String("board_id", b.ID), zap.String("title", b.Name))
	return b.ID
}

// LoadData returns the cleaned Work Orders and Deals tables plus caveats for
// boards that are unconfigured or failed to load. Tables are never nil.
func (a *Agent) LoadData(ctx context.Context) (work, deals *analysis.Table, caveats []string) {
	work, caveats = a.loadBoard(ctx, "Work Orders", "work_orders_board_id", a.workID, cache.WorkKey, caveats)
	deals, caveats = a.loadBoard(ctx, "Deals", "deals_board_id", a.dealsID, cache.DealsKey, caveats)
	return work, deals, caveats
}

func (a *Agent) loadBoard(ctx context.Context, label, setting, boardID string, key func(string) string, caveats []string) (*analysis.Table, []string) {
	if boardID == "" {
		err := config.NotConfigured(setting, label+" board ID")
		a.logger.Debug("board skipped", zap.String("setting", err.Key))
		return &analysis.Table{}, append(caveats, err.Error())
	}
	k := key(boardID)
	t, ok, err := a.store.Get(ctx, k)
	if err != nil {
		a.logger.Warn("cache read failed", zap.String("key", k), zap.Error(err))
	}
	if ok && t != nil {
		a.logger.Debug("cache hit", zap.String("key", k))
		return t, caveats
	}
	b, err := a.source.BoardItems(ctx, boardID, a.pageSize)
	if err != nil {
		a.logger.Warn("board load failed", zap.String("board", label), zap.Error(err))
		return &analysis.Table{}, append(caveats, fmt.Sprintf("%s board error: %v", label, err))
	}
	t = analysis.Clean(analysis.FromBoard(b))
	if err := a.store.Set(ctx, k, t); err != nil {
		a.logger.Warn("cache write failed", zap.String("key", k), zap.Error(err))
	}
	return t, caveats
}

// Prompt loads the data and returns the augmented user turn Chat would send,
// without calling the model.
func (a *Agent) Prompt(ctx context.Context, question string) string {
	work, deals, caveats := a.LoadData(ctx)
	return a.augment(question, work, deals, caveats)
}

func (a *Agent) augment(question string, work, deals *analysis.Table, caveats []string) string {
	data := analysis.BuildContext(
		analysis.Dataset{Label: "Deals", Table: deals},
		analysis.Dataset{Label: "Work Orders", Table: work},
	)
	if a.maxContextTokens > 0 && utils.CountTokens(data) > a.maxContextTokens {
		a.logger.Info("truncating data context",
			zap.Int("tokens", utils.CountTokens(data)),
			zap.Int("limit", a.maxContextTokens))
		data = utils.TruncateToTokenLimit(data, a.maxContextTokens)
	}
	var notes string
	if len(caveats) > 0 {
		notes = "\n⚠️ Data loading issues:\n- " + strings.Join(caveats, "\n- ")
	}
	return fmt.Sprintf("User Question: %s\n\n--- DATA CONTEXT ---\n%s\n%s\n--- END DATA CONTEXT ---\n\n"+
		"Answer the user's question based on the data above. Be specific, use numbers, and mention any data quality caveats.",
		question, data, notes)
}

// Chat answers one question. Failures are reported in the returned text; a
// failed call leaves the history as it was before the question.
func (a *Agent) Chat(ctx context.Context, question string) string {
	if a.runtime == nil {
		return MsgNoRuntime
	}
	work, deals, caveats := a.LoadData(ctx)
	a.history.Append(ai.RoleUser, a.augment(question, work, deals, caveats))

	resp, err := a.runtime.Generate(ctx, ai.GenerateRequest{
		Model:       a.model,
		System:      SystemPrompt,
		Messages:    a.history.Messages(),
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	})
	if err != nil {
		a.history.DropLast()
		a.logger.Warn("generation failed", zap.Error(err))
		if ai.IsRateLimited(err) {
			return MsgRateLimited
		}
		return fmt.Sprintf("❌ Error generating response: %v", err)
	}
	reply := resp.Text()
	a.history.Append(ai.RoleAssistant, reply)
	a.history.Trim()
	a.logger.Debug("generation done",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("history", a.history.Len()))
	return reply
}

// Report renders the leadership report, with load caveats appended as a
// quoted note.
func (a *Agent) Report(ctx context.Context) string {
	work, deals, caveats := a.LoadData(ctx)
	out := report.Generate(work, deals)
	if len(caveats) > 0 {
		out += "\n\n> ⚠️ " + strings.Join(caveats, " | ")
	}
	return out
}

// Refresh drops every cached table.
func (a *Agent) Refresh(ctx context.Context) (string, error) {
	if err := a.store.Invalidate(ctx); err != nil {
		return "", fmt.Errorf("invalidate cache: %w", err)
	}
	return MsgRefreshed, nil
}

// HealthStatus summarises connectivity and configuration.
type HealthStatus struct {
	Status          string        `json:"status"`
	Monday          monday.Health `json:"monday"`
	LLMConfigured   bool          `json:"llm_configured"`
	WorkOrdersBoard string        `json:"work_orders_board"`
	DealsBoard      string        `json:"deals_board"`
	Session         string        `json:"session"`
}

// Health checks the API and reports the agent's configuration.
func (a *Agent) Health(ctx context.Context) HealthStatus {
	orNot := func(s string) string {
		if s == "" {
			return "not configured"
		}
		return s
	}
	return HealthStatus{
		Status:          "healthy",
		Monday:          a.source.HealthCheck(ctx),
		LLMConfigured:   a.runtime != nil,
		WorkOrdersBoard: orNot(a.workID),
		DealsBoard:      orNot(a.dealsID),
		Session:         a.sessionID,
	}
}
