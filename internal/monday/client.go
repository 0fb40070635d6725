package monday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultURL is the public GraphQL endpoint.
const DefaultURL = "https://api.monday.com/v2"

// DefaultPageSize is the largest page the items_page API accepts.
const DefaultPageSize = 500

type Client struct {
	httpClient  *http.Client
	apiKey      string
	endpoint    string
	apiVersion  string
	maxAttempts int
	baseDelay   time.Duration
	sleep       func(context.Context, time.Duration) error
	logger      *zap.Logger
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// NewClient returns a client for the public endpoint. Zero values select the
// defaults: 30s HTTP timeout, 3 attempts, 2s linear backoff unit.
func NewClient(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay time.Duration) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 30 * time.Second
	}
	if retryMax <= 0 {
		retryMax = 3
	}
	if baseDelay <= 0 {
		baseDelay = 2 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: httpTimeout},
		apiKey:      apiKey,
		endpoint:    DefaultURL,
		maxAttempts: retryMax,
		baseDelay:   baseDelay,
		sleep:       sleepContext,
		logger:      zap.NewNop(),
	}
}

// NewClientWithURL allows injecting a custom endpoint (used in tests).
func NewClientWithURL(apiKey string, httpTimeout time.Duration, retryMax int, baseDelay time.Duration, endpoint string) *Client {
	c := NewClient(apiKey, httpTimeout, retryMax, baseDelay)
	if endpoint != "" {
		c.endpoint = endpoint
	}
	return c
}

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(l *zap.Logger) {
	if l != nil {
		c.logger = l.Named("monday")
	}
}

// SetAPIVersion pins the API-Version header. Empty means the server default.
func (c *Client) SetAPIVersion(v string) { c.apiVersion = v }

const itemFields = `
	id
	name
	group { id title }
	column_values { id text value type }`

const boardsQuery = `query {
	boards(limit: 50) {
		id
		name
		board_kind
		columns { id title type }
	}
}`

const boardColumnsQuery = `query ($ids: [ID!]) {
	boards(ids: $ids) {
		columns { id title type settings_str }
	}
}`

const firstPageQuery = `query ($ids: [ID!], $limit: Int!) {
	boards(ids: $ids) {
		id
		name
		columns { id title type }
		items_page(limit: $limit) {
			cursor
			items {` + itemFields + `
			}
		}
	}
}`

const nextPageQuery = `query ($cursor: String!, $limit: Int!) {
	next_items_page(limit: $limit, cursor: $cursor) {
		cursor
		items {` + itemFields + `
		}
	}
}`

// Boards fetches board metadata for every board the token can see.
func (c *Client) Boards(ctx context.Context) ([]Board, error) {
	var out struct {
		Boards []Board `json:"boards"`
	}
	if err := c.execute(ctx, boardsQuery, nil, &out); err != nil {
		return nil, err
	}
	return out.Boards, nil
}

// FindBoardByName returns the first board whose name contains name,
// case-insensitively, or nil when none matches.
func (c *Client) FindBoardByName(ctx context.Context, name string) (*Board, error) {
	boards, err := c.Boards(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(name)
	for i := range boards {
		if strings.Contains(strings.ToLower(boards[i].Name), needle) {
			return &boards[i], nil
		}
	}
	return nil, nil
}

// BoardColumns fetches the column schema of one board.
func (c *Client) BoardColumns(ctx context.Context, boardID string) ([]Column, error) {
	var out struct {
		Boards []struct {
			Columns []Column `json:"columns"`
		} `json:"boards"`
	}
	if err := c.execute(ctx, boardColumnsQuery, map[string]any{"ids": []string{boardID}}, &out); err != nil {
		return nil, err
	}
	if len(out.Boards) == 0 {
		return nil, nil
	}
	return out.Boards[0].Columns, nil
}

// BoardItems fetches a board with all of its items, following the page cursor
// until the API stops returning one. A board missing from the response yields
// an empty board.
func (c *Client) BoardItems(ctx context.Context, boardID string, pageSize int) (*Board, error) {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}
	var first struct {
		Boards []struct {
			Board
			ItemsPage *itemsPage `json:"items_page"`
		} `json:"boards"`
	}
	vars := map[string]any{"ids": []string{boardID}, "limit": pageSize}
	if err := c.execute(ctx, firstPageQuery, vars, &first); err != nil {
		return nil, err
	}
	if len(first.Boards) == 0 || first.Boards[0].ItemsPage == nil {
		c.logger.Warn("board missing from response", zap.String("board_id", boardID))
		return &Board{ID: boardID}, nil
	}
	board := first.Boards[0].Board
	page := first.Boards[0].ItemsPage
	board.Items = append(board.Items, page.Items...)
	cursor := page.Cursor

	pages := 1
	for cursor != nil && *cursor != "" {
		var next struct {
			NextItemsPage *itemsPage `json:"next_items_page"`
		}
		vars := map[string]any{"cursor": *cursor, "limit": pageSize}
		if err := c.execute(ctx, nextPageQuery, vars, &next); err != nil {
			return nil, err
		}
		if next.NextItemsPage == nil {
			break
		}
		board.Items = append(board.Items, next.NextItemsPage.Items...)
		cursor = next.NextItemsPage.Cursor
		pages++
	}
	c.logger.Debug("fetched board items",
		zap.String("board_id", boardID),
		zap.Int("items", len(board.Items)),
		zap.Int("pages", pages))
	return &board, nil
}

// HealthCheck reports whether board metadata can be fetched.
func (c *Client) HealthCheck(ctx context.Context) Health {
	boards, err := c.Boards(ctx)
	if err != nil {
		return Health{Status: "disconnected", Error: err.Error()}
	}
	return Health{Status: "connected", BoardsFound: len(boards)}
}

// execute runs one logical request under the retry policy and decodes the
// data member into out.
func (c *Client) execute(ctx context.Context, query string, vars map[string]any, out any) error {
	if c.apiKey == "" {
		return &AuthError{Reason: "MONDAY_API_KEY is not set"}
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	var lastReason string
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		data, reason, err := c.do(ctx, payload)
		if err == nil {
			if out == nil || len(data) == 0 || string(data) == "null" {
				return nil
			}
			if err := json.Unmarshal(data, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
		if reason == "" {
			return err
		}
		lastErr, lastReason = err, reason
		c.logger.Warn("monday request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
			zap.String("reason", reason))
		if attempt < c.maxAttempts {
			if err := c.sleep(ctx, c.baseDelay*time.Duration(attempt)); err != nil {
				return err
			}
		}
	}
	return &TransportError{Attempts: c.maxAttempts, Reason: lastReason, Err: lastErr}
}

// do performs a single HTTP round trip. A non-empty reason marks the failure
// as retryable.
func (c *Client) do(ctx context.Context, payload []byte) (json.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.apiVersion != "" {
		req.Header.Set("API-Version", c.apiVersion)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if isTimeout(err) {
			return nil, "request timed out", fmt.Errorf("http request: %w", err)
		}
		return nil, "connection failed", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		if isTimeout(err) {
			return nil, "request timed out", fmt.Errorf("read response: %w", err)
		}
		return nil, "connection failed", fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)
	msgs := env.messages()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, "rate limited", &RemoteError{StatusCode: resp.StatusCode, Messages: msgs, RequestID: requestID(resp)}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, "", &AuthError{StatusCode: resp.StatusCode, Reason: strings.Join(msgs, "; ")}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		if len(msgs) == 0 {
			msgs = []string{http.StatusText(resp.StatusCode)}
		}
		return nil, "", &RemoteError{StatusCode: resp.StatusCode, Messages: msgs, RequestID: requestID(resp)}
	}
	if decodeErr != nil {
		return nil, "", fmt.Errorf("decode response: %w", decodeErr)
	}
	if len(msgs) > 0 {
		rerr := &RemoteError{Messages: msgs, RequestID: requestID(resp)}
		joined := strings.Join(msgs, "; ")
		if retryableMessage(joined) {
			return nil, joined, rerr
		}
		return nil, "", rerr
	}
	return env.Data, "", nil
}

func (e *envelope) messages() []string {
	var out []string
	for _, ge := range e.Errors {
		if ge.Message != "" {
			out = append(out, ge.Message)
		}
	}
	if len(out) == 0 && e.ErrorMessage != "" {
		out = append(out, e.ErrorMessage)
	}
	return out
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// requestID pulls a best-effort request ID from common headers.
func requestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "Request-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
