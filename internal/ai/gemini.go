package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Gemini is a Runtime backed by the Gemini API.
type Gemini struct {
	client           *genai.Client
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleep            func(context.Context, time.Duration) error
	logger           *zap.Logger
}

// GeminiOptions configures NewGemini. BaseURL is only set in tests.
type GeminiOptions struct {
	APIKey      string
	BaseURL     string
	HTTPTimeout time.Duration
	RetryMax    int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *zap.Logger
}

// NewGemini builds a Gemini runtime. It fails when no API key is given.
func NewGemini(ctx context.Context, o GeminiOptions) (*Gemini, error) {
	if o.APIKey == "" {
		return nil, errors.New("GEMINI_API_KEY is missing")
	}
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = 60 * time.Second
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 3
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 500 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 4 * time.Second
	}
	cfg := &genai.ClientConfig{
		APIKey:     o.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: o.HTTPTimeout},
	}
	if o.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.BaseURL}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	logger := zap.NewNop()
	if o.Logger != nil {
		logger = o.Logger.Named("gemini")
	}
	return &Gemini{
		client:           client,
		retryMaxAttempts: o.RetryMax,
		retryBaseDelay:   o.BaseDelay,
		retryMaxDelay:    o.MaxDelay,
		sleep:            sleepContext,
		logger:           logger,
	}, nil
}

// Generate sends the history as alternating user/model contents with the
// system instruction set on the request config.
func (g *Gemini) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	if req.Model == "" {
		return nil, errors.New("model cannot be empty")
	}
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		case RoleSystem:
			// carried by SystemInstruction
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	cfg := &genai.GenerateContentConfig{}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.Temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}

	backoff := g.retryBaseDelay
	var lastErr error
	for attempt := 1; attempt <= g.retryMaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
		if err == nil {
			return geminiResponse(resp), nil
		}
		lastErr = classifyGeminiError(err)
		if !retryableGemini(err) || attempt == g.retryMaxAttempts {
			break
		}
		wait := withJitter(backoff)
		if wait > g.retryMaxDelay {
			wait = g.retryMaxDelay
		}
		g.logger.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if err := g.sleep(ctx, wait); err != nil {
			return nil, err
		}
		backoff *= 2
	}
	return nil, lastErr
}

func geminiResponse(resp *genai.GenerateContentResponse) *GenerateResponse {
	out := &GenerateResponse{
		ID:      resp.ResponseID,
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: resp.Text()}}},
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return out
}

func retryableGemini(err error) bool {
	if apiErr, ok := asGenaiError(err); ok {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return isRetryableNetErr(err)
}

func asGenaiError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}

// classifyGeminiError maps SDK errors onto this package's typed errors.
func classifyGeminiError(err error) error {
	gerr, ok := asGenaiError(err)
	if !ok {
		return err
	}
	apiErr := &APIError{StatusCode: gerr.Code, Code: gerr.Status, Message: gerr.Message}
	switch {
	case gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden:
		return &AuthError{APIError: apiErr}
	case gerr.Code == http.StatusTooManyRequests:
		if strings.Contains(strings.ToLower(gerr.Message), "quota") {
			return &QuotaExceededError{APIError: apiErr}
		}
		return &RateLimitError{APIError: apiErr}
	case gerr.Code == http.StatusNotFound:
		return &ModelNotFoundError{APIError: apiErr}
	case gerr.Code == http.StatusBadRequest:
		return &BadRequestError{APIError: apiErr}
	case gerr.Code >= 500:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}
