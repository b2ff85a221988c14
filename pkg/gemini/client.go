// Package gemini wraps the Google Gemini generate-content API behind a small
// text-completion interface.
package gemini

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
	"go.uber.org/zap"

	"github.com/sells-group/listing-extract/internal/resilience"
)

// Client defines the Gemini operations used for extraction.
type Client interface {
	GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single-turn text generation request.
type GenerateRequest struct {
	Model  string
	Prompt string
}

// GenerateResponse carries the generated text and token usage.
type GenerateResponse struct {
	Text         string
	FinishReason string
	Usage        TokenUsage
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int32
	CandidatesTokens int32
	TotalTokens      int32
}

// Log writes the usage at debug level.
func (u TokenUsage) Log(model string, fields ...zap.Field) {
	zap.L().Debug("gemini: usage",
		append([]zap.Field{
			zap.String("model", model),
			zap.Int32("prompt_tokens", u.PromptTokens),
			zap.Int32("candidates_tokens", u.CandidatesTokens),
			zap.Int32("total_tokens", u.TotalTokens),
		}, fields...)...,
	)
}

// ErrEmptyResponse is returned when the model answers with no text, for
// example when the candidate was blocked.
var ErrEmptyResponse = errors.New("gemini: empty response")

// sdkClient implements Client using google.golang.org/genai.
type sdkClient struct {
	client *genai.Client
}

// NewClient creates a Gemini API client. baseURL overrides the API endpoint
// when non-empty.
func NewClient(ctx context.Context, apiKey, baseURL string) (Client, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create client")
	}
	return &sdkClient{client: client}, nil
}

func (c *sdkClient) GenerateText(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), nil)
	if err != nil {
		return nil, classify(eris.Wrap(err, "gemini: generate content"), err)
	}

	out := &GenerateResponse{Text: strings.TrimSpace(resp.Text())}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		out.FinishReason = string(resp.Candidates[0].FinishReason)
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = TokenUsage{
			PromptTokens:     u.PromptTokenCount,
			CandidatesTokens: u.CandidatesTokenCount,
			TotalTokens:      u.TotalTokenCount,
		}
	}
	if out.Text == "" {
		return nil, eris.Wrapf(ErrEmptyResponse, "gemini: finish reason %q", out.FinishReason)
	}
	return out, nil
}

// classify marks wrapped as transient when the API answered with a retryable
// status.
func classify(wrapped, cause error) error {
	var apiErr genai.APIError
	if errors.As(cause, &apiErr) {
		return resilience.ClassifyStatus(wrapped, apiErr.Code)
	}
	var apiErrPtr *genai.APIError
	if errors.As(cause, &apiErrPtr) {
		return resilience.ClassifyStatus(wrapped, apiErrPtr.Code)
	}
	return wrapped
}
