package extract

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/pkg/anthropic"
	"github.com/sells-group/listing-extract/pkg/gemini"
)

// Provider is the external text-generation capability: submit a prompt,
// obtain text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiProvider completes prompts with the Gemini API.
type GeminiProvider struct {
	client gemini.Client
	model  string
}

// NewGeminiProvider wraps a Gemini client.
func NewGeminiProvider(client gemini.Client, model string) *GeminiProvider {
	return &GeminiProvider{client: client, model: model}
}

func (p *GeminiProvider) Name() string { return config.ProviderGemini }

func (p *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.GenerateText(ctx, gemini.GenerateRequest{Model: p.model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(p.model)
	return resp.Text, nil
}

// AnthropicProvider completes prompts with the Anthropic Messages API.
type AnthropicProvider struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropicProvider wraps an Anthropic client.
func NewAnthropicProvider(client anthropic.Client, model string, maxTokens int64) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model, maxTokens: maxTokens}
}

func (p *AnthropicProvider) Name() string { return config.ProviderAnthropic }

func (p *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: p.maxTokens,
		Prompt:    prompt,
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(p.model)

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", eris.Errorf("anthropic: empty response (stop reason %q)", resp.StopReason)
	}
	return text, nil
}

// NewProvider builds the provider selected by cfg.Extract.Provider.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Extract.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, cfg.Gemini.Key, cfg.Gemini.BaseURL)
		if err != nil {
			return nil, err
		}
		return NewGeminiProvider(client, cfg.Gemini.Model), nil
	case config.ProviderAnthropic:
		client := anthropic.NewClient(cfg.Anthropic.Key)
		return NewAnthropicProvider(client, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens), nil
	default:
		return nil, &config.ConfigError{Field: "extract.provider", Reason: "unsupported provider " + cfg.Extract.Provider}
	}
}
