package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-extract/internal/config"
	"github.com/sells-group/listing-extract/pkg/anthropic"
	"github.com/sells-group/listing-extract/pkg/gemini"
)

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) GenerateText(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.GenerateResponse), args.Error(1)
}

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func TestGeminiProvider_Complete(t *testing.T) {
	mc := new(mockGemini)
	mc.On("GenerateText", mock.Anything, gemini.GenerateRequest{Model: "gemini-1.5-flash", Prompt: "p"}).
		Return(&gemini.GenerateResponse{Text: "[]"}, nil)

	p := NewGeminiProvider(mc, "gemini-1.5-flash")
	text, err := p.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "[]", text)
	assert.Equal(t, config.ProviderGemini, p.Name())
	mc.AssertExpectations(t)
}

func TestGeminiProvider_Error(t *testing.T) {
	mc := new(mockGemini)
	mc.On("GenerateText", mock.Anything, mock.Anything).Return(nil, errors.New("gemini: generate content: 500"))

	_, err := NewGeminiProvider(mc, "m").Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "generate content")
}

func TestAnthropicProvider_Complete(t *testing.T) {
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, anthropic.MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 8192,
		Prompt:    "p",
	}).Return(&anthropic.MessageResponse{Text: "\n[{\"a\":1}]\n"}, nil)

	p := NewAnthropicProvider(mc, "claude-haiku-4-5-20251001", 8192)
	text, err := p.Complete(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, `[{"a":1}]`, text)
	assert.Equal(t, config.ProviderAnthropic, p.Name())
	mc.AssertExpectations(t)
}

func TestAnthropicProvider_EmptyText(t *testing.T) {
	mc := new(mockAnthropic)
	mc.On("CreateMessage", mock.Anything, mock.Anything).
		Return(&anthropic.MessageResponse{StopReason: "max_tokens"}, nil)

	_, err := NewAnthropicProvider(mc, "m", 16).Complete(context.Background(), "p")
	assert.ErrorContains(t, err, "max_tokens")
}

func TestNewProvider(t *testing.T) {
	cfg := &config.Config{}
	cfg.Extract.Provider = config.ProviderAnthropic
	cfg.Anthropic.Key = "sk-test"
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"

	p, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderAnthropic, p.Name())

	cfg.Extract.Provider = config.ProviderGemini
	cfg.Gemini.Key = "gem-test"
	cfg.Gemini.Model = "gemini-1.5-flash"
	p, err = NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.ProviderGemini, p.Name())

	cfg.Extract.Provider = "openai"
	_, err = NewProvider(context.Background(), cfg)
	var cfgErr *config.ConfigError
	assert.True(t, errors.As(err, &cfgErr))
}
