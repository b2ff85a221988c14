package anthropic

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestCreateMessage_MockClient(t *testing.T) {
	mc := new(MockClient)
	ctx := context.Background()

	req := MessageRequest{
		Model:     "claude-haiku-4-5-20251001",
		MaxTokens: 256,
		Prompt:    "Here is a dataset:",
	}
	mc.On("CreateMessage", ctx, req).Return(&MessageResponse{ID: "msg_1", Text: "[]"}, nil)

	resp, err := mc.CreateMessage(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	mc.AssertExpectations(t)
}

func TestFromSDKMessage_JoinsTextBlocks(t *testing.T) {
	var msg sdk.Message
	require.NoError(t, json.Unmarshal([]byte(`{
		"id": "msg_2",
		"model": "claude-haiku-4-5-20251001",
		"stop_reason": "end_turn",
		"content": [
			{"type": "text", "text": "[{\"a\":"},
			{"type": "tool_use", "id": "t1", "name": "noop", "input": {}},
			{"type": "text", "text": "1}]"}
		],
		"usage": {"input_tokens": 3, "output_tokens": 4}
	}`), &msg))

	resp := fromSDKMessage(&msg)
	assert.Equal(t, "msg_2", resp.ID)
	assert.Equal(t, `[{"a":1}]`, resp.Text)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, TokenUsage{InputTokens: 3, OutputTokens: 4}, resp.Usage)
}

func TestEstimateCost_Haiku(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 6.0, u.EstimateCost("claude-haiku-4-5-20251001"), 0.0001)
}

func TestEstimateCost_Sonnet(t *testing.T) {
	u := TokenUsage{InputTokens: 500_000, OutputTokens: 100_000}
	assert.InDelta(t, 3.0, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.0001)
}

func TestEstimateCost_UnknownModel(t *testing.T) {
	u := TokenUsage{InputTokens: 1000, OutputTokens: 1000}
	assert.Zero(t, u.EstimateCost("unknown"))
}

func TestEstimateCost_ZeroTokens(t *testing.T) {
	assert.Zero(t, TokenUsage{}.EstimateCost("claude-haiku-4-5-20251001"))
}

func TestLogCost_DoesNotPanic(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}
	assert.NotPanics(t, func() { u.LogCost("claude-haiku-4-5-20251001", zap.Int("batch_start", 4)) })
}
