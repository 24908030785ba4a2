// Package openai provides a model.Client implementation backed by the
// OpenAI Chat Completions API via github.com/openai/openai-go.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

// ChatClient captures the subset of the openai-go client used by the
// adapter, satisfied by openai.Client's Chat.Completions service so callers
// can substitute a mock in tests.
type ChatClient interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	DefaultModel string
	Temperature  float64
}

// Client implements model.Client via the OpenAI Chat Completions API.
type Client struct {
	chat         ChatClient
	defaultModel string
	temperature  float64
}

// New builds an OpenAI-backed model client from the provided options.
func New(chat ChatClient, opts Options) (*Client, error) {
	if chat == nil {
		return nil, errors.New("openai: client is required")
	}
	if strings.TrimSpace(opts.DefaultModel) == "" {
		return nil, errors.New("openai: default model is required")
	}
	return &Client{chat: chat, defaultModel: opts.DefaultModel, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default openai-go HTTP client,
// reading apiKey explicitly rather than from the environment.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("openai: api key is required")
	}
	c := openai.NewClient(option.WithAPIKey(apiKey))
	return New(&c.Chat.Completions, Options{DefaultModel: defaultModel})
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, messages []model.Message, modelName string) (string, model.Usage, error) {
	if len(messages) == 0 {
		return "", model.Usage{}, errors.New("openai: messages are required")
	}
	modelID := modelName
	if modelID == "" {
		modelID = c.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case model.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    modelID,
		Messages: msgs,
	}
	if c.temperature > 0 {
		params.Temperature = openai.Float(c.temperature)
	}

	resp, err := c.chat.New(ctx, params)
	if err != nil {
		return "", model.Usage{}, fmt.Errorf("openai chat completions: %w", err)
	}
	return translateResponse(resp)
}

func translateResponse(resp *openai.ChatCompletion) (string, model.Usage, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", model.Usage{}, errors.New("openai: empty response")
	}
	text := resp.Choices[0].Message.Content
	usage := model.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	return text, usage, nil
}
