// Package anthropic provides a model.Client implementation backed by the
// Anthropic Claude Messages API, translating the runtime's simple
// message-list contract into sdk.MessageNewParams calls.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

// MessagesClient captures the subset of the Anthropic SDK client used by the
// adapter, satisfied by *sdk.MessageService so callers can pass either a
// real client or a mock in tests.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	// DefaultModel is used when a call's modelName argument is empty.
	DefaultModel string
	// MaxTokens caps completion length; callers rarely need to vary this
	// per call in the agent loop.
	MaxTokens int
	Temperature float64
}

// Client implements model.Client on top of Anthropic Claude Messages.
type Client struct {
	msg          MessagesClient
	defaultModel string
	maxTokens    int
	temperature  float64
}

// New builds an Anthropic-backed model client.
func New(msg MessagesClient, opts Options) (*Client, error) {
	if msg == nil {
		return nil, errors.New("anthropic: client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("anthropic: default model identifier is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: msg, defaultModel: opts.DefaultModel, maxTokens: maxTokens, temperature: opts.Temperature}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client
// authenticated with apiKey; it returns an error when apiKey is empty.
func NewFromAPIKey(apiKey, defaultModel string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(&ac.Messages, Options{DefaultModel: defaultModel})
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, messages []model.Message, modelName string) (string, model.Usage, error) {
	if len(messages) == 0 {
		return "", model.Usage{}, errors.New("anthropic: messages are required")
	}
	modelID := modelName
	if modelID == "" {
		modelID = c.defaultModel
	}

	var system string
	var sdkMessages []sdk.MessageParam
	for _, m := range messages {
		switch m.Role {
		case model.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case model.RoleAssistant:
			sdkMessages = append(sdkMessages, sdk.NewAssistantMessage(sdk.NewTextBlock(m.Content)))
		default:
			sdkMessages = append(sdkMessages, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		}
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(modelID),
		MaxTokens: int64(c.maxTokens),
		Messages:  sdkMessages,
	}
	if system != "" {
		params.System = []sdk.TextBlockParam{{Text: system}}
	}
	if c.temperature > 0 {
		params.Temperature = sdk.Float(c.temperature)
	}

	msg, err := c.msg.New(ctx, params)
	if err != nil {
		return "", model.Usage{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateResponse(msg)
}

func translateResponse(msg *sdk.Message) (string, model.Usage, error) {
	if msg == nil {
		return "", model.Usage{}, errors.New("anthropic: empty response")
	}
	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	usage := model.Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
		TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
	}
	return b.String(), usage, nil
}
