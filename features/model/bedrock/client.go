// Package bedrock provides a model.Client implementation backed by the AWS
// Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

// RuntimeClient mirrors the subset of the AWS Bedrock runtime client
// required by the adapter, matching *bedrockruntime.Client so callers can
// pass either the real client or a mock in tests.
type RuntimeClient interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the Bedrock adapter.
type Options struct {
	DefaultModel string
	MaxTokens    int
	Temperature  float32
}

// Client implements model.Client on top of AWS Bedrock Converse.
type Client struct {
	runtime      RuntimeClient
	defaultModel string
	maxTokens    int32
	temperature  float32
}

// New builds a Bedrock-backed model client.
func New(runtime RuntimeClient, opts Options) (*Client, error) {
	if runtime == nil {
		return nil, errors.New("bedrock: runtime client is required")
	}
	if opts.DefaultModel == "" {
		return nil, errors.New("bedrock: default model identifier is required")
	}
	return &Client{
		runtime:      runtime,
		defaultModel: opts.DefaultModel,
		maxTokens:    int32(opts.MaxTokens),
		temperature:  opts.Temperature,
	}, nil
}

// Call implements model.Client.
func (c *Client) Call(ctx context.Context, messages []model.Message, modelName string) (string, model.Usage, error) {
	if len(messages) == 0 {
		return "", model.Usage{}, errors.New("bedrock: messages are required")
	}
	modelID := modelName
	if modelID == "" {
		modelID = c.defaultModel
	}

	var system []brtypes.SystemContentBlock
	var conversation []brtypes.Message
	for _, m := range messages {
		if m.Role == model.RoleSystem {
			system = append(system, &brtypes.SystemContentBlockMemberText{Value: m.Content})
			continue
		}
		role := brtypes.ConversationRoleUser
		if m.Role == model.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		conversation = append(conversation, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: m.Content}},
		})
	}
	if len(conversation) == 0 {
		return "", model.Usage{}, errors.New("bedrock: at least one user/assistant message is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  &modelID,
		Messages: conversation,
		System:   system,
	}
	if c.maxTokens > 0 || c.temperature > 0 {
		cfg := &brtypes.InferenceConfiguration{}
		if c.maxTokens > 0 {
			cfg.MaxTokens = &c.maxTokens
		}
		if c.temperature > 0 {
			cfg.Temperature = &c.temperature
		}
		input.InferenceConfig = cfg
	}

	output, err := c.runtime.Converse(ctx, input)
	if err != nil {
		return "", model.Usage{}, fmt.Errorf("bedrock converse: %w", err)
	}
	return translateResponse(output)
}

func translateResponse(output *bedrockruntime.ConverseOutput) (string, model.Usage, error) {
	if output == nil {
		return "", model.Usage{}, errors.New("bedrock: response is nil")
	}
	var text string
	if msg, ok := output.Output.(*brtypes.ConverseOutputMemberMessage); ok {
		for _, block := range msg.Value.Content {
			if v, ok := block.(*brtypes.ContentBlockMemberText); ok {
				text += v.Value
			}
		}
	}
	var usage model.Usage
	if output.Usage != nil {
		usage = model.Usage{
			PromptTokens:     int(ptrValue(output.Usage.InputTokens)),
			CompletionTokens: int(ptrValue(output.Usage.OutputTokens)),
			TotalTokens:      int(ptrValue(output.Usage.TotalTokens)),
		}
	}
	return text, usage, nil
}

func ptrValue(p *int32) int32 {
	if p == nil {
		return 0
	}
	return *p
}
