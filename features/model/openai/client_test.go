package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

var errBoom = errors.New("boom")

type stubChatClient struct {
	lastParams openai.ChatCompletionNewParams
	resp       *openai.ChatCompletion
	err        error
}

func (s *stubChatClient) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	s.lastParams = params
	return s.resp, s.err
}

func TestNewRejectsNilClient(t *testing.T) {
	t.Parallel()
	_, err := New(nil, Options{DefaultModel: "gpt-4o"})
	require.Error(t, err)
}

func TestNewRejectsEmptyDefaultModel(t *testing.T) {
	t.Parallel()
	_, err := New(&stubChatClient{}, Options{})
	require.Error(t, err)
}

func TestCallTranslatesResponseAndUsage(t *testing.T) {
	t.Parallel()

	stub := &stubChatClient{
		resp: &openai.ChatCompletion{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "Paris"}},
			},
			Usage: openai.CompletionUsage{PromptTokens: 12, CompletionTokens: 4, TotalTokens: 16},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	text, usage, err := cl.Call(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "what is the capital of france?"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "Paris", text)
	require.Equal(t, 12, usage.PromptTokens)
	require.Equal(t, 4, usage.CompletionTokens)
	require.Equal(t, 16, usage.TotalTokens)
	require.Equal(t, "gpt-4o", stub.lastParams.Model)
}

func TestCallUsesModelNameOverDefault(t *testing.T) {
	t.Parallel()

	stub := &stubChatClient{resp: &openai.ChatCompletion{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: "ok"}}}}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)

	_, _, err = cl.Call(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, "gpt-4o-mini")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", stub.lastParams.Model)
}

func TestCallRejectsEmptyMessages(t *testing.T) {
	t.Parallel()
	cl, err := New(&stubChatClient{}, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)
	_, _, err = cl.Call(context.Background(), nil, "")
	require.Error(t, err)
}

func TestCallPropagatesClientError(t *testing.T) {
	t.Parallel()
	stub := &stubChatClient{err: errBoom}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)
	_, _, err = cl.Call(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, "")
	require.Error(t, err)
}

func TestCallErrorsOnEmptyChoices(t *testing.T) {
	t.Parallel()
	stub := &stubChatClient{resp: &openai.ChatCompletion{}}
	cl, err := New(stub, Options{DefaultModel: "gpt-4o"})
	require.NoError(t, err)
	_, _, err = cl.Call(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, "")
	require.Error(t, err)
}
