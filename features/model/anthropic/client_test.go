package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/model"
)

var errBoom = errors.New("boom")

type stubMessagesClient struct {
	lastParams sdk.MessageNewParams
	resp       *sdk.Message
	err        error
}

func (s *stubMessagesClient) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	s.lastParams = body
	return s.resp, s.err
}

func TestNewRejectsNilClient(t *testing.T) {
	t.Parallel()
	_, err := New(nil, Options{DefaultModel: "claude-3-5-sonnet-20241022"})
	require.Error(t, err)
}

func TestNewRejectsEmptyDefaultModel(t *testing.T) {
	t.Parallel()
	_, err := New(&stubMessagesClient{}, Options{})
	require.Error(t, err)
}

func TestCallSplitsSystemAndTranslatesUsage(t *testing.T) {
	t.Parallel()

	stub := &stubMessagesClient{
		resp: &sdk.Message{
			Content: []sdk.ContentBlockUnion{{Type: "text", Text: "Paris"}},
			Usage:   sdk.Usage{InputTokens: 10, OutputTokens: 5},
		},
	}
	cl, err := New(stub, Options{DefaultModel: "claude-3-5-sonnet-20241022", MaxTokens: 128})
	require.NoError(t, err)

	text, usage, err := cl.Call(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "be terse"},
		{Role: model.RoleUser, Content: "what is the capital of france?"},
	}, "")
	require.NoError(t, err)
	require.Equal(t, "Paris", text)
	require.Equal(t, 10, usage.PromptTokens)
	require.Equal(t, 5, usage.CompletionTokens)
	require.Equal(t, 15, usage.TotalTokens)

	require.Len(t, stub.lastParams.System, 1)
	require.Equal(t, "be terse", stub.lastParams.System[0].Text)
	require.Equal(t, sdk.Model("claude-3-5-sonnet-20241022"), stub.lastParams.Model)
}

func TestCallUsesModelNameOverDefault(t *testing.T) {
	t.Parallel()

	stub := &stubMessagesClient{resp: &sdk.Message{Content: []sdk.ContentBlockUnion{{Type: "text", Text: "ok"}}}}
	cl, err := New(stub, Options{DefaultModel: "claude-3-5-sonnet-20241022"})
	require.NoError(t, err)

	_, _, err = cl.Call(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, "claude-3-opus-20240229")
	require.NoError(t, err)
	require.Equal(t, sdk.Model("claude-3-opus-20240229"), stub.lastParams.Model)
}

func TestCallRejectsEmptyMessages(t *testing.T) {
	t.Parallel()
	cl, err := New(&stubMessagesClient{}, Options{DefaultModel: "m"})
	require.NoError(t, err)
	_, _, err = cl.Call(context.Background(), nil, "")
	require.Error(t, err)
}

func TestCallPropagatesClientError(t *testing.T) {
	t.Parallel()
	stub := &stubMessagesClient{err: errBoom}
	cl, err := New(stub, Options{DefaultModel: "m"})
	require.NoError(t, err)
	_, _, err = cl.Call(context.Background(), []model.Message{{Role: model.RoleUser, Content: "hi"}}, "")
	require.Error(t, err)
}
