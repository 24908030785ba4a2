package kvs_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/kvs"
	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
)

func TestConversationStoreAppendAndTurns(t *testing.T) {
	t.Parallel()

	cs := kvs.NewConversationStore(newMemStore())
	ctx := context.Background()

	require.NoError(t, cs.AppendTurn(ctx, "conv-1", scratchpad.Turn{Type: scratchpad.TurnUser, Content: "hi", Timestamp: time.Now()}))
	require.NoError(t, cs.AppendTurn(ctx, "conv-1", scratchpad.Turn{Type: scratchpad.TurnAssistant, Content: "hello", Timestamp: time.Now()}))

	turns, err := cs.Turns(ctx, "conv-1")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	require.Equal(t, "hi", turns[0].Content)
	require.Equal(t, "hello", turns[1].Content)
}

func TestConversationStoreToolCallsFiltersByRoleAndLimit(t *testing.T) {
	t.Parallel()

	cs := kvs.NewConversationStore(newMemStore())
	ctx := context.Background()
	now := time.Now()

	for i, role := range []string{"planner", "researcher", "planner", "researcher", "planner"} {
		rec := scratchpad.ToolCallRecord{
			Step:      scratchpad.Step{Action: "search", Observation: "result"},
			Timestamp: now.Add(time.Duration(i) * time.Second),
			Role:      role,
		}
		require.NoError(t, cs.AppendToolCall(ctx, "conv-1", rec))
	}

	calls, err := cs.ToolCalls(ctx, "conv-1", "planner", 2)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	for _, c := range calls {
		require.Equal(t, "planner", c.Role)
	}
	// Causal order preserved among survivors.
	require.True(t, calls[0].Timestamp.Before(calls[1].Timestamp))
}

func TestConversationStoreToolCallsNoRoleFilterReturnsAll(t *testing.T) {
	t.Parallel()

	cs := kvs.NewConversationStore(newMemStore())
	ctx := context.Background()
	now := time.Now()

	for _, role := range []string{"planner", "researcher"} {
		rec := scratchpad.ToolCallRecord{Timestamp: now, Role: role}
		require.NoError(t, cs.AppendToolCall(ctx, "conv-1", rec))
	}

	calls, err := cs.ToolCalls(ctx, "conv-1", "", 0)
	require.NoError(t, err)
	require.Len(t, calls, 2)
}
