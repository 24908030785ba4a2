package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeRunner records calls made through the Runner interface.
type fakeRunner struct {
	mu           sync.Mutex
	id, role     string
	clearedCalls int
	runCalls     []runCall
	received     []string
	runAnswer    string
	runOK        bool
	runErr       error
}

type runCall struct {
	query, chatID        string
	streamEvents, isResult bool
	runContext           map[string]any
}

func (f *fakeRunner) ID() string   { return f.id }
func (f *fakeRunner) Role() string { return f.role }
func (f *fakeRunner) ClearContext() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clearedCalls++
}
func (f *fakeRunner) ReceiveResult(payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received = append(f.received, payload)
}
func (f *fakeRunner) Run(_ context.Context, query, chatID string, streamEvents, isResult bool, runContext map[string]any) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runCalls = append(f.runCalls, runCall{query, chatID, streamEvents, isResult, runContext})
	return f.runAnswer, f.runOK, f.runErr
}

func TestListenerDispatchTaskEventRunsAndPublishesResult(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	bus := NewBus(store)
	runner := &fakeRunner{id: "agent-researcher", role: "researcher", runAnswer: "Paris", runOK: true}
	l := NewListener(bus, runner, nil)

	ev := Event{
		ChatID:     "chat-1",
		EventID:    "ev-1",
		Role:       "researcher",
		SenderID:   "agent-planner",
		SenderRole: "planner",
		Payload:    map[string]any{"task": "research", "description": "find facts"},
	}

	l.dispatch(context.Background(), ev)

	require.Equal(t, 1, runner.clearedCalls)
	require.Len(t, runner.runCalls, 1)
	require.False(t, runner.runCalls[0].isResult)
	require.Equal(t, "research: find facts", runner.runCalls[0].query)

	// A result event should now be queued back to the planner's role queue.
	resultEv, ok, err := bus.PopAny(context.Background(), "planner", "agent-planner", time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, resultEv.IsResult)
	resultCtx, _ := resultEv.Payload["context"].(map[string]any)
	require.Equal(t, "Paris", resultCtx["result"])
}

func TestListenerDispatchTaskEventNoPublishWhenNotOK(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	bus := NewBus(store)
	runner := &fakeRunner{id: "agent-researcher", role: "researcher", runOK: false}
	l := NewListener(bus, runner, nil)

	ev := Event{ChatID: "chat-1", Role: "researcher", SenderID: "agent-planner", SenderRole: "planner"}
	l.dispatch(context.Background(), ev)

	_, ok, err := bus.PopAny(context.Background(), "planner", "agent-planner", time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestListenerDispatchResultEventDoesNotClearContext(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	bus := NewBus(store)
	runner := &fakeRunner{id: "agent-planner", role: "planner"}
	l := NewListener(bus, runner, nil)

	ev := Event{
		ChatID:   "chat-1",
		Role:     "planner",
		IsResult: true,
		Payload: map[string]any{
			"context": map[string]any{"result": "Paris is the capital", "task": "research", "description": "find facts"},
		},
	}
	l.dispatch(context.Background(), ev)

	require.Equal(t, 0, runner.clearedCalls)
	require.Equal(t, []string{"Paris is the capital"}, runner.received)
	require.Len(t, runner.runCalls, 1)
	require.True(t, runner.runCalls[0].isResult)
}
