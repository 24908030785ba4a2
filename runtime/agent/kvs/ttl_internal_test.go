package kvs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
)

// fakeStore is a tiny in-package list store, distinct from kvs_test's
// memStore, used only to exercise the unexported nowFn indirection.
type fakeStore struct{ lists map[string][]string }

func newFakeStore() *fakeStore { return &fakeStore{lists: make(map[string][]string)} }

func (f *fakeStore) RPush(_ context.Context, key, value string) error {
	f.lists[key] = append(f.lists[key], value)
	return nil
}
func (f *fakeStore) LTrimLeft(_ context.Context, key string, keep int64) error {
	l := f.lists[key]
	if int64(len(l)) > keep {
		f.lists[key] = l[int64(len(l))-keep:]
	}
	return nil
}
func (f *fakeStore) LRem(_ context.Context, key, value string) error {
	l := f.lists[key]
	out := l[:0:0]
	for _, v := range l {
		if v != value {
			out = append(out, v)
		}
	}
	f.lists[key] = out
	return nil
}
func (f *fakeStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	l := f.lists[key]
	n := int64(len(l))
	if n == 0 {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	return append([]string(nil), l[start:stop+1]...), nil
}
func (f *fakeStore) LLen(_ context.Context, key string) (int64, error) { return int64(len(f.lists[key])), nil }
func (f *fakeStore) Expire(context.Context, string, time.Duration) error { return nil }
func (f *fakeStore) BLPopAny(context.Context, time.Duration, ...string) (string, string, bool, error) {
	return "", "", false, nil
}
func (f *fakeStore) Get(context.Context, string) (string, bool, error)      { return "", false, nil }
func (f *fakeStore) Set(context.Context, string, string, time.Duration) error { return nil }
func (f *fakeStore) HGet(context.Context, string, string) (string, bool, error) { return "", false, nil }
func (f *fakeStore) HSet(context.Context, string, string, string) error     { return nil }
func (f *fakeStore) SAdd(context.Context, string, string) error            { return nil }
func (f *fakeStore) SRem(context.Context, string, string) error            { return nil }
func (f *fakeStore) SMembers(context.Context, string) ([]string, error)    { return nil, nil }

func TestToolCallsSkipsEntriesOlderThanTTL(t *testing.T) {
	old := nowFn
	defer func() { nowFn = old }()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	nowFn = func() time.Time { return base }

	cs := NewConversationStore(newFakeStore())
	ctx := context.Background()

	require.NoError(t, cs.AppendToolCall(ctx, "c1", scratchpad.ToolCallRecord{
		Timestamp: base.Add(-13 * time.Hour), // older than ConversationTTL (12h)
		Role:      "planner",
	}))
	require.NoError(t, cs.AppendToolCall(ctx, "c1", scratchpad.ToolCallRecord{
		Timestamp: base.Add(-1 * time.Hour),
		Role:      "planner",
	}))

	calls, err := cs.ToolCalls(ctx, "c1", "planner", 0)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	require.Equal(t, base.Add(-1*time.Hour), calls[0].Timestamp)
}
