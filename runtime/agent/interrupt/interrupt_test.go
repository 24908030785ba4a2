package interrupt_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/interrupt"
)

func TestWaitBlocksUntilSet(t *testing.T) {
	t.Parallel()

	r := interrupt.NewRegistry()
	done := make(chan struct{})
	var got string
	var err error

	go func() {
		got, err = r.Wait(context.Background(), interrupt.Request{NodeID: "n1", Prompt: "pick one"})
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, ok := r.Pending("n1")
		return ok
	}, time.Second, time.Millisecond)

	require.True(t, r.Set("n1", "blue"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Set")
	}
	require.NoError(t, err)
	require.Equal(t, "blue", got)
}

func TestWaitReturnsErrorOnContextCancel(t *testing.T) {
	t.Parallel()

	r := interrupt.NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := r.Wait(ctx, interrupt.Request{NodeID: "n2"})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	_, ok := r.Pending("n2")
	require.False(t, ok, "pending entry should be cleaned up after Wait returns")
}

func TestSetWithoutWaiterIsNoop(t *testing.T) {
	t.Parallel()

	r := interrupt.NewRegistry()
	require.False(t, r.Set("missing", "value"))
}

func TestSetIsFulfilledOnlyOnce(t *testing.T) {
	t.Parallel()

	r := interrupt.NewRegistry()
	done := make(chan string, 1)
	go func() {
		v, _ := r.Wait(context.Background(), interrupt.Request{NodeID: "n3"})
		done <- v
	}()

	require.Eventually(t, func() bool {
		_, ok := r.Pending("n3")
		return ok
	}, time.Second, time.Millisecond)

	require.True(t, r.Set("n3", "first"))
	require.False(t, r.Set("n3", "second"))
	require.Equal(t, "first", <-done)
}

func TestConcurrentWaitOnSameNodeIDIsRejected(t *testing.T) {
	t.Parallel()

	r := interrupt.NewRegistry()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _, _ = r.Wait(ctx, interrupt.Request{NodeID: "n4"}) }()
	require.Eventually(t, func() bool {
		_, ok := r.Pending("n4")
		return ok
	}, time.Second, time.Millisecond)

	_, err := r.Wait(context.Background(), interrupt.Request{NodeID: "n4"})
	require.Error(t, err)
}
