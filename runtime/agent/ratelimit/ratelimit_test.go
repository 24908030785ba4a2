package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/orchestra-ai/agentcore/runtime/agent/ratelimit"
)

func TestWaitAdmitsFirstRequestImmediately(t *testing.T) {
	t.Parallel()

	r := ratelimit.NewRegistry()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	start := time.Now()
	require.NoError(t, r.Wait(ctx, "search"))
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestWaitSharesOneBucketPerToolName(t *testing.T) {
	t.Parallel()

	// A high per-minute budget keeps the test fast while still exercising
	// the shared-bucket behavior: the second call for the same tool name
	// waits measurably longer than the first once the burst is exhausted.
	r := ratelimit.NewRegistry(600) // 10/sec, burst 1
	ctx := context.Background()

	require.NoError(t, r.Wait(ctx, "search"))
	start := time.Now()
	require.NoError(t, r.Wait(ctx, "search"))
	require.Greater(t, time.Since(start), 50*time.Millisecond)
}

func TestWaitRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	r := ratelimit.NewRegistry(1) // 1/min, burst 1 — second call would wait ~1 minute
	ctx := context.Background()
	require.NoError(t, r.Wait(ctx, "crawler"))

	shortCtx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	err := r.Wait(shortCtx, "crawler")
	require.Error(t, err)
}

func TestDifferentToolNamesHaveIndependentBuckets(t *testing.T) {
	t.Parallel()

	r := ratelimit.NewRegistry(1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, r.Wait(ctx, "search"))
	require.NoError(t, r.Wait(ctx, "crawler"))
}
