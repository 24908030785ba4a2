package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/orchestra-ai/agentcore/runtime/agent/ratelimit"
	"github.com/orchestra-ai/agentcore/runtime/agent/stream"
	"github.com/orchestra-ai/agentcore/runtime/agent/toolerrors"
)

// ExecutionPolicy runs tool invocations with parameter validation, retries,
// rate limiting, and stream-event emission (spec §4.2 Tool Execution).
type ExecutionPolicy struct {
	Registry  *Registry
	RateLimit *ratelimit.Registry
	Sink      stream.Sink
	// StopFn is polled before each attempt; when it returns true the policy
	// aborts without further retries (spec §4.2: "before each attempt,
	// re-check the agent stop flag").
	StopFn func() bool
	// Pool offloads synchronous invocations; defaults to DefaultPool when nil.
	Pool Pool
}

// Pool offloads synchronous tool invocations (and any invoker that itself
// drives a nested event loop) to another goroutine so the calling
// goroutine's scheduler stays responsive (spec §5, §9 "Coroutine /
// blocking-I/O interaction"). DefaultPool starts one goroutine per call and
// does not bound how many run at once.
type Pool interface {
	Go(fn func())
}

// inlinePool runs fn on a new goroutine directly; used when no shared worker
// pool is configured (e.g. unit tests).
type inlinePool struct{}

// Go implements Pool.
func (inlinePool) Go(fn func()) { go fn() }

// DefaultPool is the fallback Pool used when ExecutionPolicy.Pool is nil.
var DefaultPool Pool = inlinePool{}

// Execute runs one tool call through up to 1+MaxRetries attempts (spec §4.2).
// chatID/agentID/role are carried on emitted stream events.
func (p *ExecutionPolicy) Execute(ctx context.Context, chatID, agentID, role string, name Ident, params map[string]any) (Result, error) {
	d, ok := p.Registry.Get(name)
	if !ok {
		return nil, toolerrors.NewToolNotFound(string(name))
	}

	if err := p.validate(name, params); err != nil {
		return nil, err
	}

	if d.RateLimited && p.RateLimit != nil {
		if err := p.RateLimit.Wait(ctx, string(name)); err != nil {
			return nil, err
		}
	}

	maxAttempts := 1 + d.MaxRetries
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if p.stopped() {
			return nil, fmt.Errorf("tools: stopped before executing %s", name)
		}

		p.emit(ctx, chatID, agentID, role, stream.EventActionStart, map[string]any{
			"tool": name, "attempt": attempt,
		})

		res, err := p.invoke(ctx, d, params)
		if err == nil {
			p.emit(ctx, chatID, agentID, role, stream.EventActionComplete, map[string]any{
				"tool": name, "attempt": attempt,
			})
			return res, nil
		}
		lastErr = err

		// Emitted on every failing attempt, including the last, matching the
		// original implementation's unconditional emit before the raise
		// threshold is checked (spec §8: max_retries=2 failing three times
		// produces exactly three tool_retry events).
		p.emit(ctx, chatID, agentID, role, stream.EventToolRetry, map[string]any{
			"tool": name, "attempt": attempt, "max_retries": d.MaxRetries, "error": err.Error(),
		})
		if attempt < maxAttempts {
			p.sleep(ctx, d.RetryDelaySecs)
		}
	}
	return nil, toolerrors.NewToolExecutionError(string(name), maxAttempts, lastErr)
}

func (p *ExecutionPolicy) invoke(ctx context.Context, d *Descriptor, params map[string]any) (Result, error) {
	if d.IsAsync {
		return d.Invoke(ctx, params)
	}
	resultCh := make(chan struct {
		res Result
		err error
	}, 1)
	pool := p.Pool
	if pool == nil {
		pool = DefaultPool
	}
	p.emit(ctx, "", "", "", stream.EventToolProgress, map[string]any{"tool": d.Name, "phase": "scheduled"})
	pool.Go(func() {
		res, err := d.Invoke(ctx, params)
		resultCh <- struct {
			res Result
			err error
		}{res, err}
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case out := <-resultCh:
		return out.res, out.err
	}
}

func (p *ExecutionPolicy) validate(name Ident, params map[string]any) error {
	schema := p.Registry.Schema(name)
	if schema == nil {
		return nil
	}
	if err := schema.Validate(params); err != nil {
		issues := fieldIssuesFrom(err)
		return (&toolerrors.ToolExecutionError{
			ToolError: toolerrors.New(fmt.Sprintf("invalid parameters for %s: %s", name, err)),
			Name:      string(name),
		}).WithIssues(issues)
	}
	return nil
}

// fieldIssuesFrom flattens a jsonschema validation error tree into the flat
// FieldIssue list tool-call retries use to build guidance (spec "[ADD]"
// Supplemented Features: structured field-level validation issues).
func fieldIssuesFrom(err error) []toolerrors.FieldIssue {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []toolerrors.FieldIssue{{Detail: err.Error()}}
	}
	var issues []toolerrors.FieldIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if v == nil {
			return
		}
		if len(v.Causes) == 0 {
			issues = append(issues, toolerrors.FieldIssue{Detail: v.Error()})
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	return issues
}

func (p *ExecutionPolicy) stopped() bool {
	return p.StopFn != nil && p.StopFn()
}

func (p *ExecutionPolicy) sleep(ctx context.Context, secs float64) {
	if secs <= 0 {
		return
	}
	t := time.NewTimer(time.Duration(secs * float64(time.Second)))
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func (p *ExecutionPolicy) emit(ctx context.Context, chatID, agentID, role string, typ stream.EventType, data any) {
	if p.Sink == nil {
		return
	}
	_ = p.Sink.Send(ctx, chatID, stream.NewEvent(typ, chatID, agentID, role, data))
}
