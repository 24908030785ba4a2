package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/orchestra-ai/agentcore/runtime/agent/telemetry"
)

// PollTimeout is the blocking-pop wait before a listener loop iterates
// again to re-check its stop flag (spec §4.11 step 1: "timeout 1s").
const PollTimeout = 1 * time.Second

// ShutdownGrace bounds how long Listener.Stop waits for the loop goroutine
// to exit before giving up (spec §4.11 "Stop semantics": "awaited with a
// short timeout (≤2s) before forced cancellation").
const ShutdownGrace = 2 * time.Second

// Runner is the narrow surface Listener needs from an engine.Agent: run the
// loop, clear prior context, and synthesize a receive_result step (spec
// §4.1, §4.11).
type Runner interface {
	ClearContext()
	Run(ctx context.Context, query, chatID string, streamEvents, isResult bool, runContext map[string]any) (answer string, ok bool, err error)
	ReceiveResult(resultPayload string)
	ID() string
	Role() string
}

// Listener is the long-running per-agent task that dispatches role/agent
// queue events into its agent's Run (spec §4.11 Agent Event Listener).
type Listener struct {
	Bus    *Bus
	Agent  Runner
	Logger telemetry.Logger

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewListener constructs a Listener bound to agent.
func NewListener(bus *Bus, agent Runner, logger telemetry.Logger) *Listener {
	return &Listener{Bus: bus, Agent: agent, Logger: logger, stopCh: make(chan struct{}), doneCh: make(chan struct{})}
}

// Start launches the listener's loop goroutine (spec §4.1
// "setup_event_subscriptions(agent_id)").
func (l *Listener) Start(ctx context.Context) {
	go l.loop(ctx)
}

// Stop signals the loop to exit and waits up to ShutdownGrace for it (spec
// §4.11 "Stop semantics").
func (l *Listener) Stop() {
	select {
	case <-l.stopCh:
	default:
		close(l.stopCh)
	}
	select {
	case <-l.doneCh:
	case <-time.After(ShutdownGrace):
	}
}

func (l *Listener) loop(ctx context.Context) {
	defer close(l.doneCh)
	for {
		select {
		case <-l.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		ev, ok, err := l.Bus.PopAny(ctx, l.Agent.Role(), l.Agent.ID(), PollTimeout)
		if err != nil {
			l.logWarn(ctx, "queue: listener pop failed", "agent_id", l.Agent.ID(), "err", err)
			l.sleep(ctx, 200*time.Millisecond)
			continue
		}
		if !ok {
			continue
		}

		if ev.Role != l.Agent.Role() {
			l.logWarn(ctx, "queue: dropping mismatched-role event", "agent_id", l.Agent.ID(), "want_role", l.Agent.Role(), "got_role", ev.Role)
			continue
		}

		l.dispatch(ctx, ev)
	}
}

func (l *Listener) dispatch(ctx context.Context, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			l.logWarn(ctx, "queue: listener dispatch panicked", "agent_id", l.Agent.ID(), "recover", r)
		}
	}()

	if !ev.IsResult {
		task, _ := ev.Payload["task"].(string)
		description, _ := ev.Payload["description"].(string)
		query := fmt.Sprintf("%s: %s", task, description)
		var taskContext map[string]any
		if c, ok := ev.Payload["context"].(map[string]any); ok {
			taskContext = c
		}

		l.Agent.ClearContext()
		answer, got, err := l.Agent.Run(ctx, query, ev.ChatID, true, false, taskContext)
		if err != nil {
			l.logWarn(ctx, "queue: agent run failed on task event", "agent_id", l.Agent.ID(), "err", err)
			return
		}
		if got && ev.SenderID != "" {
			if err := l.Bus.PublishResult(ctx, ev.SenderRole, l.Agent.ID(), l.Agent.Role(), ev.ChatID, answer, task, description, "", ev.EventID); err != nil {
				l.logWarn(ctx, "queue: publish result failed", "agent_id", l.Agent.ID(), "err", err)
			}
		}
		return
	}

	// Result event: do not clear context (spec §4.11 step 3 "Result
	// event").
	resultCtx, _ := ev.Payload["context"].(map[string]any)
	result, _ := resultCtx["result"].(string)
	task, _ := resultCtx["task"].(string)
	description, _ := resultCtx["description"].(string)

	l.Agent.ReceiveResult(result)
	query := fmt.Sprintf("%s: %s", task, description)
	if _, _, err := l.Agent.Run(ctx, query, ev.ChatID, true, true, resultCtx); err != nil {
		l.logWarn(ctx, "queue: agent run failed on result event", "agent_id", l.Agent.ID(), "err", err)
	}
}

func (l *Listener) logWarn(ctx context.Context, msg string, kv ...any) {
	if l.Logger != nil {
		l.Logger.Warn(ctx, msg, kv...)
	}
}

func (l *Listener) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
