// Package interrupt implements the node_id-addressed pause/resume pattern
// interactive tools use to suspend an agent run until a caller supplies a
// value (spec §4.1 public operations: "wait_for_user_input(node_id, prompt,
// chat_id, input_type, agent_id) / set_user_input(node_id, value)").
//
// It is grounded in the teacher's confirmation/interrupt pattern
// (runtime/agent/interrupt): a single-fulfillment future keyed by an
// opaque ID, fulfilled at most once, observed by at most one waiter.
package interrupt

import (
	"context"
	"fmt"
	"sync"
)

// Request describes one pending interactive prompt (spec §4.2: user_input
// gets chat_id, a generated node_id, and a back-reference to the agent).
type Request struct {
	NodeID    string
	Prompt    string
	ChatID    string
	InputType string
	AgentID   string
}

// future is a single-fulfillment value: at most one Set call ever
// succeeds; Wait blocks until Set or ctx cancellation.
type future struct {
	done  chan struct{}
	value string
	once  sync.Once
}

// Registry tracks in-flight wait_for_user_input futures by node_id. The
// zero value is ready to use.
type Registry struct {
	mu       sync.Mutex
	pending  map[string]*future
	requests map[string]Request
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pending: make(map[string]*future), requests: make(map[string]Request)}
}

// Wait registers req and blocks until a matching Set call resolves it, or
// ctx is canceled. Concurrent Wait calls for the same node_id are rejected —
// a node_id identifies exactly one prompt.
func (r *Registry) Wait(ctx context.Context, req Request) (string, error) {
	r.mu.Lock()
	if r.pending == nil {
		r.pending = make(map[string]*future)
		r.requests = make(map[string]Request)
	}
	if _, exists := r.pending[req.NodeID]; exists {
		r.mu.Unlock()
		return "", fmt.Errorf("interrupt: node_id %q already awaited", req.NodeID)
	}
	f := &future{done: make(chan struct{})}
	r.pending[req.NodeID] = f
	r.requests[req.NodeID] = req
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, req.NodeID)
		delete(r.requests, req.NodeID)
		r.mu.Unlock()
	}()

	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Set fulfills the future registered under nodeID with value. It is a
// no-op (returning false) if no Wait call is currently pending for
// nodeID, or if the future was already fulfilled.
func (r *Registry) Set(nodeID, value string) bool {
	r.mu.Lock()
	f, ok := r.pending[nodeID]
	r.mu.Unlock()
	if !ok {
		return false
	}
	fulfilled := false
	f.once.Do(func() {
		f.value = value
		close(f.done)
		fulfilled = true
	})
	return fulfilled
}

// Pending reports the Request registered for nodeID, if a Wait call is
// currently blocked on it.
func (r *Registry) Pending(nodeID string) (Request, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[nodeID]
	return req, ok
}
