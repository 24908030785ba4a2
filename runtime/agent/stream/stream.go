// Package stream defines the event types emitted on a session's stream bus
// (spec §6 "Event JSON on the stream bus") and the Sink interface that
// delivers them to UI clients. The event types listed in spec §6 are: status,
// workflow, node_result, user_input_required, explanation, answer, complete,
// error, action_start, action_complete, tool_progress, tool_retry,
// agent_start, agent_complete, agent_error, agent_thinking, playbook_update.
package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// EventType discriminates the wire event types.
type EventType string

const (
	EventStatus            EventType = "status"
	EventWorkflow          EventType = "workflow"
	EventNodeResult        EventType = "node_result"
	EventUserInputRequired EventType = "user_input_required"
	EventExplanation       EventType = "explanation"
	EventAnswer            EventType = "answer"
	EventComplete          EventType = "complete"
	EventError             EventType = "error"
	EventActionStart       EventType = "action_start"
	EventActionComplete    EventType = "action_complete"
	EventToolProgress      EventType = "tool_progress"
	EventToolRetry         EventType = "tool_retry"
	EventAgentStart        EventType = "agent_start"
	EventAgentComplete     EventType = "agent_complete"
	EventAgentError        EventType = "agent_error"
	EventAgentThinking     EventType = "agent_thinking"
	EventPlaybookUpdate    EventType = "playbook_update"
)

// Event is one message on the stream bus: "{event: <type>, data:
// <json-string-or-text>}" (spec §6), with every type carrying at least a
// timestamp.
type Event struct {
	Type      EventType `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
	ChatID    string    `json:"chat_id,omitempty"`
	AgentID   string    `json:"agent_id,omitempty"`
	Role      string    `json:"role,omitempty"`
}

// Sink delivers events to a session's stream (SSE, WebSocket, or a Pulse-backed
// bus). Implementations must be safe for concurrent Send calls.
type Sink interface {
	Send(ctx context.Context, chatID string, ev Event) error
}

// NewEvent stamps ev.Timestamp and returns it, so call sites never forget the
// mandatory field required by spec §6.
func NewEvent(typ EventType, chatID, agentID, role string, data any) Event {
	return Event{
		Type:      typ,
		Data:      data,
		Timestamp: time.Now().UTC(),
		ChatID:    chatID,
		AgentID:   agentID,
		Role:      role,
	}
}

// Marshal renders ev as the wire JSON object described in spec §6.
func (ev Event) Marshal() ([]byte, error) {
	return json.Marshal(ev)
}

// MemorySink is an in-process Sink that records every event it receives, used
// by tests and the KVS-backed chat_stream replay log (spec §4.6
// "chat_stream:<chat_id>").
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

// NewMemorySink constructs an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Send appends ev to the in-memory log.
func (s *MemorySink) Send(_ context.Context, _ string, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns a snapshot of all events recorded so far, in arrival order.
func (s *MemorySink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// ByType filters the recorded events to those matching typ.
func (s *MemorySink) ByType(typ EventType) []Event {
	var out []Event
	for _, ev := range s.Events() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

// MultiSink fans a single Send out to every wrapped sink, stopping at the
// first error (mirrors the teacher's stream-bus fan-out discipline: a
// failing subscriber halts delivery to the rest rather than silently
// dropping events).
type MultiSink []Sink

// Send implements Sink.
func (m MultiSink) Send(ctx context.Context, chatID string, ev Event) error {
	for _, s := range m {
		if err := s.Send(ctx, chatID, ev); err != nil {
			return err
		}
	}
	return nil
}
