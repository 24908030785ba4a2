// Package scratchpad defines the ordered reasoning-step record an agent
// accumulates during one run (spec §3 Scratchpad step) and the conversation
// turn / tool-call record shapes persisted alongside it (spec §3, §4.6).
package scratchpad

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// MaxActionInputChars bounds the serialized, stored action_input (spec §3:
// "action_input is always serialized to a string and truncated to 200
// characters for storage").
const MaxActionInputChars = 200

// Step is one reasoning record in an agent's scratchpad (spec §3).
type Step struct {
	Thought         string `json:"thought"`
	Action          string `json:"action"`
	ActionInput     string `json:"action_input"`
	Observation     string `json:"observation"`
	IsOriginQuery   bool   `json:"is_origin_query"`
	ToolExecutionID string `json:"tool_execution_id"`
	Role            string `json:"role"`
}

// NewOrigin builds the single origin item prepended to every run where
// is_result=false (spec §3 invariant, §8 invariant: "thought == query").
func NewOrigin(query, role string) Step {
	return Step{Thought: query, IsOriginQuery: true, Role: role}
}

// StringifyActionInput serializes an arbitrary action-input value to a
// string and truncates it to MaxActionInputChars (spec §3, §8 boundary
// behavior).
func StringifyActionInput(v any) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case nil:
		s = ""
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = ""
		} else {
			s = string(b)
		}
	}
	if len(s) > MaxActionInputChars {
		return s[:MaxActionInputChars]
	}
	return s
}

// Transcript serializes the non-origin steps into the plain-text
// Thought/Action/Observation record handed to tools declaring need_history
// (spec §4.2: "tools declaring need_history receive a serialized transcript
// of prior observations").
func Transcript(steps []Step) string {
	var b strings.Builder
	for _, s := range steps {
		if s.IsOriginQuery {
			continue
		}
		if s.Thought != "" {
			fmt.Fprintf(&b, "Thought: %s\n", s.Thought)
		}
		if s.Action != "" {
			fmt.Fprintf(&b, "Action: %s\n", s.Action)
		}
		if s.Observation != "" {
			fmt.Fprintf(&b, "Observation: %s\n", s.Observation)
		}
	}
	return b.String()
}

// ToolCallRecord is a scratchpad step as persisted to the conversation's
// tools list, tagged with a write timestamp and the owning role (spec §3
// "Tool-call record (persisted)", §4.6).
type ToolCallRecord struct {
	Step      Step      `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Role      string    `json:"role"`
}

// TurnType discriminates a conversation turn's speaker (spec §3 Conversation
// turn).
type TurnType string

const (
	TurnUser      TurnType = "user"
	TurnAssistant TurnType = "assistant"
)

// Turn is one entry in the per-conversation chat-turn list (spec §3, §4.6).
type Turn struct {
	Type      TurnType  `json:"type"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
