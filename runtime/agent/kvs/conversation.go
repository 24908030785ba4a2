package kvs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/orchestra-ai/agentcore/runtime/agent/scratchpad"
)

// ConversationTTL and ConversationCap bound the per-conversation turn and
// tool-call lists (spec §3, §6 key table).
const (
	ConversationTTL = 12 * time.Hour
	ConversationCap = 100
)

// ConversationStore persists chat turns and tool-call records per
// conversation (spec §3 "Scratchpad & Conversation Store").
type ConversationStore struct {
	KVS Store
}

// NewConversationStore wraps s.
func NewConversationStore(s Store) *ConversationStore {
	return &ConversationStore{KVS: s}
}

func conversationKey(convID string) string { return fmt.Sprintf("conversation:%s", convID) }
func toolsKey(convID string) string        { return fmt.Sprintf("tools:%s", convID) }

// AppendTurn right-pushes a chat turn, trimmed to ConversationCap and
// re-TTL'd (spec §4.6).
func (c *ConversationStore) AppendTurn(ctx context.Context, convID string, turn scratchpad.Turn) error {
	b, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	return PushBounded(ctx, c.KVS, conversationKey(convID), string(b), ConversationCap, ConversationTTL)
}

// Turns returns all surviving turns for convID in causal order.
func (c *ConversationStore) Turns(ctx context.Context, convID string) ([]scratchpad.Turn, error) {
	raw, err := c.KVS.LRange(ctx, conversationKey(convID), 0, -1)
	if err != nil {
		return nil, err
	}
	out := make([]scratchpad.Turn, 0, len(raw))
	for _, r := range raw {
		var t scratchpad.Turn
		if err := json.Unmarshal([]byte(r), &t); err != nil {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// AppendToolCall right-pushes a tool-call record, trimmed and re-TTL'd (spec
// §4.6, §6 key table entry for `tools:<conv_id>`).
func (c *ConversationStore) AppendToolCall(ctx context.Context, convID string, rec scratchpad.ToolCallRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return PushBounded(ctx, c.KVS, toolsKey(convID), string(b), ConversationCap, ConversationTTL)
}

// ToolCalls returns up to limit of the most recent surviving tool-call
// records owned by role, in causal order. Entries older than ConversationTTL
// or whose timestamp predates now-ConversationTTL are skipped at load time,
// and entries whose role does not match are skipped (spec §6 key table:
// "entries with timestamp < now - 12h are skipped at load time; entries
// whose role ≠ caller's role are skipped; the most recent N survivors ...
// are returned in causal order").
func (c *ConversationStore) ToolCalls(ctx context.Context, convID, role string, limit int) ([]scratchpad.ToolCallRecord, error) {
	raw, err := c.KVS.LRange(ctx, toolsKey(convID), 0, -1)
	if err != nil {
		return nil, err
	}
	cutoff := nowFn().Add(-ConversationTTL)
	survivors := make([]scratchpad.ToolCallRecord, 0, len(raw))
	for _, r := range raw {
		var rec scratchpad.ToolCallRecord
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			continue
		}
		if rec.Timestamp.Before(cutoff) {
			continue
		}
		if role != "" && rec.Role != role {
			continue
		}
		survivors = append(survivors, rec)
	}
	if limit > 0 && len(survivors) > limit {
		survivors = survivors[len(survivors)-limit:]
	}
	return survivors, nil
}

// nowFn is indirected so tests can pin "now" without relying on wall-clock
// timing of TTL expiry.
var nowFn = time.Now
