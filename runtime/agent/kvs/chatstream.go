package kvs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/orchestra-ai/agentcore/runtime/agent/stream"
)

// StreamLogCap bounds how much of the replay log a single read returns; the
// KVS list itself is unbounded (spec §6 key table: `chat_stream:<chat_id>`,
// no TTL, no cap given — it is a log, not a rolling window).
const StreamLogCap = 500

// ChatStreamSink is a stream.Sink that appends every event to the
// `chat_stream:<chat_id>` KVS list, so a UI reconnecting mid-session can
// replay everything it missed (spec §4.6).
type ChatStreamSink struct {
	KVS Store
}

// NewChatStreamSink wraps s.
func NewChatStreamSink(s Store) *ChatStreamSink {
	return &ChatStreamSink{KVS: s}
}

func chatStreamKey(chatID string) string { return fmt.Sprintf("chat_stream:%s", chatID) }

// Send implements stream.Sink.
func (c *ChatStreamSink) Send(ctx context.Context, chatID string, ev stream.Event) error {
	b, err := ev.Marshal()
	if err != nil {
		return err
	}
	return c.KVS.RPush(ctx, chatStreamKey(chatID), string(b))
}

// Replay returns up to the most recent StreamLogCap events recorded for
// chatID, in arrival order, for a UI client reconnecting mid-session.
func (c *ChatStreamSink) Replay(ctx context.Context, chatID string) ([]stream.Event, error) {
	raw, err := c.KVS.LRange(ctx, chatStreamKey(chatID), 0, -1)
	if err != nil {
		return nil, err
	}
	if len(raw) > StreamLogCap {
		raw = raw[len(raw)-StreamLogCap:]
	}
	out := make([]stream.Event, 0, len(raw))
	for _, r := range raw {
		var ev stream.Event
		if err := json.Unmarshal([]byte(r), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}
