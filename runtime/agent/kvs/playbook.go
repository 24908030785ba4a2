package kvs

import (
	"context"
	"fmt"
	"time"
)

// PlaybookTTL bounds the per-conversation playbook scalar (spec §3, §6 key
// table).
const PlaybookTTL = 12 * time.Hour

// PlaybookStore persists the current playbook string for a conversation,
// overwritten after every iteration (spec §3 "Playbook").
type PlaybookStore struct {
	KVS Store
}

// NewPlaybookStore wraps s.
func NewPlaybookStore(s Store) *PlaybookStore {
	return &PlaybookStore{KVS: s}
}

func playbookKey(convID string) string { return fmt.Sprintf("playbook:%s", convID) }

// Get returns the current playbook for convID, or "" if none exists yet.
func (p *PlaybookStore) Get(ctx context.Context, convID string) (string, error) {
	v, _, err := p.KVS.Get(ctx, playbookKey(convID))
	return v, err
}

// Set overwrites the playbook for convID and refreshes its TTL.
func (p *PlaybookStore) Set(ctx context.Context, convID, playbook string) error {
	return p.KVS.Set(ctx, playbookKey(convID), playbook, PlaybookTTL)
}

// ToolMemoryStore adapts Store to the tools.MemoryStore interface, keyed
// exactly as tools.memoryKey shapes its keys (spec §4.5, §6 key table:
// `tool_memory:<user>:<tool>` / `tool_memory:<tool>`).
type ToolMemoryStore struct {
	KVS Store
}

// NewToolMemoryStore wraps s.
func NewToolMemoryStore(s Store) *ToolMemoryStore {
	return &ToolMemoryStore{KVS: s}
}

// Get implements tools.MemoryStore.
func (t *ToolMemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	return t.KVS.Get(ctx, key)
}

// Set implements tools.MemoryStore. Tool memory has no TTL (spec §6 key
// table: "—").
func (t *ToolMemoryStore) Set(ctx context.Context, key, value string) error {
	return t.KVS.Set(ctx, key, value, 0)
}

// ChatMetaStore maps chat_id to its originating user query for session
// discovery (spec §6 key table: `chat_metas` hash).
type ChatMetaStore struct {
	KVS Store
}

// NewChatMetaStore wraps s.
func NewChatMetaStore(s Store) *ChatMetaStore {
	return &ChatMetaStore{KVS: s}
}

const chatMetasKey = "chat_metas"

// SetUserQuery records the originating query for chatID.
func (c *ChatMetaStore) SetUserQuery(ctx context.Context, chatID, query string) error {
	return c.KVS.HSet(ctx, chatMetasKey, chatID, query)
}

// UserQuery returns the originating query for chatID, if known.
func (c *ChatMetaStore) UserQuery(ctx context.Context, chatID string) (string, bool, error) {
	return c.KVS.HGet(ctx, chatMetasKey, chatID)
}
