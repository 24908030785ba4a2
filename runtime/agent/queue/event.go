// Package queue implements the role-addressed messaging fabric: the
// role/agent queues agents use to hand off work and return results (spec
// §4.9 Handoff Protocol, §4.10 Role-Addressed Queues, §4.11 Agent Event
// Listener).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the team-event payload carried on a role/agent queue (spec §3
// "Team event", §6 "Event JSON on a role queue").
type Event struct {
	ChatID     string         `json:"chat_id"`
	Priority   int            `json:"priority"`
	EventID    string         `json:"event_id"`
	Role       string         `json:"role"` // routing target
	SenderID   string         `json:"sender_id"`
	SenderRole string         `json:"sender_role"`
	Payload    map[string]any `json:"payload"`
	IsResult   bool           `json:"is_result"`
}

func roleQueueKey(role string) string    { return fmt.Sprintf("role_queue:%s", role) }
func agentQueueKey(id string) string     { return fmt.Sprintf("agent_queue:%s", id) }
func roleAgentsKey(role string) string   { return fmt.Sprintf("role_agents:%s", role) }
func teamAgentsKey(chatID string) string { return fmt.Sprintf("team_agents:%s", chatID) }

// TeamAgentsTTL bounds the per-session team roster (spec §4.10, §6 key
// table: `team_agents:<chat_id>`, TTL 24h).
const TeamAgentsTTL = 24 * time.Hour

// Bus implements the role-addressed queue operations on top of a KVS Store
// (spec §4.9, §4.10).
type Bus struct {
	KVS Store
	// Roles and Teams back the role_agents:<role> / team_agents:<chat_id>
	// rosters with a replicated map (spec §4.10: "cluster-safe membership")
	// when set; NewBus leaves them nil and falls back to plain KVS list/set
	// operations, which is sufficient for a single-node deployment and for
	// tests. NewRedisBus sets both via goa.design/pulse/rmap.
	Roles, Teams Membership
}

// Store is the minimal KVS surface Bus needs.
type Store interface {
	RPush(ctx context.Context, key, value string) error
	LRem(ctx context.Context, key, value string) error
	BLPopAny(ctx context.Context, timeout time.Duration, keys ...string) (sourceKey, value string, ok bool, err error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	SAdd(ctx context.Context, key, member string) error
	SRem(ctx context.Context, key, member string) error
}

// NewBus wraps s.
func NewBus(s Store) *Bus {
	return &Bus{KVS: s}
}

// PublishTask right-pushes a task event to role_queue:<targetRole> (spec
// §4.9 Handoff Protocol steps 1-2), implementing engine.HandoffPublisher.
func (b *Bus) PublishTask(ctx context.Context, targetRole string, senderID, senderRole, chatID string, task, description string, taskContext map[string]any) error {
	ev := Event{
		ChatID:     chatID,
		Priority:   0,
		EventID:    uuid.NewString(),
		Role:       targetRole,
		SenderID:   senderID,
		SenderRole: senderRole,
		Payload: map[string]any{
			"task":        task,
			"description": description,
			"context":     taskContext,
		},
		IsResult: false,
	}
	return b.push(ctx, roleQueueKey(targetRole), ev)
}

// PublishResult right-pushes a result event back to role_queue:<senderRole>
// (spec §4.9 "Return path").
func (b *Bus) PublishResult(ctx context.Context, senderRole, agentID, role string, chatID, result, task, description, originQuery, originalEventID string) error {
	ev := Event{
		ChatID:     chatID,
		Priority:   0,
		EventID:    uuid.NewString(),
		Role:       senderRole,
		SenderID:   agentID,
		SenderRole: role,
		Payload: map[string]any{
			"context": map[string]any{
				"result":      result,
				"task":        task,
				"description": description,
			},
			"metadata": map[string]any{
				"origin_query":      originQuery,
				"original_event_id": originalEventID,
				"agent_id":          agentID,
				"timestamp":         time.Now().UTC().Format(time.RFC3339),
			},
		},
		IsResult: true,
	}
	return b.push(ctx, roleQueueKey(senderRole), ev)
}

func (b *Bus) push(ctx context.Context, key string, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.KVS.RPush(ctx, key, string(raw))
}

// PopAny blocks up to timeout for the next event on role_queue:<role> or
// agent_queue:<agentID> (spec §4.10 "listeners poll both", §4.11 step 1).
// ok is false on timeout (caller should loop).
func (b *Bus) PopAny(ctx context.Context, role, agentID string, timeout time.Duration) (Event, bool, error) {
	_, raw, ok, err := b.KVS.BLPopAny(ctx, timeout, roleQueueKey(role), agentQueueKey(agentID))
	if err != nil || !ok {
		return Event{}, false, err
	}
	var ev Event
	if err := json.Unmarshal([]byte(raw), &ev); err != nil {
		return Event{}, false, err
	}
	return ev, true, nil
}

// RegisterAgent right-pushes agentID into role_agents:<role> and adds it to
// team_agents:<chatID> with a 24h TTL (spec §4.10, §4.12 step 3). Team
// membership is modeled as a set (SAdd/SRem) rather than a raw list since
// membership, not ordering, is what callers query.
func (b *Bus) RegisterAgent(ctx context.Context, role, agentID, chatID string) error {
	if b.Roles != nil {
		if err := membershipAdd(ctx, b.Roles, roleAgentsKey(role), agentID); err != nil {
			return err
		}
	} else if err := b.KVS.RPush(ctx, roleAgentsKey(role), agentID); err != nil {
		return err
	}

	teamMember := fmt.Sprintf("%s:%s", agentID, role)
	if b.Teams != nil {
		return membershipAdd(ctx, b.Teams, teamAgentsKey(chatID), teamMember)
	}
	if err := b.KVS.SAdd(ctx, teamAgentsKey(chatID), teamMember); err != nil {
		return err
	}
	return b.KVS.Expire(ctx, teamAgentsKey(chatID), TeamAgentsTTL)
}

// DeregisterAgent removes agentID from role_agents:<role> (spec §4.10:
// "deregister at stop (lrem 0 id)").
func (b *Bus) DeregisterAgent(ctx context.Context, role, agentID string) error {
	if b.Roles != nil {
		return membershipRemove(ctx, b.Roles, roleAgentsKey(role), agentID)
	}
	return b.KVS.LRem(ctx, roleAgentsKey(role), agentID)
}
