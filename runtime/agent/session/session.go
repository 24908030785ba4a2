// Package session provides the process-wide chat_id -> team cache spec §5
// describes ("Shared state and locking": "the agent cache by chat_id... a
// singleton with explicit lifecycle"). It lets a host process reuse an
// already-built team.Orchestrator for a chat_id across requests instead of
// re-registering every member on each call.
package session

import "github.com/orchestra-ai/agentcore/runtime/agent/agentcache"

// DefaultCeiling re-exports agentcache.DefaultCeiling for callers that only
// import session.
const DefaultCeiling = agentcache.DefaultCeiling

// Team is the narrow surface session needs from a running team so Drain
// can stop it without importing the team package's full construction API.
// Teams dropped by the cache's own eviction are not stopped.
type Team interface {
	Stop()
}

// Manager is a singleton registry of running teams keyed by chat_id (spec
// §5: "each should be a singleton with explicit lifecycle (created at
// process start, drained on shutdown)").
type Manager[T Team] struct {
	cache *agentcache.Cache[T]
}

// NewManager constructs a Manager whose cache holds up to ceiling chat_id
// keys; agentcache drops the oldest 20% of keys by insertion order once 80%
// of the ceiling is reached (spec §9 open question).
func NewManager[T Team](ceiling int) *Manager[T] {
	return &Manager[T]{cache: agentcache.New[T](ceiling)}
}

// Get returns the cached team for chatID, if any.
func (m *Manager[T]) Get(chatID string) (T, bool) {
	entries := m.cache.Get(chatID)
	if len(entries) == 0 {
		var zero T
		return zero, false
	}
	return entries[len(entries)-1], true
}

// Put registers team as chatID's current session. An earlier team for the
// same chatID stays in the cache and is not stopped; Get returns the latest
// one and Drain stops them all.
func (m *Manager[T]) Put(chatID string, team T) {
	m.cache.Add(chatID, team)
}

// Drain stops every cached team and empties the manager (spec §5:
// "drained on shutdown").
func (m *Manager[T]) Drain() {
	for _, chatID := range m.cache.Keys() {
		for _, team := range m.cache.Get(chatID) {
			team.Stop()
		}
		m.cache.Delete(chatID)
	}
}
