// Package kvs defines the key-value store contract the runtime depends on
// (spec §2 "Key-Value Store (KVS)": atomic lists, hashes, scalar keys with
// TTL, blocking left-pop) and a Redis-backed implementation using
// github.com/redis/go-redis/v9. All other persistence packages (scratchpad,
// conversation, playbook, tool memory, role queues) build on top of Store.
package kvs

import (
	"context"
	"time"
)

// Store is the minimal KVS surface the runtime needs. Every operation must
// tolerate transient failures with the caller's own retry policy (spec §4.6:
// "exponential backoff up to three attempts; unretryable errors ... fail
// fast").
type Store interface {
	// RPush appends value to the list at key.
	RPush(ctx context.Context, key string, value string) error
	// LTrimLeft keeps only the rightmost keep entries of the list at key,
	// discarding from the left (spec §3 conversation/tools lists: "oldest
	// discarded").
	LTrimLeft(ctx context.Context, key string, keep int64) error
	// LRem removes all occurrences of value from the list at key (spec §4.10
	// "deregister at stop (lrem 0 id)").
	LRem(ctx context.Context, key string, value string) error
	// LRange returns list entries [start, stop] (inclusive, Redis semantics).
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LLen returns the list length at key.
	LLen(ctx context.Context, key string) (int64, error)
	// Expire refreshes key's TTL.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// BLPopAny blocks up to timeout for the first available element across
	// any of keys, left-popping it. Returns the source key and the popped
	// value; ok is false on timeout.
	BLPopAny(ctx context.Context, timeout time.Duration, keys ...string) (sourceKey, value string, ok bool, err error)
	// Get returns the scalar string at key.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set writes a scalar string at key with an optional TTL (ttl<=0 means no
	// expiry).
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// HGet returns one field of the hash at key.
	HGet(ctx context.Context, key, field string) (value string, ok bool, err error)
	// HSet writes one field of the hash at key.
	HSet(ctx context.Context, key, field, value string) error
	// SAdd adds member to the set at key.
	SAdd(ctx context.Context, key, member string) error
	// SRem removes member from the set at key.
	SRem(ctx context.Context, key, member string) error
	// SMembers returns all members of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
}

// PushBounded right-pushes value onto key, then trims the list to cap
// entries and refreshes its TTL (only when ttl > 0) — the write shared by
// the conversation and tools lists. The steps are three separate Store
// calls, not a pipeline: an error stops the sequence, leaving any earlier
// step applied.
func PushBounded(ctx context.Context, s Store, key, value string, cap int64, ttl time.Duration) error {
	if err := s.RPush(ctx, key, value); err != nil {
		return err
	}
	if err := s.LTrimLeft(ctx, key, cap); err != nil {
		return err
	}
	if ttl > 0 {
		if err := s.Expire(ctx, key, ttl); err != nil {
			return err
		}
	}
	return nil
}
