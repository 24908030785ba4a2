package kvs

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore backs Store with a single *redis.Client. It holds no mutex of
// its own and does not pipeline: every Store method is one command issued
// through the retry loop below.
type RedisStore struct {
	client *redis.Client
	// Retries bounds the exponential-backoff retry loop for transient
	// failures (spec §4.6: "up to three attempts").
	Retries int
	// BaseBackoff is the first retry delay; each subsequent attempt doubles
	// it.
	BaseBackoff time.Duration
}

// NewRedisStore wraps an existing *redis.Client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, Retries: 3, BaseBackoff: 50 * time.Millisecond}
}

func (s *RedisStore) withRetry(ctx context.Context, op func() error) error {
	var err error
	backoff := s.BaseBackoff
	attempts := s.Retries
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		err = op()
		if err == nil || !isTransient(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}
		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		backoff *= 2
	}
	return err
}

// isTransient reports whether err looks like a transient network/timeout
// failure worth retrying, as opposed to an unretryable serialization or
// key-shape error (spec §4.6).
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, redis.Nil) {
		return false
	}
	var rerr redis.Error
	if errors.As(err, &rerr) {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return true
	}
	return true
}

// RPush implements Store.
func (s *RedisStore) RPush(ctx context.Context, key, value string) error {
	return s.withRetry(ctx, func() error {
		return s.client.RPush(ctx, key, value).Err()
	})
}

// LTrimLeft implements Store.
func (s *RedisStore) LTrimLeft(ctx context.Context, key string, keep int64) error {
	if keep <= 0 {
		return nil
	}
	return s.withRetry(ctx, func() error {
		return s.client.LTrim(ctx, key, -keep, -1).Err()
	})
}

// LRem implements Store.
func (s *RedisStore) LRem(ctx context.Context, key, value string) error {
	return s.withRetry(ctx, func() error {
		return s.client.LRem(ctx, key, 0, value).Err()
	})
}

// LRange implements Store.
func (s *RedisStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var out []string
	err := s.withRetry(ctx, func() error {
		var e error
		out, e = s.client.LRange(ctx, key, start, stop).Result()
		return e
	})
	return out, err
}

// LLen implements Store.
func (s *RedisStore) LLen(ctx context.Context, key string) (int64, error) {
	var out int64
	err := s.withRetry(ctx, func() error {
		var e error
		out, e = s.client.LLen(ctx, key).Result()
		return e
	})
	return out, err
}

// Expire implements Store.
func (s *RedisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.withRetry(ctx, func() error {
		return s.client.Expire(ctx, key, ttl).Err()
	})
}

// BLPopAny implements Store.
func (s *RedisStore) BLPopAny(ctx context.Context, timeout time.Duration, keys ...string) (string, string, bool, error) {
	res, err := s.client.BLPop(ctx, timeout, keys...).Result()
	if errors.Is(err, redis.Nil) {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	if len(res) != 2 {
		return "", "", false, nil
	}
	return res[0], res[1], true, nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	var out string
	found := true
	err := s.withRetry(ctx, func() error {
		v, e := s.client.Get(ctx, key).Result()
		if errors.Is(e, redis.Nil) {
			found = false
			return nil
		}
		out = v
		return e
	})
	return out, found, err
}

// Set implements Store.
func (s *RedisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.withRetry(ctx, func() error {
		return s.client.Set(ctx, key, value, ttl).Err()
	})
}

// HGet implements Store.
func (s *RedisStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var out string
	found := true
	err := s.withRetry(ctx, func() error {
		v, e := s.client.HGet(ctx, key, field).Result()
		if errors.Is(e, redis.Nil) {
			found = false
			return nil
		}
		out = v
		return e
	})
	return out, found, err
}

// HSet implements Store.
func (s *RedisStore) HSet(ctx context.Context, key, field, value string) error {
	return s.withRetry(ctx, func() error {
		return s.client.HSet(ctx, key, field, value).Err()
	})
}

// SAdd implements Store.
func (s *RedisStore) SAdd(ctx context.Context, key, member string) error {
	return s.withRetry(ctx, func() error {
		return s.client.SAdd(ctx, key, member).Err()
	})
}

// SRem implements Store.
func (s *RedisStore) SRem(ctx context.Context, key, member string) error {
	return s.withRetry(ctx, func() error {
		return s.client.SRem(ctx, key, member).Err()
	})
}

// SMembers implements Store.
func (s *RedisStore) SMembers(ctx context.Context, key string) ([]string, error) {
	var out []string
	err := s.withRetry(ctx, func() error {
		var e error
		out, e = s.client.SMembers(ctx, key).Result()
		return e
	})
	return out, err
}
