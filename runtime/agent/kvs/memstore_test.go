package kvs_test

import (
	"context"
	"strings"
	"sync"
	"time"
)

// memStore is a minimal in-process fake of kvs.Store for tests that don't
// need a real Redis instance.
type memStore struct {
	mu     sync.Mutex
	lists  map[string][]string
	scalar map[string]string
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
}

func newMemStore() *memStore {
	return &memStore{
		lists:  make(map[string][]string),
		scalar: make(map[string]string),
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (m *memStore) RPush(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[key] = append(m.lists[key], value)
	return nil
}

func (m *memStore) LTrimLeft(_ context.Context, key string, keep int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	if int64(len(l)) > keep {
		m.lists[key] = append([]string(nil), l[int64(len(l))-keep:]...)
	}
	return nil
}

func (m *memStore) LRem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	out := l[:0:0]
	for _, v := range l {
		if v != value {
			out = append(out, v)
		}
	}
	m.lists[key] = out
	return nil
}

func (m *memStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l := m.lists[key]
	n := int64(len(l))
	if n == 0 {
		return nil, nil
	}
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop {
		return nil, nil
	}
	out := append([]string(nil), l[start:stop+1]...)
	return out, nil
}

func (m *memStore) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.lists[key])), nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	return nil
}

func (m *memStore) BLPopAny(_ context.Context, timeout time.Duration, keys ...string) (string, string, bool, error) {
	m.mu.Lock()
	for _, k := range keys {
		if l := m.lists[k]; len(l) > 0 {
			v := l[0]
			m.lists[k] = l[1:]
			m.mu.Unlock()
			return k, v, true, nil
		}
	}
	m.mu.Unlock()
	return "", "", false, nil
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.scalar[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scalar[key] = value
	return nil
}

func (m *memStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		return "", false, nil
	}
	v, ok := h[field]
	return v, ok, nil
}

func (m *memStore) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	h[field] = value
	return nil
}

func (m *memStore) SAdd(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sets[key]
	if !ok {
		s = make(map[string]struct{})
		m.sets[key] = s
	}
	s[member] = struct{}{}
	return nil
}

func (m *memStore) SRem(_ context.Context, key, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sets[key], member)
	return nil
}

func (m *memStore) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.sets[key] {
		out = append(out, k)
	}
	return out, nil
}

// listDump renders key's list for failure messages.
func (m *memStore) listDump(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return strings.Join(m.lists[key], "|")
}
