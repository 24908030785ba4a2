package queue

import (
	"context"
	"strings"
)

// Membership is the narrow replicated-map surface Bus needs for the
// role_agents:<role> / team_agents:<chat_id> rosters (spec §4.10). It is
// satisfied by *rmap.Map from goa.design/pulse/rmap, decoupling Bus from a
// concrete Pulse dependency the same way the teacher's
// registry/store/replicated.Map decouples its store from rmap.Map.
type Membership interface {
	Get(key string) (string, bool)
	Set(ctx context.Context, key, value string) (string, error)
	Delete(ctx context.Context, key string) (string, error)
}

func membershipAdd(ctx context.Context, m Membership, key, member string) error {
	members := splitMembers(first(m.Get(key)))
	for _, v := range members {
		if v == member {
			return nil
		}
	}
	_, err := m.Set(ctx, key, strings.Join(append(members, member), ","))
	return err
}

func membershipRemove(ctx context.Context, m Membership, key, member string) error {
	existing, ok := m.Get(key)
	if !ok {
		return nil
	}
	members := splitMembers(existing)
	out := members[:0]
	for _, v := range members {
		if v != member {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		_, err := m.Delete(ctx, key)
		return err
	}
	_, err := m.Set(ctx, key, strings.Join(out, ","))
	return err
}

func splitMembers(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func first(s string, _ bool) string { return s }
