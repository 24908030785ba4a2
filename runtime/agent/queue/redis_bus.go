package queue

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"goa.design/pulse/rmap"
)

// NewRedisBus constructs a Bus whose queues are backed by redisClient and
// whose role_agents/team_agents rosters are Pulse replicated maps joined
// under name (spec §4.10), matching the teacher's registry.New wiring of
// rmap.Join over a shared Redis connection.
func NewRedisBus(ctx context.Context, name string, redisClient *redis.Client, kvs Store) (*Bus, error) {
	roles, err := rmap.Join(ctx, name+":role_agents", redisClient)
	if err != nil {
		return nil, fmt.Errorf("queue: join role_agents map: %w", err)
	}
	teams, err := rmap.Join(ctx, name+":team_agents", redisClient)
	if err != nil {
		return nil, fmt.Errorf("queue: join team_agents map: %w", err)
	}
	return &Bus{KVS: kvs, Roles: roles, Teams: teams}, nil
}
