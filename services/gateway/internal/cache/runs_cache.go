package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DeadlyParkour777/code-room/pkg/events"
	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/redis/go-redis/v9"
)

// RunsCache keeps the latest run history page of each room.
type RunsCache interface {
	GetRuns(ctx context.Context, roomID string) ([]*types.Run, error)
	SetRuns(ctx context.Context, roomID string, runs []*types.Run) error
	Invalidate(ctx context.Context, roomID string) error
}

type redisRunsCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRunsCache(client redis.UniversalClient) RunsCache {
	return &redisRunsCache{client: client, ttl: 5 * time.Minute}
}

func (c *redisRunsCache) GetRuns(ctx context.Context, roomID string) ([]*types.Run, error) {
	data, err := c.client.Get(ctx, events.RunsCacheKey(roomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read runs cache: %w", err)
	}

	var runs []*types.Run
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("corrupt runs cache entry: %w", err)
	}
	return runs, nil
}

func (c *redisRunsCache) SetRuns(ctx context.Context, roomID string, runs []*types.Run) error {
	data, err := json.Marshal(runs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, events.RunsCacheKey(roomID), data, c.ttl).Err()
}

func (c *redisRunsCache) Invalidate(ctx context.Context, roomID string) error {
	return c.client.Del(ctx, events.RunsCacheKey(roomID)).Err()
}
