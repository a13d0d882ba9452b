package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DeadlyParkour777/code-room/services/gateway/internal/types"
	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is not cached.
var ErrMiss = errors.New("cache miss")

type JWTCache interface {
	GetIdentity(ctx context.Context, token string) (*types.Identity, error)
	SetIdentity(ctx context.Context, token string, id *types.Identity) error
}

type redisJWTCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisJWTCache(client redis.UniversalClient) JWTCache {
	return &redisJWTCache{
		client: client,
		ttl:    5 * time.Minute,
	}
}

func (c *redisJWTCache) GetIdentity(ctx context.Context, token string) (*types.Identity, error) {
	data, err := c.client.Get(ctx, "jwt:"+token).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read token cache: %w", err)
	}

	id := new(types.Identity)
	if err := json.Unmarshal(data, id); err != nil {
		return nil, fmt.Errorf("corrupt token cache entry: %w", err)
	}
	return id, nil
}

func (c *redisJWTCache) SetIdentity(ctx context.Context, token string, id *types.Identity) error {
	data, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, "jwt:"+token, data, c.ttl).Err()
}
