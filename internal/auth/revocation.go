package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshBlacklistPrefix = "auth:refresh:blacklist:"

// Revocations 记录已失效的刷新令牌 jti。
// Revoke 只有第一次调用返回 true，刷新令牌因此只能轮换一次。
type Revocations interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error)
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// RedisRevocations keeps revoked ids until the token would have expired anyway.
type RedisRevocations struct {
	client redis.UniversalClient
}

func NewRedisRevocations(client redis.UniversalClient) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (r *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = time.Second
	}
	return r.client.SetNX(ctx, refreshBlacklistPrefix+jti, "revoked", ttl).Result()
}

func (r *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	err := r.client.Get(ctx, refreshBlacklistPrefix+jti).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
