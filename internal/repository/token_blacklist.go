package repository

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenBlacklist 记录已登出的 token。
type TokenBlacklist interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}

type redisBlacklist struct {
	rdb *redis.Client
}

// NewTokenBlacklist 使用 Redis 实现 token 黑名单，key 的过期时间为 token 剩余有效期。
func NewTokenBlacklist(rdb *redis.Client) TokenBlacklist {
	return &redisBlacklist{rdb: rdb}
}

func (b *redisBlacklist) Add(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.rdb.Set(ctx, "blacklist:"+token, "true", ttl).Err()
}

func (b *redisBlacklist) Contains(ctx context.Context, token string) (bool, error) {
	n, err := b.rdb.Exists(ctx, "blacklist:"+token).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
