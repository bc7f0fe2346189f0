package database

import (
	"context"
	"fmt"
	"time"

	"helpdesk-go/internal/config"
	"helpdesk-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

var RDB *redis.Client

// OpenRedis 创建 Redis 客户端并在超时内完成一次 PING。
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("连接 Redis %s 失败: %w", cfg.Addr, err)
	}
	return client, nil
}

// InitRedis 初始化全局 Redis 客户端，连接失败时退出。
func InitRedis(cfg config.RedisConfig) {
	client, err := OpenRedis(cfg)
	if err != nil {
		log.Fatal("failed to connect to redis", err)
	}
	RDB = client
	log.Infof("Redis %s connected, db=%d", cfg.Addr, cfg.DB)
}
