// Package redis 基于 Redis 的商品缓存实现
//
// 只承载商品读缓存这一种用途，连接参数来自配置层拼好的 Redis URL。
package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store 商品缓存存储
type Store struct {
	client *redis.Client
}

// NewStoreFromURL 按 Redis URL 创建商品缓存实例
//
// 连接失败直接报错：缓存虽可降级为 NoOp，但那是部署决策（redis.enabled），
// 配置了 Redis 却连不上应当让启动失败暴露问题。
func NewStoreFromURL(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log.Printf("[Redis/Cache] Connected to %s", opts.Addr)
	return &Store{client: client}, nil
}

// Close 关闭 Redis 连接
func (s *Store) Close() error {
	return s.client.Close()
}
