package cache

import (
	"context"
	"errors"
)

// RedisStore 以 JSON 编码把值存入 Redis，适合多实例共享网关缓存。
// 每次读写都是单条 Redis 命令，原子性由 Redis 保证。
type RedisStore[V any] struct {
	manager *Manager
	prefix  string
}

// NewRedisStore 基于 Manager 创建类型化存储，所有 key 自动加上 prefix。
func NewRedisStore[V any](manager *Manager, prefix string) *RedisStore[V] {
	return &RedisStore[V]{manager: manager, prefix: prefix}
}

// Get 获取缓存值
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var v V
	err := s.manager.GetJSON(ctx, s.prefix+key, &v)
	if errors.Is(err, ErrCacheMiss) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	return v, true, nil
}

// Set 设置缓存值，使用 Manager 的 DefaultTTL
func (s *RedisStore[V]) Set(ctx context.Context, key string, v V) error {
	return s.manager.SetJSON(ctx, s.prefix+key, v, 0)
}

// Len Redis 后端不统计条目数
func (s *RedisStore[V]) Len() int { return -1 }
