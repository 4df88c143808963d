package cache

import "context"

// Store 是类型化的键值缓存。
//
// 并发约定：所有实现都可被多个 goroutine 同时调用；同一 key 的并发写入
// 以最后一次为准。调用方若需要“每个 key 只有一个写入者”，应在外层
// 使用 singleflight 之类的合并机制。
type Store[V any] interface {
	// Get 返回缓存值；未命中时 ok 为 false 且 err 为 nil。
	Get(ctx context.Context, key string) (v V, ok bool, err error)
	// Set 写入缓存值。
	Set(ctx context.Context, key string, v V) error
	// Len 返回当前条目数，不支持统计的后端返回 -1。
	Len() int
}
