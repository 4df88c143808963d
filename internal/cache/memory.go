package cache

import (
	"context"
	"sync"
)

// MemoryStore 进程内缓存。
//
// 读写由一把 RWMutex 保护。MaxEntries 为 0 时不淘汰（进程生命周期内常驻）；
// 大于 0 时超出容量按写入顺序（FIFO）淘汰最早的 key。覆盖已有 key 不改变其位置。
type MemoryStore[V any] struct {
	mu         sync.RWMutex
	items      map[string]V
	order      []string
	maxEntries int
	evictions  uint64
}

// NewMemoryStore 创建进程内缓存
func NewMemoryStore[V any](maxEntries int) *MemoryStore[V] {
	if maxEntries < 0 {
		maxEntries = 0
	}
	return &MemoryStore[V]{
		items:      make(map[string]V),
		maxEntries: maxEntries,
	}
}

// Get 获取缓存值
func (s *MemoryStore[V]) Get(_ context.Context, key string) (V, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

// Set 设置缓存值
func (s *MemoryStore[V]) Set(_ context.Context, key string, v V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[key]; !exists {
		s.order = append(s.order, key)
	}
	s.items[key] = v

	for s.maxEntries > 0 && len(s.order) > s.maxEntries {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
		s.evictions++
	}
	return nil
}

// Len 返回条目数
func (s *MemoryStore[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Evictions 返回累计淘汰次数
func (s *MemoryStore[V]) Evictions() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evictions
}
