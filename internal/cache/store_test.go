package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type page struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

func TestMemoryStore_GetSet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[[]page](0)

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []page{{Title: "Postgres", URL: "https://postgresql.org"}}
	require.NoError(t, s.Set(ctx, "postgres|3", want))

	got, ok, err := s.Get(ctx, "postgres|3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, s.Len())
}

func TestMemoryStore_FIFOEviction(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[string](2)

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	// 覆盖不改变顺序
	require.NoError(t, s.Set(ctx, "a", "1b"))
	require.NoError(t, s.Set(ctx, "c", "3"))

	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok, "oldest key should be evicted")
	v, ok, _ := s.Get(ctx, "b")
	assert.True(t, ok)
	assert.Equal(t, "2", v)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, uint64(1), s.Evictions())
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore[int](0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			_ = s.Set(ctx, key, i)
			_, _, _ = s.Get(ctx, key)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, s.Len())
}

// 容量上限在任意写入序列下都成立。
func TestMemoryStore_BoundProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		limit := rapid.IntRange(1, 8).Draw(rt, "limit")
		keys := rapid.SliceOf(rapid.StringMatching(`[a-f]{1,2}`)).Draw(rt, "keys")

		s := NewMemoryStore[string](limit)
		for _, k := range keys {
			_ = s.Set(context.Background(), k, k)
		}
		if s.Len() > limit {
			rt.Fatalf("len %d exceeds limit %d", s.Len(), limit)
		}
		if len(keys) > 0 {
			last := keys[len(keys)-1]
			if v, ok, _ := s.Get(context.Background(), last); !ok || v != last {
				rt.Fatalf("most recent key %q missing", last)
			}
		}
	})
}

func TestRedisStore_RoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	manager, err := NewManager(context.Background(), Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	s := NewRedisStore[[]page](manager, "researchflow:search:")

	_, ok, err := s.Get(ctx, "q|3")
	require.NoError(t, err)
	assert.False(t, ok)

	want := []page{{Title: "Kafka", URL: "https://kafka.apache.org"}}
	require.NoError(t, s.Set(ctx, "q|3", want))
	assert.True(t, mr.Exists("researchflow:search:q|3"))

	got, ok, err := s.Get(ctx, "q|3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
	assert.Equal(t, -1, s.Len())
}

func TestRedisStore_ErrorAfterClose(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	manager, err := NewManager(context.Background(), Config{Addr: mr.Addr()}, nil)
	require.NoError(t, err)
	require.NoError(t, manager.Close())

	s := NewRedisStore[string](manager, "p:")
	_, ok, err := s.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrClosed)
}
