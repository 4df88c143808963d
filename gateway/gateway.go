package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/BaSui01/researchflow/internal/cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout 单次外部调用的默认上限
const DefaultTimeout = 60 * time.Second

// Result 一条搜索结果。Markdown 为搜索时顺带抓取到的正文，可能为空。
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty"`
}

// Client 真正发起网络请求的一方，错误由 Gateway 吸收。
type Client interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
	Fetch(ctx context.Context, url string) (string, error)
}

// Recorder 网关指标接口，metrics.Collector 实现了它。
type Recorder interface {
	RecordGatewayCall(operation, outcome string, duration time.Duration)
	RecordCacheHit(cacheType string)
	RecordCacheMiss(cacheType string)
}

const (
	opSearch = "search"
	opFetch  = "fetch"

	outcomeOK      = "ok"
	outcomeEmpty   = "empty"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

// Gateway 包裹 Client，提供缓存、超时与失败吸收。
//
// 同一 key 的并发调用经 singleflight 合并，同一时刻只有一个外部调用在途，
// 缓存写入也只来自这一个调用。只有在超时之前返回的非空成功结果才会写入缓存；
// 超时后才返回的结果直接丢弃。
type Gateway struct {
	client   Client
	searches cache.Store[[]Result]
	pages    cache.Store[string]
	timeout  time.Duration
	recorder Recorder
	logger   *zap.Logger
	group    singleflight.Group
}

// Option 配置 Gateway
type Option func(*Gateway)

// WithTimeout 设置单次调用超时
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithSearchStore 替换搜索结果缓存
func WithSearchStore(s cache.Store[[]Result]) Option {
	return func(g *Gateway) { g.searches = s }
}

// WithPageStore 替换页面内容缓存
func WithPageStore(s cache.Store[string]) Option {
	return func(g *Gateway) { g.pages = s }
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(g *Gateway) { g.recorder = r }
}

// WithLogger 设置日志
func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// New 创建网关。默认使用不淘汰的内存缓存。
func New(client Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:   client,
		searches: cache.NewMemoryStore[[]Result](0),
		pages:    cache.NewMemoryStore[string](0),
		timeout:  DefaultTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "gateway"))
	return g
}

// Timeout 返回当前超时配置
func (g *Gateway) Timeout() time.Duration { return g.timeout }

// NormalizeQuery 去除首尾空白、合并内部空白并转小写。
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

// SearchKey 搜索缓存 key
func SearchKey(query string, limit int) string {
	return fmt.Sprintf("%s|%d", NormalizeQuery(query), limit)
}

// Search 返回搜索结果；超时、出错或结果为空时返回空切片，从不返回错误。
func (g *Gateway) Search(ctx context.Context, query string, limit int) []Result {
	key := SearchKey(query, limit)
	results, _ := cachedCall(ctx, g, opSearch, key, g.searches,
		func(ctx context.Context) ([]Result, error) {
			return g.client.Search(ctx, query, limit)
		},
		func(r []Result) bool { return len(r) == 0 },
	)
	// 复制一份，调用方修改结果不会影响缓存
	out := make([]Result, len(results))
	copy(out, results)
	return out
}

// Fetch 抓取页面内容；失败或内容为空时 ok 为 false。
func (g *Gateway) Fetch(ctx context.Context, url string) (string, bool) {
	return cachedCall(ctx, g, opFetch, url, g.pages,
		func(ctx context.Context) (string, error) {
			return g.client.Fetch(ctx, url)
		},
		func(s string) bool { return strings.TrimSpace(s) == "" },
	)
}

type callResult[T any] struct {
	value T
	err   error
}

func cachedCall[T any](
	ctx context.Context,
	g *Gateway,
	op, key string,
	store cache.Store[T],
	fn func(context.Context) (T, error),
	isEmpty func(T) bool,
) (T, bool) {
	var zero T
	if g.client == nil {
		return zero, false
	}

	if v, ok := lookup(ctx, g, op, key, store); ok {
		return v, true
	}

	shared, _, _ := g.group.Do(op+":"+key, func() (any, error) {
		// 前一个 flight 可能刚写完缓存
		if v, ok, err := store.Get(ctx, key); err == nil && ok {
			return callResult[T]{value: v}, nil
		}

		v, outcome := runWithTimeout(ctx, g, op, key, fn, isEmpty)
		if outcome != outcomeOK {
			return callResult[T]{err: errors.New(outcome)}, nil
		}
		if err := store.Set(context.WithoutCancel(ctx), key, v); err != nil {
			g.logger.Warn("cache write failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
		}
		return callResult[T]{value: v}, nil
	})

	res := shared.(callResult[T])
	if res.err != nil {
		return zero, false
	}
	return res.value, true
}

func lookup[T any](ctx context.Context, g *Gateway, op, key string, store cache.Store[T]) (T, bool) {
	v, ok, err := store.Get(ctx, key)
	if err != nil {
		g.logger.Warn("cache read failed", zap.String("op", op), zap.String("key", key), zap.Error(err))
		ok = false
	}
	if g.recorder != nil {
		if ok {
			g.recorder.RecordCacheHit(op)
		} else {
			g.recorder.RecordCacheMiss(op)
		}
	}
	return v, ok
}

// runWithTimeout 在独立 goroutine 上执行调用，最多等待 g.timeout。
// 调用使用 WithoutCancel 的 ctx，超时后 goroutine 继续跑完，结果写入
// 带缓冲的 channel 后被丢弃。
func runWithTimeout[T any](
	ctx context.Context,
	g *Gateway,
	op, key string,
	fn func(context.Context) (T, error),
	isEmpty func(T) bool,
) (T, string) {
	var zero T
	start := time.Now()
	done := make(chan callResult[T], 1)
	var abandoned atomic.Bool

	callCtx := context.WithoutCancel(ctx)
	go func() {
		var res callResult[T]
		defer func() {
			if r := recover(); r != nil {
				res = callResult[T]{err: fmt.Errorf("client panic: %v", r)}
			}
			if abandoned.Load() {
				g.logger.Debug("late result discarded", zap.String("op", op), zap.String("key", key))
			}
			done <- res
		}()
		v, err := fn(callCtx)
		res = callResult[T]{value: v, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	var res callResult[T]
	select {
	case res = <-done:
	case <-timer.C:
		abandoned.Store(true)
		g.logger.Warn("[TIMEOUT] external call exceeded deadline",
			zap.String("op", op),
			zap.String("key", key),
			zap.Duration("timeout", g.timeout),
		)
		g.record(op, outcomeTimeout, time.Since(start))
		return zero, outcomeTimeout
	}

	elapsed := time.Since(start)
	switch {
	case res.err != nil:
		g.logger.Error("[ERROR] external call failed",
			zap.String("op", op),
			zap.String("key", key),
			zap.Error(res.err),
		)
		g.record(op, outcomeError, elapsed)
		return zero, outcomeError
	case isEmpty(res.value):
		g.logger.Warn("[WARN] empty result", zap.String("op", op), zap.String("key", key))
		g.record(op, outcomeEmpty, elapsed)
		return zero, outcomeEmpty
	}

	g.logger.Debug("external call succeeded",
		zap.String("op", op),
		zap.String("key", key),
		zap.Duration("elapsed", elapsed),
	)
	g.record(op, outcomeOK, elapsed)
	return res.value, outcomeOK
}

func (g *Gateway) record(op, outcome string, d time.Duration) {
	if g.recorder != nil {
		g.recorder.RecordGatewayCall(op, outcome, d)
	}
}
