package topic

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/llm"
)

// DefaultRouterTimeout 是单次分类的 LLM 超时。
const DefaultRouterTimeout = 20 * time.Second

// RouteRecorder 记录路由结果，由 metrics.Collector 实现。
type RouteRecorder interface {
	RecordTopicRoute(topic string, fallback bool)
}

// Router 用 LLM 把查询归类到注册表中的某个主题。
// Classify 从不失败：任何异常都回落到第一个注册的主题。
type Router struct {
	registry *Registry
	provider llm.Provider
	timeout  time.Duration
	recorder RouteRecorder
	logger   *zap.Logger
}

// RouterOption 配置 Router
type RouterOption func(*Router)

// WithTimeout 设置分类超时
func WithTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRecorder 设置路由指标记录器
func WithRecorder(rec RouteRecorder) RouterOption {
	return func(r *Router) { r.recorder = rec }
}

// WithLogger 设置日志
func WithLogger(logger *zap.Logger) RouterOption {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRouter 创建路由器。provider 为 nil 时所有查询都走兜底主题。
func NewRouter(registry *Registry, provider llm.Provider, opts ...RouterOption) *Router {
	r := &Router{
		registry: registry,
		provider: provider,
		timeout:  DefaultRouterTimeout,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(zap.String("component", "topic_router"))
	return r
}

// Registry 返回路由使用的注册表
func (r *Router) Registry() *Registry { return r.registry }

// Classify 返回 (key, label)。
func (r *Router) Classify(ctx context.Context, query string) (string, string) {
	if r.provider == nil {
		return r.fallback(query, "no router model configured", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	resp, err := r.provider.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: r.systemPrompt()},
			{Role: llm.RoleUser, Content: "User query: " + query},
		},
	})
	if err != nil {
		return r.fallback(query, "classification failed", err)
	}
	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return r.fallback(query, "classification failed", err)
	}

	answer := cleanLabel(choice.Message.Content)
	c, ok := r.registry.lookupLabel(answer)
	if !ok {
		return r.fallback(query, fmt.Sprintf("unrecognized label %q", answer), nil)
	}

	if r.recorder != nil {
		r.recorder.RecordTopicRoute(c.Key, false)
	}
	r.logger.Debug("query classified", zap.String("topic", c.Key))
	return c.Key, c.Label
}

func (r *Router) fallback(query, reason string, err error) (string, string) {
	first := r.registry.First()
	r.logger.Warn("topic classification fell back",
		zap.String("reason", reason),
		zap.String("fallback", first.Key),
		zap.Int("query_len", len(query)),
		zap.Error(err))
	if r.recorder != nil {
		r.recorder.RecordTopicRoute(first.Key, true)
	}
	return first.Key, first.Label
}

func (r *Router) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a topic router. You classify user queries into categories.\n\n")
	b.WriteString("Available research categories:\n")
	for _, c := range r.registry.configs {
		fmt.Fprintf(&b, "- %s: %s\n", c.Label, c.Description)
	}
	b.WriteString("\nYour job:\n")
	b.WriteString("- Read the query.\n")
	b.WriteString("- Choose EXACTLY one category.\n")
	b.WriteString("- Return ONLY the category *label*, nothing else.\n")
	b.WriteString("If ambiguous, choose the closest match.")
	return b.String()
}

// cleanLabel 去掉首尾空白、引号与结尾句号。
func cleanLabel(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`*")
	s = strings.TrimSuffix(s, ".")
	return strings.TrimSpace(s)
}
