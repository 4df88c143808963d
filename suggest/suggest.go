package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/internal/cache"
	"github.com/BaSui01/researchflow/llm"
)

const (
	// DefaultCount 是未指定数量时返回的问题数
	DefaultCount = 5
	// MaxCount 限制单次请求的问题数
	MaxCount = 20
	// Temperature 偏高以获得更多样的问题
	Temperature = 0.9
	// DefaultModel 是生成问题使用的模型
	DefaultModel = "gpt-4o-mini"
	// DefaultTTL 是 LLM 结果的缓存时间；过期后重新生成
	DefaultTTL = 5 * time.Minute
)

// DefaultPool 在 LLM 不可用或输出无法解析时使用。
var DefaultPool = []string{
	"What are some good Python IDEs for beginners?",
	"What are the pros and cons of using VS Code vs JetBrains IDEs?",
	"Which managed Postgres services should I consider on AWS, GCP, or Azure?",
	"What are good alternatives to AWS Lambda for serverless backends?",
	"What are the best coding interview platforms for LeetCode-style problems?",
	"How can I improve the architecture of a microservices-based system?",
	"What are good resources to learn system design for backend engineers?",
	"What tools can help me monitor and debug a distributed system?",
	"What are some best practices for designing multi-tenant SaaS architecture?",
	"How should I structure my software engineering resume for senior roles?",
}

const systemPrompt = `You generate example user questions for a research assistant that helps software developers with:
- developer tools & IDEs
- APIs & backend services
- cloud & databases
- SaaS products
- software engineering practices
- developer careers (interviews, resumes, learning roadmaps)

Return ONLY a JSON array of strings. No explanation, no code fences.`

// Entry 是一次 LLM 生成的缓存记录
type Entry struct {
	Questions   []string  `json:"questions"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Option 配置 Generator
type Option func(*Generator)

// WithStore 替换按数量缓存结果的存储
func WithStore(s cache.Store[Entry]) Option {
	return func(g *Generator) {
		if s != nil {
			g.store = s
		}
	}
}

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithTTL 设置缓存时间；ttl <= 0 时每次都重新生成
func WithTTL(ttl time.Duration) Option {
	return func(g *Generator) { g.ttl = ttl }
}

// WithModel 设置请求中的模型名
func WithModel(model string) Option {
	return func(g *Generator) { g.model = model }
}

// Generator 生成示例研究问题。
type Generator struct {
	provider llm.Provider
	store    cache.Store[Entry]
	ttl      time.Duration
	model    string
	logger   *zap.Logger
	now      func() time.Time
}

// NewGenerator 创建生成器；provider 为 nil 时总是返回默认问题。
func NewGenerator(provider llm.Provider, opts ...Option) *Generator {
	g := &Generator{
		provider: provider,
		store:    cache.NewMemoryStore[Entry](MaxCount),
		ttl:      DefaultTTL,
		model:    DefaultModel,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With(zap.String("component", "suggestions"))
	return g
}

// Generate 返回 n 个示例问题。n <= 0 时使用 DefaultCount，超过 MaxCount 时截断。
// LLM 成功生成的结果缓存 ttl 时长，回退结果不缓存。
func (g *Generator) Generate(ctx context.Context, n int) []string {
	if n <= 0 {
		n = DefaultCount
	}
	n = min(n, MaxCount)

	key := strconv.Itoa(n)
	if g.ttl > 0 {
		entry, ok, err := g.store.Get(ctx, key)
		if err == nil && ok && len(entry.Questions) > 0 && g.now().Sub(entry.GeneratedAt) < g.ttl {
			return append([]string(nil), entry.Questions...)
		}
	}

	questions, err := g.ask(ctx, n)
	if err != nil {
		g.logger.Warn("suggestion generation fell back to defaults", zap.Error(err))
		return Fallback(n)
	}
	if g.ttl > 0 {
		if err := g.store.Set(ctx, key, Entry{Questions: questions, GeneratedAt: g.now()}); err != nil {
			g.logger.Debug("suggestion cache write failed", zap.Error(err))
		}
	}
	return append([]string(nil), questions...)
}

func (g *Generator) ask(ctx context.Context, n int) ([]string, error) {
	if g.provider == nil {
		return nil, fmt.Errorf("no provider configured")
	}
	user := fmt.Sprintf(
		"Generate %d diverse example questions a developer might ask this assistant.\n"+
			"Randomizer token: %d at %s.\n"+
			"Return strictly JSON like:\n"+
			`["question1", "question2", ...]`,
		n, rand.IntN(10_001), g.now().Format(time.RFC3339),
	)
	resp, err := g.provider.Completion(ctx, &llm.ChatRequest{
		Model:       g.model,
		Temperature: Temperature,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: systemPrompt},
			{Role: llm.RoleUser, Content: user},
		},
	})
	if err != nil {
		return nil, err
	}
	choice, err := llm.FirstChoice(resp)
	if err != nil {
		return nil, err
	}
	questions, err := Parse(choice.Message.Content)
	if err != nil {
		return nil, err
	}
	if len(questions) > n {
		questions = questions[:n]
	}
	return questions, nil
}

// Parse 从 LLM 输出中取第一个 '[' 到最后一个 ']' 之间的 JSON 数组，
// 去掉空白项。结果为空时返回错误。
func Parse(raw string) ([]string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start == -1 || end == -1 || start >= end {
		return nil, fmt.Errorf("no JSON array in output")
	}

	var items []any
	if err := json.Unmarshal([]byte(raw[start:end+1]), &items); err != nil {
		return nil, fmt.Errorf("parse suggestions: %w", err)
	}
	questions := make([]string, 0, len(items))
	for _, it := range items {
		var s string
		switch v := it.(type) {
		case string:
			s = v
		case nil:
			continue
		default:
			s = fmt.Sprint(v)
		}
		if s = strings.TrimSpace(s); s != "" {
			questions = append(questions, s)
		}
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("suggestion array is empty")
	}
	return questions, nil
}

// Fallback 从默认问题池中随机取 n 个不重复的问题
func Fallback(n int) []string {
	n = max(0, min(n, len(DefaultPool)))
	out := make([]string, 0, n)
	for _, i := range rand.Perm(len(DefaultPool))[:n] {
		out = append(out, DefaultPool[i])
	}
	return out
}
