package workflow

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/factory"
)

// Switchboard 按模型名子串选择后端（deepseek / claude / 其他走 openai），
// 并为句柄套上中间件链，温度绑定到每个请求。
type Switchboard struct {
	families map[string]factory.ProviderConfig
	recorder llm.MetricsRecorder
	timeout  time.Duration
	logger   *zap.Logger
}

// SwitchboardOption 配置 Switchboard
type SwitchboardOption func(*Switchboard)

// WithMetricsRecorder 为构建出的句柄记录 LLM 指标。
func WithMetricsRecorder(r llm.MetricsRecorder) SwitchboardOption {
	return func(s *Switchboard) { s.recorder = r }
}

// WithRequestTimeout 为每次补全设置超时。
func WithRequestTimeout(d time.Duration) SwitchboardOption {
	return func(s *Switchboard) { s.timeout = d }
}

// WithSwitchboardLogger 设置日志
func WithSwitchboardLogger(logger *zap.Logger) SwitchboardOption {
	return func(s *Switchboard) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSwitchboard 创建 Switchboard，families 以 factory.Family* 为键。
func NewSwitchboard(families map[string]factory.ProviderConfig, opts ...SwitchboardOption) *Switchboard {
	s := &Switchboard{
		families: make(map[string]factory.ProviderConfig, len(families)),
		logger:   zap.NewNop(),
	}
	for k, v := range families {
		s.families[k] = v
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("component", "switchboard"))
	return s
}

// Build 构建一个全新的句柄，调用方之间不共享状态。
func (s *Switchboard) Build(name string, temperature float64) (llm.Provider, error) {
	if name == "" {
		return nil, fmt.Errorf("model name is required")
	}
	family := factory.FamilyForModel(name)
	provider, err := factory.NewProviderForModel(name, s.families, s.logger)
	if err != nil {
		return nil, fmt.Errorf("build %s provider: %w", family, err)
	}

	chain := llm.NewChain(
		llm.RecoveryMiddleware(func(v any) {
			s.logger.Error("llm provider panicked", zap.String("model", name), zap.Any("panic", v))
		}),
		llm.TemperatureMiddleware(name, float32(temperature)),
		llm.LoggingMiddleware(s.logger),
		llm.TracingMiddleware(family),
	)
	if s.recorder != nil {
		chain.Use(llm.MetricsMiddleware(family, s.recorder))
	}
	if s.timeout > 0 {
		chain.Use(llm.TimeoutMiddleware(s.timeout))
	}

	s.logger.Info("model selected",
		zap.String("model", name),
		zap.String("family", family),
		zap.Float64("temperature", temperature))
	return llm.Wrap(provider, chain), nil
}
