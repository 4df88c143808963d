package workflow

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/gateway"
	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/types"
)

// 阶段名，同时作为 ChainWorkflow 的步骤名和 stage 指标标签。
const (
	StageExtract   = "extract_resources"
	StageAnalyze   = "analyze"
	StageRecommend = "recommend"
)

// ResearchConfig 描述一个主题引擎。
type ResearchConfig struct {
	TopicKey           string
	TopicLabel         string
	Policy             Policy
	Gateway            Gateway
	Models             ModelBuilder
	DefaultModel       string
	DefaultTemperature float64
	SearchLimit        int // 每次搜索的结果上限，<=0 时为 3
	Recorder           Recorder
	Logger             *zap.Logger
}

// ResearchWorkflow 实现 Engine：Extract → Analyze → Recommend，
// 每个阶段只尝试一次，不重试。
type ResearchWorkflow struct {
	cfg    ResearchConfig
	logger *zap.Logger

	mu       sync.RWMutex
	provider llm.Provider
	callback LogCallback
}

var _ Engine = (*ResearchWorkflow)(nil)

// NewResearchWorkflow 创建引擎，并尝试按默认模型构建初始句柄。
// 构建失败只记日志，后续 SetModel 可以补上。
func NewResearchWorkflow(cfg ResearchConfig) *ResearchWorkflow {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Policy.Domain == "" {
		cfg.Policy = PolicyFor(DomainTools)
	}
	if cfg.Gateway == nil {
		cfg.Gateway = emptyGateway{}
	}
	w := &ResearchWorkflow{
		cfg: cfg,
		logger: cfg.Logger.With(
			zap.String("component", "research_workflow"),
			zap.String("topic", cfg.TopicLabel),
			zap.String("tag", cfg.TopicKey),
		),
	}
	if cfg.Models != nil && cfg.DefaultModel != "" {
		p, err := cfg.Models.Build(cfg.DefaultModel, cfg.DefaultTemperature)
		if err != nil {
			w.logger.Warn("default model unavailable", zap.String("model", cfg.DefaultModel), zap.Error(err))
		} else {
			w.provider = p
		}
	}
	return w
}

// TopicKey 返回引擎所属主题
func (w *ResearchWorkflow) TopicKey() string { return w.cfg.TopicKey }

// Policy 返回引擎使用的域策略
func (w *ResearchWorkflow) Policy() Policy { return w.cfg.Policy }

// SetModel 构建新的默认句柄并替换；失败时保留旧句柄。
func (w *ResearchWorkflow) SetModel(name string, temperature float64) error {
	p, err := w.build(name, temperature)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.provider = p
	w.mu.Unlock()
	return nil
}

// SetLogCallback 安装或清除默认进度回调。
func (w *ResearchWorkflow) SetLogCallback(cb LogCallback) {
	w.mu.Lock()
	w.callback = cb
	w.mu.Unlock()
}

func (w *ResearchWorkflow) build(name string, temperature float64) (llm.Provider, error) {
	if w.cfg.Models == nil {
		return nil, types.NewError(types.ErrProviderNotSet, "no model builder configured")
	}
	return w.cfg.Models.Build(name, temperature)
}

// Run 执行一次完整流水线。opts 未指定的句柄与回调取开始时的默认值，
// 运行期间 SetModel / SetLogCallback 不影响本次运行。
func (w *ResearchWorkflow) Run(ctx context.Context, query string, opts RunOptions) (*State, error) {
	w.mu.RLock()
	r := &run{
		cfg:      &w.cfg,
		state:    NewState(query),
		provider: w.provider,
		callback: w.callback,
		logger:   w.logger,
	}
	w.mu.RUnlock()

	if opts.Model != "" {
		p, err := w.build(opts.Model, opts.Temperature)
		if err != nil {
			return nil, err
		}
		r.provider = p
		r.logger = r.logger.With(zap.String("model", opts.Model))
	}
	if opts.Log != nil {
		r.callback = opts.Log
	}

	chain := NewChainWorkflow[*State](w.cfg.TopicKey, w.cfg.TopicLabel,
		NewFuncStep(StageExtract, r.step(r.extract)),
		NewFuncStep(StageAnalyze, r.step(r.analyze)),
		NewFuncStep(StageRecommend, r.step(r.recommend)),
	)
	if w.cfg.Recorder != nil {
		chain.WithObserver(func(stage string, d time.Duration, _ error) {
			w.cfg.Recorder.RecordStage(stage, d)
		})
	}

	start := time.Now()
	err := chain.Execute(ctx, r.state)

	status := "ok"
	switch {
	case err != nil:
		status = "error"
		w.logger.Error("research run failed", zap.Error(err))
	case r.state.Analysis.Status != AnalysisOK:
		status = "degraded"
	}
	if w.cfg.Recorder != nil {
		w.cfg.Recorder.RecordPipelineRun(w.cfg.TopicKey, status, time.Since(start))
	}
	return r.state, err
}

// emptyGateway 在未配置网关时返回空结果。
type emptyGateway struct{}

func (emptyGateway) Search(context.Context, string, int) []gateway.Result { return []gateway.Result{} }

func (emptyGateway) Fetch(context.Context, string) (string, bool) { return "", false }

// run 持有单次运行的状态，不跨运行共享。
type run struct {
	cfg      *ResearchConfig
	state    *State
	provider llm.Provider
	callback LogCallback
	logger   *zap.Logger
}

// step 把阶段方法适配为链步骤；阶段通过 r.state 访问状态。
func (r *run) step(fn func(ctx context.Context) error) StepFunc[*State] {
	return func(ctx context.Context, _ *State) error { return fn(ctx) }
}

// log 追加到状态、写 zap，并把原始消息转给回调。
func (r *run) log(msg string) {
	r.state.LogMessages = append(r.state.LogMessages, msg)
	r.logger.Info(msg)
	if r.callback != nil {
		r.callback(msg)
	}
}
