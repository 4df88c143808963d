package workflow

import (
	"context"
	"time"

	"github.com/BaSui01/researchflow/gateway"
	"github.com/BaSui01/researchflow/llm"
)

// LogCallback 接收运行过程中的每一条进度消息。
type LogCallback func(msg string)

// Engine 是一个主题的研究流水线。
// 同一实例可以并发 Run；每次运行拥有自己的状态、模型句柄与回调。
type Engine interface {
	// Run 执行完整流水线，返回最终状态；推荐阶段失败时同时返回部分状态与错误
	Run(ctx context.Context, query string, opts RunOptions) (*State, error)
	// SetModel 替换默认模型句柄，供未指定 Model 的运行使用
	SetModel(name string, temperature float64) error
	// SetLogCallback 安装默认进度回调，nil 表示清除
	SetLogCallback(cb LogCallback)
}

// RunOptions 只作用于一次运行。零值沿用引擎的默认模型与默认回调。
type RunOptions struct {
	// Model 非空时为本次运行单独构建句柄，Temperature 随之生效
	Model       string
	Temperature float64
	// Log 非 nil 时替代默认回调
	Log LogCallback
}

// Gateway 是流水线访问外部世界的唯一入口，失败被吸收为空结果。
type Gateway interface {
	Search(ctx context.Context, query string, limit int) []gateway.Result
	Fetch(ctx context.Context, url string) (string, bool)
}

// ModelBuilder 按模型名与温度构建 LLM 句柄。
type ModelBuilder interface {
	Build(name string, temperature float64) (llm.Provider, error)
}

// ModelBuilderFunc 函数适配器
type ModelBuilderFunc func(name string, temperature float64) (llm.Provider, error)

func (f ModelBuilderFunc) Build(name string, temperature float64) (llm.Provider, error) {
	return f(name, temperature)
}

// Recorder 记录流水线指标，由 metrics.Collector 实现。
type Recorder interface {
	RecordPipelineRun(topic, status string, duration time.Duration)
	RecordStage(stage string, duration time.Duration)
}
