package workflow

import (
	"context"
	"fmt"
	"time"
)

// Step 是流水线中的一个阶段，就地更新共享状态 S。
type Step[S any] interface {
	Name() string
	Execute(ctx context.Context, state S) error
}

// StepFunc 阶段函数
type StepFunc[S any] func(ctx context.Context, state S) error

// FuncStep 把函数包装成 Step
type FuncStep[S any] struct {
	name string
	fn   StepFunc[S]
}

// NewFuncStep 创建函数步骤
func NewFuncStep[S any](name string, fn StepFunc[S]) *FuncStep[S] {
	return &FuncStep[S]{name: name, fn: fn}
}

func (s *FuncStep[S]) Execute(ctx context.Context, state S) error {
	return s.fn(ctx, state)
}

func (s *FuncStep[S]) Name() string {
	return s.name
}

// StepObserver 在每个步骤结束后被调用（成功或失败）。
type StepObserver func(step string, duration time.Duration, err error)

// ChainWorkflow 按固定顺序执行步骤，所有步骤共享同一个状态。
// 某一步返回错误时停止，后续步骤不再执行，已写入状态的内容保留。
type ChainWorkflow[S any] struct {
	name        string
	description string
	steps       []Step[S]
	observer    StepObserver
}

// NewChainWorkflow 创建链式工作流
func NewChainWorkflow[S any](name, description string, steps ...Step[S]) *ChainWorkflow[S] {
	return &ChainWorkflow[S]{
		name:        name,
		description: description,
		steps:       steps,
	}
}

// WithObserver 设置步骤观察者，用于记录阶段耗时。
func (w *ChainWorkflow[S]) WithObserver(obs StepObserver) *ChainWorkflow[S] {
	w.observer = obs
	return w
}

// Execute 依次执行每个步骤。每步开始前检查 ctx；
// 步骤错误包装为 "step N (name) failed: ..."。
func (w *ChainWorkflow[S]) Execute(ctx context.Context, state S) error {
	for i, step := range w.steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		start := time.Now()
		err := step.Execute(ctx, state)
		if w.observer != nil {
			w.observer(step.Name(), time.Since(start), err)
		}
		if err != nil {
			return fmt.Errorf("step %d (%s) failed: %w", i+1, step.Name(), err)
		}
	}
	return nil
}

func (w *ChainWorkflow[S]) Name() string { return w.name }

func (w *ChainWorkflow[S]) Description() string { return w.description }

// StepNames 返回步骤名，顺序即执行顺序
func (w *ChainWorkflow[S]) StepNames() []string {
	names := make([]string, len(w.steps))
	for i, s := range w.steps {
		names[i] = s.Name()
	}
	return names
}
