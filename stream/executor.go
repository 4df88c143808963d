package stream

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BaSui01/researchflow/internal/ctxkeys"
	"github.com/BaSui01/researchflow/workflow"
)

// Request 描述一次流式研究运行。
type Request struct {
	Engine      workflow.Engine
	TopicKey    string
	TopicLabel  string
	Query       string
	Model       string
	Temperature float64
}

// Recorder 记录流会话指标，由 metrics.Collector 实现。
type Recorder interface {
	StreamStarted()
	StreamFinished()
	RecordStreamEvent(kind string)
}

// Option 配置 Executor
type Option func(*Executor)

// WithLogger 设置日志器
func WithLogger(logger *zap.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder 设置指标记录器
func WithRecorder(r Recorder) Option {
	return func(e *Executor) { e.recorder = r }
}

// Executor 在后台 goroutine 中运行引擎，并把进度以事件队列的形式交给调用方。
type Executor struct {
	logger   *zap.Logger
	recorder Recorder
}

// NewExecutor 创建执行器
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "stream_executor"))
	return e
}

var errNoEngine = errors.New("no engine configured for topic")

// Start 立即返回事件队列。队列依次收到 Topic、若干 Log、恰好一个 Final
// 和结束哨兵，之后关闭。调用方断开不会中止后台运行。
func (e *Executor) Start(ctx context.Context, req Request) *Queue[Event] {
	q := NewQueue[Event]()
	sessionID := uuid.NewString()
	runCtx := ctxkeys.WithSessionID(context.WithoutCancel(ctx), sessionID)
	runCtx = ctxkeys.WithTopic(runCtx, req.TopicKey)

	if e.recorder != nil {
		e.recorder.StreamStarted()
	}
	go e.work(runCtx, sessionID, req, q)
	return q
}

func (e *Executor) work(ctx context.Context, sessionID string, req Request, q *Queue[Event]) {
	logger := e.logger.With(
		zap.String("session_id", sessionID),
		zap.String("topic", req.TopicKey),
	)
	finalSent := false
	push := func(ev Event) {
		if q.Push(ev) && e.recorder != nil {
			e.recorder.RecordStreamEvent(string(ev.Kind))
		}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("stream worker panicked",
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
			if !finalSent {
				push(FinalEvent(workflow.FormatError(req.Query, fmt.Errorf("internal error: %v", r)), req.TopicLabel))
				finalSent = true
			}
		}
		if !finalSent {
			push(FinalEvent(workflow.FormatError(req.Query, errors.New("run ended without a result")), req.TopicLabel))
		}
		push(DoneEvent())
		q.Close()
		if e.recorder != nil {
			e.recorder.StreamFinished()
		}
	}()

	final := func(reply string) {
		push(FinalEvent(reply, req.TopicLabel))
		finalSent = true
	}

	push(TopicEvent(req.TopicKey, req.TopicLabel))
	push(LogEvent("📌 Model selected: " + req.Model))
	push(LogEvent("🎛️ Temperature set to: " + strconv.FormatFloat(req.Temperature, 'f', -1, 64)))

	if req.Engine == nil {
		final(workflow.FormatError(req.Query, errNoEngine))
		return
	}
	// 回调只属于本次运行，结束后不会再被调用
	state, err := req.Engine.Run(ctx, req.Query, workflow.RunOptions{
		Model:       req.Model,
		Temperature: req.Temperature,
		Log:         func(msg string) { push(LogEvent(msg)) },
	})
	if err != nil {
		logger.Warn("research run failed", zap.Error(err))
		final(workflow.FormatError(req.Query, err))
		return
	}
	final(workflow.FormatReply(state))
	logger.Debug("research run completed")
}

// Collect 读取队列直到结束哨兵或 ctx 结束，返回不含哨兵的事件序列。
// 第二个返回值报告是否读到了哨兵。
func Collect(ctx context.Context, q *Queue[Event]) ([]Event, bool) {
	var events []Event
	for {
		ev, ok := q.Next(ctx)
		if !ok {
			return events, false
		}
		if ev.IsDone() {
			return events, true
		}
		events = append(events, ev)
	}
}
