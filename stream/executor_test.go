package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/BaSui01/researchflow/gateway"
	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/testutil"
	"github.com/BaSui01/researchflow/testutil/fixtures"
	"github.com/BaSui01/researchflow/testutil/mocks"
	"github.com/BaSui01/researchflow/workflow"
)

// stubEngine 按注入的函数实现 workflow.Engine。
type stubEngine struct {
	mu       sync.Mutex
	callback workflow.LogCallback
	build    func(name string, temperature float64) error
	run      func(ctx context.Context, query string, log workflow.LogCallback) (*workflow.State, error)

	models []string
}

func (s *stubEngine) SetModel(name string, temperature float64) error {
	return nil
}

func (s *stubEngine) SetLogCallback(cb workflow.LogCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = cb
}

func (s *stubEngine) Run(ctx context.Context, query string, opts workflow.RunOptions) (*workflow.State, error) {
	s.mu.Lock()
	s.models = append(s.models, opts.Model)
	cb := s.callback
	s.mu.Unlock()
	if opts.Model != "" && s.build != nil {
		if err := s.build(opts.Model, opts.Temperature); err != nil {
			return nil, err
		}
	}
	if opts.Log != nil {
		cb = opts.Log
	}
	log := func(msg string) {
		if cb != nil {
			cb(msg)
		}
	}
	if s.run != nil {
		return s.run(ctx, query, log)
	}
	return workflow.NewState(query), nil
}

func (s *stubEngine) hasCallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callback != nil
}

type streamRecorder struct {
	mu       sync.Mutex
	started  int
	finished int
	kinds    []string
}

func (r *streamRecorder) StreamStarted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *streamRecorder) StreamFinished() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
}

func (r *streamRecorder) RecordStreamEvent(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func baseRequest(engine workflow.Engine) Request {
	return Request{
		Engine:      engine,
		TopicKey:    "database",
		TopicLabel:  "Databases & Data Platforms",
		Query:       fixtures.PostgresQuery,
		Model:       "gpt-4o-mini",
		Temperature: 0.1,
	}
}

// assertWellFormed 检查事件序列：topic 开头，log*，恰好一个 final 且位于末尾。
func assertWellFormed(t *testing.T, events []Event, done bool) Event {
	t.Helper()
	require.True(t, done, "stream must end with the sentinel")
	require.GreaterOrEqual(t, len(events), 2)
	assert.Equal(t, KindTopic, events[0].Kind)

	finals := 0
	for i, ev := range events[1:] {
		switch ev.Kind {
		case KindLog:
		case KindFinal:
			finals++
			assert.Equal(t, len(events)-2, i, "final must be the last event")
		default:
			t.Errorf("unexpected event kind %q", ev.Kind)
		}
	}
	assert.Equal(t, 1, finals)
	return events[len(events)-1]
}

func TestExecutor_Success(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &stubEngine{
		run: func(_ context.Context, query string, log workflow.LogCallback) (*workflow.State, error) {
			log("Finding resources about: " + query)
			s := workflow.NewState(query)
			s.ExtractedItems = []string{"Neon", "Supabase"}
			s.Analysis = workflow.Analysis{Summary: "Neon fits", Recommendation: "Pick Neon", Status: workflow.AnalysisOK}
			return s, nil
		},
	}
	rec := &streamRecorder{}
	exec := NewExecutor(WithRecorder(rec))

	events, done := Collect(testutil.TestContext(t), exec.Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)

	assert.Equal(t, TopicEvent("database", "Databases & Data Platforms"), events[0])
	assert.Equal(t, LogEvent("📌 Model selected: gpt-4o-mini"), events[1])
	assert.Equal(t, LogEvent("🎛️ Temperature set to: 0.1"), events[2])
	assert.Equal(t, LogEvent("Finding resources about: "+fixtures.PostgresQuery), events[3])

	assert.Equal(t, "Databases & Data Platforms", final.TopicUsed)
	assert.Nil(t, final.DownloadURL)
	assert.Contains(t, final.Reply, "Pick Neon")
	assert.Contains(t, final.Reply, "- Supabase")

	assert.Equal(t, []string{"gpt-4o-mini"}, engine.models)
	assert.False(t, engine.hasCallback(), "progress goes through the run, not an engine-wide callback")

	testutil.AssertEventuallyTrue(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return rec.finished == 1
	}, time.Second)
	rec.mu.Lock()
	assert.Equal(t, 1, rec.started)
	assert.Equal(t, []string{"topic", "log", "log", "log", "final", "done"}, rec.kinds)
	rec.mu.Unlock()
}

func TestExecutor_RunErrorYieldsSingleFinal(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine := &stubEngine{
		run: func(context.Context, string, workflow.LogCallback) (*workflow.State, error) {
			return nil, errors.New("step 3 (recommend) failed: upstream 503")
		},
	}
	events, done := Collect(testutil.TestContext(t), NewExecutor().Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)
	assert.Contains(t, final.Reply, "The research run failed")
	assert.Contains(t, final.Reply, "upstream 503")
}

// 同一主题的两个流共享一个引擎时，各自使用自己的模型并只收到自己的日志。
func TestExecutor_ConcurrentStreamsOnOneEngine(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	slow := mocks.NewMockProvider().WithCompletionFunc(func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
		once.Do(func() { close(started) })
		<-release
		return &llm.ChatResponse{Choices: []llm.ChatChoice{{Message: llm.Message{Role: llm.RoleAssistant, Content: "from claude"}}}}, nil
	})
	providers := map[string]llm.Provider{
		"claude-3-5-sonnet": slow,
		"deepseek-chat":     mocks.NewSuccessProvider("from deepseek"),
	}
	engine := workflow.NewResearchWorkflow(workflow.ResearchConfig{
		TopicKey:   "database",
		TopicLabel: "Databases & Data Platforms",
		Gateway:    gateway.New(mocks.NewMockSearchClient()),
		Models: workflow.ModelBuilderFunc(func(name string, _ float64) (llm.Provider, error) {
			return providers[name], nil
		}),
	})
	exec := NewExecutor()

	reqA := baseRequest(engine)
	reqA.Query, reqA.Model = "serverless postgres", "claude-3-5-sonnet"
	reqB := baseRequest(engine)
	reqB.Query, reqB.Model = "managed mysql", "deepseek-chat"

	qa := exec.Start(context.Background(), reqA)
	_, ok := testutil.WaitForChannel(started, time.Second)
	require.True(t, ok)

	eventsB, doneB := Collect(testutil.TestContext(t), exec.Start(context.Background(), reqB))
	finalB := assertWellFormed(t, eventsB, doneB)
	assert.Contains(t, finalB.Reply, "from deepseek")

	close(release)
	eventsA, doneA := Collect(testutil.TestContext(t), qa)
	finalA := assertWellFormed(t, eventsA, doneA)
	assert.Contains(t, finalA.Reply, "from claude")

	for _, ev := range eventsA {
		assert.NotContains(t, ev.Message, "managed mysql")
	}
	for _, ev := range eventsB {
		assert.NotContains(t, ev.Message, "serverless postgres")
	}
	assert.Contains(t, eventsA, LogEvent("Finding resources about: serverless postgres"))
	assert.Contains(t, eventsB, LogEvent("Finding resources about: managed mysql"))
}

func TestExecutor_NilEngine(t *testing.T) {
	defer goleak.VerifyNone(t)

	events, done := Collect(testutil.TestContext(t), NewExecutor().Start(context.Background(), baseRequest(nil)))
	final := assertWellFormed(t, events, done)
	assert.Len(t, events, 4, "topic, two announcements, final")
	assert.Contains(t, final.Reply, errNoEngine.Error())
}

func TestExecutor_ModelBuildError(t *testing.T) {
	defer goleak.VerifyNone(t)

	ran := false
	engine := &stubEngine{
		build: func(string, float64) error { return errors.New("unknown model family") },
		run: func(context.Context, string, workflow.LogCallback) (*workflow.State, error) {
			ran = true
			return nil, nil
		},
	}
	events, done := Collect(testutil.TestContext(t), NewExecutor().Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)
	assert.Contains(t, final.Reply, "unknown model family")
	assert.Len(t, events, 4)
	assert.False(t, ran)
}

func TestExecutor_PanicIsRecovered(t *testing.T) {
	defer goleak.VerifyNone(t)

	core, logs := observer.New(zapcore.ErrorLevel)
	engine := &stubEngine{
		run: func(_ context.Context, _ string, log workflow.LogCallback) (*workflow.State, error) {
			log("Analyzing aggregated resources")
			panic("nil map write")
		},
	}
	exec := NewExecutor(WithLogger(zap.New(core)))

	events, done := Collect(testutil.TestContext(t), exec.Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)
	assert.Contains(t, final.Reply, "internal error: nil map write")
	assert.False(t, engine.hasCallback())

	entries := logs.FilterMessage("stream worker panicked").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "database", entries[0].ContextMap()["topic"])
}

func TestExecutor_ConsumerCancellationDoesNotStopRun(t *testing.T) {
	defer goleak.VerifyNone(t)

	release := make(chan struct{})
	finished := make(chan error, 1)
	engine := &stubEngine{
		run: func(ctx context.Context, query string, _ workflow.LogCallback) (*workflow.State, error) {
			<-release
			finished <- ctx.Err()
			return workflow.NewState(query), nil
		},
	}

	reqCtx, cancel := context.WithCancel(context.Background())
	q := NewExecutor().Start(reqCtx, baseRequest(engine))
	cancel()
	close(release)

	err, ok := testutil.WaitForChannel(finished, time.Second)
	require.True(t, ok)
	assert.NoError(t, err, "run context is detached from the request")

	events, done := Collect(testutil.TestContext(t), q)
	assertWellFormed(t, events, done)
}

// 全部外部调用都失败时仍然得到完整的事件序列。
func TestExecutor_AllDegradedResearchWorkflow(t *testing.T) {
	defer goleak.VerifyNone(t)

	search := mocks.NewMockSearchClient().WithSearchError(errors.New("search down"))
	provider := mocks.NewErrorProvider(errors.New("llm down"))
	engine := workflow.NewResearchWorkflow(workflow.ResearchConfig{
		TopicKey:   "database",
		TopicLabel: "Databases & Data Platforms",
		Policy:     workflow.PolicyFor(workflow.DomainTools),
		Gateway:    gateway.New(search, gateway.WithTimeout(time.Second)),
		Models: workflow.ModelBuilderFunc(func(string, float64) (llm.Provider, error) {
			return provider, nil
		}),
	})

	events, done := Collect(testutil.TestContext(t), NewExecutor().Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)

	var logs []string
	for _, ev := range events {
		if ev.Kind == KindLog {
			logs = append(logs, ev.Message)
		}
	}
	assert.Contains(t, logs, "Finding resources about: "+fixtures.PostgresQuery)
	assert.Contains(t, final.Reply, "llm down")
}

func TestExecutor_ResearchWorkflowHappyPath(t *testing.T) {
	defer goleak.VerifyNone(t)

	search := mocks.NewMockSearchClient().WithResults(fixtures.PostgresResults()...)
	provider := mocks.NewMockProvider().WithResponder(fixtures.StageResponder(
		"Neon\nSupabase\nCrunchy Bridge",
		fixtures.ToolsAnalysisJSON,
		"Start with Neon's free tier.",
	))
	engine := workflow.NewResearchWorkflow(workflow.ResearchConfig{
		TopicKey:   "database",
		TopicLabel: "Databases & Data Platforms",
		Gateway:    gateway.New(search),
		Models: workflow.ModelBuilderFunc(func(string, float64) (llm.Provider, error) {
			return provider, nil
		}),
	})

	events, done := Collect(testutil.TestContext(t), NewExecutor().Start(context.Background(), baseRequest(engine)))
	final := assertWellFormed(t, events, done)

	assert.Contains(t, final.Reply, "Start with Neon's free tier.")
	assert.Contains(t, final.Reply, "[Neon](https://neon.tech/pricing)")

	var sawExtracted bool
	for _, ev := range events {
		if ev.Kind == KindLog && strings.HasPrefix(ev.Message, "Extracted items:") {
			sawExtracted = true
		}
	}
	assert.True(t, sawExtracted)
}
