package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/BaSui01/researchflow/api"
	"github.com/BaSui01/researchflow/stream"
	"github.com/BaSui01/researchflow/testutil"
	"github.com/BaSui01/researchflow/testutil/fixtures"
	"github.com/BaSui01/researchflow/topic"
	"github.com/BaSui01/researchflow/types"
	"github.com/BaSui01/researchflow/workflow"
)

// =============================================================================
// 🧪 测试替身
// =============================================================================

type modelCall struct {
	name        string
	temperature float64
}

type fakeEngine struct {
	mu       sync.Mutex
	callback workflow.LogCallback
	models   []modelCall
	runs     int
	runErr   error
}

func (e *fakeEngine) SetModel(string, float64) error { return nil }

func (e *fakeEngine) SetLogCallback(cb workflow.LogCallback) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.callback = cb
}

func (e *fakeEngine) Run(_ context.Context, query string, opts workflow.RunOptions) (*workflow.State, error) {
	e.mu.Lock()
	e.runs++
	e.models = append(e.models, modelCall{opts.Model, opts.Temperature})
	cb := e.callback
	err := e.runErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if opts.Log != nil {
		cb = opts.Log
	}
	if cb != nil {
		cb("Finding resources about: " + query)
	}
	s := workflow.NewState(query)
	s.ExtractedItems = []string{"Neon"}
	s.Analysis = workflow.Analysis{Summary: "Neon fits", Recommendation: "Use Neon", Status: workflow.AnalysisOK}
	return s, nil
}

func (e *fakeEngine) runCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

func (e *fakeEngine) lastModel() modelCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.models) == 0 {
		return modelCall{}
	}
	return e.models[len(e.models)-1]
}

type fixedClassifier struct{ key, label string }

func (c fixedClassifier) Classify(context.Context, string) (string, string) { return c.key, c.label }

type researchFixture struct {
	registry *topic.Registry
	engines  map[string]*fakeEngine
	handler  *ResearchHandler
}

func newResearchFixture(t *testing.T) *researchFixture {
	t.Helper()
	registry, err := topic.NewRegistry(
		topic.Config{Key: "developer_tools", Label: "Developer Tools", Domain: workflow.DomainTools},
		topic.Config{Key: "database", Label: "Databases & Data Platforms", Domain: workflow.DomainTools},
		topic.Config{Key: "testing", Label: "Testing", Domain: workflow.DomainSoftwareEngineering},
	)
	require.NoError(t, err)

	f := &researchFixture{registry: registry, engines: map[string]*fakeEngine{}}
	engines := map[string]workflow.Engine{}
	for _, key := range registry.Keys() {
		e := &fakeEngine{}
		f.engines[key] = e
		engines[key] = e
	}
	f.handler = NewResearchHandler(ResearchDeps{
		Registry: registry,
		Router:   fixedClassifier{"database", "Databases & Data Platforms"},
		Engines:  engines,
		Executor: stream.NewExecutor(),
	}, zap.NewNop())
	return f
}

func (f *researchFixture) totalRuns() int {
	n := 0
	for _, e := range f.engines {
		n += e.runCount()
	}
	return n
}

func (f *researchFixture) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/chat", f.handler.HandleChat)
	mux.HandleFunc("GET /api/v1/chat/stream", f.handler.HandleStream)
	mux.HandleFunc("GET /api/v1/chat/ws", f.handler.HandleWebSocket)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postChat(t *testing.T, h *ResearchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewBufferString(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.HandleChat(w, r)
	return w
}

// =============================================================================
// 🧪 同步接口
// =============================================================================

func TestResearchHandler_HandleChat(t *testing.T) {
	f := newResearchFixture(t)

	w := postChat(t, f.handler, `{"query":"`+fixtures.PostgresQuery+`"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data api.ChatResponse
	resp := decodeResponse(t, w, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "database", data.TopicKey)
	assert.Equal(t, "Databases & Data Platforms", data.TopicUsed)
	assert.Nil(t, data.DownloadURL)
	assert.Contains(t, data.Reply, "Use Neon")
	require.NotNil(t, data.State)
	assert.Equal(t, []string{"Neon"}, data.State.ExtractedItems)

	assert.Equal(t, modelCall{DefaultModel, DefaultTemperature}, f.engines["database"].lastModel())
}

func TestResearchHandler_HandleChat_ExplicitTopicAndOverrides(t *testing.T) {
	f := newResearchFixture(t)

	w := postChat(t, f.handler, `{"query":"how to test","topic":"testing","model":"claude-3-5-sonnet","temperature":0.7}`)
	require.Equal(t, http.StatusOK, w.Code)

	var data api.ChatResponse
	decodeResponse(t, w, &data)
	assert.Equal(t, "testing", data.TopicKey)
	assert.Equal(t, modelCall{"claude-3-5-sonnet", 0.7}, f.engines["testing"].lastModel())
	assert.Equal(t, 0, f.engines["database"].runCount())
}

// 同一主题的并发请求都会执行，各自带着自己的模型。
func TestResearchHandler_HandleChat_ConcurrentSameTopic(t *testing.T) {
	f := newResearchFixture(t)

	bodies := []string{
		`{"query":"q1","topic":"database","model":"claude-3-5-sonnet","temperature":0.2}`,
		`{"query":"q2","topic":"database","model":"deepseek-chat","temperature":0.6}`,
	}
	codes := make([]int, len(bodies))
	var wg sync.WaitGroup
	for i, body := range bodies {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes[i] = postChat(t, f.handler, body).Code
		}()
	}
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	e := f.engines["database"]
	e.mu.Lock()
	defer e.mu.Unlock()
	assert.ElementsMatch(t, []modelCall{{"claude-3-5-sonnet", 0.2}, {"deepseek-chat", 0.6}}, e.models)
}

func TestResearchHandler_HandleChat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		runErr     error
		wantStatus int
		wantCode   types.ErrorCode
	}{
		{"unknown topic", `{"query":"q","topic":"gardening"}`, nil, http.StatusBadRequest, types.ErrUnknownTopic},
		{"empty query", `{"query":"   "}`, nil, http.StatusBadRequest, types.ErrInvalidRequest},
		{"temperature out of range", `{"query":"q","temperature":3}`, nil, http.StatusBadRequest, types.ErrInvalidRequest},
		{"unknown field", `{"message":"q"}`, nil, http.StatusBadRequest, types.ErrInvalidRequest},
		{"run failure", `{"query":"q"}`, errors.New("step 3 (recommend) failed: 503"), http.StatusInternalServerError, types.ErrInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResearchFixture(t)
			f.engines["database"].runErr = tt.runErr

			w := postChat(t, f.handler, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
		})
	}
}

// 任意非法主题都在运行前被拒绝，错误消息恰好列出每个合法 key 一次。
func TestResearchHandler_UnknownTopicListsEveryKey(t *testing.T) {
	f := newResearchFixture(t)
	keys := f.registry.Keys()

	rapid.Check(t, func(rt *rapid.T) {
		bad := rapid.StringMatching(`[a-z_]{1,20}`).
			Filter(func(s string) bool {
				_, ok := f.registry.Get(s)
				return !ok
			}).
			Draw(rt, "topic")

		body, _ := json.Marshal(api.ChatRequest{Query: "q", Topic: bad})
		r := httptest.NewRequest(http.MethodPost, "/api/v1/chat", bytes.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		f.handler.HandleChat(w, r)

		if w.Code != http.StatusBadRequest {
			rt.Fatalf("status = %d", w.Code)
		}
		var resp Response
		if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
			rt.Fatalf("decode: %v", err)
		}
		_, list, ok := strings.Cut(resp.Error.Message, "Valid topics: ")
		if !ok {
			rt.Fatalf("message %q does not list topics", resp.Error.Message)
		}
		listed := strings.Split(list, ", ")
		if len(listed) != len(keys) {
			rt.Fatalf("listed %v, want %v", listed, keys)
		}
		for i := range keys {
			if listed[i] != keys[i] {
				rt.Fatalf("listed %v, want %v", listed, keys)
			}
		}
	})
	assert.Equal(t, 0, f.totalRuns())
}

// =============================================================================
// 🧪 SSE 接口
// =============================================================================

func TestResearchHandler_HandleStream(t *testing.T) {
	f := newResearchFixture(t)
	srv := f.server(t)

	resp, err := http.Get(srv.URL + "/api/v1/chat/stream?query=" + url.QueryEscape(fixtures.PostgresQuery))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	frames := testutil.CollectSSEData(resp.Body)
	require.GreaterOrEqual(t, len(frames), 5)
	assert.JSONEq(t, `{"type":"topic","topic_key":"database","topic_label":"Databases & Data Platforms"}`, frames[0])
	assert.JSONEq(t, `{"type":"log","message":"📌 Model selected: gpt-4o-mini"}`, frames[1])
	assert.JSONEq(t, `{"type":"log","message":"🎛️ Temperature set to: 0.1"}`, frames[2])
	assert.Equal(t, stream.DoneSentinel, frames[len(frames)-1])

	final, err := stream.ParseWire([]byte(frames[len(frames)-2]))
	require.NoError(t, err)
	assert.Equal(t, stream.KindFinal, final.Kind)
	assert.Equal(t, "Databases & Data Platforms", final.TopicUsed)
	assert.Contains(t, final.Reply, "Use Neon")

	finals := 0
	for _, frame := range frames[:len(frames)-1] {
		ev, err := stream.ParseWire([]byte(frame))
		require.NoError(t, err)
		if ev.Kind == stream.KindFinal {
			finals++
		}
	}
	assert.Equal(t, 1, finals)
}

func TestResearchHandler_HandleStream_Overrides(t *testing.T) {
	f := newResearchFixture(t)
	srv := f.server(t)

	resp, err := http.Get(srv.URL + "/api/v1/chat/stream?message=q&topic=testing&model=deepseek-chat&temperature=0.5")
	require.NoError(t, err)
	defer resp.Body.Close()

	frames := testutil.CollectSSEData(resp.Body)
	require.NotEmpty(t, frames)
	assert.JSONEq(t, `{"type":"topic","topic_key":"testing","topic_label":"Testing"}`, frames[0])
	assert.Equal(t, modelCall{"deepseek-chat", 0.5}, f.engines["testing"].lastModel())
}

func TestResearchHandler_HandleStream_RejectsBeforeRunning(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode types.ErrorCode
	}{
		{"unknown topic", "query=q&topic=gardening", types.ErrUnknownTopic},
		{"missing query", "topic=database", types.ErrInvalidRequest},
		{"bad temperature", "query=q&temperature=hot", types.ErrInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResearchFixture(t)
			w := httptest.NewRecorder()
			f.handler.HandleStream(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat/stream?"+tt.query, nil))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			resp := decodeResponse(t, w, nil)
			assert.Equal(t, string(tt.wantCode), resp.Error.Code)
			assert.Equal(t, 0, f.totalRuns())
		})
	}
}

func TestResearchHandler_HandleStream_RunErrorStillTerminates(t *testing.T) {
	f := newResearchFixture(t)
	f.engines["database"].runErr = errors.New("llm down")

	w := httptest.NewRecorder()
	f.handler.HandleStream(w, httptest.NewRequest(http.MethodGet, "/api/v1/chat/stream?query=q", nil))

	frames := testutil.CollectSSEData(w.Body)
	require.NotEmpty(t, frames)
	assert.Equal(t, stream.DoneSentinel, frames[len(frames)-1])
	final, err := stream.ParseWire([]byte(frames[len(frames)-2]))
	require.NoError(t, err)
	assert.Contains(t, final.Reply, "llm down")
}

// =============================================================================
// 🧪 WebSocket 接口
// =============================================================================

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/chat/ws"
}

func TestResearchHandler_HandleWebSocket(t *testing.T) {
	f := newResearchFixture(t)
	srv := f.server(t)
	ctx := testutil.TestContextWithTimeout(t, 5*time.Second)

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"query":"postgres","topic":"database"}`)))

	var events []stream.Event
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		ev, err := stream.ParseWire(data)
		require.NoError(t, err)
		if ev.IsDone() {
			break
		}
		events = append(events, ev)
	}
	require.NotEmpty(t, events)
	assert.Equal(t, stream.TopicEvent("database", "Databases & Data Platforms"), events[0])
	assert.Equal(t, stream.KindFinal, events[len(events)-1].Kind)

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusNormalClosure, websocket.CloseStatus(err))
}

func TestResearchHandler_HandleWebSocket_UnknownTopic(t *testing.T) {
	f := newResearchFixture(t)
	srv := f.server(t)
	ctx := testutil.TestContextWithTimeout(t, 5*time.Second)

	conn, _, err := websocket.Dial(ctx, wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"query":"q","topic":"gardening"}`)))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, string(types.ErrUnknownTopic), resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "developer_tools, database, testing")

	_, _, err = conn.Read(ctx)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	assert.Equal(t, 0, f.totalRuns())
}
