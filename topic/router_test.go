package topic

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/BaSui01/researchflow/testutil"
	"github.com/BaSui01/researchflow/testutil/mocks"
)

type routeRecorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *routeRecorder) RecordTopicRoute(topic string, fallback bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fallback {
		topic += "(fallback)"
	}
	r.calls = append(r.calls, topic)
}

func TestRouter_ClassifyPostgres(t *testing.T) {
	provider := mocks.NewMockProvider().WithResponder(func(prompt string) (string, error) {
		if strings.Contains(prompt, "Postgres") {
			return "Databases & Data Platforms", nil
		}
		return "Developer Tools", nil
	})
	rec := &routeRecorder{}
	router := NewRouter(Default(testDeps()), provider, WithRecorder(rec))

	key, label := router.Classify(testutil.TestContext(t), "best hosted Postgres for a small startup")
	assert.Equal(t, "database", key)
	assert.Equal(t, "Databases & Data Platforms", label)
	assert.Equal(t, []string{"database"}, rec.calls)

	call := provider.GetLastCall()
	require.NotNil(t, call)
	require.Len(t, call.Request.Messages, 2)
	system := call.Request.Messages[0].Content
	assert.True(t, strings.HasPrefix(system, "You are a topic router."))
	assert.Contains(t, system, "- Databases & Data Platforms: SQL/NoSQL DBs")
	// 每个主题一行，按注册顺序
	assert.Less(t, strings.Index(system, "- Developer Tools:"), strings.Index(system, "- CICD Tools:"))
	assert.Equal(t, "User query: best hosted Postgres for a small startup", call.Request.Messages[1].Content)
}

func TestRouter_CleansReply(t *testing.T) {
	tests := []struct {
		reply   string
		wantKey string
	}{
		{"  databases & data platforms  ", "database"},
		{`"Security & Identity"`, "security"},
		{"Testing.", "testing"},
		{"'Agile Tools'", "agile"},
		{"cicd", "cicd"},
		{"**SaaS Products**", "saas"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			router := NewRouter(Default(testDeps()), mocks.NewSuccessProvider(tt.reply))
			key, _ := router.Classify(testutil.TestContext(t), "q")
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestRouter_Fallbacks(t *testing.T) {
	reg := Default(testDeps())

	t.Run("unknown label", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		rec := &routeRecorder{}
		router := NewRouter(reg, mocks.NewSuccessProvider("Gardening"), WithRecorder(rec), WithLogger(zap.New(core)))

		key, label := router.Classify(testutil.TestContext(t), "roses")
		assert.Equal(t, "developer_tools", key)
		assert.Equal(t, "Developer Tools", label)
		assert.Equal(t, []string{"developer_tools(fallback)"}, rec.calls)
		assert.Equal(t, 1, logs.FilterMessage("topic classification fell back").Len())
	})

	t.Run("llm error", func(t *testing.T) {
		router := NewRouter(reg, mocks.NewErrorProvider(errors.New("503")))
		key, _ := router.Classify(testutil.TestContext(t), "q")
		assert.Equal(t, "developer_tools", key)
	})

	t.Run("timeout", func(t *testing.T) {
		provider := mocks.NewSuccessProvider("Databases & Data Platforms").WithDelay(2 * time.Second)
		router := NewRouter(reg, provider, WithTimeout(20*time.Millisecond))

		start := time.Now()
		key, _ := router.Classify(testutil.TestContext(t), "postgres")
		assert.Equal(t, "developer_tools", key)
		assert.Less(t, time.Since(start), time.Second)
	})

	t.Run("nil provider", func(t *testing.T) {
		router := NewRouter(reg, nil)
		key, label := router.Classify(testutil.TestContext(t), "q")
		assert.Equal(t, "developer_tools", key)
		assert.Equal(t, "Developer Tools", label)
	})
}

// 任意查询、任意 LLM 行为下，Classify 都返回注册表中的主题。
func TestRouter_AlwaysReturnsRegisteredTopic(t *testing.T) {
	reg := Default(testDeps())
	labels := reg.Labels()
	configs := reg.Configs()

	rapid.Check(t, func(t *rapid.T) {
		query := rapid.String().Draw(t, "query")
		mode := rapid.IntRange(0, 2).Draw(t, "mode")

		var provider *mocks.MockProvider
		switch mode {
		case 0:
			provider = mocks.NewErrorProvider(errors.New("boom"))
		case 1:
			provider = mocks.NewSuccessProvider(rapid.String().Draw(t, "reply"))
		default:
			c := configs[rapid.IntRange(0, len(configs)-1).Draw(t, "topic")]
			provider = mocks.NewSuccessProvider(c.Label)
		}

		key, label := NewRouter(reg, provider).Classify(context.Background(), query)
		want, ok := labels[key]
		if !ok {
			t.Fatalf("key %q not in registry", key)
		}
		if want != label {
			t.Fatalf("label %q does not match key %q", label, key)
		}
	})
}
