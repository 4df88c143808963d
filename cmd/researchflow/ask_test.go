package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/researchflow/stream"
	"github.com/BaSui01/researchflow/testutil"
)

func TestParseAskArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    askOptions
		wantErr string
	}{
		{
			name: "query words are joined",
			args: []string{"best", "Postgres", "hosting"},
			want: askOptions{temperature: -1, query: "best Postgres hosting"},
		},
		{
			name: "overrides",
			args: []string{"--topic", "database", "--model", "deepseek-chat", "--temperature", "0.3", "which db?"},
			want: askOptions{topic: "database", model: "deepseek-chat", temperature: 0.3, query: "which db?"},
		},
		{name: "missing query", args: []string{"--topic", "database"}, wantErr: "research question is required"},
		{name: "temperature too high", args: []string{"--temperature", "2.5", "q"}, wantErr: "temperature"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAskArgs(tt.args, io.Discard)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// sliceSource 依次返回给定事件
func sliceSource(events ...stream.Event) eventSource {
	i := 0
	return func(context.Context) (stream.Event, bool) {
		if i >= len(events) {
			return stream.Event{}, false
		}
		ev := events[i]
		i++
		return ev, true
	}
}

func TestPrintEvents(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ok := printEvents(context.Background(), sliceSource(
		stream.TopicEvent("database", "Databases & Data Platforms"),
		stream.LogEvent("Finding resources about: postgres"),
		stream.FinalEvent("Use Neon.", "Databases & Data Platforms"),
		stream.DoneEvent(),
		stream.LogEvent("never printed"),
	), &stdout, &stderr)

	assert.True(t, ok)
	assert.Equal(t, "Use Neon.\n", stdout.String())
	assert.Contains(t, stderr.String(), "Databases & Data Platforms (database)")
	assert.Contains(t, stderr.String(), "Finding resources about: postgres")
	assert.NotContains(t, stderr.String(), "never printed")
}

func TestPrintEvents_NoFinal(t *testing.T) {
	ok := printEvents(context.Background(), sliceSource(
		stream.TopicEvent("database", "Databases & Data Platforms"),
	), io.Discard, io.Discard)
	assert.False(t, ok)
}

func sseServer(t *testing.T, queries chan<- string, events ...stream.Event) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if queries != nil {
			queries <- r.URL.RawQuery
		}
		if r.URL.Query().Get("topic") == "nope" {
			http.Error(w, `{"success":false,"error":{"code":"UNKNOWN_TOPIC"}}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": comment line\n\n")
		for _, ev := range events {
			payload, err := ev.Wire()
			assert.NoError(t, err)
			fmt.Fprintf(w, "data: %s\n\n", payload)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStreamFromServer(t *testing.T) {
	queries := make(chan string, 1)
	srv := sseServer(t, queries,
		stream.TopicEvent("cloud", "Cloud & Infrastructure"),
		stream.LogEvent("📌 Model selected: gpt-4o-mini"),
		stream.FinalEvent("Try Cloud Run.", "Cloud & Infrastructure"),
		stream.DoneEvent(),
	)

	src, err := streamFromServer(testutil.TestContext(t), srv.Client(), askOptions{
		server:      srv.URL + "/",
		topic:       "cloud",
		temperature: 0.2,
		query:       "lambda alternatives",
	})
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	assert.True(t, printEvents(testutil.TestContext(t), src, &stdout, &stderr))
	assert.Equal(t, "Try Cloud Run.\n", stdout.String())
	assert.Contains(t, stderr.String(), "📌 Model selected: gpt-4o-mini")

	gotQuery := <-queries
	assert.Contains(t, gotQuery, "query=lambda+alternatives")
	assert.Contains(t, gotQuery, "topic=cloud")
	assert.Contains(t, gotQuery, "temperature=0.2")
	assert.NotContains(t, gotQuery, "model=")
}

func TestStreamFromServer_ErrorStatus(t *testing.T) {
	srv := sseServer(t, nil)
	_, err := streamFromServer(testutil.TestContext(t), srv.Client(), askOptions{
		server:      srv.URL,
		topic:       "nope",
		temperature: -1,
		query:       "q",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "UNKNOWN_TOPIC")
}

func TestRunAsk_UsageErrors(t *testing.T) {
	var stderr bytes.Buffer
	assert.Equal(t, 2, runAsk(nil, io.Discard, &stderr))
	assert.Contains(t, stderr.String(), "research question is required")
}

func TestRunTopics(t *testing.T) {
	var stdout bytes.Buffer
	require.Equal(t, 0, runTopics(nil, &stdout, io.Discard))

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	require.Len(t, lines, 18)
	assert.True(t, strings.HasPrefix(lines[0], "developer_tools"))
	assert.Contains(t, lines[0], "Developer Tools")

	stdout.Reset()
	require.Equal(t, 0, runTopics([]string{"-v"}, &stdout, io.Discard))
	assert.Contains(t, stdout.String(), "software_engineering")
}
