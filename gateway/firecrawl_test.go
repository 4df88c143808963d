package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFirecrawlClient_RequiresKey(t *testing.T) {
	_, err := NewFirecrawlClient(FirecrawlConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestFirecrawlClient_Search(t *testing.T) {
	var got firecrawlSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "Bearer fc-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"url":"https://neon.tech","title":"Neon","description":"Serverless Postgres","markdown":"# Neon"},
			{"url":"https://supabase.com","title":"Supabase"}
		]}`))
	}))
	defer server.Close()

	c, err := NewFirecrawlClient(FirecrawlConfig{APIKey: "fc-key", BaseURL: server.URL})
	require.NoError(t, err)

	results, err := c.Search(context.Background(), "hosted postgres company pricing", 3)
	require.NoError(t, err)

	assert.Equal(t, "hosted postgres company pricing", got.Query)
	assert.Equal(t, 3, got.Limit)
	assert.Equal(t, []string{"markdown"}, got.ScrapeOptions.Formats)

	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "Neon", URL: "https://neon.tech", Description: "Serverless Postgres", Markdown: "# Neon"}, results[0])
	assert.Empty(t, results[1].Markdown)
}

func TestFirecrawlClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/scrape", r.URL.Path)
		var req firecrawlScrapeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://neon.tech/pricing", req.URL)
		_, _ = w.Write([]byte(`{"success":true,"data":{"markdown":"Free tier: 0.5 GB"}}`))
	}))
	defer server.Close()

	c, err := NewFirecrawlClient(FirecrawlConfig{APIKey: "k", BaseURL: server.URL + "/"})
	require.NoError(t, err)

	page, err := c.Fetch(context.Background(), "https://neon.tech/pricing")
	require.NoError(t, err)
	assert.Equal(t, "Free tier: 0.5 GB", page)
}

func TestFirecrawlClient_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http error", http.StatusPaymentRequired, `{"error":"insufficient credits"}`, "HTTP 402"},
		{"unsuccessful", http.StatusOK, `{"success":false,"error":"blocked"}`, "blocked"},
		{"bad json", http.StatusOK, `not json`, "decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewFirecrawlClient(FirecrawlConfig{APIKey: "k", BaseURL: server.URL})
			require.NoError(t, err)

			_, err = c.Search(context.Background(), "q", 3)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = c.Fetch(context.Background(), "https://x")
			require.Error(t, err)
		})
	}
}
