package deepseek

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/researchflow/llm"
	"github.com/BaSui01/researchflow/llm/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDeepSeekProvider_Completion(t *testing.T) {
	var path, model string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		var body providers.OpenAICompatRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		model = body.Model
		_ = json.NewEncoder(w).Encode(providers.OpenAICompatResponse{
			ID: "ds-1", Model: body.Model,
			Choices: []providers.OpenAICompatChoice{
				{Index: 0, FinishReason: "stop", Message: providers.OpenAICompatMessage{Role: "assistant", Content: "Databases & Data Platforms"}},
			},
		})
	}))
	t.Cleanup(server.Close)

	p := NewDeepSeekProvider(providers.DeepSeekConfig{
		BaseProviderConfig: providers.BaseProviderConfig{APIKey: "k", BaseURL: server.URL},
	}, zap.NewNop())
	assert.Equal(t, "deepseek", p.Name())

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "route"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "/chat/completions", path)
	assert.Equal(t, "deepseek-chat", model)
	assert.Equal(t, "Databases & Data Platforms", resp.Choices[0].Message.Content)
}

func TestDeepSeekProvider_DefaultBaseURL(t *testing.T) {
	p := NewDeepSeekProvider(providers.DeepSeekConfig{}, nil)
	assert.Equal(t, "https://api.deepseek.com", p.Cfg.BaseURL)
}
