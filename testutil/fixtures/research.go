// =============================================================================
// 📦 测试数据工厂 - 研究流水线
// =============================================================================
// 提供预定义的搜索结果与 LLM 响应，用于流水线、流式与接口测试
// =============================================================================
package fixtures

import (
	"strings"
	"time"

	"github.com/BaSui01/researchflow/gateway"
	"github.com/BaSui01/researchflow/llm"
)

// PostgresQuery 是贯穿测试的示例查询
const PostgresQuery = "best hosted Postgres for a small startup"

// ToolsAnalysisJSON 是 tools 域的一个合法分析输出
const ToolsAnalysisJSON = `{"summary":"Managed Postgres options for small teams","pricing_model":"Freemium","is_open_source":false,"tech_stack":["Postgres"],"api_available":true}`

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "gpt-4o-mini",
		Choices: []llm.ChatChoice{
			{
				Index:        0,
				FinishReason: "stop",
				Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
			},
		},
		Usage:     llm.ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		CreatedAt: time.Now(),
	}
}

// PostgresResults 返回带内联 Markdown 的搜索结果
func PostgresResults() []gateway.Result {
	return []gateway.Result{
		{Title: "Neon", URL: "https://neon.tech/pricing", Description: "Serverless Postgres", Markdown: "Neon has a generous free tier."},
		{Title: "Supabase", URL: "https://supabase.com/pricing", Description: "Postgres development platform", Markdown: "Supabase Pro starts at $25/month."},
		{Title: "Crunchy Bridge", URL: "https://crunchybridge.com", Description: "Managed Postgres", Markdown: "Crunchy Bridge runs on AWS, GCP and Azure."},
	}
}

// StageResponder 按提示词内容为抽取、分析、推荐三个阶段返回不同文本，
// 可直接传给 MockProvider.WithResponder。
func StageResponder(extract, analyze, recommend string) func(prompt string) (string, error) {
	return func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "Article Content:"):
			return extract, nil
		case strings.Contains(prompt, "Collected Content:"):
			return analyze, nil
		default:
			return recommend, nil
		}
	}
}
