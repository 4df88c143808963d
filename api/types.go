package api

import (
	"github.com/BaSui01/researchflow/workflow"
)

// =============================================================================
// 研究请求类型
// =============================================================================

// ChatRequest 是一次研究请求。
// @Description 研究请求结构
type ChatRequest struct {
	// 用户问题
	Query string `json:"query" example:"best hosted Postgres for a small startup" binding:"required"`
	// 显式主题 key，为空时自动分类
	Topic string `json:"topic,omitempty" example:"database"`
	// 模型名，为空时使用服务默认值
	Model string `json:"model,omitempty" example:"gpt-4o-mini"`
	// 采样温度（0-2），为空时使用服务默认值
	Temperature *float64 `json:"temperature,omitempty" example:"0.1"`
}

// ChatResponse 是同步研究请求的结果。
// @Description 研究结果结构
type ChatResponse struct {
	// Markdown 格式的回复
	Reply string `json:"reply"`
	// 实际使用的主题标签
	TopicUsed string `json:"topic_used" example:"Databases & Data Platforms"`
	// 实际使用的主题 key
	TopicKey string `json:"topic_key" example:"database"`
	// 预留字段，目前总是 null
	DownloadURL *string `json:"download_url"`
	// 流水线终态
	State *workflow.State `json:"state,omitempty"`
}

// =============================================================================
// 主题类型
// =============================================================================

// TopicInfo 描述一个已注册主题。
// @Description 主题信息
type TopicInfo struct {
	Key         string `json:"key" example:"database"`
	Label       string `json:"label" example:"Databases & Data Platforms"`
	Description string `json:"description"`
	Domain      string `json:"domain" example:"tools"`
}

// ClassifyRequest 请求对查询进行主题分类。
type ClassifyRequest struct {
	Query string `json:"query" binding:"required"`
}

// ClassifyResponse 是分类结果。
type ClassifyResponse struct {
	TopicKey   string `json:"topic_key" example:"database"`
	TopicLabel string `json:"topic_label" example:"Databases & Data Platforms"`
}

// =============================================================================
// 示例问题类型
// =============================================================================

// SuggestionsResponse 是示例问题列表。
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}
