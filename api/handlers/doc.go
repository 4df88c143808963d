// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供研究服务 HTTP API 的请求处理器实现。

# 概述

handlers 包实现研究问答、主题查询、示例问题与健康检查端点。
所有 Handler 均遵循标准 net/http 接口，通过 Swagger 注解生成 API 文档。

# 核心类型

  - ResearchHandler   — 研究请求：同步 JSON、SSE 流与 WebSocket 流
  - TopicHandler      — 主题列表与独立分类
  - SuggestionHandler — 示例研究问题
  - HealthHandler     — 服务健康检查（/health, /healthz, /ready）
  - Response          — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo         — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteAnyError / WriteJSON
  - 请求验证：DecodeJSONBody（1 MB 限制 + 严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 显式主题在启动任何运行之前校验，未知主题返回 400 UNKNOWN_TOPIC
  - 流式输出：每个事件一帧 "data: {json}"，以 "data: [DONE]" 结束
  - 可扩展健康检查：RegisterCheck 注册 Redis、LLM 提供商等检查
*/
package handlers
