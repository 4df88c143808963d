// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力，是 openai、deepseek、
anthropic 等具体 Provider 实现的公共基础层。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的通用请求/响应结构体

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - UpstreamError — 网络/解码失败统一包装
  - ConvertMessagesToOpenAI / ToLLMChatResponse — 统一消息格式转换
  - ChooseModel — 按优先级选择模型（请求 > 默认 > 兜底）
*/
package providers
