// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 deepseek 提供 DeepSeek 模型的 Provider 适配实现。DeepSeek 使用
OpenAI 兼容的 API 格式，因此本包通过嵌入 openaicompat.Provider 复用
HTTP 处理与消息转换，仅定制差异部分。

# 定制行为

  - 默认 BaseURL: https://api.deepseek.com
  - 默认兜底模型: deepseek-chat
  - Endpoint: /chat/completions
*/
package deepseek
