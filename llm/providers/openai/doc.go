// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 openai 提供 OpenAI 模型的 Provider 适配实现。该包在 openaicompat
基础上扩展 Organization header，是模型切换器的默认后端。

# 核心结构体

  - OpenAIProvider — 嵌入 openaicompat.Provider

# 定制行为

  - 默认 BaseURL: https://api.openai.com
  - 默认兜底模型: gpt-4o-mini
*/
package openai
