// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 researchflow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 topic、workflow、gateway、
api 等上层模块提供统一的错误契约。

# 核心类型

  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码、Retryable、Provider 标记
  - NewUnknownTopicError — 显式 topic 覆盖校验失败时的客户端错误

# 错误工具链

  - AsError / GetErrorCode / IsRetryable 均沿 errors.As 链查找
*/
package types
