// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 researchflow 服务端与命令行入口。

# 概述

cmd/researchflow 装配主题注册表、主题路由、研究流水线、外部调用网关、
模型切换与流式执行器，并通过 HTTP、SSE 与 WebSocket 对外提供研究接口。
同一套装配也供 ask 子命令在进程内直接运行一次研究。

# 核心类型

  - Server     — 主服务器，管理 API、Metrics 双端口及优雅关闭
  - app        — 一次装配好的组件集合，serve 与 ask 共用
  - Middleware — HTTP 中间件函数签名 func(http.Handler) http.Handler

# 主要能力

  - 子命令：serve、ask、topics、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、OTelTracing、
    MetricsMiddleware、RequestLogger、CORS、RateLimiter（基于 IP）
  - 缓存后端：memory（默认）或 redis
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关闭缓存 → 刷新遥测
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
