// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的指标采集。

Collector 通过 promauto 注册到默认 Registry，按 namespace 隔离，覆盖：

  - HTTP：请求总数、耗时、响应体大小，状态码归类为 2xx/3xx/4xx/5xx。
  - LLM：请求总数、耗时、Token 用量，按 provider/model 分组。
  - 网关：外部 search/fetch 调用结果（ok/empty/timeout/error）与耗时，
    以及缓存命中/未命中。
  - 流水线：整次运行、单阶段耗时、路由结果（是否回退）。
  - 流式会话：活跃会话数与事件计数。
*/
package metrics
