// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 llm 提供统一的大语言模型接入层：Provider 抽象、统一的请求/响应模型、
错误码以及补全调用的中间件链。

# Provider 抽象

核心接口是 [Provider]，包含 Completion / HealthCheck / Name。研究流水线的
路由、抽取、分析、推荐阶段都只依赖该接口，具体后端由 llm/factory 构建。

# 中间件

[Chain] 以洋葱模型包裹补全调用，内置：

  - [LoggingMiddleware]：zap 记录请求与耗时
  - [TracingMiddleware]：每次补全一个 OTel span
  - [MetricsMiddleware]：写入 Prometheus 指标收集器
  - [TemperatureMiddleware]：为请求绑定模型与温度
  - [TimeoutMiddleware] / [RecoveryMiddleware]

[Wrap] 把中间件链挂到任意 Provider 上。
*/
package llm
