// Package api 定义研究服务 HTTP API 的请求与响应类型。
//
// # API Overview
//
//   - POST /api/v1/chat            同步研究，返回 Markdown 回复与流水线终态
//   - GET  /api/v1/chat/stream     SSE 流：topic、log、final 事件，以 [DONE] 结束
//   - GET  /api/v1/chat/ws         WebSocket 流，事件格式与 SSE 相同
//   - GET  /api/v1/topics          主题列表
//   - POST /api/v1/topics/classify 主题分类
//   - GET  /api/v1/suggestions     示例问题
//   - GET  /health, /healthz, /ready, /readyz, /version
//
// # Base URL
//
// The default base URL for the API is:
//
//	http://localhost:8080
//
// Metrics are served separately on the metrics port at /metrics.
package api
