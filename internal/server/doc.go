// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 server 提供 HTTP 服务器生命周期管理。

Manager 封装 net/http.Server：Start 非阻塞启动，Shutdown 在超时内排空
连接，Wait 等待 ctx 结束（通常由 signal.NotifyContext 产生）或服务异常
后触发关闭。默认 WriteTimeout 为 0，长时间的 SSE 与 WebSocket 响应
不会被截断。
*/
package server
