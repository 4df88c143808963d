// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 cache 为外部调用网关提供结果缓存。

# 核心类型

  - Store：类型化键值缓存接口，Get 未命中时返回 ok=false。
  - MemoryStore：进程内实现，默认不淘汰；设置 MaxEntries 后按 FIFO 淘汰。
  - RedisStore：基于 Manager 的共享实现，值以 JSON 存储，key 带前缀。
  - Manager：go-redis 客户端封装，负责连接、后台健康检查与关闭。

# 错误语义

ErrCacheMiss 表示未命中，ErrClosed 表示 Manager 已关闭。
Store 实现把未命中转换为 ok=false，其他错误原样返回。
*/
package cache
