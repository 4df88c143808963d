// Package tlsutil 提供出站 HTTP 客户端的统一配置：TLS 1.2+ 与 AEAD 密码套件，
// 跳转次数上限且不允许从 https 降级到 http。
// LLM Provider、Firecrawl、直连抓取与 Redis 缓存连接共用。
package tlsutil
