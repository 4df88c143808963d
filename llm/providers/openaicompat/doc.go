// Package openaicompat 为 OpenAI 兼容的聊天补全 API 提供共享的 Provider 基类。
package openaicompat
