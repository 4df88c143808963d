// Package suggest 生成首页展示的示例研究问题。
//
// Generator 请求 LLM 返回 JSON 字符串数组，解析失败或调用失败时回退到
// 固定的默认问题池。成功结果按数量缓存在 cache.Store 中。
package suggest
