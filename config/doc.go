// Package config 提供 researchflow 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → RESEARCHFLOW_* 环境变量 的顺序合并，
// 最后用 OPENAI_API_KEY、FIRECRAWL_API_KEY 等通用变量补齐空缺的密钥。
package config
