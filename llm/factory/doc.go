// Package factory 按提供方族名（openai、claude、deepseek）构造 llm.Provider，
// 并为 ModelSwitchboard 根据模型名中的关键字选择提供方族。
package factory
