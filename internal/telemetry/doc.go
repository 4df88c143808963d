// Package telemetry 封装 OpenTelemetry SDK 初始化逻辑，
// 为 researchflow 配置全局 TracerProvider 和 MeterProvider。
// 禁用时保持 noop 实现，不连接任何外部服务。
package telemetry
