// Package stream 把一次研究运行转换为有序事件流。
//
// Executor.Start 立即返回一个无界 FIFO Queue，后台 goroutine 依次推送
// topic、log、final 事件，最后推送结束哨兵并关闭队列。无论运行成功、
// 降级还是 panic，消费者都会恰好收到一个 final 事件。
package stream
