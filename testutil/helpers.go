// =============================================================================
// 🧪 测试辅助函数
// =============================================================================
// 上下文、异步等待与 SSE 解析
//
// 使用方法:
//
//	ctx := testutil.TestContext(t)
//	frames := testutil.CollectSSEData(resp.Body)
//
// =============================================================================
package testutil

import (
	"bufio"
	"context"
	"io"
	"strings"
	"testing"
	"time"
)

// 单个测试默认的最长运行时间
const defaultTestTimeout = 30 * time.Second

// pollInterval 是异步断言的轮询间隔
const pollInterval = 5 * time.Millisecond

// =============================================================================
// 🎯 上下文辅助
// =============================================================================

// TestContext 返回随测试结束取消的上下文
func TestContext(t *testing.T) context.Context {
	return TestContextWithTimeout(t, defaultTestTimeout)
}

// TestContextWithTimeout 返回带自定义超时的测试上下文
func TestContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CancelledContext 返回已取消的上下文
func CancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}

// =============================================================================
// 🔍 断言辅助
// =============================================================================

// AssertEventuallyTrue 轮询直到 condition 为真，超时记为失败
func AssertEventuallyTrue(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()
	if !waitFor(condition, timeout) {
		t.Errorf("condition did not become true within %v", timeout)
	}
}

// AssertContains 断言字符串包含子串
func AssertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("expected %q to contain %q", s, substr)
	}
}

func waitFor(condition func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if condition() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

// WaitForChannel 等待通道接收或超时
func WaitForChannel[T any](ch <-chan T, timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-ch:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// =============================================================================
// 📡 SSE 辅助
// =============================================================================

// CollectSSEData 读取 SSE 流，按顺序返回每个 "data: " 帧的负载（含 [DONE]）。
// 注释行与空行被忽略。
func CollectSSEData(r io.Reader) []string {
	var out []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for scanner.Scan() {
		if payload, ok := strings.CutPrefix(scanner.Text(), "data: "); ok {
			out = append(out, payload)
		}
	}
	return out
}
