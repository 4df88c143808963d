// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 researchflow 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现相似的
测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / TestContextWithTimeout / CancelledContext，
    自动注册 Cleanup 防止泄漏
  - 断言工具: AssertContains
  - 异步等待: AssertEventuallyTrue / WaitForChannel
  - 流式辅助: CollectSSEData 解析 SSE 帧

# 子包

  - testutil/mocks: MockProvider（LLM Provider）与 MockSearchClient
    （gateway.Client），均支持 Builder 模式与错误注入
  - testutil/fixtures: 示例查询、搜索结果、分析 JSON 与按阶段分发的响应

# 使用示例

	ctx := testutil.TestContext(t)
	provider := mocks.NewMockProvider().WithResponder(fixtures.StageResponder("Neon", "{}", "Use Neon"))
	client := mocks.NewMockSearchClient().WithResults(fixtures.PostgresResults()...)
*/
package testutil
