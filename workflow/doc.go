// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package workflow 提供研究流水线引擎。

# 概述

每个研究主题对应一个 Engine 实例。ResearchWorkflow 用 ChainWorkflow
顺序驱动三个阶段：

	extract_resources → analyze → recommend

所有网络访问都经过 Gateway（失败被吸收为空结果），LLM 句柄由
Switchboard 按模型名构建。抽取和分析阶段的失败只记录日志并写入
显式的兜底值；推荐阶段的错误会以 "step 3 (recommend) failed: …"
的形式从 Run 返回，同时返回部分状态。

# 核心类型

  - Engine / ResearchWorkflow — Run / SetModel / SetLogCallback
  - State / Resource / Analysis — 单次运行的状态，Analysis.Status 区分
    absent / ok / failed
  - Policy — 按域（tools / career / software_engineering）决定检索后缀、
    提示词措辞与分析字段
  - Switchboard — deepseek / claude / openai 子串分发，带中间件链
  - ChainWorkflow / FuncStep — 顺序步骤执行，支持 StepObserver
  - FormatReply — 最终状态渲染为 Markdown
*/
package workflow
