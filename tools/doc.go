// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 tools 提供智能体的工具注册、执行与 ReAct 循环。

# 核心类型

  - ToolFunc / ToolMetadata: 工具函数签名与元数据(Schema、超时、速率限制)。
  - DefaultRegistry: 线程安全的工具注册中心, 工具级 rate.Limiter 限流。
  - DefaultExecutor: 并发执行器, 带超时控制与参数校验;
    执行失败转换为 ToolResult.Error 反馈给模型, 不中断进程。
  - ReActExecutor: LLM -> 工具 -> LLM 多轮循环, MaxIterations 防止死循环,
    OnStep 回调用于追踪输出。

# 内置工具

  - web_search: 搜索后端见子包 search(Tavily / DuckDuckGo)。
  - set_value_for_key / get_key_value: 共享工作记忆表读写, 见 workmem 包。
  - knowledge_base_lookup: 知识库检索, 后端由 kb 包适配。
*/
package tools
