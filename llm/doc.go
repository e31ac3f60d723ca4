// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
包 llm 提供统一的大语言模型接入层。

# 概述

本包屏蔽不同模型服务商在接口、鉴权和错误语义上的差异，
对上层编排暴露一致的请求与响应模型。

# 核心接口

  - [Provider]：LLM 提供者接口，提供 Completion / HealthCheck /
    Name / SupportsNativeFunctionCalling

# 核心类型

  - [ChatRequest] / [ChatResponse]：聊天请求与响应
  - [Message] / [ToolCall] / [ToolSchema]：消息与工具调用结构
  - [ChatUsage]：token 用量，支持跨调用累加
  - [Error] / [ErrorCode]：语义化错误与可重试标记

# 相关子包

- llm/embedding：文本嵌入 Provider 接口与实现。
- llm/tokenizer：token 计数与上下文预算。
*/
package llm
