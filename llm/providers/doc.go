// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

/*
# 概述

包 providers 提供跨模型服务商的通用适配与辅助能力, 是所有具体 Provider
实现的公共基础层。各服务商子包（anthropic、deepseek、openaicompat）依赖
本包完成请求/响应转换、错误映射等共享逻辑。

# 核心类型

  - BaseProviderConfig — 所有 Provider 共享的基础配置（APIKey、BaseURL、Model、Timeout）
  - OpenAICompat* 系列 — OpenAI 兼容 API 的通用请求/响应/工具调用结构体
  - RetryableProvider — 带指数退避重试的 Provider 包装器
  - RetryConfig — 重试策略配置（最大次数、初始延迟、退避因子）

# 核心函数

  - MapHTTPError — 将 HTTP 状态码映射为语义化的 llm.Error（含 Retryable 标记）
  - ReadErrorMessage — 从响应体提取错误消息, JSON 优先, 原始文本回退
  - ConvertMessagesToOpenAI / ConvertToolsToOpenAI — 统一格式到 OpenAI 兼容格式的转换
*/
package providers
