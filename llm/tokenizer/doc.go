// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package tokenizer 提供统一的 Token 计数接口, 支持 tiktoken
// 精确计数与面向 CJK/泰文的估算器, 用于 LLM 请求的 Token 预算管理。
//
// 对于有公开词表的模型（OpenAI 嵌入模型、DeepSeek）使用 tiktoken
// 精确计数; 对于 Claude 等闭源词表模型, GetTokenizerOrEstimator
// 回落到字符密度估算。
package tokenizer
