// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package deepseek 实现 DeepSeek 的 llm.Provider 适配。
// DeepSeek 的 API 与 OpenAI 兼容, 本包仅是 openaicompat 的薄封装,
// 设定 BaseURL、默认模型与 /chat/completions 端点。
package deepseek
