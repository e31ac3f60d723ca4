// Copyright 2026 Fincrew Authors. All rights reserved.
// Use of this source code is governed by the project license.

// Package anthropic 实现 Anthropic Claude 的 llm.Provider 适配,
// 处理 x-api-key 认证、独立 system 字段、tool_use/tool_result
// 内容块等 Claude Messages API 特有的协议差异。
package anthropic
