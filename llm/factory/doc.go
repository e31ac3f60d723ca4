// Package factory 按名称创建 LLM Provider 实例。
// 内置 anthropic/claude 与 deepseek 两类直连实现，其余名称走 OpenAI 兼容
// 通道（需显式 base_url）。独立成包以打破 llm 根包与各 provider 子包之间
// 的循环依赖。
package factory
