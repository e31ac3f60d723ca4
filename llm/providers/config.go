package providers

import "time"

// BaseProviderConfig 所有 Provider 共享的基础配置字段。
// 通过嵌入此结构体，各 Provider 的 Config 自动获得 APIKey、BaseURL、Model、Timeout 四个字段，
// 避免重复定义。
type BaseProviderConfig struct {
	APIKey  string        `json:"api_key" yaml:"api_key"`
	BaseURL string        `json:"base_url" yaml:"base_url"`
	Model   string        `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ClaudeConfig Anthropic Claude Provider 配置
type ClaudeConfig struct {
	BaseProviderConfig `yaml:",inline"`
	// AnthropicVersion 覆盖 anthropic-version 请求头, 空值使用默认版本.
	AnthropicVersion string `json:"anthropic_version,omitempty" yaml:"anthropic_version,omitempty"`
}

// DeepSeekConfig DeepSeek Provider 配置
type DeepSeekConfig struct {
	BaseProviderConfig `yaml:",inline"`
}
