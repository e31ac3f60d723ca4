package embedding

import (
	"fmt"
	"time"
)

// OpenAIConfig configures the OpenAI-compatible embedding provider.
type OpenAIConfig struct {
	APIKey     string        `json:"api_key" yaml:"api_key"`
	BaseURL    string        `json:"base_url" yaml:"base_url"`
	Model      string        `json:"model,omitempty" yaml:"model,omitempty"`           // text-embedding-3-small
	Dimensions int           `json:"dimensions,omitempty" yaml:"dimensions,omitempty"` // 256, 1024, 1536
	Timeout    time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// LocalConfig configures the deterministic local embedding provider.
type LocalConfig struct {
	Dimensions int `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// DefaultOpenAIConfig returns default OpenAI embedding config.
func DefaultOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		Model:      "text-embedding-3-small",
		Dimensions: 1536,
		Timeout:    30 * time.Second,
	}
}

// DefaultLocalConfig returns default local embedding config.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{Dimensions: 256}
}

// New 按提供者名称构造嵌入提供者. 空名称回落到 local.
func New(provider string, openai OpenAIConfig, local LocalConfig) (Provider, error) {
	switch provider {
	case "openai", "openai-embedding":
		return NewOpenAIProvider(openai), nil
	case "", "local", "local-embedding":
		return NewLocalProvider(local), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", provider)
	}
}
