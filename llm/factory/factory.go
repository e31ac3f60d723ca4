// Package factory provides a centralized factory for creating LLM Provider
// instances by name. It imports all provider sub-packages and maps string
// names to their constructors, breaking the import cycle that would occur
// if this logic lived in the llm package directly.
package factory

import (
	"fmt"
	"time"

	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/llm/providers"
	"github.com/waritsan/fincrew/llm/providers/anthropic"
	"github.com/waritsan/fincrew/llm/providers/deepseek"
	"github.com/waritsan/fincrew/llm/providers/openaicompat"
	"go.uber.org/zap"
)

// ProviderConfig is the generic configuration accepted by the factory function.
// It uses a flat structure with an Extra map for provider-specific fields.
type ProviderConfig struct {
	APIKey  string         `json:"api_key" yaml:"api_key"`
	BaseURL string         `json:"base_url" yaml:"base_url"`
	Model   string         `json:"model,omitempty" yaml:"model,omitempty"`
	Timeout time.Duration  `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// NewProviderFromConfig creates a Provider instance based on the provider name
// and a generic ProviderConfig. It maps the name to the appropriate constructor.
//
// Supported names: anthropic, claude, deepseek. Any other name is treated as a
// generic OpenAI-compatible provider and requires base_url.
func NewProviderFromConfig(name string, cfg ProviderConfig, logger *zap.Logger) (llm.Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	base := providers.BaseProviderConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	switch name {
	case "anthropic", "claude":
		cc := providers.ClaudeConfig{BaseProviderConfig: base}
		if cfg.Extra != nil {
			if v, ok := cfg.Extra["anthropic_version"].(string); ok {
				cc.AnthropicVersion = v
			}
		}
		return anthropic.NewClaudeProvider(cc, logger), nil

	case "deepseek":
		return deepseek.NewDeepSeekProvider(providers.DeepSeekConfig{BaseProviderConfig: base}, logger), nil

	default:
		// 通用 OpenAI 兼容提供商：任意名称 + base_url 即可接入
		// 支持 OpenAI、Groq、OpenRouter、Ollama、vLLM 等
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("unknown provider %q: built-in provider not found, and base_url is required for generic OpenAI-compatible provider", name)
		}
		oc := openaicompat.Config{
			ProviderName: name,
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			Timeout:      cfg.Timeout,
		}
		if cfg.Extra != nil {
			if v, ok := cfg.Extra["endpoint_path"].(string); ok {
				oc.EndpointPath = v
			}
			if v, ok := cfg.Extra["models_endpoint"].(string); ok {
				oc.ModelsEndpoint = v
			}
			if v, ok := cfg.Extra["supports_tools"].(bool); ok {
				oc.SupportsTools = &v
			}
		}
		logger.Info("creating generic OpenAI-compatible provider",
			zap.String("provider", name),
			zap.String("base_url", cfg.BaseURL))
		return openaicompat.New(oc, logger), nil
	}
}

// SupportedProviders returns the list of built-in provider names.
// Any name not in this list will be treated as a generic OpenAI-compatible
// provider, requiring base_url in the configuration.
func SupportedProviders() []string {
	return []string{"anthropic", "claude", "deepseek"}
}
