package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewProviderFromConfig(t *testing.T) {
	t.Run("anthropic", func(t *testing.T) {
		p, err := NewProviderFromConfig("anthropic", ProviderConfig{APIKey: "k"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "anthropic", p.Name())
	})

	t.Run("claude alias", func(t *testing.T) {
		p, err := NewProviderFromConfig("claude", ProviderConfig{APIKey: "k"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "anthropic", p.Name())
	})

	t.Run("deepseek", func(t *testing.T) {
		p, err := NewProviderFromConfig("deepseek", ProviderConfig{APIKey: "k"}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "deepseek", p.Name())
	})

	t.Run("generic openai-compatible requires base_url", func(t *testing.T) {
		_, err := NewProviderFromConfig("ollama", ProviderConfig{APIKey: "k"}, zap.NewNop())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "base_url is required")
	})

	t.Run("generic openai-compatible with base_url", func(t *testing.T) {
		p, err := NewProviderFromConfig("ollama", ProviderConfig{
			APIKey:  "k",
			BaseURL: "http://localhost:11434",
			Extra:   map[string]any{"endpoint_path": "/api/chat"},
		}, zap.NewNop())
		require.NoError(t, err)
		assert.Equal(t, "ollama", p.Name())
	})
}

func TestSupportedProviders(t *testing.T) {
	assert.Contains(t, SupportedProviders(), "anthropic")
	assert.Contains(t, SupportedProviders(), "deepseek")
}
