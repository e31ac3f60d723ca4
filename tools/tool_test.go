package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
)

func echoTool(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
	return args, nil
}

func TestRegistry_Register(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	err := registry.Register("echo", echoTool, ToolMetadata{})
	require.NoError(t, err)

	assert.True(t, registry.Has("echo"))

	// 默认超时 30s, Schema 名称回填
	_, meta, err := registry.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, meta.Timeout)
	assert.Equal(t, "echo", meta.Schema.Name)
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))
	err := registry.Register("echo", echoTool, ToolMetadata{})
	assert.ErrorContains(t, err, "already registered")
}

func TestRegistry_RegisterNameMismatch(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	err := registry.Register("echo", echoTool, ToolMetadata{
		Schema: llm.ToolSchema{Name: "other"},
	})
	assert.ErrorContains(t, err, "tool name mismatch")
}

func TestRegistry_RegisterInvalidRateLimit(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	err := registry.Register("echo", echoTool, ToolMetadata{
		RateLimit: &RateLimitConfig{MaxCalls: 0, Window: time.Minute},
	})
	assert.ErrorContains(t, err, "invalid rate limit")
}

func TestRegistry_Unregister(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))
	require.NoError(t, registry.Unregister("echo"))
	assert.False(t, registry.Has("echo"))

	err := registry.Unregister("echo")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistry_GetMissing(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	_, _, err := registry.Get("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestRegistry_ListSorted(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	require.NoError(t, registry.Register("web_search", echoTool, ToolMetadata{}))
	require.NoError(t, registry.Register("get_key_value", echoTool, ToolMetadata{}))
	require.NoError(t, registry.Register("set_value_for_key", echoTool, ToolMetadata{}))

	schemas := registry.List()
	require.Len(t, schemas, 3)

	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"get_key_value", "set_value_for_key", "web_search"}, names)
}

func TestRegistry_RateLimit(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	// 1 分钟窗口只允许 2 次, 突发额度用尽后第 3 次被拒
	require.NoError(t, registry.Register("limited", echoTool, ToolMetadata{
		RateLimit: &RateLimitConfig{MaxCalls: 2, Window: time.Minute},
	}))

	assert.NoError(t, registry.checkRateLimit("limited"))
	assert.NoError(t, registry.checkRateLimit("limited"))
	assert.ErrorContains(t, registry.checkRateLimit("limited"), "rate limit exceeded")
}

func TestRegistry_NoRateLimit(t *testing.T) {
	registry := NewDefaultRegistry(zap.NewNop())

	require.NoError(t, registry.Register("free", echoTool, ToolMetadata{}))
	for i := 0; i < 100; i++ {
		assert.NoError(t, registry.checkRateLimit("free"))
	}
}

func TestToolResult_ToMessage(t *testing.T) {
	ok := ToolResult{
		ToolCallID: "call_1",
		Name:       "web_search",
		Result:     json.RawMessage(`{"total_count":2}`),
	}
	msg := ok.ToMessage()
	assert.Equal(t, llm.RoleTool, msg.Role)
	assert.Equal(t, "call_1", msg.ToolCallID)
	assert.Equal(t, "web_search", msg.Name)
	assert.Equal(t, `{"total_count":2}`, msg.Content)

	failed := ToolResult{
		ToolCallID: "call_2",
		Name:       "web_search",
		Error:      "rate limit exceeded",
	}
	msg = failed.ToMessage()
	assert.Equal(t, "Error: rate limit exceeded", msg.Content)
}
