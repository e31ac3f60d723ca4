package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
)

func newTestExecutor(t *testing.T) (*DefaultRegistry, *DefaultExecutor) {
	t.Helper()
	registry := NewDefaultRegistry(zap.NewNop())
	executor := NewDefaultExecutor(registry, zap.NewNop())
	return registry, executor
}

func TestExecuteOne_Success(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))

	result := executor.ExecuteOne(context.Background(), llm.ToolCall{
		ID:        "call_1",
		Name:      "echo",
		Arguments: json.RawMessage(`{"text":"hi"}`),
	})

	assert.Empty(t, result.Error)
	assert.JSONEq(t, `{"text":"hi"}`, string(result.Result))
	assert.Equal(t, "call_1", result.ToolCallID)
	assert.Equal(t, "echo", result.Name)
	assert.Greater(t, result.Duration, time.Duration(0))
}

func TestExecuteOne_ToolNotFound(t *testing.T) {
	_, executor := newTestExecutor(t)

	result := executor.ExecuteOne(context.Background(), llm.ToolCall{
		ID:   "call_1",
		Name: "missing",
	})

	assert.Contains(t, result.Error, "tool not found")
}

func TestExecuteOne_InvalidArguments(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))

	result := executor.ExecuteOne(context.Background(), llm.ToolCall{
		ID:        "call_1",
		Name:      "echo",
		Arguments: json.RawMessage(`{not json`),
	})

	assert.Contains(t, result.Error, "invalid arguments")
}

func TestExecuteOne_ToolError(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("failing", func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		return nil, fmt.Errorf("backend unavailable")
	}, ToolMetadata{}))

	result := executor.ExecuteOne(context.Background(), llm.ToolCall{
		ID:   "call_1",
		Name: "failing",
	})

	assert.Equal(t, "backend unavailable", result.Error)
}

func TestExecuteOne_Timeout(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("slow", func(ctx context.Context, _ json.RawMessage) (json.RawMessage, error) {
		select {
		case <-time.After(5 * time.Second):
			return json.RawMessage(`{}`), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, ToolMetadata{Timeout: 50 * time.Millisecond}))

	result := executor.ExecuteOne(context.Background(), llm.ToolCall{
		ID:   "call_1",
		Name: "slow",
	})

	assert.Contains(t, result.Error, "timeout")
}

func TestExecuteOne_RateLimited(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("limited", echoTool, ToolMetadata{
		RateLimit: &RateLimitConfig{MaxCalls: 1, Window: time.Minute},
	}))

	first := executor.ExecuteOne(context.Background(), llm.ToolCall{ID: "c1", Name: "limited"})
	assert.Empty(t, first.Error)

	second := executor.ExecuteOne(context.Background(), llm.ToolCall{ID: "c2", Name: "limited"})
	assert.Contains(t, second.Error, "rate limit exceeded")
}

func TestExecute_PreservesOrder(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))

	calls := make([]llm.ToolCall, 5)
	for i := range calls {
		calls[i] = llm.ToolCall{
			ID:        fmt.Sprintf("call_%d", i),
			Name:      "echo",
			Arguments: json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)),
		}
	}

	results := executor.Execute(context.Background(), calls)
	require.Len(t, results, 5)

	// 并发执行, 结果按调用顺序对位
	for i, result := range results {
		assert.Equal(t, fmt.Sprintf("call_%d", i), result.ToolCallID)
		assert.JSONEq(t, fmt.Sprintf(`{"n":%d}`, i), string(result.Result))
	}
}

func TestExecute_MixedSuccessAndFailure(t *testing.T) {
	registry, executor := newTestExecutor(t)
	require.NoError(t, registry.Register("echo", echoTool, ToolMetadata{}))

	results := executor.Execute(context.Background(), []llm.ToolCall{
		{ID: "c1", Name: "echo", Arguments: json.RawMessage(`{}`)},
		{ID: "c2", Name: "missing"},
	})

	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.Contains(t, results[1].Error, "tool not found")
}
