package openaicompat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waritsan/fincrew/llm"
	"github.com/waritsan/fincrew/llm/providers"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{
		ProviderName: "compat-test",
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		DefaultModel: "test-model",
		Timeout:      5 * time.Second,
	}, zap.NewNop())
}

func TestCompletionSuccess(t *testing.T) {
	var gotReq providers.OpenAICompatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-42",
			"model": "test-model",
			"created": 1756166400,
			"choices": [{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"hello"}}],
			"usage": {"prompt_tokens":3,"completion_tokens":2,"total_tokens":5}
		}`))
	})

	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "test-model", gotReq.Model, "default model applied when request omits one")
	assert.Equal(t, "chatcmpl-42", resp.ID)
	assert.Equal(t, "compat-test", resp.Provider)
	assert.Equal(t, "hello", resp.FirstContent())
	assert.Equal(t, 5, resp.Usage.TotalTokens)
	assert.Equal(t, time.Unix(1756166400, 0), resp.CreatedAt)
}

func TestCompletionToolCalls(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		var req providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Tools, 1)
		assert.Equal(t, "set_value_for_key", req.Tools[0].Function.Name)
		assert.NotEmpty(t, req.Tools[0].Function.Parameters)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-43",
			"model": "test-model",
			"choices": [{"index":0,"finish_reason":"tool_calls","message":{
				"role":"assistant",
				"tool_calls":[{"id":"call_1","type":"function","function":{"name":"set_value_for_key","arguments":"{\"key\":\"revenue\",\"value\":\"42\",\"table_name\":\"t\"}"}}]
			}}]
		}`))
	})

	schema := json.RawMessage(`{"type":"object","properties":{"key":{"type":"string"}},"required":["key"]}`)
	resp, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "store revenue"}},
		Tools:    []llm.ToolSchema{{Name: "set_value_for_key", Description: "Store a value.", Parameters: schema}},
	})
	require.NoError(t, err)

	calls := resp.FirstToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "set_value_for_key", calls[0].Name)
	assert.JSONEq(t, `{"key":"revenue","value":"42","table_name":"t"}`, string(calls[0].Arguments))
}

func TestCompletionHTTPErrorMapped(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded","type":"rate_limit_error"}}`))
	})

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)

	llmErr, ok := err.(*llm.Error)
	require.True(t, ok)
	assert.Equal(t, llm.ErrRateLimited, llmErr.Code)
	assert.True(t, llmErr.Retryable)
	assert.Equal(t, "compat-test", llmErr.Provider)
}

func TestCompletionRequestHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req providers.OpenAICompatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hooked-model", req.Model)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","model":"hooked-model","choices":[]}`))
	}))
	defer srv.Close()

	p := New(Config{
		ProviderName: "compat-test",
		APIKey:       "sk-test",
		BaseURL:      srv.URL,
		DefaultModel: "base-model",
		RequestHook: func(req *llm.ChatRequest, body *providers.OpenAICompatRequest) {
			body.Model = "hooked-model"
		},
	}, zap.NewNop())

	_, err := p.Completion(context.Background(), &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/models", r.URL.Path)
			_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
		})
		status, err := p.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
		assert.Greater(t, status.Latency, time.Duration(0))
	})

	t.Run("unhealthy", func(t *testing.T) {
		p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		status, err := p.HealthCheck(context.Background())
		require.Error(t, err)
		assert.False(t, status.Healthy)
	})
}

func TestDefaults(t *testing.T) {
	p := New(Config{ProviderName: "x", BaseURL: "http://example.test"}, nil)
	assert.Equal(t, "x", p.Name())
	assert.True(t, p.SupportsNativeFunctionCalling())
	assert.Equal(t, "/v1/chat/completions", p.Cfg.EndpointPath)
	assert.Equal(t, "/v1/models", p.Cfg.ModelsEndpoint)

	noTools := false
	p2 := New(Config{ProviderName: "y", SupportsTools: &noTools}, nil)
	assert.False(t, p2.SupportsNativeFunctionCalling())
}

func TestCompletionContextCanceled(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Completion(ctx, &llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	require.Error(t, err)
}
