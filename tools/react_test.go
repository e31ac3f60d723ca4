package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	llmpkg "github.com/waritsan/fincrew/llm"
)

type scriptedCompletionProvider struct {
	responses     []*llmpkg.ChatResponse
	nativeTools   bool
	lastToolCount int
}

func (p *scriptedCompletionProvider) Completion(_ context.Context, req *llmpkg.ChatRequest) (*llmpkg.ChatResponse, error) {
	p.lastToolCount = len(req.Tools)
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("no more responses")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedCompletionProvider) HealthCheck(_ context.Context) (*llmpkg.HealthStatus, error) {
	return &llmpkg.HealthStatus{Healthy: true}, nil
}

func (p *scriptedCompletionProvider) Name() string { return "scripted" }

func (p *scriptedCompletionProvider) SupportsNativeFunctionCalling() bool { return p.nativeTools }

type scriptedToolExecutor struct {
	calls int
	failN int
}

func (e *scriptedToolExecutor) Execute(_ context.Context, calls []llmpkg.ToolCall) []ToolResult {
	out := make([]ToolResult, 0, len(calls))
	for _, c := range calls {
		e.calls++
		if e.failN > 0 {
			e.failN--
			out = append(out, ToolResult{
				ToolCallID: c.ID,
				Name:       c.Name,
				Error:      "invalid arguments",
				Duration:   time.Millisecond,
			})
			continue
		}
		out = append(out, ToolResult{
			ToolCallID: c.ID,
			Name:       c.Name,
			Result:     json.RawMessage(`{"ok":true}`),
			Duration:   time.Millisecond,
		})
	}
	return out
}

func (e *scriptedToolExecutor) ExecuteOne(ctx context.Context, call llmpkg.ToolCall) ToolResult {
	return e.Execute(ctx, []llmpkg.ToolCall{call})[0]
}

func toolCallResponse(id, name, args string) *llmpkg.ChatResponse {
	return &llmpkg.ChatResponse{
		Choices: []llmpkg.ChatChoice{{
			FinishReason: "tool_calls",
			Message: llmpkg.Message{
				Role: llmpkg.RoleAssistant,
				ToolCalls: []llmpkg.ToolCall{{
					ID:        id,
					Name:      name,
					Arguments: json.RawMessage(args),
				}},
			},
		}},
	}
}

func finalResponse(content string) *llmpkg.ChatResponse {
	return &llmpkg.ChatResponse{
		Choices: []llmpkg.ChatChoice{{
			FinishReason: "stop",
			Message: llmpkg.Message{
				Role:    llmpkg.RoleAssistant,
				Content: content,
			},
		}},
	}
}

func TestReActExecutor_Execute_MultiTurnToolLoop_Success(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: true,
		responses: []*llmpkg.ChatResponse{
			toolCallResponse("call_1", "echo", `{"text":"hi"}`),
			finalResponse("done"),
		},
	}
	toolExec := &scriptedToolExecutor{}
	executor := NewReActExecutor(provider, toolExec, ReActConfig{MaxIterations: 5}, logger)

	resp, steps, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if toolExec.calls != 1 {
		t.Fatalf("expected 1 tool execution, got %d", toolExec.calls)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "done" {
		t.Fatalf("unexpected final response: %#v", resp)
	}
}

func TestReActExecutor_Execute_ToolFailureCanContinue_AndReachFinal(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: true,
		responses: []*llmpkg.ChatResponse{
			toolCallResponse("call_1", "may_fail", `{"x":1}`),
			toolCallResponse("call_2", "retry", `{"x":2}`),
			finalResponse("done"),
		},
	}
	toolExec := &scriptedToolExecutor{failN: 1}
	executor := NewReActExecutor(provider, toolExec, ReActConfig{MaxIterations: 5}, logger)

	resp, steps, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if toolExec.calls != 2 {
		t.Fatalf("expected 2 tool executions, got %d", toolExec.calls)
	}
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0].Message.Content != "done" {
		t.Fatalf("unexpected final response: %#v", resp)
	}
}

func TestReActExecutor_Execute_StopOnError(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: true,
		responses: []*llmpkg.ChatResponse{
			toolCallResponse("call_1", "may_fail", `{"x":1}`),
			finalResponse("never reached"),
		},
	}
	toolExec := &scriptedToolExecutor{failN: 1}
	executor := NewReActExecutor(provider, toolExec, ReActConfig{MaxIterations: 5, StopOnError: true}, logger)

	_, steps, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if len(steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(steps))
	}
}

func TestReActExecutor_Execute_MaxIterationsReached(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: true,
		responses: []*llmpkg.ChatResponse{
			toolCallResponse("call_1", "loop", `{"x":1}`),
			toolCallResponse("call_2", "loop", `{"x":2}`),
		},
	}
	toolExec := &scriptedToolExecutor{}
	executor := NewReActExecutor(provider, toolExec, ReActConfig{MaxIterations: 2}, logger)

	resp, steps, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
	})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if resp != nil {
		t.Fatalf("expected nil response, got %#v", resp)
	}
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
}

func TestReActExecutor_Execute_StripsToolsWithoutNativeSupport(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: false,
		responses:   []*llmpkg.ChatResponse{finalResponse("plain answer")},
	}
	executor := NewReActExecutor(provider, &scriptedToolExecutor{}, ReActConfig{MaxIterations: 3}, logger)

	resp, _, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
		Tools:    []llmpkg.ToolSchema{{Name: "web_search"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if provider.lastToolCount != 0 {
		t.Fatalf("expected tools stripped, provider saw %d tools", provider.lastToolCount)
	}
	if resp.Choices[0].Message.Content != "plain answer" {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestReActExecutor_Execute_OnStepCallback(t *testing.T) {
	logger := zap.NewNop()
	provider := &scriptedCompletionProvider{
		nativeTools: true,
		responses: []*llmpkg.ChatResponse{
			toolCallResponse("call_1", "echo", `{"x":1}`),
			finalResponse("done"),
		},
	}

	var observed []ReActStep
	executor := NewReActExecutor(provider, &scriptedToolExecutor{}, ReActConfig{
		MaxIterations: 5,
		OnStep:        func(step ReActStep) { observed = append(observed, step) },
	}, logger)

	_, steps, err := executor.Execute(context.Background(), &llmpkg.ChatRequest{
		Model:    "dummy",
		Messages: []llmpkg.Message{{Role: llmpkg.RoleUser, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(observed) != len(steps) {
		t.Fatalf("expected %d observed steps, got %d", len(steps), len(observed))
	}
	if len(observed[0].Actions) != 1 || observed[0].Actions[0].Name != "echo" {
		t.Fatalf("unexpected first step: %#v", observed[0])
	}
}
