package tools

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/waritsan/fincrew/llm"
)

// ReActConfig defines ReAct loop configuration.
type ReActConfig struct {
	MaxIterations int  // Maximum iterations (prevents infinite loops)
	StopOnError   bool // Stop on tool execution error

	// OnStep 每轮结束后回调, 用于追踪输出; 可为 nil
	OnStep func(step ReActStep)
}

// ReActExecutor implements the ReAct (Reasoning and Acting) loop.
// Automatically handles "LLM -> Tool -> LLM" multi-turn conversations.
type ReActExecutor struct {
	provider     llm.Provider
	toolExecutor Executor
	logger       *zap.Logger
	config       ReActConfig
}

// NewReActExecutor creates a ReAct executor.
func NewReActExecutor(provider llm.Provider, toolExecutor Executor, config ReActConfig, logger *zap.Logger) *ReActExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxIterations == 0 {
		config.MaxIterations = 10
	}
	return &ReActExecutor{
		provider:     provider,
		toolExecutor: toolExecutor,
		logger:       logger,
		config:       config,
	}
}

// Execute runs the ReAct loop, returning final response and all steps.
func (r *ReActExecutor) Execute(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, []ReActStep, error) {
	steps := make([]ReActStep, 0)
	messages := append([]llm.Message{}, req.Messages...)

	// 不支持原生函数调用的后端退化为纯对话
	stripTools := len(req.Tools) > 0 && !r.provider.SupportsNativeFunctionCalling()
	if stripTools {
		r.logger.Warn("provider lacks native function calling, tools disabled",
			zap.String("provider", r.provider.Name()))
	}

	for i := 0; i < r.config.MaxIterations; i++ {
		r.logger.Debug("ReAct iteration", zap.Int("iteration", i+1))

		callReq := *req
		callReq.Messages = messages
		if stripTools {
			callReq.Tools = nil
		}
		resp, err := r.provider.Completion(ctx, &callReq)
		if err != nil {
			return nil, steps, fmt.Errorf("LLM call failed at iteration %d: %w", i+1, err)
		}

		if len(resp.Choices) == 0 {
			return resp, steps, fmt.Errorf("no choices in LLM response")
		}

		choice := resp.Choices[0]
		toolCalls := choice.Message.ToolCalls

		step := ReActStep{
			StepNumber: i + 1,
			Thought:    choice.Message.Content,
			Usage:      resp.Usage,
		}

		if len(toolCalls) == 0 {
			r.logger.Info("ReAct completed", zap.Int("iterations", i+1), zap.String("finish_reason", choice.FinishReason))
			steps = r.appendStep(steps, step)
			return resp, steps, nil
		}

		r.logger.Info("executing tools", zap.Int("count", len(toolCalls)))
		step.Actions = toolCalls
		toolResults := r.toolExecutor.Execute(ctx, toolCalls)
		step.Observations = toolResults

		hasError := false
		for _, result := range toolResults {
			if result.Error != "" {
				hasError = true
				r.logger.Warn("tool execution failed", zap.String("tool", result.Name), zap.String("error", result.Error))
			}
		}

		if hasError && r.config.StopOnError {
			steps = r.appendStep(steps, step)
			return resp, steps, fmt.Errorf("tool execution failed, stopping ReAct loop")
		}

		messages = append(messages, choice.Message)
		for _, result := range toolResults {
			messages = append(messages, result.ToMessage())
		}
		steps = r.appendStep(steps, step)
	}

	r.logger.Warn("ReAct max iterations reached", zap.Int("max", r.config.MaxIterations))
	return nil, steps, fmt.Errorf("max iterations reached (%d)", r.config.MaxIterations)
}

func (r *ReActExecutor) appendStep(steps []ReActStep, step ReActStep) []ReActStep {
	if r.config.OnStep != nil {
		r.config.OnStep(step)
	}
	return append(steps, step)
}

// ReActStep represents one step in the ReAct loop (Thought -> Action -> Observation).
type ReActStep struct {
	StepNumber   int            `json:"step_number"`
	Thought      string         `json:"thought,omitempty"`
	Actions      []llm.ToolCall `json:"actions,omitempty"`
	Observations []ToolResult   `json:"observations,omitempty"`
	Usage        llm.ChatUsage  `json:"usage"`
}
